package server

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/store"
	"github.com/untoldecay/grns/internal/version"
)

const defaultStaleDays = 30

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Version: version.Version})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req api.TaskCreateRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.CreateTask(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreateTasksBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []api.TaskCreateRequest
	if ae := decodeJSON(w, r, maxBatchBodyBytes, &reqs); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.CreateTasks(r.Context(), reqs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	var req api.TaskGetManyRequest
	if ae := decodeJSON(w, r, maxBatchBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.GetTasks(r.Context(), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req api.TaskUpdateRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.UpdateTask(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseTasks(w http.ResponseWriter, r *http.Request) {
	var req api.TaskCloseRequest
	if ae := decodeJSON(w, r, maxBatchBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.CloseTasks(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReopenTasks(w http.ResponseWriter, r *http.Request) {
	var req api.TaskReopenRequest
	if ae := decodeJSON(w, r, maxBatchBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.ReopenTasks(r.Context(), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, ae := parseListFilter(r)
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}

	if filter.SearchQuery != "" {
		if !acquireSlot(s.searchSlots) {
			s.writeError(w, r, tooManyRequests("too many concurrent searches"))
			return
		}
		defer releaseSlot(s.searchSlots)
	}

	resp, err := s.service.ListTasks(r.Context(), filter)
	if err != nil {
		if filter.SearchQuery != "" && isFTSSyntaxError(err) {
			s.writeError(w, r, badRequestCode(ErrCodeInvalidSearch, "invalid search query %q", filter.SearchQuery))
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReadyTasks(w http.ResponseWriter, r *http.Request) {
	limit, ae := queryInt(r.URL.Query(), "limit")
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	resp, err := s.service.ListReadyTasks(r.Context(), n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListStaleTasks(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	days := defaultStaleDays
	if d, ae := queryInt(values, "days"); ae != nil {
		s.writeError(w, r, ae)
		return
	} else if d != nil {
		if *d < 0 {
			s.writeError(w, r, badRequestCode(ErrCodeInvalidQuery, "days must not be negative"))
			return
		}
		days = *d
	}
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	var statuses []string
	for _, raw := range splitCSV(values.Get("status")) {
		status, ae := normalizeStatus(raw)
		if ae != nil {
			s.writeError(w, r, ae)
			return
		}
		statuses = append(statuses, status)
	}

	limit, ae := queryInt(values, "limit")
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	resp, err := s.service.ListStaleTasks(r.Context(), cutoff, statuses, n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseListFilter maps list/search query parameters onto a store filter.
func parseListFilter(r *http.Request) (store.ListFilter, *apiError) {
	values := r.URL.Query()
	var filter store.ListFilter

	for _, raw := range splitCSV(values.Get("status")) {
		status, ae := normalizeStatus(raw)
		if ae != nil {
			return filter, ae
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitCSV(values.Get("type")) {
		taskType, ae := normalizeType(raw)
		if ae != nil {
			return filter, ae
		}
		filter.Types = append(filter.Types, taskType)
	}

	var ae *apiError
	if filter.Priority, ae = queryInt(values, "priority"); ae != nil {
		return filter, ae
	}
	if filter.PriorityMin, ae = queryInt(values, "priority_min"); ae != nil {
		return filter, ae
	}
	if filter.PriorityMax, ae = queryInt(values, "priority_max"); ae != nil {
		return filter, ae
	}
	for _, p := range []*int{filter.Priority, filter.PriorityMin, filter.PriorityMax} {
		if p != nil {
			if ae := validatePriority(*p); ae != nil {
				return filter, ae
			}
		}
	}

	if parent := strings.TrimSpace(values.Get("parent")); parent != "" {
		parent = strings.ToLower(parent)
		if !taskIDRe.MatchString(parent) {
			return filter, badRequestCode(ErrCodeInvalidParentID, "invalid parent id %q", parent)
		}
		filter.ParentID = parent
	}

	for _, raw := range splitCSV(values.Get("label")) {
		label, ae := normalizeLabel(raw)
		if ae != nil {
			return filter, ae
		}
		filter.Labels = append(filter.Labels, label)
	}
	for _, raw := range splitCSV(values.Get("label_any")) {
		label, ae := normalizeLabel(raw)
		if ae != nil {
			return filter, ae
		}
		filter.LabelsAny = append(filter.LabelsAny, label)
	}

	spec := strings.TrimSpace(values.Get("spec"))
	if spec == "" {
		spec = strings.TrimSpace(values.Get("spec_regex"))
	}
	if spec != "" {
		// Spec patterns match case-insensitively.
		pattern := "(?i)" + spec
		if _, err := regexp.Compile(pattern); err != nil {
			return filter, badRequestCode(ErrCodeInvalidQuery, "invalid spec regex")
		}
		filter.SpecRegex = pattern
	}

	filter.Assignee = strings.TrimSpace(values.Get("assignee"))
	filter.NoAssignee = queryBool(values, "no_assignee")

	for _, raw := range splitCSV(values.Get("id")) {
		id := strings.ToLower(raw)
		if !taskIDRe.MatchString(id) {
			return filter, badRequestCode(ErrCodeInvalidID, "invalid task id %q", raw)
		}
		filter.IDs = append(filter.IDs, id)
	}

	filter.TitleContains = values.Get("title_contains")
	filter.DescContains = values.Get("desc_contains")
	filter.NotesContains = values.Get("notes_contains")

	if filter.CreatedAfter, ae = queryTime(values, "created_after"); ae != nil {
		return filter, ae
	}
	if filter.CreatedBefore, ae = queryTime(values, "created_before"); ae != nil {
		return filter, ae
	}
	if filter.UpdatedAfter, ae = queryTime(values, "updated_after"); ae != nil {
		return filter, ae
	}
	if filter.UpdatedBefore, ae = queryTime(values, "updated_before"); ae != nil {
		return filter, ae
	}
	if filter.ClosedAfter, ae = queryTime(values, "closed_after"); ae != nil {
		return filter, ae
	}
	if filter.ClosedBefore, ae = queryTime(values, "closed_before"); ae != nil {
		return filter, ae
	}

	filter.EmptyDescription = queryBool(values, "empty_description")
	filter.NoLabels = queryBool(values, "no_labels")

	search := strings.TrimSpace(values.Get("search"))
	if search == "" {
		search = strings.TrimSpace(values.Get("q"))
	}
	if search != "" {
		filter.SearchQuery = search
	}

	if limit, ae := queryInt(values, "limit"); ae != nil {
		return filter, ae
	} else if limit != nil {
		if *limit < 0 {
			return filter, badRequestCode(ErrCodeInvalidQuery, "limit must not be negative")
		}
		filter.Limit = *limit
	}
	if offset, ae := queryInt(values, "offset"); ae != nil {
		return filter, ae
	} else if offset != nil {
		if *offset < 0 {
			return filter, badRequestCode(ErrCodeInvalidQuery, "offset must not be negative")
		}
		filter.Offset = *offset
	}

	return filter, nil
}

// isFTSSyntaxError detects sqlite FTS5 query parse failures so they map to
// 400 instead of 500.
func isFTSSyntaxError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "malformed match")
}
