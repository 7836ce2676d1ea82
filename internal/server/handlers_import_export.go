package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/untoldecay/grns/internal/api"
)

const (
	exportPageSize   = 500
	maxImportLineLen = 10 << 20
)

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !acquireSlot(s.importSlots) {
		s.writeError(w, r, tooManyRequests("an import is already running"))
		return
	}
	defer releaseSlot(s.importSlots)

	var req api.ImportRequest
	if ae := decodeJSON(w, r, maxImportBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	opts, ae := parseImportOptions(req.DryRun, req.Dedupe, req.OrphanHandling, req.Atomic)
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}
	if len(req.Tasks) == 0 {
		s.writeError(w, r, badRequestCode(ErrCodeMissingRequired, "tasks are required"))
		return
	}

	imp := newImporter(s.store)
	records := make([]importRecord, 0, len(req.Tasks))
	for i := range req.Tasks {
		records = append(records, imp.normalizeRecord(i+1, &req.Tasks[i]))
	}

	resp, err := imp.Run(r.Context(), records, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleImportStream consumes raw NDJSON, one task record per line. Blank
// and whitespace-only lines are skipped; a line that fails to parse fails
// the whole import before anything is committed.
func (s *Server) handleImportStream(w http.ResponseWriter, r *http.Request) {
	if !acquireSlot(s.importSlots) {
		s.writeError(w, r, tooManyRequests("an import is already running"))
		return
	}
	defer releaseSlot(s.importSlots)

	values := r.URL.Query()
	opts, ae := parseImportOptions(
		queryBool(values, "dry_run"),
		values.Get("dedupe"),
		values.Get("orphan_handling"),
		queryBool(values, "atomic"),
	)
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}

	imp := newImporter(s.store)
	records := []importRecord{}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 64*1024), maxImportLineLen)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec api.TaskImportRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// A line that is not JSON fails the whole import; nothing has
			// been committed yet at this point.
			s.writeError(w, r, badRequestCode(ErrCodeInvalidJSON, "line %d: %v", line, err))
			return
		}
		records = append(records, imp.normalizeRecord(line, &rec))
	}
	if err := scanner.Err(); err != nil {
		s.writeError(w, r, badRequestCode(ErrCodeInvalidJSON, "read import stream: %v", err))
		return
	}
	if len(records) == 0 {
		s.writeError(w, r, badRequestCode(ErrCodeMissingRequired, "import stream is empty"))
		return
	}

	resp, err := imp.Run(r.Context(), records, opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport streams every matching task as NDJSON, paging through the
// store so large datasets never sit in memory whole.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !acquireSlot(s.exportSlots) {
		s.writeError(w, r, tooManyRequests("too many concurrent exports"))
		return
	}
	defer releaseSlot(s.exportSlots)

	filter, ae := parseListFilter(r)
	if ae != nil {
		s.writeError(w, r, ae)
		return
	}
	filter.OrderByID = true

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	remaining := filter.Limit
	offset := filter.Offset
	for {
		pageFilter := filter
		pageFilter.Offset = offset
		pageFilter.Limit = exportPageSize
		if remaining > 0 && remaining < exportPageSize {
			pageFilter.Limit = remaining
		}

		page, err := s.service.ListTasks(r.Context(), pageFilter)
		if err != nil {
			// Headers are gone; log and stop the stream.
			s.logger.Error("export aborted", "error", err)
			return
		}
		for i := range page {
			rec := api.TaskImportRecord{
				Task:   page[i].Task,
				Labels: page[i].Labels,
				Deps:   page[i].Deps,
			}
			if err := enc.Encode(rec); err != nil {
				return
			}
		}
		if flusher != nil {
			flusher.Flush()
		}

		if len(page) < pageFilter.Limit {
			return
		}
		offset += len(page)
		if remaining > 0 {
			remaining -= len(page)
			if remaining <= 0 {
				return
			}
		}
	}
}
