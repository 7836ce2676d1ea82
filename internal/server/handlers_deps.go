package server

import (
	"net/http"

	"github.com/untoldecay/grns/internal/api"
)

func (s *Server) handleAddLabels(w http.ResponseWriter, r *http.Request) {
	var req api.LabelsRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.AddLabels(r.Context(), r.PathValue("id"), req.Labels)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveLabels(w http.ResponseWriter, r *http.Request) {
	var req api.LabelsRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	resp, err := s.service.RemoveLabels(r.Context(), r.PathValue("id"), req.Labels)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAllLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.store.ListAllLabels(r.Context())
	if err != nil {
		s.writeServiceError(w, r, internalError(ErrCodeStoreFailure, err))
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var req api.DepCreateRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	if err := s.service.AddDependency(r.Context(), &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveDependency(r.Context(), r.PathValue("id"), r.PathValue("parent_id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDependencyTree(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.DependencyTree(r.Context(), r.PathValue("id"), r.URL.Query().Get("direction"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
