package server

import (
	"net/http"

	"github.com/untoldecay/grns/internal/api"
)

func (s *Server) handleCreateTaskGitRef(w http.ResponseWriter, r *http.Request) {
	var req api.TaskGitRefCreateRequest
	if ae := decodeJSON(w, r, maxBodyBytes, &req); ae != nil {
		s.writeError(w, r, ae)
		return
	}
	ref, err := s.gitRefs.Create(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.TaskGitRefResponse{TaskGitRef: *ref})
}

func (s *Server) handleListTaskGitRefs(w http.ResponseWriter, r *http.Request) {
	refs, err := s.gitRefs.List(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]api.TaskGitRefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, api.TaskGitRefResponse{TaskGitRef: ref})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTaskGitRef(w http.ResponseWriter, r *http.Request) {
	ref, err := s.gitRefs.Get(r.Context(), r.PathValue("id"), r.PathValue("ref_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TaskGitRefResponse{TaskGitRef: *ref})
}

func (s *Server) handleDeleteTaskGitRef(w http.ResponseWriter, r *http.Request) {
	if err := s.gitRefs.Delete(r.Context(), r.PathValue("id"), r.PathValue("ref_id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGitRef(w http.ResponseWriter, r *http.Request) {
	ref, err := s.gitRefs.GetByID(r.Context(), r.PathValue("ref_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TaskGitRefResponse{TaskGitRef: *ref})
}

func (s *Server) handleDeleteGitRef(w http.ResponseWriter, r *http.Request) {
	if err := s.gitRefs.DeleteByID(r.Context(), r.PathValue("ref_id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
