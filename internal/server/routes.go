package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// routes builds the full handler tree. Every API route is registered twice:
// once under /v1/projects/{project} and once under the bare /v1 alias that
// implies the server's configured project.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	register := func(method, path string, h http.HandlerFunc) {
		mux.Handle(method+" /v1"+path, s.authenticate(h))
		mux.Handle(method+" /v1/projects/{project}"+path, s.authenticate(s.requireProject(h)))
	}

	register("POST", "/tasks", s.handleCreateTask)
	register("GET", "/tasks", s.handleListTasks)
	register("POST", "/tasks/batch", s.handleCreateTasksBatch)
	register("POST", "/tasks/get", s.handleGetTasks)
	register("POST", "/tasks/close", s.handleCloseTasks)
	register("POST", "/tasks/reopen", s.handleReopenTasks)
	register("GET", "/tasks/ready", s.handleListReadyTasks)
	register("GET", "/tasks/stale", s.handleListStaleTasks)

	register("GET", "/tasks/{id}", s.handleGetTask)
	register("PATCH", "/tasks/{id}", s.handleUpdateTask)
	register("DELETE", "/tasks/{id}", s.handleDeleteTask)

	register("POST", "/tasks/{id}/labels", s.handleAddLabels)
	register("DELETE", "/tasks/{id}/labels", s.handleRemoveLabels)
	register("GET", "/labels", s.handleListAllLabels)

	register("POST", "/deps", s.handleAddDependency)
	register("DELETE", "/tasks/{id}/deps/{parent_id}", s.handleRemoveDependency)
	register("GET", "/tasks/{id}/dep-tree", s.handleDependencyTree)

	register("POST", "/tasks/{id}/git-refs", s.handleCreateTaskGitRef)
	register("GET", "/tasks/{id}/git-refs", s.handleListTaskGitRefs)
	register("GET", "/tasks/{id}/git-refs/{ref_id}", s.handleGetTaskGitRef)
	register("DELETE", "/tasks/{id}/git-refs/{ref_id}", s.handleDeleteTaskGitRef)
	register("GET", "/git-refs/{ref_id}", s.handleGetGitRef)
	register("DELETE", "/git-refs/{ref_id}", s.handleDeleteGitRef)

	register("POST", "/import", s.handleImport)
	register("POST", "/import/stream", s.handleImportStream)
	register("GET", "/export", s.handleExport)

	register("GET", "/info", s.handleInfo)
	register("POST", "/admin/cleanup", s.handleCleanup)

	return s.logRequests(mux)
}

// requireProject rejects requests whose {project} segment does not match the
// server's configured prefix.
func (s *Server) requireProject(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project := strings.ToLower(r.PathValue("project"))
		if project != s.projectPrefix {
			s.writeError(w, r, notFoundCode(ErrCodeTaskNotFound, "unknown project %q", project))
			return
		}
		next(w, r)
	}
}

// authenticate enforces the bearer token when GRNS_API_TOKEN is set.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiToken)) != 1 {
				s.writeError(w, r, &apiError{
					status:  http.StatusUnauthorized,
					code:    codeUnauthorized,
					errCode: ErrCodeUnauthorized,
					err:     errUnauthorized,
				})
				return
			}
		}
		next(w, r)
	}
}

// requireAdmin gates the admin endpoints behind GRNS_ADMIN_TOKEN.
func (s *Server) requireAdmin(r *http.Request) *apiError {
	if s.adminToken == "" {
		return nil
	}
	got := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
		return &apiError{
			status:  http.StatusForbidden,
			code:    codeForbidden,
			errCode: ErrCodeForbidden,
			err:     errForbidden,
		}
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps export streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
