package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "grns.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv, err := New(Options{
		Store:         st,
		ProjectPrefix: "gr",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, srv.routes()
}

// doJSON issues one request against the handler tree and decodes the JSON
// body into out when out is non-nil.
func doJSON(t *testing.T, h http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response (%d): %v\nbody: %s", method, path, rec.Code, err, rec.Body.String())
		}
	}
	return rec
}

func createTestTask(t *testing.T, h http.Handler, req *api.TaskCreateRequest) *api.TaskResponse {
	t.Helper()
	var resp api.TaskResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks", req, &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: status %d body %s", rec.Code, rec.Body.String())
	}
	return &resp
}

func wantErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status, errCode int) api.ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var body api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v\nbody: %s", err, rec.Body.String())
	}
	if body.ErrorCode != errCode {
		t.Errorf("error_code = %d, want %d (message %q)", body.ErrorCode, errCode, body.Error)
	}
	return body
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
