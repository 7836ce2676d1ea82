package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestClientScopedPaths(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(TaskResponse{})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.SetProject("ab")
	if _, err := c.GetTask(context.Background(), "ab-0001"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotPath != "/v1/projects/ab/tasks/ab-0001" {
		t.Errorf("path = %q", gotPath)
	}

	// Invalid project slugs fall back to the default.
	c.SetProject("NOT A SLUG")
	if c.Project() != "gr" {
		t.Errorf("project = %q, want gr", c.Project())
	}
}

func TestClientDecodesErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:     "task gr-zzzz not found",
			Code:      "not_found",
			ErrorCode: 2001,
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.GetTask(context.Background(), "gr-zzzz")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" || apiErr.ErrorCode != 2001 {
		t.Errorf("decoded error: %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "task gr-zzzz not found") {
		t.Errorf("error text: %q", apiErr.Error())
	}
}

func TestClientNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.Info(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "bad gateway" {
		t.Errorf("fallback error: %+v", apiErr)
	}
}

func TestClientRetriesGetOnTransportError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Kill the connection so the client sees a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("recorder not hijackable")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	health, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("ping after retry: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("health: %+v", health)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientDoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("recorder not hijackable")
		}
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.CreateTask(context.Background(), &TaskCreateRequest{Title: "x"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if calls.Load() != 1 {
		t.Errorf("POST retried: %d calls", calls.Load())
	}
}

func TestClientSendsAuthHeaders(t *testing.T) {
	t.Setenv("GRNS_API_TOKEN", "sekret")
	t.Setenv("GRNS_ADMIN_TOKEN", "admin-sekret")

	var auth, admin, confirm string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		admin = r.Header.Get("X-Admin-Token")
		confirm = r.Header.Get("X-Confirm")
		json.NewEncoder(w).Encode(CleanupResponse{})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if _, err := c.Cleanup(context.Background(), &CleanupRequest{DryRun: true}); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if auth != "Bearer sekret" {
		t.Errorf("auth header: %q", auth)
	}
	if admin != "admin-sekret" || confirm != "yes" {
		t.Errorf("admin headers: %q %q", admin, confirm)
	}
}
