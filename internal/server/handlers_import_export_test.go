package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
)

func importRecords(titles map[string]string) []api.TaskImportRecord {
	records := make([]api.TaskImportRecord, 0, len(titles))
	for id, title := range titles {
		rec := api.TaskImportRecord{}
		rec.ID = id
		rec.Title = title
		records = append(records, rec)
	}
	return records
}

func TestImportCreates(t *testing.T) {
	_, h := newTestServer(t)

	var resp api.ImportResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks: importRecords(map[string]string{"gr-a001": "one", "gr-a002": "two"}),
	}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if resp.Created != 2 || resp.Errors != 0 {
		t.Errorf("import response: %+v", resp)
	}
	if resp.ApplyMode != "chunked" || resp.AppliedChunks != 1 {
		t.Errorf("apply mode: %+v", resp)
	}

	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Title != "one" {
		t.Errorf("imported task lost: %+v", task)
	}
}

func TestImportDedupeModes(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "original"})

	// Default skip leaves the existing task alone.
	var resp api.ImportResponse
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks: importRecords(map[string]string{"gr-a001": "replacement"}),
	}, &resp)
	if resp.Skipped != 1 || resp.Created != 0 {
		t.Errorf("skip mode: %+v", resp)
	}
	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Title != "original" {
		t.Errorf("skip mode overwrote the task: %q", task.Title)
	}

	// Overwrite replaces it.
	resp = api.ImportResponse{}
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:  importRecords(map[string]string{"gr-a001": "replacement"}),
		Dedupe: "overwrite",
	}, &resp)
	if resp.Updated != 1 {
		t.Errorf("overwrite mode: %+v", resp)
	}
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Title != "replacement" {
		t.Errorf("overwrite mode did not replace: %q", task.Title)
	}

	// Error counts the duplicate as a failure.
	resp = api.ImportResponse{}
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:  importRecords(map[string]string{"gr-a001": "again"}),
		Dedupe: "error",
	}, &resp)
	if resp.Errors != 1 {
		t.Errorf("error mode: %+v", resp)
	}

	rec := doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:  importRecords(map[string]string{"gr-a001": "x"}),
		Dedupe: "merge",
	}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidImportMode)
}

func TestImportOrphanHandling(t *testing.T) {
	_, h := newTestServer(t)

	record := api.TaskImportRecord{}
	record.ID = "gr-a001"
	record.Title = "child"
	record.Deps = []models.Dependency{{ParentID: "gr-zzzz"}}

	// Lenient drops the edge and still creates the task.
	var resp api.ImportResponse
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{Tasks: []api.TaskImportRecord{record}}, &resp)
	if resp.Created != 1 || resp.Errors != 0 {
		t.Errorf("lenient: %+v", resp)
	}
	if len(resp.Messages) == 0 {
		t.Error("lenient drop should leave a message")
	}
	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if len(task.Deps) != 0 {
		t.Errorf("orphan edge survived: %+v", task.Deps)
	}

	// Strict reports the orphan edge as an error but still creates the
	// task, minus the edge.
	record.ID = "gr-a002"
	resp = api.ImportResponse{}
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:          []api.TaskImportRecord{record},
		OrphanHandling: "strict",
	}, &resp)
	if resp.Created != 1 || resp.Errors != 1 {
		t.Errorf("strict: %+v", resp)
	}
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a002", nil, &task)
	if task.ID != "gr-a002" || len(task.Deps) != 0 {
		t.Errorf("strict should apply the record without the orphan edge: %+v", task)
	}
}

func TestImportOverwriteMerge(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{
		ID:          "gr-a001",
		Title:       "original",
		Description: strp("keep me"),
		Labels:      []string{"infra"},
	})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "blocker"})
	doJSON(t, h, http.MethodPost, "/v1/deps", &api.DepCreateRequest{ChildID: "gr-a001", ParentID: "gr-a002"}, nil)

	stream := func(line string) api.ImportResponse {
		req := httptest.NewRequest(http.MethodPost, "/v1/import/stream?dedupe=overwrite", strings.NewReader(line+"\n"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("stream status %d body %s", rec.Code, rec.Body.String())
		}
		var resp api.ImportResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	// Fields absent from the line keep their stored values; absent deps and
	// labels are preserved too.
	resp := stream(`{"id":"gr-a001","title":"merged"}`)
	if resp.Updated != 1 || resp.Errors != 0 {
		t.Fatalf("merge response: %+v", resp)
	}
	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Title != "merged" {
		t.Errorf("title not replaced: %q", task.Title)
	}
	if task.Description != "keep me" {
		t.Errorf("absent description was clobbered: %q", task.Description)
	}
	if len(task.Labels) != 1 || len(task.Deps) != 1 {
		t.Errorf("absent labels/deps not preserved: %+v / %+v", task.Labels, task.Deps)
	}

	// Present-but-empty deps and labels clear the stored sets.
	stream(`{"id":"gr-a001","title":"merged","labels":[],"deps":[]}`)
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if len(task.Labels) != 0 || len(task.Deps) != 0 {
		t.Errorf("empty labels/deps should clear: %+v / %+v", task.Labels, task.Deps)
	}

	// A closed status on the line stamps closed_at from the record's
	// updated_at.
	stream(`{"id":"gr-a001","title":"merged","status":"closed","updated_at":"2026-01-02T03:04:05Z"}`)
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Status != "closed" || task.ClosedAt == nil {
		t.Fatalf("merge close: %+v", task)
	}
	if !task.ClosedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("closed_at = %v, want the record's updated_at", task.ClosedAt)
	}
}

func TestImportIntraBatchParent(t *testing.T) {
	_, h := newTestServer(t)

	child := api.TaskImportRecord{}
	child.ID = "gr-a001"
	child.Title = "child"
	child.Deps = []models.Dependency{{ParentID: "gr-a002"}}
	parent := api.TaskImportRecord{}
	parent.ID = "gr-a002"
	parent.Title = "parent"

	// Child sorts before parent; the batch id set must still satisfy the
	// strict orphan check.
	var resp api.ImportResponse
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:          []api.TaskImportRecord{child, parent},
		OrphanHandling: "strict",
	}, &resp)
	if resp.Created != 2 || resp.Errors != 0 {
		t.Errorf("intra batch: %+v", resp)
	}
}

func TestImportDryRun(t *testing.T) {
	_, h := newTestServer(t)

	var resp api.ImportResponse
	doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:  importRecords(map[string]string{"gr-a001": "one"}),
		DryRun: true,
	}, &resp)
	if resp.Created != 1 || !resp.DryRun {
		t.Errorf("dry run: %+v", resp)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Error("dry run wrote to the store")
	}
}

func TestImportAtomicFailure(t *testing.T) {
	_, h := newTestServer(t)

	good := api.TaskImportRecord{}
	good.ID = "gr-a001"
	good.Title = "good"
	bad := api.TaskImportRecord{}
	bad.ID = "gr-a002"
	bad.Title = "bad dep"
	bad.Deps = []models.Dependency{{ParentID: "gr-zzzz"}}

	rec := doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{
		Tasks:          []api.TaskImportRecord{good, bad},
		OrphanHandling: "strict",
		Atomic:         true,
	}, nil)
	body := wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeImportFailed)
	if !strings.Contains(body.Error, "line 2") {
		t.Errorf("atomic failure should name the line: %q", body.Error)
	}

	if rec := doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, nil); rec.Code != http.StatusNotFound {
		t.Error("atomic import committed a partial batch")
	}
}

func TestImportStream(t *testing.T) {
	_, h := newTestServer(t)

	// Blank and whitespace-only lines are skipped.
	var buf bytes.Buffer
	for _, line := range []string{
		`{"id":"gr-a001","title":"one","labels":["infra"]}`,
		``,
		`   `,
		`{"id":"gr-a002","title":"two","status":"closed"}`,
	} {
		buf.WriteString(line + "\n")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/import/stream?dedupe=skip", &buf)
	req.Header.Set("Content-Type", "application/x-ndjson")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	var resp api.ImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Created != 2 || resp.Errors != 0 {
		t.Errorf("stream response: %+v", resp)
	}

	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a002", nil, &task)
	if task.Status != "closed" || task.ClosedAt == nil {
		t.Errorf("closed import record missing closed_at: %+v", task)
	}
}

func TestImportStreamParseErrorFailsWhole(t *testing.T) {
	_, h := newTestServer(t)

	body := strings.NewReader(
		`{"id":"gr-b001","title":"good"}` + "\n" + `{not json}` + "\n")
	req := httptest.NewRequest(http.MethodPost, "/v1/import/stream", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	errBody := wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidJSON)
	if !strings.Contains(errBody.Error, "line 2") {
		t.Errorf("parse failure should name the line: %q", errBody.Error)
	}

	// Nothing before the bad line may be committed.
	if got := doJSON(t, h, http.MethodGet, "/v1/tasks/gr-b001", nil, nil); got.Code != http.StatusNotFound {
		t.Error("parse failure committed earlier records")
	}
}

func TestExportRoundTrip(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "one", Labels: []string{"infra"}})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "two"})

	req := httptest.NewRequest(http.MethodGet, "/v1/export", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type %q", ct)
	}

	var lines []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lines = append(lines, scanner.Text())
		}
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d", len(lines))
	}
	var ids []string
	for _, line := range lines {
		var rec api.TaskImportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("export line not valid JSON: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	// Export streams in id order regardless of update recency.
	if ids[0] != "gr-a001" || ids[1] != "gr-a002" {
		t.Errorf("export order: %v", ids)
	}

	// Re-importing the export into a fresh server reproduces the tasks.
	_, h2 := newTestServer(t)
	body := strings.NewReader(strings.Join(lines, "\n") + "\n")
	req = httptest.NewRequest(http.MethodPost, "/v1/import/stream", body)
	rec2 := httptest.NewRecorder()
	h2.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("re-import status %d body %s", rec2.Code, rec2.Body.String())
	}
	var resp api.ImportResponse
	if err := json.Unmarshal(rec2.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Created != 2 || resp.Errors != 0 {
		t.Errorf("round trip: %+v", resp)
	}

	var task api.TaskResponse
	doJSON(t, h2, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Title != "one" || len(task.Labels) != 1 || task.Labels[0] != "infra" {
		t.Errorf("round tripped task: %+v", task)
	}
}

func TestExportStatusFilter(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "open one"})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "closed one", Status: strp("closed")})

	req := httptest.NewRequest(http.MethodGet, "/v1/export?status=closed", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var count int
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 closed task in export, got %d", count)
	}
}

func TestImportEmptyBody(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/import", &api.ImportRequest{}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeMissingRequired)

	req := httptest.NewRequest(http.MethodPost, "/v1/import/stream", strings.NewReader(""))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Errorf("empty stream: status %d, want 400", res.Code)
	}
}
