package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
)

func TestCreateTaskDefaults(t *testing.T) {
	_, h := newTestServer(t)

	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "first task"})
	if ok, _ := regexp.MatchString(`^gr-[0-9a-z]{4}$`, task.ID); !ok {
		t.Errorf("generated id %q does not match prefix pattern", task.ID)
	}
	if task.Status != string(models.StatusOpen) {
		t.Errorf("status = %q, want open", task.Status)
	}
	if task.Type != string(models.TypeTask) {
		t.Errorf("type = %q, want task", task.Type)
	}
	if task.Priority != models.DefaultPriority {
		t.Errorf("priority = %d, want %d", task.Priority, models.DefaultPriority)
	}
	if task.Labels == nil {
		t.Error("labels should serialize as an empty array, not null")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name    string
		req     api.TaskCreateRequest
		errCode int
	}{
		{"missing title", api.TaskCreateRequest{}, ErrCodeMissingRequired},
		{"bad status", api.TaskCreateRequest{Title: "x", Status: strp("done")}, ErrCodeInvalidStatus},
		{"bad type", api.TaskCreateRequest{Title: "x", Type: strp("story")}, ErrCodeInvalidType},
		{"priority out of range", api.TaskCreateRequest{Title: "x", Priority: intp(9)}, ErrCodeInvalidPriority},
		{"bad explicit id", api.TaskCreateRequest{ID: "GR-1", Title: "x"}, ErrCodeInvalidID},
		{"foreign prefix id", api.TaskCreateRequest{ID: "zz-a001", Title: "x"}, ErrCodeInvalidID},
		{"bad label", api.TaskCreateRequest{Title: "x", Labels: []string{"UPPER CASE"}}, ErrCodeInvalidLabel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/v1/tasks", tc.req, nil)
			wantErrorCode(t, rec, http.StatusBadRequest, tc.errCode)
		})
	}
}

func TestCreateTaskExplicitIDConflict(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "first"})

	rec := doJSON(t, h, http.MethodPost, "/v1/tasks", &api.TaskCreateRequest{ID: "gr-a001", Title: "second"}, nil)
	wantErrorCode(t, rec, http.StatusConflict, ErrCodeTaskIDExists)
}

func TestGetTaskNotFound(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/tasks/gr-zzzz", nil, nil)
	wantErrorCode(t, rec, http.StatusNotFound, ErrCodeTaskNotFound)
}

func TestGetTasksPreservesOrder(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "one"})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "two"})

	var resp []api.TaskResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/get", &api.TaskGetManyRequest{IDs: []string{"gr-a002", "gr-a001"}}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if len(resp) != 2 || resp[0].ID != "gr-a002" || resp[1].ID != "gr-a001" {
		t.Errorf("order not preserved: %v", []string{resp[0].ID, resp[1].ID})
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/tasks/get", &api.TaskGetManyRequest{IDs: []string{"gr-a001", "gr-zzzz"}}, nil)
	wantErrorCode(t, rec, http.StatusNotFound, ErrCodeTaskNotFound)
}

func TestUpdateTask(t *testing.T) {
	_, h := newTestServer(t)
	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "before"})

	var updated api.TaskResponse
	rec := doJSON(t, h, http.MethodPatch, "/v1/tasks/"+task.ID, &api.TaskUpdateRequest{
		Title:    strp("after"),
		Status:   strp("in_progress"),
		Priority: intp(0),
	}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if updated.Title != "after" || updated.Status != "in_progress" || updated.Priority != 0 {
		t.Errorf("update not reflected: %+v", updated)
	}
}

func TestUpdateTaskNoFields(t *testing.T) {
	_, h := newTestServer(t)
	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "x"})

	rec := doJSON(t, h, http.MethodPatch, "/v1/tasks/"+task.ID, &api.TaskUpdateRequest{}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeMissingRequired)
}

func TestUpdateTaskClosedAtTransitions(t *testing.T) {
	_, h := newTestServer(t)
	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "x"})

	var closed api.TaskResponse
	doJSON(t, h, http.MethodPatch, "/v1/tasks/"+task.ID, &api.TaskUpdateRequest{Status: strp("closed")}, &closed)
	if closed.ClosedAt == nil {
		t.Fatal("closing via PATCH did not set closed_at")
	}

	var reopened api.TaskResponse
	doJSON(t, h, http.MethodPatch, "/v1/tasks/"+task.ID, &api.TaskUpdateRequest{Status: strp("open")}, &reopened)
	if reopened.ClosedAt != nil {
		t.Error("reopening via PATCH did not clear closed_at")
	}
}

func TestDeleteTask(t *testing.T) {
	_, h := newTestServer(t)
	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "x"})

	rec := doJSON(t, h, http.MethodDelete, "/v1/tasks/"+task.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/v1/tasks/"+task.ID, nil, nil)
	wantErrorCode(t, rec, http.StatusNotFound, ErrCodeTaskNotFound)
}

func TestBatchCreateAllOrNothing(t *testing.T) {
	_, h := newTestServer(t)

	reqs := []api.TaskCreateRequest{
		{ID: "gr-a001", Title: "good"},
		{ID: "gr-a002", Title: "bad dep", Deps: []models.Dependency{{ParentID: "gr-zzzz"}}},
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/batch", reqs, nil)
	wantErrorCode(t, rec, http.StatusNotFound, ErrCodeDependencyNotFound)

	rec = doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Error("first task created despite failed batch")
	}
}

func TestBatchCreateIntraBatchDep(t *testing.T) {
	_, h := newTestServer(t)

	reqs := []api.TaskCreateRequest{
		{ID: "gr-a001", Title: "parent"},
		{ID: "gr-a002", Title: "child", Deps: []models.Dependency{{ParentID: "gr-a001"}}},
	}
	var resp []api.TaskResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/batch", reqs, &resp)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(resp))
	}
	if len(resp[1].Deps) != 1 || resp[1].Deps[0].ParentID != "gr-a001" {
		t.Errorf("intra batch dep lost: %+v", resp[1].Deps)
	}
}

func TestCloseAndReopen(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "x"})

	var closed api.TaskCloseResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{IDs: []string{"gr-a001"}}, &closed)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status %d", rec.Code)
	}
	if len(closed.Closed) != 1 || closed.Annotated != 0 {
		t.Errorf("close response: %+v", closed)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/tasks/reopen", &api.TaskReopenRequest{IDs: []string{"gr-a001"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reopen status %d", rec.Code)
	}

	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Status != "open" || task.ClosedAt != nil {
		t.Errorf("reopen not applied: %+v", task)
	}
}

func TestCloseMissingTaskLeavesBatchUntouched(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "x"})

	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{IDs: []string{"gr-a001", "gr-zzzz"}}, nil)
	wantErrorCode(t, rec, http.StatusNotFound, ErrCodeTaskNotFound)

	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Status != "open" {
		t.Error("task closed despite failed batch")
	}
}

func TestCloseWithCommit(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{
		ID:         "gr-a001",
		Title:      "annotated close",
		SourceRepo: strp("git@github.com:Acme/Widgets.git"),
	})

	hash := "0123456789abcdef0123456789abcdef01234567"
	var resp api.TaskCloseResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{
		IDs:    []string{"gr-a001"},
		Commit: hash,
	}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if resp.Annotated != 1 {
		t.Errorf("annotated = %d, want 1", resp.Annotated)
	}

	var refs []api.TaskGitRefResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001/git-refs", nil, &refs)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	ref := refs[0]
	if ref.Relation != "closed_by" || ref.ObjectType != "commit" {
		t.Errorf("ref shape: %+v", ref)
	}
	if ref.ObjectValue != hash {
		t.Errorf("commit hash not carried: %+v", ref)
	}
	if ref.ResolvedCommit != "" {
		t.Errorf("close annotation should not fill resolved_commit: %q", ref.ResolvedCommit)
	}
	if ref.Repo != "github.com/acme/widgets" {
		t.Errorf("source repo not canonicalized: %q", ref.Repo)
	}
}

func TestCloseWithCommitRequestRepoWins(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{
		ID:         "gr-a001",
		Title:      "x",
		SourceRepo: strp("github.com/acme/widgets"),
	})

	hash := "0123456789abcdef0123456789abcdef01234567"
	doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{
		IDs:    []string{"gr-a001"},
		Commit: hash,
		Repo:   "https://github.com/acme/other.git",
	}, nil)

	var refs []api.TaskGitRefResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001/git-refs", nil, &refs)
	if len(refs) != 1 || refs[0].Repo != "github.com/acme/other" {
		t.Errorf("request repo should take precedence: %+v", refs)
	}
}

func TestCloseWithCommitNoRepo(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "no repo anywhere"})

	hash := "0123456789abcdef0123456789abcdef01234567"
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{
		IDs:    []string{"gr-a001"},
		Commit: hash,
	}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeMissingRequired)

	// The whole batch must be untouched.
	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Status != "open" {
		t.Error("task closed despite rejected annotation")
	}
}

func TestCloseWithRepoRequiresCommit(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "x"})

	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/close", &api.TaskCloseRequest{
		IDs:  []string{"gr-a001"},
		Repo: "github.com/acme/widgets",
	}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeMissingRequired)

	var task api.TaskResponse
	doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a001", nil, &task)
	if task.Status != "open" {
		t.Error("task closed despite missing commit")
	}
}

func TestListTasksFilters(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "crash in tokenizer", Type: strp("bug"), Priority: intp(0), Labels: []string{"crash"}})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "dark mode", Type: strp("feature"), Priority: intp(3), Labels: []string{"ui"}})

	var tasks []api.TaskResponse
	rec := doJSON(t, h, http.MethodGet, "/v1/tasks?type=bug", nil, &tasks)
	if rec.Code != http.StatusOK || len(tasks) != 1 || tasks[0].ID != "gr-a001" {
		t.Errorf("type filter: status %d tasks %v", rec.Code, len(tasks))
	}

	tasks = nil
	doJSON(t, h, http.MethodGet, "/v1/tasks?label=ui", nil, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "gr-a002" {
		t.Errorf("label filter: %d", len(tasks))
	}

	tasks = nil
	doJSON(t, h, http.MethodGet, "/v1/tasks?priority_max=1", nil, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "gr-a001" {
		t.Errorf("priority_max filter: %d", len(tasks))
	}

	tasks = nil
	doJSON(t, h, http.MethodGet, "/v1/tasks?search=tokenizer", nil, &tasks)
	if len(tasks) != 1 || tasks[0].ID != "gr-a001" {
		t.Errorf("search: %d", len(tasks))
	}

	// q is kept as an alias for search.
	tasks = nil
	doJSON(t, h, http.MethodGet, "/v1/tasks?q=tokenizer", nil, &tasks)
	if len(tasks) != 1 {
		t.Errorf("q alias: %d", len(tasks))
	}

	tasks = nil
	doJSON(t, h, http.MethodGet, "/v1/tasks?spec=^SPEC-1", nil, &tasks)
	if len(tasks) != 0 {
		t.Errorf("spec filter: %d", len(tasks))
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/tasks?spec=%5B", nil, nil)
	body := wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidQuery)
	if body.Error != "invalid spec regex" {
		t.Errorf("spec regex error text: %q", body.Error)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/tasks?status=done", nil, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidStatus)

	rec = doJSON(t, h, http.MethodGet, "/v1/tasks?priority=9", nil, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidPriority)
}

func TestListReadyTasks(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "blocker"})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "blocked", Deps: []models.Dependency{{ParentID: "gr-a001"}}})

	var tasks []api.TaskResponse
	rec := doJSON(t, h, http.MethodGet, "/v1/tasks/ready", nil, &tasks)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	for _, task := range tasks {
		if task.ID == "gr-a002" {
			t.Error("blocked task reported ready")
		}
	}
}

func TestProjectScoping(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "x"})

	rec := doJSON(t, h, http.MethodGet, "/v1/projects/gr/tasks/gr-a001", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("scoped path: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/projects/other/tasks/gr-a001", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign project: status %d, want 404", rec.Code)
	}
}

func TestAuthentication(t *testing.T) {
	t.Setenv("GRNS_API_TOKEN", "sekret")
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	wantErrorCode(t, rec, http.StatusUnauthorized, ErrCodeUnauthorized)

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authorized request: status %d", rec.Code)
	}

	// /health stays open for liveness probes.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status %d", rec.Code)
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	_, h := newTestServer(t)

	big := make([]byte, maxBodyBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	wantErrorCode(t, rec, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge)
}

func TestLabelEndpoints(t *testing.T) {
	_, h := newTestServer(t)
	task := createTestTask(t, h, &api.TaskCreateRequest{Title: "x"})

	var resp api.TaskResponse
	rec := doJSON(t, h, http.MethodPost, "/v1/tasks/"+task.ID+"/labels", &api.LabelsRequest{Labels: []string{"backend", "Backend", "urgent"}}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("add labels: %d", rec.Code)
	}
	if len(resp.Labels) != 2 {
		t.Errorf("labels not deduped case-insensitively: %v", resp.Labels)
	}

	doJSON(t, h, http.MethodDelete, "/v1/tasks/"+task.ID+"/labels", &api.LabelsRequest{Labels: []string{"urgent"}}, &resp)
	if len(resp.Labels) != 1 || resp.Labels[0] != "backend" {
		t.Errorf("remove labels: %v", resp.Labels)
	}

	var all []string
	doJSON(t, h, http.MethodGet, "/v1/labels", nil, &all)
	if len(all) != 1 || all[0] != "backend" {
		t.Errorf("all labels: %v", all)
	}
}

func TestDependencyEndpoints(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a001", Title: "parent"})
	createTestTask(t, h, &api.TaskCreateRequest{ID: "gr-a002", Title: "child"})

	rec := doJSON(t, h, http.MethodPost, "/v1/deps", &api.DepCreateRequest{ChildID: "gr-a002", ParentID: "gr-a001"}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add dep: %d body %s", rec.Code, rec.Body.String())
	}

	// Self dependency is rejected.
	rec = doJSON(t, h, http.MethodPost, "/v1/deps", &api.DepCreateRequest{ChildID: "gr-a001", ParentID: "gr-a001"}, nil)
	wantErrorCode(t, rec, http.StatusBadRequest, ErrCodeInvalidDependency)

	var tree api.DepTreeResponse
	rec = doJSON(t, h, http.MethodGet, "/v1/tasks/gr-a002/dep-tree?direction=up", nil, &tree)
	if rec.Code != http.StatusOK {
		t.Fatalf("dep tree: %d", rec.Code)
	}
	if len(tree.Nodes) != 1 || tree.Nodes[0].ID != "gr-a001" {
		t.Errorf("tree nodes: %+v", tree.Nodes)
	}

	rec = doJSON(t, h, http.MethodDelete, "/v1/tasks/gr-a002/deps/gr-a001", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove dep: %d", rec.Code)
	}
}

func TestInfoEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	createTestTask(t, h, &api.TaskCreateRequest{Title: "x"})

	var info api.InfoResponse
	rec := doJSON(t, h, http.MethodGet, "/v1/info", nil, &info)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if info.ProjectPrefix != "gr" || info.TotalTasks != 1 {
		t.Errorf("info: %+v", info)
	}
}

func TestCleanupEndpoint(t *testing.T) {
	t.Setenv("GRNS_ADMIN_TOKEN", "admin-sekret")
	_, h := newTestServer(t)

	send := func(confirm bool, withToken bool, body *api.CleanupRequest) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/cleanup", bytes.NewReader(raw))
		if withToken {
			req.Header.Set("X-Admin-Token", "admin-sekret")
		}
		if confirm {
			req.Header.Set("X-Confirm", "yes")
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := send(false, false, &api.CleanupRequest{DryRun: true})
	wantErrorCode(t, rec, http.StatusForbidden, ErrCodeForbidden)

	rec = send(false, true, &api.CleanupRequest{DryRun: true})
	if rec.Code != http.StatusOK {
		t.Errorf("dry run: status %d body %s", rec.Code, rec.Body.String())
	}

	// Destructive run requires explicit confirmation.
	rec = send(false, true, &api.CleanupRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed cleanup: status %d, want 400", rec.Code)
	}
	rec = send(true, true, &api.CleanupRequest{})
	if rec.Code != http.StatusOK {
		t.Errorf("confirmed cleanup: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	var resp api.HealthResponse
	rec := doJSON(t, h, http.MethodGet, "/health", nil, &resp)
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("health: %d %+v", rec.Code, resp)
	}
	if resp.Version == "" {
		t.Error("health response missing version")
	}
}
