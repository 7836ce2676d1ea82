package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultProject     = "gr"

	maxIdempotentRetries = 2
	retryBaseDelay       = 50 * time.Millisecond
	retryMaxDelay        = 500 * time.Millisecond
)

var projectSlugRe = regexp.MustCompile(`^[a-z]{2}$`)

// Client talks to a grns server over HTTP/JSON.
type Client struct {
	baseURL    string
	project    string
	httpClient *http.Client
	apiToken   string
	adminToken string
}

// NewClient builds a client for the given base URL, for example
// "http://127.0.0.1:4242". Auth tokens come from GRNS_API_TOKEN and
// GRNS_ADMIN_TOKEN.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		project:    defaultProject,
		httpClient: &http.Client{Timeout: httpTimeoutFromEnv()},
		apiToken:   os.Getenv("GRNS_API_TOKEN"),
		adminToken: os.Getenv("GRNS_ADMIN_TOKEN"),
	}
}

// SetProject scopes subsequent requests to the given project prefix.
func (c *Client) SetProject(project string) {
	c.project = normalizeProject(project)
}

// Project returns the active project prefix.
func (c *Client) Project() string {
	return c.project
}

func httpTimeoutFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("GRNS_HTTP_TIMEOUT"))
	if raw == "" {
		return defaultHTTPTimeout
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultHTTPTimeout
}

func normalizeProject(project string) string {
	project = strings.ToLower(strings.TrimSpace(project))
	if projectSlugRe.MatchString(project) {
		return project
	}
	return defaultProject
}

func (c *Client) scopedPath(path string) string {
	return "/v1/projects/" + c.project + path
}

// Ping checks server liveness.
func (c *Client) Ping(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info returns store statistics.
func (c *Client) Info(ctx context.Context) (*InfoResponse, error) {
	var out InfoResponse
	if err := c.do(ctx, http.MethodGet, c.scopedPath("/info"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask creates one task.
func (c *Client) CreateTask(ctx context.Context, req *TaskCreateRequest) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTasks creates a batch of tasks, all or none.
func (c *Client) CreateTasks(ctx context.Context, reqs []TaskCreateRequest) ([]TaskResponse, error) {
	var out []TaskResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/batch"), reqs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodGet, c.scopedPath("/tasks/"+url.PathEscape(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTasks fetches several tasks, preserving request order.
func (c *Client) GetTasks(ctx context.Context, ids []string) ([]TaskResponse, error) {
	var out []TaskResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/get"), &TaskGetManyRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTask applies a partial update to one task.
func (c *Client) UpdateTask(ctx context.Context, id string, req *TaskUpdateRequest) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPatch, c.scopedPath("/tasks/"+url.PathEscape(id)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask hard-deletes one task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.scopedPath("/tasks/"+url.PathEscape(id)), nil, nil)
}

// CloseTasks closes a batch of tasks, optionally annotating each with the
// closing commit.
func (c *Client) CloseTasks(ctx context.Context, req *TaskCloseRequest) (*TaskCloseResponse, error) {
	var out TaskCloseResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/close"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReopenTasks reopens a batch of closed tasks.
func (c *Client) ReopenTasks(ctx context.Context, ids []string) ([]TaskResponse, error) {
	var out []TaskResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/reopen"), &TaskReopenRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTasks lists tasks matching the given query string, for example
// "status=open&label=infra".
func (c *Client) ListTasks(ctx context.Context, query string) ([]TaskResponse, error) {
	path := c.scopedPath("/tasks")
	if query != "" {
		path += "?" + query
	}
	var out []TaskResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReadyTasks lists unblocked actionable tasks.
func (c *Client) ListReadyTasks(ctx context.Context, query string) ([]TaskResponse, error) {
	path := c.scopedPath("/tasks/ready")
	if query != "" {
		path += "?" + query
	}
	var out []TaskResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStaleTasks lists tasks not updated within the staleness window.
func (c *Client) ListStaleTasks(ctx context.Context, query string) ([]TaskResponse, error) {
	path := c.scopedPath("/tasks/stale")
	if query != "" {
		path += "?" + query
	}
	var out []TaskResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddLabels attaches labels to one task.
func (c *Client) AddLabels(ctx context.Context, id string, labels []string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/"+url.PathEscape(id)+"/labels"), &LabelsRequest{Labels: labels}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveLabels detaches labels from one task.
func (c *Client) RemoveLabels(ctx context.Context, id string, labels []string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodDelete, c.scopedPath("/tasks/"+url.PathEscape(id)+"/labels"), &LabelsRequest{Labels: labels}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListLabels returns every distinct label in the store.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, c.scopedPath("/labels"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDependency records a child -> parent edge.
func (c *Client) AddDependency(ctx context.Context, req *DepCreateRequest) error {
	return c.do(ctx, http.MethodPost, c.scopedPath("/deps"), req, nil)
}

// RemoveDependency removes a child -> parent edge.
func (c *Client) RemoveDependency(ctx context.Context, childID, parentID string) error {
	path := c.scopedPath("/tasks/" + url.PathEscape(childID) + "/deps/" + url.PathEscape(parentID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DependencyTree walks edges from a root task in one direction.
func (c *Client) DependencyTree(ctx context.Context, id string, query string) (*DepTreeResponse, error) {
	path := c.scopedPath("/tasks/" + url.PathEscape(id) + "/dep-tree")
	if query != "" {
		path += "?" + query
	}
	var out DepTreeResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTaskGitRef attaches a git reference to one task.
func (c *Client) CreateTaskGitRef(ctx context.Context, taskID string, req *TaskGitRefCreateRequest) (*TaskGitRefResponse, error) {
	var out TaskGitRefResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/tasks/"+url.PathEscape(taskID)+"/git-refs"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTaskGitRefs lists git references attached to one task.
func (c *Client) ListTaskGitRefs(ctx context.Context, taskID string) ([]TaskGitRefResponse, error) {
	var out []TaskGitRefResponse
	if err := c.do(ctx, http.MethodGet, c.scopedPath("/tasks/"+url.PathEscape(taskID)+"/git-refs"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTaskGitRef fetches one git reference by id.
func (c *Client) GetTaskGitRef(ctx context.Context, taskID, refID string) (*TaskGitRefResponse, error) {
	path := c.scopedPath("/tasks/" + url.PathEscape(taskID) + "/git-refs/" + url.PathEscape(refID))
	var out TaskGitRefResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTaskGitRef detaches one git reference.
func (c *Client) DeleteTaskGitRef(ctx context.Context, taskID, refID string) error {
	path := c.scopedPath("/tasks/" + url.PathEscape(taskID) + "/git-refs/" + url.PathEscape(refID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetGitRef fetches one git reference by its own id, without a task path.
func (c *Client) GetGitRef(ctx context.Context, refID string) (*TaskGitRefResponse, error) {
	var out TaskGitRefResponse
	if err := c.do(ctx, http.MethodGet, c.scopedPath("/git-refs/"+url.PathEscape(refID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGitRef removes one git reference by its own id.
func (c *Client) DeleteGitRef(ctx context.Context, refID string) error {
	return c.do(ctx, http.MethodDelete, c.scopedPath("/git-refs/"+url.PathEscape(refID)), nil, nil)
}

// Import submits a buffered NDJSON import as JSON.
func (c *Client) Import(ctx context.Context, req *ImportRequest) (*ImportResponse, error) {
	var out ImportResponse
	if err := c.do(ctx, http.MethodPost, c.scopedPath("/import"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportStream submits raw NDJSON for chunked import. The reader is consumed
// fully.
func (c *Client) ImportStream(ctx context.Context, r io.Reader, query string) (*ImportResponse, error) {
	path := c.scopedPath("/import/stream")
	if query != "" {
		path += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	var out ImportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Export streams every task as NDJSON into w.
func (c *Client) Export(ctx context.Context, w io.Writer, query string) error {
	path := c.scopedPath("/export")
	if query != "" {
		path += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// Cleanup purges old closed tasks. Requires the admin token.
func (c *Client) Cleanup(ctx context.Context, req *CleanupRequest) (*CleanupResponse, error) {
	httpReq, err := c.newJSONRequest(ctx, http.MethodPost, c.scopedPath("/admin/cleanup"), req)
	if err != nil {
		return nil, err
	}
	c.setAdminHeader(httpReq)
	httpReq.Header.Set("X-Confirm", "yes")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	var out CleanupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)
	return req, nil
}

// do runs one request, decoding a JSON response into out when out is non-nil.
// Idempotent GETs are retried on transport errors with jittered backoff.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	retries := 0
	if method == http.MethodGet {
		retries = maxIdempotentRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			delay += time.Duration(rand.Int63n(int64(retryBaseDelay)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.setAuthHeader(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		err = consumeResponse(resp, out)
		resp.Body.Close()
		return err
	}
	return lastErr
}

func consumeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(data) > 0 {
		var body ErrorResponse
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Code = body.Code
			apiErr.ErrorCode = body.ErrorCode
			return apiErr
		}
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

func (c *Client) setAdminHeader(req *http.Request) {
	c.setAuthHeader(req)
	if c.adminToken != "" {
		req.Header.Set("X-Admin-Token", c.adminToken)
	}
}
