// Package transfer is a minimal Globus Transfer API client covering what
// the synchronizer needs: endpoint search, directory listing, bulk-copy
// submission and task polling. File movement itself happens entirely
// server-side between the two endpoints; this client only orchestrates.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public Globus Transfer API deployment.
const DefaultBaseURL = "https://transfer.api.globus.org/v0.10"

const searchPageSize = 100

// Client talks to the Transfer API. Safe for sequential use; this tool
// never issues concurrent requests.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different Transfer API deployment.
// Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger enables debug logging of requests. A nil logger disables it.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Transfer API client authenticating every request with
// tokens.
func NewClient(tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EndpointSearch returns the endpoints matching the fulltext query, across
// all result pages. scope narrows the search (for example
// MyGCPEndpointsScope); empty searches everything visible to the caller.
func (c *Client) EndpointSearch(ctx context.Context, fulltext, scope string) ([]Endpoint, error) {
	var all []Endpoint
	for offset := 0; ; offset += searchPageSize {
		query := url.Values{}
		if fulltext != "" {
			query.Set("filter_fulltext", fulltext)
		}
		if scope != "" {
			query.Set("filter_scope", scope)
		}
		query.Set("limit", strconv.Itoa(searchPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page endpointPage
		if err := c.get(ctx, "/endpoint_search", query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if !page.HasNextPage {
			return all, nil
		}
	}
}

// ListDirectory lists path on an endpoint. filter is evaluated server-side
// (for example "name:~*20200101*rawacf.bz2"); empty lists everything.
// Entries come back in the service's listing order.
func (c *Client) ListDirectory(ctx context.Context, endpointID, path, filter string) ([]FileEntry, error) {
	query := url.Values{}
	query.Set("path", path)
	if filter != "" {
		query.Set("filter", filter)
	}

	var list fileList
	if err := c.get(ctx, "/operation/endpoint/"+url.PathEscape(endpointID)+"/ls", query, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// SubmissionID fetches the one-time identifier the next submission must
// carry. The service uses it to deduplicate retried submissions.
func (c *Client) SubmissionID(ctx context.Context) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	if err := c.get(ctx, "/submission_id", nil, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// Submit sends a transfer request as one unit and returns the acceptance
// document carrying the task id. A missing submission id is fetched first.
func (c *Client) Submit(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if req.SubmissionID == "" {
		id, err := c.SubmissionID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get submission id: %w", err)
		}
		req.SubmissionID = id
	}

	var result TransferResult
	if err := c.post(ctx, "/transfer", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Task returns the current snapshot of a submitted task.
func (c *Client) Task(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.get(ctx, "/task/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// WaitForTask polls the task every interval until it reaches a terminal
// state or timeout elapses, and reports whether it completed. Hitting the
// timeout is not an error and never affects the task, which keeps running
// server-side. A zero timeout checks the status once.
func (c *Client) WaitForTask(ctx context.Context, taskID string, timeout, interval time.Duration) (*Task, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		task, err := c.Task(ctx, taskID)
		if err != nil {
			return nil, false, err
		}
		if task.Done() {
			return task, true, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return task, false, nil
		}
		if wait > interval {
			wait = interval
		}
		select {
		case <-ctx.Done():
			return task, false, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to authorize request: %w", err)
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "transfer API request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeAPIError(resp.StatusCode, data)
		if c.logger != nil {
			c.logger.DebugContext(ctx, "transfer API error",
				"status", resp.StatusCode, "code", apiErr.Code, "request_id", apiErr.RequestID)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
