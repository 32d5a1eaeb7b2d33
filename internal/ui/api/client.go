package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/steveyegge/beadboard/internal/types"
)

// APIError is a non-2xx response from the board server.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to a running board server.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends the request and decodes a JSON response into out (nil to discard).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	var payload jsonErrorResponse
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Details = payload.Details
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Details = text
	}
	return apiErr
}

// Board returns the current board.
func (c *Client) Board(ctx context.Context) (BoardResponse, error) {
	var out BoardResponse
	err := c.do(ctx, http.MethodGet, "/api/board", nil, &out)
	return out, err
}

// SetFilters changes the board filter and returns the refiltered board.
func (c *Client) SetFilters(ctx context.Context, req FilterRequest) (BoardResponse, error) {
	var out BoardResponse
	err := c.do(ctx, http.MethodPost, "/api/filters", req, &out)
	return out, err
}

// SetPage selects a board page.
func (c *Client) SetPage(ctx context.Context, page int) (BoardResponse, error) {
	var out BoardResponse
	err := c.do(ctx, http.MethodPost, "/api/page", PageRequest{Page: page}, &out)
	return out, err
}

// Issue fetches one issue; the server records it as recently viewed.
func (c *Client) Issue(ctx context.Context, id string) (*types.Issue, error) {
	var out IssueResponse
	err := c.do(ctx, http.MethodGet, "/api/issues/"+url.PathEscape(id), nil, &out)
	return out.Issue, err
}

// EditOption configures UpdateIssue and Move.
type EditOption func(url.Values)

// Confirmed makes the server wait for the remote store before the edit
// shows on the board. Confirmed edits cannot be undone.
func Confirmed() EditOption {
	return func(q url.Values) { q.Set("confirm", "true") }
}

func editPath(id, suffix string, opts []EditOption) string {
	path := "/api/issues/" + url.PathEscape(id) + suffix
	q := url.Values{}
	for _, opt := range opts {
		opt(q)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

// UpdateIssue applies a field edit. The result is nil if the issue
// vanished while the edit was in flight.
func (c *Client) UpdateIssue(ctx context.Context, id string, patch types.IssueUpdate, opts ...EditOption) (*types.Issue, error) {
	var out IssueResponse
	err := c.do(ctx, http.MethodPatch, editPath(id, "", opts), patch, &out)
	return out.Issue, err
}

// Move changes an issue's status.
func (c *Client) Move(ctx context.Context, id, status string, opts ...EditOption) (*types.Issue, error) {
	var out IssueResponse
	err := c.do(ctx, http.MethodPost, editPath(id, "/status", opts), StatusRequest{Status: status}, &out)
	return out.Issue, err
}

// UndoStatus reports the pending undoable edit.
func (c *Client) UndoStatus(ctx context.Context) (UndoResponse, error) {
	var out UndoResponse
	err := c.do(ctx, http.MethodGet, "/api/undo", nil, &out)
	return out, err
}

// Undo reverts the pending edit.
func (c *Client) Undo(ctx context.Context) (BoardResponse, error) {
	var out BoardResponse
	err := c.do(ctx, http.MethodPost, "/api/undo", nil, &out)
	return out, err
}

// DismissError clears the board's error message.
func (c *Client) DismissError(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/error", nil, nil)
}

// Refresh asks the server to reload from its remote now.
func (c *Client) Refresh(ctx context.Context) (BoardResponse, error) {
	var out BoardResponse
	err := c.do(ctx, http.MethodPost, "/api/refresh", nil, &out)
	return out, err
}

// Settings returns the polling configuration.
func (c *Client) Settings(ctx context.Context) (SettingsResponse, error) {
	var out SettingsResponse
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out)
	return out, err
}

// UpdateSettings changes the polling configuration.
func (c *Client) UpdateSettings(ctx context.Context, req SettingsRequest) (SettingsResponse, error) {
	var out SettingsResponse
	err := c.do(ctx, http.MethodPut, "/api/settings", req, &out)
	return out, err
}

// Session returns the current user.
func (c *Client) Session(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

// SwitchUser makes name the current user.
func (c *Client) SwitchUser(ctx context.Context, name string) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPut, "/api/session", SessionRequest{Name: name}, &out)
	return out, err
}

// Recent lists recently viewed issues.
func (c *Client) Recent(ctx context.Context) ([]*types.Issue, error) {
	var out RecentResponse
	err := c.do(ctx, http.MethodGet, "/api/recent", nil, &out)
	return out.Issues, err
}

// ClearRecent forgets recently viewed issues.
func (c *Client) ClearRecent(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/recent", nil, nil)
}

// StreamEvent is one event read from the server's SSE stream.
type StreamEvent struct {
	Type EventType
	Data json.RawMessage
}

// Stream reads the event stream, calling fn for every event, until ctx is
// done, the server closes the stream or fn returns an error. A clean end of
// stream is reported as io.EOF so callers can reconnect.
func (c *Client) Stream(ctx context.Context, fn func(StreamEvent) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream is long-lived; only the request context bounds it.
	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET /api/events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if evt.Type != "" {
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = StreamEvent{}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			evt.Type = EventType(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			evt.Data = append(evt.Data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read event stream: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return io.EOF
}
