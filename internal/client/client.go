// Package client is a Go client for the tasktalk HTTP API.
package client

import (
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

	"tasktalk/internal/assistant"
	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
	"tasktalk/pkg/user"
)

// DefaultServer is used when no server URL is configured.
const DefaultServer = "http://localhost:8080"

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}

// Client talks to one tasktalk server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client for baseURL with an optional session token.
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

// Session is what register and login return.
type Session struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, email, name, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "name": name, "password": password}
	if err := c.do(ctx, "POST", "/api/auth/register", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "POST", "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*user.User, error) {
	var s Session
	if err := c.do(ctx, "GET", "/api/auth/me", nil, &s); err != nil {
		return nil, err
	}
	return s.User, nil
}

// ListOptions filters List. Zero values are not sent.
type ListOptions struct {
	Completed *bool
	Priority  string
	Category  string
	Query     string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Completed != nil {
		v.Set("completed", fmt.Sprint(*o.Completed))
	}
	if o.Priority != "" {
		v.Set("priority", o.Priority)
	}
	if o.Category != "" {
		v.Set("category", o.Category)
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	return v
}

// List returns the caller's tasks.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]task.Task, error) {
	path := "/api/todos"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var tasks []task.Task
	if err := c.do(ctx, "GET", path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// NewTask is the body of Create.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// Create adds a task.
func (c *Client) Create(ctx context.Context, in NewTask) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "POST", "/api/todos", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies a partial update. Keys follow the API's JSON names.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "PATCH", "/api/todos/"+url.PathEscape(id), fields, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Toggle flips a task's completion.
func (c *Client) Toggle(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, "PATCH", "/api/todos/"+url.PathEscape(id)+"/toggle", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/todos/"+url.PathEscape(id), nil, nil)
}

// Ask sends a message to the assistant. When the server could not
// interpret the message the result still carries its reply, alongside the error.
func (c *Client) Ask(ctx context.Context, message string) (*assistant.Result, error) {
	var res assistant.Result
	err := c.do(ctx, "POST", "/api/assistant", map[string]string{"message": message}, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == 502 && res.Reply != "" {
		return &res, err
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Suggest asks for up to count new task titles; zero lets the server pick.
// Nothing is created.
func (c *Client) Suggest(ctx context.Context, prompt string, count int) ([]string, error) {
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	in := map[string]any{"prompt": prompt, "count": count}
	if err := c.do(ctx, "POST", "/api/assistant/suggest", in, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// Events returns the caller's most recent audit events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]audit.Event, error) {
	var events []audit.Event
	path := fmt.Sprintf("/api/events?limit=%d", limit)
	if err := c.do(ctx, "GET", path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// do sends a JSON request. On a non-2xx status the body is decoded into
// out when it parses, and an *APIError is returned.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
