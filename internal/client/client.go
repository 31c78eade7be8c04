// Package client implements store.Repository against a remote studylog API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/sadopc/studylog/internal/analytics"
	"github.com/sadopc/studylog/internal/apperrors"
	"github.com/sadopc/studylog/internal/store"
)

type Client struct {
	base string
	http *http.Client
	log  hclog.Logger
}

var _ store.Repository = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l hclog.Logger) Option { return func(c *Client) { c.log = l } }

// New returns a client for the server at baseURL, e.g. "http://localhost:5001".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API url %q", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  hclog.NewNullLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("client")
	return c, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Storage(method+" "+path, err)
	}
	defer resp.Body.Close()
	c.log.Trace("response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 300 {
		return decodeError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Storage("decode "+path, err)
	}
	return nil
}

func decodeError(method, path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperrors.Validation("%s", strings.TrimPrefix(msg, apperrors.ErrValidation.Error()+": "))
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrNotFound)
	}
	return apperrors.Storage(method+" "+path, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg))
}

func escape(id string) string { return url.PathEscape(id) }

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Subjects

func (c *Client) ListSubjects(ctx context.Context) ([]store.Subject, error) {
	var out []store.Subject
	if err := c.do(ctx, http.MethodGet, "/api/subjects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSubject(ctx context.Context, name, color string) (*store.Subject, error) {
	in := map[string]string{"name": name, "color": color}
	var out store.Subject
	if err := c.do(ctx, http.MethodPost, "/api/subjects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSubject(ctx context.Context, id string, patch store.SubjectPatch) (*store.Subject, error) {
	var out store.Subject
	if err := c.do(ctx, http.MethodPut, "/api/subjects/"+escape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/subjects/"+escape(id), nil, nil)
}

// Sessions

func (c *Client) ListSessions(ctx context.Context) ([]store.Session, error) {
	var out []store.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*store.Session, error) {
	var out store.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, in store.SessionInput) (*store.Session, error) {
	var out store.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+escape(id), nil, nil)
}

// Settings

func (c *Client) GetSettings(ctx context.Context) (*store.Settings, error) {
	var out store.Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch store.SettingsPatch) (*store.Settings, error) {
	var out store.Settings
	if err := c.do(ctx, http.MethodPut, "/api/settings", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Todos

func (c *Client) ListTodos(ctx context.Context, f store.TodoFilter) ([]store.Todo, error) {
	path := "/api/todos"
	if f.Completed != nil {
		path += "?completed=" + strconv.FormatBool(*f.Completed)
	}
	var out []store.Todo
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTodo(ctx context.Context, text string, subjectID *string) (*store.Todo, error) {
	in := struct {
		Text      string  `json:"text"`
		SubjectID *string `json:"subjectId"`
	}{text, subjectID}
	var out store.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTodo(ctx context.Context, id string, patch store.TodoPatch) (*store.Todo, error) {
	var out store.Todo
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+escape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+escape(id), nil, nil)
}

// Analytics fetches the server-side report.
func (c *Client) Analytics(ctx context.Context, days, top int) (*analytics.Report, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("top", strconv.Itoa(top))
	var out analytics.Report
	if err := c.do(ctx, http.MethodGet, "/api/analytics?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
