// Package client talks to a questboard server over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"questboard/internal/model"
)

const DefaultTimeout = 10 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, msg)
}

// Client implements the board store contract against a server.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the server at baseURL. A nil hc gets a client
// with DefaultTimeout.
func New(baseURL string, hc *http.Client) (*Client, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: u, http: hc}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/data", nil, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) UpsertNote(ctx context.Context, n model.Note) error {
	return c.do(ctx, http.MethodPost, "/api/notes", n, nil)
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateTag(ctx context.Context, t model.Tag) error {
	return c.do(ctx, http.MethodPost, "/api/tags", t, nil)
}

func (c *Client) DeleteTag(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/tags/"+url.PathEscape(name), nil, nil)
}

func (c *Client) CreatePlayer(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/players", map[string]string{"name": name}, nil)
}

func (c *Client) SetLock(ctx context.Context, locked bool) error {
	return c.do(ctx, http.MethodPost, "/api/lock", map[string]bool{"locked": locked}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	// path is already escaped.
	endpoint := strings.TrimRight(c.base.String(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
