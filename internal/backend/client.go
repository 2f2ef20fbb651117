package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"era-inventory-panel/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entity names as the backend exposes them under /api/.
const (
	EntityItem             = "Item"
	EntityVendor           = "Vendor"
	EntityEmployee         = "Employee"
	EntityResource         = "Resource"
	EntityAccessLevel      = "AccessLevel"
	EntityResourceCategory = "ResourceCategory"
	EntityAssociation      = "EmployeeResourceAssociation"
	EntityDevice           = "Device"
)

// RequestIDHeader is sent with every backend call.
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies the bearer token for backend calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	InsecureTLS bool
	Tokens      TokenSource
	Metrics     *ClientMetrics
	// Transport overrides the default transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the inventory REST backend.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureTLS {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local dev backends use self-signed certs
		}
		transport = t
	}
	if opts.Metrics != nil {
		transport = opts.Metrics.Instrument(transport)
	}

	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		http:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		tokens: opts.Tokens,
	}, nil
}

// BaseURL returns the backend root the client was configured with.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, reqID)
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", reqID).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(truncate(data, 512))),
		}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func entityPath(entity string) string {
	return "/api/" + url.PathEscape(entity)
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

// Ping probes the backend root. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return err
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Create posts a new record to an entity collection.
func (c *Client) Create(ctx context.Context, entity string, body any) error {
	_, err := c.do(ctx, http.MethodPost, entityPath(entity), nil, body)
	return err
}

// Update replaces the record identified by id.
func (c *Client) Update(ctx context.Context, entity, id string, body any) error {
	_, err := c.do(ctx, http.MethodPut, entityPath(entity), idQuery(id), body)
	return err
}

// Delete hard-deletes the record identified by id.
func (c *Client) Delete(ctx context.Context, entity, id string) error {
	_, err := c.do(ctx, http.MethodDelete, entityPath(entity), idQuery(id), nil)
	return err
}

// Count returns GET /api/{Entity}/count.
func (c *Client) Count(ctx context.Context, entity string) (int, error) {
	var n int
	if err := c.getJSON(ctx, entityPath(entity)+"/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Metrics returns the complete/partial split for an entity.
func (c *Client) Metrics(ctx context.Context, entity string) (models.EntityMetrics, error) {
	var m models.EntityMetrics
	err := c.getJSON(ctx, entityPath(entity)+"/metrics", nil, &m)
	return m, err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
