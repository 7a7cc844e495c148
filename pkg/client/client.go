// Package client talks to the external record service over HTTP+JSON: it
// fetches form schemas, loads existing records for edit flows and submits
// accumulated wizard records.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrUnexpectedStatus wraps non-2xx responses that carry no usable body.
var ErrUnexpectedStatus = errors.New("client: unexpected status")

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithSchemaPath changes the schema endpoint prefix (default "/schemas").
func WithSchemaPath(path string) Option {
	return func(c *Client) {
		c.schemaPath = "/" + strings.Trim(path, "/")
	}
}

// WithLogger sets the logger passed to schema parsing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is the HTTP transport shared by schema and record operations.
type Client struct {
	base       *url.URL
	http       *http.Client
	headers    http.Header
	schemaPath string
	logger     *slog.Logger
}

// New returns a Client rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: 15 * time.Second},
		headers:    make(http.Header),
		schemaPath: "/schemas",
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// FetchSchema implements wizard.SchemaFetcher with GET {base}/schemas/{formKey}.
func (c *Client) FetchSchema(ctx context.Context, formKey string) (schema.Schema, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodGet, c.schemaPath+"/"+url.PathEscape(formKey), nil, &raw)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("client: fetch schema %q: %w", formKey, err)
	}
	if status == http.StatusNotFound {
		return schema.Schema{}, fmt.Errorf("client: fetch schema %q: %w", formKey, wizard.ErrNotFound)
	}
	s, err := schema.Parse(raw, schema.WithLogger(c.logger))
	if err != nil {
		return schema.Schema{}, fmt.Errorf("client: fetch schema %q: %w", formKey, err)
	}
	return s, nil
}

func (c *Client) resolve(path string) string {
	u := *c.base
	path, query, _ := strings.Cut(path, "?")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query
	return u.String()
}

// do sends body as JSON and decodes a 2xx response into out. A 404 is
// returned as a status with no error so callers can map it. Other failures
// become *wizard.SubmissionError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, decodeFailure(resp.StatusCode, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("client: decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
