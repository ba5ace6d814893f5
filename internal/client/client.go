// Package client talks to the expense API and keeps a serialized local
// view of the collection for presentation.
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

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

// Draft holds the raw form values of an expense about to be submitted.
type Draft struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// ErrMissingFields reports a draft with empty required fields.
var ErrMissingFields = errors.New("all fields are required")

// Validate checks that every field is filled in. It does no other
// validation; the API owns the rest.
func (d Draft) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", d.Name},
		{"amount", d.Amount},
		{"category", d.Category},
		{"date", d.Date},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return core.E(core.KindValidation, "validate draft",
			fmt.Errorf("%w: missing %s", ErrMissingFields, strings.Join(missing, ", ")))
	}
	return nil
}

// Client is an HTTP client for the expense API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentClient) }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches the whole collection in store order.
func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	var items []core.Expense
	if err := c.do(ctx, log.OpList, http.MethodGet, "/api/expenses", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []core.Expense{}
	}
	return items, nil
}

// Create submits d and returns the stored record.
func (c *Client) Create(ctx context.Context, d Draft) (core.Expense, error) {
	var e core.Expense
	if err := c.do(ctx, log.OpCreate, http.MethodPost, "/api/expenses", d, &e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// Delete removes id. Unknown ids are not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.E(core.KindValidation, log.OpDelete, core.ErrEmptyID)
	}
	return c.do(ctx, log.OpDelete, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil)
}

// do sends one request. Failures come back as *core.Error: KindValidation
// for 400 answers and KindUnavailable for everything else, wrapping the
// *APIError when the server answered.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return core.E(core.KindInternal, op, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return core.E(core.KindInternal, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := log.NewRequestID()
	req.Header.Set(log.HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldOperation, op,
			log.FieldRequestID, requestID,
			log.FieldError, err)
		return core.E(core.KindUnavailable, op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldOperation, op,
		log.FieldRequestID, requestID,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var m struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&m); err == nil {
			apiErr.Message = m.Message
		}
		kind := core.KindUnavailable
		if resp.StatusCode == http.StatusBadRequest {
			kind = core.KindValidation
		}
		return core.E(kind, op, apiErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.E(core.KindUnavailable, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
