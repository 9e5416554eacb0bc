// Package apiclient talks to the ELDA REST API. Every response is wrapped
// in the {status, message, data, paging} envelope; reads are retried with
// exponential backoff, writes are sent once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"elda-admin/internal/models"

	"github.com/avast/retry-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodyBytes = 8 << 20

type Client struct {
	baseURL  string
	http     *http.Client
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the read retry policy. attempts counts the first try.
func WithRetry(attempts uint, delay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.attempts, c.delay, c.maxDelay = attempts, delay, maxDelay
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		attempts: 3,
		delay:    time.Second,
		maxDelay: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ListParams struct {
	Page   int
	Limit  int
	Search string
	Extra  url.Values
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	for k, vals := range p.Extra {
		v[k] = vals
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

type Page[T any] struct {
	Items  []T           `json:"items"`
	Paging models.Paging `json:"paging"`
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(raw, http.StatusText(resp.StatusCode)),
			Body:       raw,
		}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", errDecode, method, path, err)
	}
	return nil
}

// get retries network failures and 5xx answers. 4xx answers, decode errors
// and cancellation are returned at once.
func (c *Client) get(ctx context.Context, path, token string, query url.Values, out any) error {
	return retry.Do(
		func() error {
			return c.do(ctx, http.MethodGet, path, token, query, nil, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(c.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("apiclient retry path=%s attempt=%d err=%v", path, n+1, err)
		}),
	)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errDecode) {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return code >= http.StatusInternalServerError
	}
	return true
}

func resourcePath(resource string, id ...string) string {
	p := "/" + strings.Trim(resource, "/")
	for _, part := range id {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func List[T any](ctx context.Context, c *Client, token, resource string, p ListParams) (Page[T], error) {
	var env models.Envelope[[]T]
	if err := c.get(ctx, resourcePath(resource), token, p.values(), &env); err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Items: env.Data}
	if page.Items == nil {
		page.Items = []T{}
	}
	if env.Paging != nil {
		page.Paging = *env.Paging
	} else {
		n := len(page.Items)
		page.Paging = models.Paging{Page: 1, Limit: n, Total: n, TotalPages: 1}
	}
	return page, nil
}

// ListAll walks a paged list until the API reports no more pages or maxRows
// items are collected. Paging.Total keeps the upstream count, so a result
// capped at maxRows reports fewer Items than Total.
func ListAll[T any](ctx context.Context, c *Client, token, resource string, pageSize, maxRows int) (Page[T], error) {
	items := []T{}
	total := 0
	for n := 1; ; n++ {
		page, err := List[T](ctx, c, token, resource, ListParams{Page: n, Limit: pageSize})
		if err != nil {
			return Page[T]{}, err
		}
		items = append(items, page.Items...)
		total = max(total, page.Paging.Total)
		if n >= page.Paging.TotalPages || len(page.Items) == 0 || len(items) >= maxRows {
			break
		}
	}
	if len(items) > maxRows {
		items = items[:maxRows]
	}
	total = max(total, len(items))
	return Page[T]{Items: items, Paging: models.Paging{Page: 1, Limit: len(items), Total: total, TotalPages: 1}}, nil
}

func Get[T any](ctx context.Context, c *Client, token, resource, id string) (T, error) {
	var env models.Envelope[T]
	err := c.get(ctx, resourcePath(resource, id), token, nil, &env)
	return env.Data, err
}

func Create[T any](ctx context.Context, c *Client, token, resource string, in any) (T, error) {
	var env models.Envelope[T]
	err := c.do(ctx, http.MethodPost, resourcePath(resource), token, nil, in, &env)
	return env.Data, err
}

func Update[T any](ctx context.Context, c *Client, token, resource, id string, in any) (T, error) {
	var env models.Envelope[T]
	err := c.do(ctx, http.MethodPatch, resourcePath(resource, id), token, nil, in, &env)
	return env.Data, err
}

func Delete(ctx context.Context, c *Client, token, resource, id string) error {
	return c.do(ctx, http.MethodDelete, resourcePath(resource, id), token, nil, nil, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResponse, error) {
	var env models.Envelope[models.LoginResponse]
	in := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/auth/login", "", nil, in, &env)
	return env.Data, err
}

func (c *Client) Me(ctx context.Context, token string) (models.User, error) {
	var env models.Envelope[models.User]
	err := c.get(ctx, "/auth/me", token, nil, &env)
	return env.Data, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil, nil)
}

func (c *Client) Register(ctx context.Context, in models.RegisterRequest) (models.User, error) {
	var env models.Envelope[models.User]
	err := c.do(ctx, http.MethodPost, "/auth/register", "", nil, in, &env)
	return env.Data, err
}

func (c *Client) Notifications(ctx context.Context, token string, p ListParams) (Page[models.Notification], error) {
	return List[models.Notification](ctx, c, token, "notifications", p)
}
