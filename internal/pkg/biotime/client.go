// Package biotime is the HTTP client for the remote time-and-attendance server
// (transactions, employees and areas endpoints).
package biotime

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
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"golang.org/x/oauth2"
)

const (
	transactionsPath = "/iclock/api/transactions/"
	employeesPath    = "/personnel/api/employees/"
	areasPath        = "/personnel/api/areas/"
)

type authMode int

const (
	authBasic authMode = iota
	// authJWT sends the cached JWT and falls back to basic credentials when no token
	// can be obtained.
	authJWT
)

type Options struct {
	BaseURL    string
	Username   string
	Password   string
	PageSize   int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type Client struct {
	http       *http.Client
	baseURL    string
	username   string
	password   string
	pageSize   int
	maxRetries int
	retryDelay time.Duration
	tokens     oauth2.TokenSource
}

var _ source.Client = (*Client)(nil)

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &Client{
		http:       httpClient,
		baseURL:    opts.BaseURL,
		username:   opts.Username,
		password:   opts.Password,
		pageSize:   opts.PageSize,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		tokens:     newTokenSource(context.Background(), httpClient, opts.BaseURL, opts.Username, opts.Password),
	}
}

// FetchTransactions implements source.Client.
func (c *Client) FetchTransactions(ctx context.Context, start, end time.Time) ([]source.Transaction, error) {
	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	return fetchAll[source.Transaction](ctx, c, transactionsPath, params, authBasic)
}

// FetchEmployees implements source.Client.
func (c *Client) FetchEmployees(ctx context.Context) ([]source.Employee, error) {
	return fetchAll[source.Employee](ctx, c, employeesPath, nil, authJWT)
}

// FetchAreas implements source.Client.
func (c *Client) FetchAreas(ctx context.Context) ([]source.Area, error) {
	return fetchAll[source.Area](ctx, c, areasPath, nil, authJWT)
}

// page is the paginated envelope. Some endpoints return a bare list instead.
type page[T any] struct {
	Data []T              `json:"data"`
	Next *json.RawMessage `json:"next"`
}

func (p page[T]) hasNext() bool {
	if p.Next == nil {
		return false
	}
	raw := bytes.TrimSpace(*p.Next)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte(`""`))
}

// fetchAll walks the pages of path. When a page fails, the records of the earlier pages are
// returned together with the error.
func fetchAll[T any](ctx context.Context, c *Client, path string, params url.Values, mode authMode) ([]T, error) {
	var results []T

	for pageNum := 1; ; pageNum++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(pageNum))
		q.Set("page_size", strconv.Itoa(c.pageSize))

		body, err := c.getWithRetry(ctx, c.baseURL+path+"?"+q.Encode(), mode)
		if err != nil {
			slog.Error("Failed to fetch page", "page", pageNum, "path", path, "error", err)
			return results, err
		}

		trimmed := bytes.TrimSpace(body)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '[':
			var items []T
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return results, fmt.Errorf("%w: page %d of %s: %v", source.ErrBadPayload, pageNum, path, err)
			}
			return append(results, items...), nil

		case len(trimmed) > 0 && trimmed[0] == '{':
			var p page[T]
			if err := json.Unmarshal(trimmed, &p); err != nil {
				return results, fmt.Errorf("%w: page %d of %s: %v", source.ErrBadPayload, pageNum, path, err)
			}
			results = append(results, p.Data...)
			if !p.hasNext() {
				return results, nil
			}

		default:
			return results, fmt.Errorf("%w: page %d of %s is neither a list nor an envelope", source.ErrBadPayload, pageNum, path)
		}
	}
}

func (c *Client) getWithRetry(ctx context.Context, rawURL string, mode authMode) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		body, err := c.get(ctx, rawURL, mode)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Rejected credentials and malformed requests do not improve with retries.
		var se *statusError
		if errors.Is(err, source.ErrUnauthorized) || (errors.As(err, &se) && !se.retryable()) {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}

		slog.Warn("Remote request failed, retrying", "attempt", attempt, "url", rawURL, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", source.ErrTransient, ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.url, e.code)
}

func (e *statusError) Unwrap() error {
	return source.ErrTransient
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func (c *Client) get(ctx context.Context, rawURL string, mode authMode) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req, mode)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s returned status %d", source.ErrUnauthorized, req.URL.Path, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, url: req.URL.Path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", source.ErrTransient, err)
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request, mode authMode) {
	if mode == authJWT {
		tok, err := c.tokens.Token()
		if err == nil {
			tok.SetAuthHeader(req)
			return
		}
		slog.Error("JWT token fetch failed, using basic credentials", "error", err)
	}
	req.SetBasicAuth(c.username, c.password)
}
