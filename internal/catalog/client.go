// Package catalog is the HTTP client for the remote catalog server.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mrlokans/offlinemirror/internal/metrics"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 4 << 10
)

// API is the subset of the catalog server the offline engine consumes.
type API interface {
	BaseURL() string
	GetMe(ctx context.Context) (*User, error)
	GetLibrary(ctx context.Context, id string) (*Library, error)
	GetSeries(ctx context.Context, id string) (*Series, error)
	GetBook(ctx context.Context, id string) (*Book, error)
	GetBookThumbnail(ctx context.Context, id string) (*Thumbnail, error)
	DownloadBook(ctx context.Context, id string) (io.ReadCloser, int64, error)
	UpdateReadProgress(ctx context.Context, bookID string, update ReadProgressUpdate) error
}

type Config struct {
	BaseURL   string
	Username  string
	Password  string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int

	// Transport overrides the underlying round tripper. Used by tests.
	Transport http.RoundTripper
}

type Client struct {
	baseURL *url.URL
	cfg     Config

	// httpClient carries the request timeout. Book bodies are streamed
	// through streamClient, which has none.
	httpClient   *http.Client
	streamClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("catalog URL must be absolute: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := newRateLimitedTransport(cfg.Transport, cfg.RateLimit, cfg.RateBurst)

	return &Client{
		baseURL:      u,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "get_me", "/api/v2/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetLibrary(ctx context.Context, id string) (*Library, error) {
	var library Library
	if err := c.getJSON(ctx, "get_library", "/api/v1/libraries/"+url.PathEscape(id), &library); err != nil {
		return nil, err
	}
	return &library, nil
}

func (c *Client) GetSeries(ctx context.Context, id string) (*Series, error) {
	var series Series
	if err := c.getJSON(ctx, "get_series", "/api/v1/series/"+url.PathEscape(id), &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (*Book, error) {
	var book Book
	if err := c.getJSON(ctx, "get_book", "/api/v1/books/"+url.PathEscape(id), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) GetBookThumbnail(ctx context.Context, id string) (*Thumbnail, error) {
	resp, err := c.do(ctx, c.httpClient, "get_book_thumbnail", http.MethodGet, "/api/v1/books/"+url.PathEscape(id)+"/thumbnail", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return &Thumbnail{MediaType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// DownloadBook opens the book file body. The caller closes the reader. The
// length is 0 when the server does not announce it.
func (c *Client) DownloadBook(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	resp, err := c.do(ctx, c.streamClient, "download_book", http.MethodGet, "/api/v1/books/"+url.PathEscape(id)+"/file", nil)
	if err != nil {
		return nil, 0, err
	}
	length := resp.ContentLength
	if length < 0 {
		length = 0
	}
	return resp.Body, length, nil
}

func (c *Client) UpdateReadProgress(ctx context.Context, bookID string, update ReadProgressUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode read progress: %w", err)
	}
	resp, err := c.do(ctx, c.httpClient, "update_read_progress", http.MethodPatch, "/api/v1/books/"+url.PathEscape(bookID)+"/read-progress", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, c.httpClient, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// do sends the request and maps non-2xx statuses to package errors. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, body io.Reader) (*http.Response, error) {
	start := time.Now()
	defer func() {
		metrics.CatalogRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		metrics.CatalogRequests.WithLabelValues(op, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.CatalogRequests.WithLabelValues(op, "ok").Inc()
		return resp, nil
	}

	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNotFound:
		metrics.CatalogRequests.WithLabelValues(op, "not_found").Inc()
		return nil, fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
	case http.StatusUnauthorized:
		metrics.CatalogRequests.WithLabelValues(op, "unauthorized").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case http.StatusForbidden:
		metrics.CatalogRequests.WithLabelValues(op, "forbidden").Inc()
		return nil, fmt.Errorf("%s %s: %w", op, path, ErrForbidden)
	}

	metrics.CatalogRequests.WithLabelValues(op, "error").Inc()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return nil, &ServerError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.cfg.APIKey != "":
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	case c.cfg.Username != "":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
