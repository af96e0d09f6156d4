// Package fetch provides the page-fetch and dynamic-render capabilities the
// resolution engine depends on. This package centralizes HTTP fetching logic
// used by the rating fetcher and the venue scrapers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Result holds the raw content from a URL fetch.
type Result struct {
	URL        string
	HTML       string
	StatusCode int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves HTML content from a URL. A non-2xx response is returned as a
// Result plus an *Error so callers can distinguish transport failure from an
// HTTP-level miss.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	result := &Result{
		URL:        urlStr,
		HTML:       string(bodyBytes),
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}

// Client is the page-fetch capability injected into the rating fetcher and
// the static venue scrapers.
type Client struct {
	opts *Options
}

// NewClient creates a Client with the given options (nil uses defaults).
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Client{opts: opts}
}

// FetchPage retrieves a URL and returns the HTTP status and body. A non-2xx
// response is not an error here; the caller decides what a miss means.
// Transport failures are returned as errors.
func (c *Client) FetchPage(ctx context.Context, urlStr string) (int, string, error) {
	result, err := URL(ctx, urlStr, c.opts)
	if result != nil {
		var fetchErr *Error
		if err == nil || (errors.As(err, &fetchErr) && fetchErr.Cause == nil) {
			return result.StatusCode, result.HTML, nil
		}
	}
	return 0, "", err
}
