package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "Mediagate/1.0"

type (
	Config struct {
		Timeout time.Duration `yaml:"timeout" env:"FETCH_TIMEOUT" env-default:"30s"`
	}

	// Response is a successful upstream response. The caller owns Body and
	// must close it.
	Response struct {
		Body          io.ReadCloser
		ContentType   string
		ContentLength int64
	}

	// Client fetches remote media on behalf of callers, following redirects.
	Client struct {
		http *http.Client
	}
)

func NewClient(config Config) *Client {
	return &Client{http: &http.Client{Timeout: config.Timeout}}
}

// NewClientWithHTTP allows the underlying HTTP client to be provided, which
// is primarily useful for tests.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{http: httpClient}
}

// Fetch performs a GET against the URL provided. Redirects are followed;
// any final status outside of 2xx is returned as an *UpstreamError.
func (client *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UnknownRequestError{url: url, reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.http.Do(req)
	if err != nil {
		return nil, &UnknownRequestError{url: url, reason: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &UpstreamError{URL: url, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Response{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}

type (
	// UpstreamError indicates the upstream host answered, but not with a
	// success status.
	UpstreamError struct {
		URL    string
		Status int
	}

	// UnknownRequestError indicates the request could not be completed at
	// all (DNS, connection, TLS, timeout, ...).
	UnknownRequestError struct {
		url    string
		reason string
	}
)

func (err *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request to %s failed (HTTP %d)", err.URL, err.Status)
}

func (err *UnknownRequestError) Error() string {
	return fmt.Sprintf("failed to perform GET(%s): %s", err.url, err.reason)
}
