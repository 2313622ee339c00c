package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/slmtnm/s4json/internal/logger"
)

// Client talks to an `s4json serve` instance over its JSON API.
type Client struct {
	base string
	http *retryablehttp.Client
}

// ClientOption configures a Client.
type ClientOption func(*retryablehttp.Client)

// WithRetries sets how many times a failed GET is retried.
func WithRetries(n int) ClientOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *retryablehttp.Client) {
		c.HTTPClient.Timeout = d
	}
}

// NewClient returns a Gateway for the API rooted at baseURL
// (e.g. "http://localhost:3000").
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote URL %q: scheme must be http or https", baseURL)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = retryLogger{}
	// Hand the last response back so API error bodies reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}

	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: rc,
	}, nil
}

func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	var buckets []string
	if err := c.get(ctx, "/api/buckets", &buckets); err != nil {
		return nil, asRetrieval("list buckets", err)
	}
	if buckets == nil {
		buckets = []string{}
	}
	return buckets, nil
}

func (c *Client) ListFiles(ctx context.Context, bucket string) ([]FileEntry, error) {
	var files []FileEntry
	if err := c.get(ctx, "/api/files/"+url.PathEscape(bucket), &files); err != nil {
		return nil, asRetrieval("list files "+bucket, err)
	}
	if files == nil {
		files = []FileEntry{}
	}
	return files, nil
}

func (c *Client) GetContent(ctx context.Context, path string) (string, error) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.get(ctx, "/api/file/"+url.PathEscape(path), &body); err != nil {
		var se *errStatus
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return "", NotFound(path, se)
		}
		return "", asRetrieval("get "+path, err)
	}
	return body.Content, nil
}

// errStatus carries a non-2xx answer from the API.
type errStatus struct {
	code    int
	message string
}

func (e *errStatus) Error() string {
	if e.message == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.message)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		return &errStatus{code: resp.StatusCode, message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func asRetrieval(op string, err error) error {
	if errors.Is(err, ErrRetrieval) {
		return err
	}
	return Retrieval(op, err)
}

// retryLogger adapts the global zerolog logger to retryablehttp.LeveledLogger.
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...interface{}) { logger.Error().Fields(kv).Msg(msg) }
func (retryLogger) Warn(msg string, kv ...interface{})  { logger.Warn().Fields(kv).Msg(msg) }
func (retryLogger) Info(msg string, kv ...interface{})  { logger.Debug().Fields(kv).Msg(msg) }
func (retryLogger) Debug(msg string, kv ...interface{}) { logger.Debug().Fields(kv).Msg(msg) }
