// Package mlclient calls the inference service. Every failure is classified
// as unreachable, timed out or a non-200 status so callers never inspect raw
// transport errors.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/transcript2minutes/pkg/util"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultHealthTimeout = 5 * time.Second

	// DefaultMaxBodyBytes caps a response body read into memory.
	DefaultMaxBodyBytes = 4 << 20
)

var (
	// ErrUnreachable means no connection could be made.
	ErrUnreachable = errors.New("mlservice unreachable")
	// ErrTimeout means the call exceeded its deadline.
	ErrTimeout = errors.New("mlservice timed out")
	// ErrResponseTooLarge means the response body exceeded the read limit.
	ErrResponseTooLarge = errors.New("mlservice response too large")
)

// StatusError reports a non-200 response. Body is for logs only.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mlservice returned status %d", e.Status)
}

// Config configures the client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	HealthTimeout time.Duration
	MaxBodyBytes  int64

	// Token is sent as a bearer token when set. The public tier accepts the
	// same request shape, so the CLI reuses this client against it.
	Token string
}

// SummarizeRequest is the payload forwarded to the inference service.
type SummarizeRequest struct {
	Transcript string `json:"transcript"`
	Format     string `json:"format,omitempty"`
}

// Reply is a successful upstream response, relayed verbatim.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client performs HTTP requests to the inference service. It never retries.
type Client struct {
	baseURL       string
	timeout       time.Duration
	healthTimeout time.Duration
	token         string
	maxBody       int64
	httpClient    *http.Client
}

// NewClient builds a client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		token:         strings.TrimSpace(cfg.Token),
		maxBody:       cfg.MaxBodyBytes,
		httpClient:    &http.Client{},
	}
}

// Summarize posts req to /summarize within the configured timeout.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("encode summarize request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/summarize", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build summarize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(ctx, httpReq)
}

// RecentRuns fetches /runs. A zero limit leaves the server default.
func (c *Client) RecentRuns(ctx context.Context, limit int) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + "/runs"
	if limit > 0 {
		target += "?limit=" + strconv.Itoa(limit)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Reply{}, fmt.Errorf("build runs request: %w", err)
	}
	return c.do(ctx, httpReq)
}

// do sends req and reads the response up to the configured limit. A larger body
// is rejected rather than relayed truncated.
func (c *Client) do(ctx context.Context, req *http.Request) (Reply, error) {
	if id := util.RequestIDFrom(ctx); id != "" {
		req.Header.Set(util.RequestIDHeader, id)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return Reply{}, classify(ctx, err)
	}
	if int64(len(body)) > c.maxBody {
		return Reply{}, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, &StatusError{Status: resp.StatusCode, Body: body}
	}
	return Reply{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// Health calls /health and returns the upstream status code.
func (c *Client) Health(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, classify(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return resp.StatusCode, nil
}

// classify maps a transport error onto ErrTimeout or ErrUnreachable. A
// cancellation by the caller is returned as-is.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
