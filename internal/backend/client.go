package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cutroom/internal/logging"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
	requestIDHeader       = "X-Request-ID"
	maxErrorBody          = 4096
)

// Config captures the settings required to reach the backend.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	Retries        int
}

// Client talks to the production backend's REST API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger

	retries        int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "backend")
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a backend client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, Wrap(ErrValidation, "backend client", "base url required", nil)
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, Wrap(ErrValidation, "backend client", "parse base url", err)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		base:           base,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logging.NewComponentLogger(nil, "backend"),
		retries:        cfg.Retries,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.retries < 0 {
		client.retries = 0
	}
	return client, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// URL resolves path segments against the backend root. Segments are escaped.
func (c *Client) URL(segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return u.String()
}

// HTTPClient exposes the underlying client for streaming callers.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type request struct {
	op          string
	method      string
	segments    []string
	body        []byte
	contentType string
	out         any
	raw         io.Writer
}

func (c *Client) getJSON(ctx context.Context, op string, out any, segments ...string) error {
	return c.do(ctx, request{op: op, method: http.MethodGet, segments: segments, out: out})
}

func (c *Client) sendJSON(ctx context.Context, op, method string, payload, out any, segments ...string) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Wrap(ErrValidation, op, "encode body", err)
		}
		body = encoded
	}
	return c.do(ctx, request{op: op, method: method, segments: segments, body: body, contentType: "application/json", out: out})
}

type multipartFile struct {
	field string
	name  string
	data  io.Reader
}

func (c *Client) sendMultipart(ctx context.Context, op string, fields map[string]string, files []multipartFile, out any, segments ...string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return Wrap(ErrValidation, op, "encode form", err)
		}
	}
	for _, file := range files {
		if file.data == nil {
			continue
		}
		part, err := writer.CreateFormFile(file.field, file.name)
		if err != nil {
			return Wrap(ErrValidation, op, "encode form file", err)
		}
		if _, err := io.Copy(part, file.data); err != nil {
			return Wrap(ErrValidation, op, "read "+file.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return Wrap(ErrValidation, op, "encode form", err)
	}
	return c.do(ctx, request{op: op, method: http.MethodPost, segments: segments, body: buf.Bytes(), contentType: writer.FormDataContentType(), out: out})
}

// do executes a request. Only buffered GETs are retried: triggers start
// backend jobs and must not be duplicated.
func (c *Client) do(ctx context.Context, req request) error {
	attempts := 1
	if req.method == http.MethodGet && req.raw == nil {
		attempts += c.retries
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	logger := logging.WithContext(ctx, c.logger)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.doOnce(ctx, req, requestID)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts || !retryable(ctx, err) {
			break
		}
		delay := c.backoffDelay(attempt)
		logger.Debug("retrying backend request",
			logging.String("op", req.op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Wrap(ErrTransport, req.op, "retry wait", err)
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, req request, requestID string) error {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.URL(req.segments...), body)
	if err != nil {
		return Wrap(ErrValidation, req.op, "build request", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Wrap(ErrTransport, req.op, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Wrap(ErrApplication, req.op, "", newAPIError(resp.StatusCode, payload))
	}

	if req.raw != nil {
		if _, err := io.Copy(req.raw, resp.Body); err != nil {
			return Wrap(ErrTransport, req.op, "read body", err)
		}
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Wrap(ErrTransport, req.op, "read body", err)
	}
	if msg := embeddedError(payload); msg != "" {
		return Wrap(ErrApplication, req.op, "", &APIError{StatusCode: resp.StatusCode, Message: msg, Body: string(payload)})
	}
	if req.out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, req.out); err != nil {
		return Wrap(ErrApplication, req.op, "decode response", err)
	}
	return nil
}

func newAPIError(status int, payload []byte) error {
	return &APIError{StatusCode: status, Body: string(payload), Message: embeddedError(payload)}
}

// embeddedError returns the {error} member of a JSON object payload.
func embeddedError(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	if string(envelope.Error) == "null" || string(envelope.Error) == "false" {
		return ""
	}
	return strings.TrimSpace(string(envelope.Error))
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, ErrTransport)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
