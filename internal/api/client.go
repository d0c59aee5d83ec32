package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const maxBodySize = 4 << 20

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Options configures New
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // defaults to http.DefaultTransport
	Logger    *log.Logger
}

// Client talks to the remote task API. It attaches the bearer token to
// every request and reports 401 responses to its unauthorized handlers
// before returning them. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized []func()
}

// New creates a client for the API rooted at opts.BaseURL
func New(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  logger,
	}
	c.http = &http.Client{
		Timeout:   opts.Timeout,
		Transport: &bearerTransport{client: c, base: base},
	}
	return c
}

// SetTokenSource replaces the source of bearer tokens
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run whenever any request gets a 401.
// Handlers run synchronously, before the failing call returns.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

func (c *Client) emitUnauthorized() {
	c.mu.RLock()
	handlers := append([]func(){}, c.onUnauthorized...)
	c.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}

// do sends one request. body is JSON encoded when non-nil; a successful
// response is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build %s: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("api: %s failed (request %s): %v", op, requestID, err)
		return &Error{Kind: KindNetwork, Op: op, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, RequestID: requestID, Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			Kind:      kindForStatus(resp.StatusCode),
			Op:        op,
			Status:    resp.StatusCode,
			Message:   messageFromBody(data),
			RequestID: requestID,
		}
		c.logger.Printf("api: %s returned %d (request %s): %s", op, resp.StatusCode, requestID, apiErr.Message)
		if apiErr.Kind == KindUnauthorized {
			c.emitUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, RequestID: requestID, Err: err}
	}
	return nil
}

// bearerTransport adds the current session token through oauth2.Transport
type bearerTransport struct {
	client *Client
	base   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.client.token()
	if token == "" {
		return t.base.RoundTrip(req)
	}
	rt := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   t.base,
	}
	return rt.RoundTrip(req)
}
