package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"edulycee-client/internal/pkg/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const logModule = "ApiGateway"

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer credential and is told when the remote rejects it.
// Expire must clear the credential only if token is still the current one and
// report whether it did; that is what makes the forced logout fire once.
type TokenSource interface {
	Token() string
	Expire(token string) bool
}

// Generations is optionally implemented by a TokenSource. The generation moves on
// every sign-in and sign-out, which lets a rejected tokenless request send the user
// to login once per signed-out period instead of once per request.
type Generations interface {
	Generation() uint64
}

// Navigator moves the user to the unauthenticated entry surface.
type Navigator interface {
	ToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
}

// Doer is the single call contract every remote-facing component depends on.
type Doer interface {
	Do(ctx context.Context, r Request, out interface{}) error
}

type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	navigator Navigator
	logger    logger.ILogger

	navMu        sync.Mutex
	navigated    bool
	navigatedGen uint64
}

var _ Doer = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, navigator Navigator, log logger.ILogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens:    tokens,
		navigator: navigator,
		logger:    log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends r and decodes a 2xx JSON body into out (which may be nil).
// There are no retries; every failure is returned to the caller.
func (c *Client) Do(ctx context.Context, r Request, out interface{}) error {
	var payload []byte
	if r.Body != nil {
		var err error
		payload, err = json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.Method, r.Path, err)
		}
	}

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", r.Method, r.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	var gen uint64
	if c.tokens != nil {
		token = c.tokens.Token()
		gen, _ = c.generation()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug(logModule, "Request", map[string]interface{}{
		"method":        r.Method,
		"path":          r.Path,
		"query":         r.Query.Encode(),
		"payload":       payloadShape(payload),
		"authenticated": token != "",
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		terr := c.transportError(ctx, r, err)
		c.logger.Warn(logModule, "Request failed", map[string]interface{}{
			"method":      r.Method,
			"path":        r.Path,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       terr.Error(),
		})
		return terr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, r, err)
	}

	c.logger.Info(logModule, "Response", map[string]interface{}{
		"method":      r.Method,
		"path":        r.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
		"bytes":       len(body),
		"result":      payloadShape(body),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Method:  r.Method,
			Path:    r.Path,
			Status:  resp.StatusCode,
			Message: errorMessage(body),
			Body:    body,
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized(token, gen, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, r.Method, r.Path, err)
	}
	return nil
}

// handleUnauthorized runs the global logout at most once per rejected credential.
// A tokenless rejection outside /auth/ navigates once per auth generation, and
// only if nobody signed in or out since the request went out.
func (c *Client) handleUnauthorized(sentToken string, sentGen uint64, apiErr *APIError) {
	if c.tokens == nil {
		c.logger.Warn(logModule, "Unauthenticated request rejected", map[string]interface{}{
			"path": apiErr.Path,
		})
		return
	}

	c.navMu.Lock()
	if sentToken != "" {
		if !c.tokens.Expire(sentToken) {
			c.navMu.Unlock()
			return
		}
		c.markNavigatedLocked()
		c.navMu.Unlock()

		c.logger.Warn(logModule, "Credential rejected, forcing logout", map[string]interface{}{
			"method": apiErr.Method,
			"path":   apiErr.Path,
		})
		c.toLogin()
		return
	}

	cur, ok := c.generation()
	if strings.HasPrefix(apiErr.Path, "/auth/") || !ok || cur != sentGen || (c.navigated && c.navigatedGen == cur) {
		c.navMu.Unlock()
		c.logger.Warn(logModule, "Unauthenticated request rejected", map[string]interface{}{
			"path": apiErr.Path,
		})
		return
	}
	c.markNavigatedLocked()
	c.navMu.Unlock()

	c.logger.Warn(logModule, "Unauthenticated request rejected, redirecting to login", map[string]interface{}{
		"method": apiErr.Method,
		"path":   apiErr.Path,
	})
	c.toLogin()
}

func (c *Client) generation() (uint64, bool) {
	g, ok := c.tokens.(Generations)
	if !ok {
		return 0, false
	}
	return g.Generation(), true
}

func (c *Client) markNavigatedLocked() {
	if gen, ok := c.generation(); ok {
		c.navigated = true
		c.navigatedGen = gen
	}
}

func (c *Client) toLogin() {
	if c.navigator != nil {
		c.navigator.ToLogin()
	}
}

func (c *Client) transportError(ctx context.Context, r Request, err error) *TransportError {
	kind := ErrUnreachable
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = ErrCanceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = ErrNetworkTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrNetworkTimeout
	}
	return &TransportError{Method: r.Method, Path: r.Path, Kind: kind, Err: err}
}

func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		return parsed.Error
	}
	return ""
}
