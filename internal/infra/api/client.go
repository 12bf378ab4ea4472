package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"act-academy/internal/domain"
	"act-academy/internal/logging"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	csrfCookieName = "XSRF-TOKEN"
	csrfHeaderName = "X-XSRF-TOKEN"
	// statusSessionExpired is the non-standard "page expired" status some backends use for CSRF/session expiry.
	statusSessionExpired = 419
)

// Error is a non-2xx response. It unwraps to the domain sentinel matching its status.
type Error struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *Error) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client talks to the academy backend over JSON with cookie session auth.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string

	mu            sync.RWMutex
	onMaintenance func()
}

// Option customizes a Client.
type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithMaintenanceHook registers the global handler invoked on every 503.
func WithMaintenanceHook(hook func()) Option {
	return func(c *Client) { c.onMaintenance = hook }
}

// NewClient builds a Client. A nil httpClient gets a fresh client with a cookie jar;
// a client without a jar gets one so session cookies survive between calls.
func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Jar == nil {
		jar, _ := cookiejar.New(nil)
		clone := *httpClient
		clone.Jar = jar
		httpClient = &clone
	}

	c := &Client{baseURL: baseURL, httpClient: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetMaintenanceHook replaces the maintenance handler.
func (c *Client) SetMaintenanceHook(hook func()) {
	c.mu.Lock()
	c.onMaintenance = hook
	c.mu.Unlock()
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Requested-With", "XMLHttpRequest")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method != http.MethodGet {
		if token := c.csrfToken(request.URL); token != "" {
			request.Header.Set(csrfHeaderName, token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{StatusCode: response.StatusCode, kind: classify(response.StatusCode)}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Message) != "" {
			apiErr.Message = payload.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		logging.HTTP("%s %s -> %d %s", method, path, response.StatusCode, apiErr.Message)
		if response.StatusCode == http.StatusServiceUnavailable {
			c.maintenance()
		}
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// csrfToken returns the decoded XSRF-TOKEN cookie for u, if the backend issued one.
func (c *Client) csrfToken(u *url.URL) string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name != csrfCookieName {
			continue
		}
		if decoded, err := url.QueryUnescape(cookie.Value); err == nil {
			return decoded
		}
		return cookie.Value
	}
	return ""
}

func (c *Client) maintenance() {
	c.mu.RLock()
	hook := c.onMaintenance
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func classify(status int) error {
	switch {
	case status == http.StatusServiceUnavailable:
		return domain.ErrMaintenance
	case status == http.StatusUnauthorized || status == statusSessionExpired:
		return domain.ErrAuthExpired
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	default:
		return domain.ErrTransient
	}
}
