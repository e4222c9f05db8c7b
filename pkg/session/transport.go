package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport delivers one operation to the form engine and returns its reply.
// Implementations must honor ctx cancellation and surface timeouts through
// *TransportError so the session can classify them.
type Transport interface {
	Send(ctx context.Context, op Operation) (*Response, error)
}

// TransportError is a delivery failure the transport could classify.
type TransportError struct {
	Timeout    bool
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "session: request timed out"
	}
	if e.Message != "" {
		return fmt.Sprintf("session: request failed: %s", e.Message)
	}
	return fmt.Sprintf("session: request failed with status %d", e.StatusCode)
}

// HTTPTransport posts JSON operations to <base>/<action>.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithHTTPTimeout sets the per-request timeout on the default client.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, options ...HTTPOption) (*HTTPTransport, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("session: invalid base URL %q: %w", baseURL, err)
	}
	t := &HTTPTransport{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Send posts the operation and decodes the reply envelope.
func (t *HTTPTransport) Send(ctx context.Context, op Operation) (*Response, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("session: encode %s request: %w", op.Action, err)
	}

	endpoint := t.base + "/" + string(op.Action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("session: build %s request: %w", op.Action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TransportError{Timeout: true}
		}
		return nil, fmt.Errorf("session: send %s request: %w", op.Action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		te := &TransportError{StatusCode: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			te.Message = payload.Message
		}
		return nil, te
	}

	var out Response
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("session: decode %s response: %w", op.Action, err)
	}
	return &out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
