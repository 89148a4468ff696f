package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxPayloadBytes caps how much of a response body is read.
const maxPayloadBytes = 32 << 20

// Transport fetches the JSON payload behind a locator.
type Transport interface {
	Fetch(ctx context.Context, locator string) (Payload, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, locator string) (Payload, error)

// Fetch calls f.
func (f TransportFunc) Fetch(ctx context.Context, locator string) (Payload, error) {
	return f(ctx, locator)
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Locator    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.Locator, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.Locator, e.StatusCode, e.Body)
}

// HTTPTransport fetches locators with GET requests.
// Relative locators are resolved against BaseURL.
type HTTPTransport struct {
	Client  *http.Client
	BaseURL string
	Header  http.Header
}

// NewHTTPTransport creates a transport whose requests time out after timeout.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: baseURL,
	}
}

// Fetch performs the GET and returns the response body.
func (t *HTTPTransport) Fetch(ctx context.Context, locator string) (Payload, error) {
	target, err := t.resolve(locator)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Locator:    target,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), 200),
		}
	}
	return Payload(body), nil
}

func (t *HTTPTransport) resolve(locator string) (string, error) {
	if strings.TrimSpace(locator) == "" {
		return "", ErrInvalidLocator
	}
	ref, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if ref.IsAbs() || t.BaseURL == "" {
		return ref.String(), nil
	}
	base, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", ErrInvalidLocator, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
