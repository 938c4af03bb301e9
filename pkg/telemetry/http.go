package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxGetLength is the longest request sent as a GET; longer ones are
// posted as a form body.
const maxGetLength = 2048

// Transport delivers one request string, as built by the request package,
// to the server.
type Transport interface {
	Send(ctx context.Context, serverURL, request string) error
}

// HTTPClient is the subset of *http.Client used by HTTPTransport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport sends requests over HTTP(S).
type HTTPTransport struct {
	client    HTTPClient
	userAgent string
}

func NewHTTPTransport(client HTTPClient, userAgent string) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, userAgent: userAgent}
}

func (t *HTTPTransport) Send(ctx context.Context, serverURL, request string) error {
	req, err := t.newRequest(ctx, strings.TrimSuffix(serverURL, "/"), request)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrTransmission, resp.StatusCode, string(body))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, serverURL, request string) (*http.Request, error) {
	if len(request) <= maxGetLength {
		return http.NewRequestWithContext(ctx, http.MethodGet, serverURL+request, http.NoBody)
	}

	path, form, _ := strings.Cut(request, "?")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+path, strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
