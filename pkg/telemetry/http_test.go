package telemetry

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockHTTPClient captures HTTP requests for testing
type MockHTTPClient struct {
	*http.Client
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	status   int
	respBody string
	err      error
}

// NewMockHTTPClient creates a new mock HTTP client with a default success response
func NewMockHTTPClient() *MockHTTPClient {
	mock := &MockHTTPClient{
		status:   http.StatusOK,
		respBody: `{"result":"Success"}`,
	}
	mock.Client = &http.Client{Transport: mock}
	return mock
}

// SetResponse changes the status and body returned for later requests
func (m *MockHTTPClient) SetResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.respBody = body
}

// RoundTrip implements http.RoundTripper and captures the request
func (m *MockHTTPClient) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	m.requests = append(m.requests, req)
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	} else {
		m.bodies = append(m.bodies, nil)
	}

	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// GetRequests returns all captured requests
func (m *MockHTTPClient) GetRequests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request{}, m.requests...)
}

// GetBodies returns all captured request bodies
func (m *MockHTTPClient) GetBodies() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte{}, m.bodies...)
}

func TestHTTPTransport_ShortRequestUsesGet(t *testing.T) {
	t.Parallel()
	mockHTTP := NewMockHTTPClient()
	transport := NewHTTPTransport(mockHTTP.Client, "go-native/1.2.3")

	err := transport.Send(t.Context(), testServer+"/", "/i?app_key=k&device_id=d&begin_session=1")
	require.NoError(t, err)

	requests := mockHTTP.GetRequests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, testServer+"/i?app_key=k&device_id=d&begin_session=1", req.URL.String())
	assert.Equal(t, "go-native/1.2.3", req.Header.Get("User-Agent"))
}

func TestHTTPTransport_LongRequestUsesPost(t *testing.T) {
	t.Parallel()
	mockHTTP := NewMockHTTPClient()
	transport := NewHTTPTransport(mockHTTP.Client, "")

	query := "app_key=k&device_id=d&events=" + strings.Repeat("x", maxGetLength)
	require.NoError(t, transport.Send(t.Context(), testServer, "/i?"+query))

	requests := mockHTTP.GetRequests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, testServer+"/i", req.URL.String())
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, query, string(mockHTTP.GetBodies()[0]))
}

func TestHTTPTransport_ErrorStatus(t *testing.T) {
	t.Parallel()
	mockHTTP := NewMockHTTPClient()
	mockHTTP.SetResponse(http.StatusBadRequest, `{"result":"Missing parameter \"app_key\""}`)
	transport := NewHTTPTransport(mockHTTP.Client, "")

	err := transport.Send(t.Context(), testServer, "/i?device_id=d")
	require.ErrorIs(t, err, ErrTransmission)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Missing parameter")
}

func TestHTTPTransport_NetworkError(t *testing.T) {
	t.Parallel()
	mockHTTP := NewMockHTTPClient()
	mockHTTP.err = errors.New("dial tcp: connection refused")
	transport := NewHTTPTransport(mockHTTP.Client, "")

	err := transport.Send(t.Context(), testServer, "/i?device_id=d")
	require.ErrorIs(t, err, ErrTransmission)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_UploadsOverHTTP(t *testing.T) {
	t.Parallel()
	mockHTTP := NewMockHTTPClient()
	env := newTestClient(t, WithTransport(NewHTTPTransport(mockHTTP.Client, "")))

	env.begin(t)

	requests := mockHTTP.GetRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/i", requests[0].URL.Path)
	assert.Equal(t, testAppKey, requests[0].URL.Query().Get("app_key"))
	assert.Equal(t, "1", requests[0].URL.Query().Get("begin_session"))

	_, sessions, _ := env.client.QueueLengths()
	assert.Zero(t, sessions)
}
