package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, client *http.Client, setUA string) http.Header {
	t.Helper()

	var capturedHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		capturedHeaders = r.Header
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	if setUA != "" {
		req.Header.Set("User-Agent", setUA)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return capturedHeaders
}

func TestNewHTTPClient_DefaultUserAgent(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient()
	assert.Equal(t, 30*time.Second, client.Timeout)

	headers := capture(t, client, "")
	assert.Equal(t, UserAgent(), headers.Get("User-Agent"))
	assert.Contains(t, UserAgent(), "countly-go-native/")
}

func TestNewHTTPClient_Options(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(
		WithUserAgent("custom/1.0"),
		WithTimeout(time.Second),
		WithHeader("X-Countly-Checksum", "abc"),
	)
	assert.Equal(t, time.Second, client.Timeout)

	headers := capture(t, client, "")
	assert.Equal(t, "custom/1.0", headers.Get("User-Agent"))
	assert.Equal(t, "abc", headers.Get("X-Countly-Checksum"))
}

func TestNewHTTPClient_RequestUserAgentWins(t *testing.T) {
	t.Parallel()

	headers := capture(t, NewHTTPClient(), "from-request/2.0")
	assert.Equal(t, "from-request/2.0", headers.Get("User-Agent"))
}
