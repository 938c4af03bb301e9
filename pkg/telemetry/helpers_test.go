package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

const (
	testServer = "https://analytics.example.com"
	testAppKey = "app-key-123"
)

// recordingTransport captures every request and fails while fail is set.
type recordingTransport struct {
	mu       sync.Mutex
	requests []string
	fail     error
}

func (t *recordingTransport) Send(_ context.Context, serverURL, request string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	t.requests = append(t.requests, request)
	return nil
}

func (t *recordingTransport) setFail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = err
}

func (t *recordingTransport) Requests() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.requests...)
}

// Matching returns the captured requests containing fragment.
func (t *recordingTransport) Matching(fragment string) []string {
	var out []string
	for _, r := range t.Requests() {
		if strings.Contains(r, fragment) {
			out = append(out, r)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type testProvider struct {
	device.Host
}

func (p *testProvider) MachineID() (string, error) {
	return "test-machine", nil
}

type testEnv struct {
	client    *Client
	transport *recordingTransport
	backend   *storage.MemoryBackend
}

func newTestClient(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		transport: &recordingTransport{},
		backend:   storage.NewMemoryBackend(),
	}
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBackend(env.backend),
		WithTransport(env.transport),
		WithDeviceInfo(&testProvider{Host: device.Host{Version: "1.0.0"}}),
		WithSDK("go-native-test", "0.0.1"),
		WithUpdateInterval(time.Hour),
	}
	env.client = New(append(base, opts...)...)

	t.Cleanup(func() {
		_ = env.client.Close(context.Background())
	})
	return env
}

// begin starts a session and waits for the initial upload.
func (e *testEnv) begin(t *testing.T) {
	t.Helper()
	require.NoError(t, e.client.BeginSession(t.Context(), testServer, testAppKey, "1.0.0"))
	e.client.uploads.Wait()
}

func (e *testEnv) stored() *storage.Store {
	return storage.NewStore(e.backend)
}
