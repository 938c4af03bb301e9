package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/countly/countly-sdk-go/pkg/concurrent"
	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/deviceid"
	"github.com/countly/countly-sdk-go/pkg/httpclient"
	"github.com/countly/countly-sdk-go/pkg/paths"
	"github.com/countly/countly-sdk-go/pkg/request"
	"github.com/countly/countly-sdk-go/pkg/storage"
	"github.com/countly/countly-sdk-go/pkg/version"
)

const (
	DefaultUpdateInterval = 60 * time.Second
	DefaultMaxQueueSize   = 1000
)

// telemetryLogger wraps slog.Logger to automatically prepend "[Countly]" to all messages
type telemetryLogger struct {
	logger *slog.Logger
}

func newTelemetryLogger(logger *slog.Logger) *telemetryLogger {
	return &telemetryLogger{logger: logger}
}

func (tl *telemetryLogger) Debug(msg string, args ...any) {
	tl.logger.Debug("[Countly] "+msg, args...)
}

func (tl *telemetryLogger) Info(msg string, args ...any) {
	tl.logger.Info("[Countly] "+msg, args...)
}

func (tl *telemetryLogger) Warn(msg string, args ...any) {
	tl.logger.Warn("[Countly] "+msg, args...)
}

func (tl *telemetryLogger) Error(msg string, args ...any) {
	tl.logger.Error("[Countly] "+msg, args...)
}

// Client owns one analytics session and the queues feeding it. Construct
// one per process with New and pass it where it is needed, see WithClient.
type Client struct {
	logger     *telemetryLogger
	store      *storage.Store
	identity   *deviceid.Identity
	provider   device.InfoProvider
	transport  Transport
	enabled    bool
	sdkName    string
	sdkVersion string
	interval   time.Duration
	now        func() time.Time

	// lifecycle serializes BeginSession and EndSession. The heartbeat never
	// takes it.
	lifecycle sync.Mutex

	// flushGate lets one flush cycle run at a time. It guards no data.
	flushGate sync.Mutex
	uploads   sync.WaitGroup
	loadOnce  sync.Once

	// mu guards every field below as well as the three queues.
	mu                 sync.RWMutex
	state              State
	serverURL          string
	appKey             string
	appVersion         string
	lastBeat           time.Time
	sched              *scheduler
	observers          []func(SessionStartedEvent)
	location           request.Location
	locationPending    bool
	userDetails        *UserDetails
	userDetailsVersion int
	userDetailsSent    int

	events     *concurrent.Slice[Event]
	sessions   *concurrent.Slice[SessionRecord]
	exceptions *concurrent.Slice[ExceptionRecord]
}

type options struct {
	logger         *slog.Logger
	backend        storage.Backend
	provider       device.InfoProvider
	transport      Transport
	enabled        bool
	sdkName        string
	sdkVersion     string
	interval       time.Duration
	maxQueueSize   int
	preferredID    deviceid.Method
	now            func() time.Time
	maxSaveAttempt int
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackend selects where queues are persisted. The default is a file
// backend under the user's data directory.
func WithBackend(backend storage.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

func WithDeviceInfo(provider device.InfoProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

func WithTransport(transport Transport) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithEnabled turns network handoff on or off. A disabled client still
// buffers and persists everything.
func WithEnabled(enabled bool) Option {
	return func(o *options) {
		o.enabled = enabled
	}
}

func WithSDK(name, version string) Option {
	return func(o *options) {
		o.sdkName = name
		o.sdkVersion = version
	}
}

// WithUpdateInterval sets the heartbeat interval.
func WithUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithMaxQueueSize bounds each queue; past the bound the oldest records
// are dropped. Zero means unbounded.
func WithMaxQueueSize(n int) Option {
	return func(o *options) {
		o.maxQueueSize = max(n, 0)
	}
}

// WithPreferredDeviceIDMethod selects the method tried first when a new
// device id has to be computed.
func WithPreferredDeviceIDMethod(m deviceid.Method) Option {
	return func(o *options) {
		o.preferredID = m
	}
}

// WithMaxSaveAttempts bounds the re-save loop of a collection that keeps
// changing while it is written.
func WithMaxSaveAttempts(n int) Option {
	return func(o *options) {
		o.maxSaveAttempt = n
	}
}

func New(opts ...Option) *Client {
	o := options{
		logger:       slog.Default(),
		enabled:      true,
		sdkName:      version.SDKName,
		sdkVersion:   version.Version,
		interval:     DefaultUpdateInterval,
		maxQueueSize: DefaultMaxQueueSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.backend == nil {
		o.backend = storage.NewFileBackend(paths.GetStorageDir())
	}
	if o.provider == nil {
		o.provider = device.NewHost("")
	}
	if o.transport == nil {
		o.transport = NewHTTPTransport(httpclient.NewHTTPClient(), "")
	}

	store := storage.NewStore(o.backend,
		storage.WithLogger(o.logger),
		storage.WithMaxSaveAttempts(o.maxSaveAttempt),
	)
	identity := deviceid.New(store, o.provider, o.logger)
	identity.SetPreferredMethod(o.preferredID)

	c := &Client{
		logger:     newTelemetryLogger(o.logger),
		store:      store,
		identity:   identity,
		provider:   o.provider,
		transport:  o.transport,
		enabled:    o.enabled,
		sdkName:    o.sdkName,
		sdkVersion: o.sdkVersion,
		interval:   o.interval,
		now:        o.now,
	}
	c.events = concurrent.NewSharedSlice[Event](&c.mu, o.maxQueueSize)
	c.sessions = concurrent.NewSharedSlice[SessionRecord](&c.mu, o.maxQueueSize)
	c.exceptions = concurrent.NewSharedSlice[ExceptionRecord](&c.mu, o.maxQueueSize)

	c.logger.Debug("Client created", "enabled", o.enabled, "interval", o.interval, "max_queue_size", o.maxQueueSize)
	return c
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// DeviceID returns the device id, resolving it on first use.
func (c *Client) DeviceID(ctx context.Context) string {
	return c.identity.ID(ctx)
}

// SetDeviceID overrides the device id for every request built from now on.
func (c *Client) SetDeviceID(ctx context.Context, id string) error {
	return c.identity.SetID(ctx, id)
}

// OnSessionStarted registers fn to be called after every successful
// BeginSession. fn runs on the caller's goroutine without locks held.
func (c *Client) OnSessionStarted(fn func(SessionStartedEvent)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// QueueLengths reports the number of pending events, session records and
// exceptions.
func (c *Client) QueueLengths() (events, sessions, exceptions int) {
	return c.events.Length(), c.sessions.Length(), c.exceptions.Length()
}

// Close ends the session if one is active and waits for background
// uploads.
func (c *Client) Close(ctx context.Context) error {
	err := c.EndSession(ctx)
	c.uploads.Wait()
	return err
}

func (c *Client) nowMillis() int64 {
	return c.now().UnixMilli()
}

func (c *Client) warnDropped(queue string, dropped int) {
	if dropped > 0 {
		c.logger.Warn("Queue full, dropped oldest records", "queue", queue, "dropped", dropped)
	}
}
