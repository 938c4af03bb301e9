package telemetry

import (
	"context"
	"slices"
	"time"

	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

// BeginSession starts a session against serverURL for appKey. It is a
// no-op while a session is active. Malformed arguments are reported as a
// *ConfigurationError and leave the client inactive.
func (c *Client) BeginSession(ctx context.Context, serverURL, appKey, appVersion string) error {
	started, observers, err := c.begin(ctx, serverURL, appKey, appVersion)
	if err != nil || started == nil {
		return err
	}

	// Observers may call back into the client, so lifecycle is released.
	for _, fn := range observers {
		fn(*started)
	}

	c.uploads.Add(1)
	go func() {
		defer c.uploads.Done()
		c.flush(context.WithoutCancel(ctx))
	}()

	return nil
}

// begin moves the client to StateActive under the lifecycle lock and
// returns the observers to notify. The event is nil when a session was
// already active.
func (c *Client) begin(ctx context.Context, serverURL, appKey, appVersion string) (*SessionStartedEvent, []func(SessionStartedEvent), error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == StateActive {
		c.logger.Debug("Session already active, ignoring begin")
		return nil, nil, nil
	}

	if err := validateServerURL(serverURL); err != nil {
		return nil, nil, err
	}
	if err := validateAppKey(appKey); err != nil {
		return nil, nil, err
	}

	deviceID := c.identity.ID(ctx)
	c.loadQueues(ctx)

	now := c.now()
	metrics := device.Snapshot(c.provider, appVersion)

	c.mu.Lock()
	c.state = StateActive
	c.serverURL = serverURL
	c.appKey = appKey
	c.appVersion = appVersion
	c.lastBeat = now
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	c.enqueueSession(SessionRecord{
		Kind:      SessionBegin,
		DeviceID:  deviceID,
		Metrics:   &metrics,
		Timestamp: now.UnixMilli(),
	})

	sched := startScheduler(c.interval, c.heartbeatTick)
	c.mu.Lock()
	c.sched = sched
	c.mu.Unlock()

	if err := storage.SaveCollection(ctx, c.store, storage.SessionsName, c.sessions); err != nil {
		c.logger.Warn("Failed to persist sessions", "error", err)
	}

	c.logger.Info("Session started", "server_url", serverURL)

	return &SessionStartedEvent{DeviceID: deviceID, StartTime: now}, observers, nil
}

// EndSession stops the heartbeat, records the final duration, flushes and
// uploads. It is a no-op while no session is active.
func (c *Client) EndSession(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil
	}
	c.state = StateInactive
	sched := c.sched
	c.sched = nil
	c.mu.Unlock()

	// Waits for an in-flight heartbeat; no lock may be held here.
	sched.Stop()

	elapsed := c.advanceBeat()
	c.enqueueSession(SessionRecord{
		Kind:      SessionEnd,
		Duration:  elapsed,
		Timestamp: c.nowMillis(),
	})

	c.flush(ctx)
	c.logger.Info("Session ended")
	return ctx.Err()
}

func (c *Client) heartbeatTick() {
	c.heartbeat(context.Background())
}

// heartbeat records the time elapsed since the previous heartbeat and
// flushes.
func (c *Client) heartbeat(ctx context.Context) {
	if c.State() != StateActive {
		return
	}

	elapsed := c.advanceBeat()
	c.enqueueSession(SessionRecord{
		Kind:      SessionUpdate,
		Duration:  elapsed,
		Timestamp: c.nowMillis(),
	})

	c.flush(ctx)
}

// advanceBeat returns the whole seconds elapsed since the last beat and
// moves the beat forward by that amount, so fractions carry over to the
// next record.
func (c *Client) advanceBeat() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.now().Sub(c.lastBeat)
	seconds := int64(max(elapsed, 0) / time.Second)
	c.lastBeat = c.lastBeat.Add(time.Duration(seconds) * time.Second)
	return seconds
}

func (c *Client) enqueueSession(rec SessionRecord) {
	c.warnDropped(storage.SessionsName, c.sessions.Append(rec))
}

// loadQueues merges persisted records in front of whatever was recorded
// since the Client was created. It runs once per Client, before the first
// save of any queue; concurrent callers wait for it to finish.
func (c *Client) loadQueues(ctx context.Context) {
	c.loadOnce.Do(func() {
		c.warnDropped(storage.EventsName, c.events.Prepend(storage.LoadCollection[Event](ctx, c.store, storage.EventsName)))
		c.warnDropped(storage.SessionsName, c.sessions.Prepend(storage.LoadCollection[SessionRecord](ctx, c.store, storage.SessionsName)))
		c.warnDropped(storage.ExceptionsName, c.exceptions.Prepend(storage.LoadCollection[ExceptionRecord](ctx, c.store, storage.ExceptionsName)))

		details, err := storage.Load[UserDetails](ctx, c.store, storage.UserDetailsName)
		if err != nil {
			return
		}
		c.mu.Lock()
		if c.userDetails == nil {
			c.userDetails = &details
			c.userDetailsVersion++
		}
		c.mu.Unlock()
	})
}
