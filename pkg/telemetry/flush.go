package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/countly/countly-sdk-go/pkg/request"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

// maxEventsPerRequest caps the size of one events batch.
const maxEventsPerRequest = 100

var tracer = otel.Tracer("github.com/countly/countly-sdk-go/pkg/telemetry")

// Flush persists every queue and uploads them. It returns only the
// context's error: persistence and transmission failures are logged and
// retried on the next flush.
func (c *Client) Flush(ctx context.Context) error {
	c.flush(ctx)
	return ctx.Err()
}

func (c *Client) flush(ctx context.Context) {
	c.flushGate.Lock()
	defer c.flushGate.Unlock()

	ctx, span := tracer.Start(ctx, "countly.flush")
	defer span.End()

	c.loadQueues(ctx)
	if err := c.persist(ctx); err != nil {
		span.RecordError(err)
	}

	if !c.enabled {
		return
	}

	sent, err := c.upload(ctx)
	span.SetAttributes(attribute.Int("countly.records_sent", sent))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload incomplete")
		c.logger.Debug("Upload stopped, remaining records stay queued", "error", err)
	}

	if sent > 0 {
		// Drop what the server accepted from storage as well.
		_ = c.persist(ctx)
	}
}

// persist writes the three queues concurrently.
func (c *Client) persist(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return saveQueue(ctx, c, storage.EventsName, c.events) })
	g.Go(func() error { return saveQueue(ctx, c, storage.SessionsName, c.sessions) })
	g.Go(func() error { return saveQueue(ctx, c, storage.ExceptionsName, c.exceptions) })
	return g.Wait()
}

func saveQueue[T any](ctx context.Context, c *Client, name string, queue storage.Collection[T]) error {
	if err := storage.SaveCollection(ctx, c.store, name, queue); err != nil {
		c.logger.Warn("Failed to persist queue", "queue", name, "error", err)
		return err
	}
	return nil
}

// uploader builds and sends the requests of one upload pass.
type uploader struct {
	c          *Client
	serverURL  string
	appKey     string
	appVersion string
	deviceID   string
}

// upload hands queued records to the transport, oldest first, and removes
// each record once the transport accepted it. It stops at the first
// failure and returns how many records were delivered.
func (c *Client) upload(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "countly.upload", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	c.mu.RLock()
	u := uploader{
		c:          c,
		serverURL:  c.serverURL,
		appKey:     c.appKey,
		appVersion: c.appVersion,
	}
	c.mu.RUnlock()

	if u.serverURL == "" || u.appKey == "" {
		// Nothing can be sent before the first session configures the client.
		return 0, nil
	}
	u.deviceID = c.identity.ID(ctx)

	total := 0
	for _, step := range []func(context.Context) (int, error){
		u.sessions,
		u.location,
		u.userDetails,
		u.events,
		u.exceptions,
	} {
		n, err := step(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (u *uploader) base(ts int64, deviceID string) string {
	if u.deviceID != "" {
		deviceID = u.deviceID
	}
	return request.BaseRequestAt(u.appKey, deviceID, u.c.sdkVersion, u.c.sdkName, ts)
}

func (u *uploader) send(ctx context.Context, req string) error {
	return u.c.transport.Send(ctx, u.serverURL, req)
}

func (u *uploader) sessions(ctx context.Context) (int, error) {
	records, head := u.c.sessions.Snapshot()

	sent := 0
	var err error
	for _, rec := range records {
		var req string
		req, err = u.sessionRequest(rec)
		if err != nil {
			u.c.logger.Warn("Dropping session record that cannot be encoded", "kind", rec.Kind, "error", err)
			sent++
			err = nil
			continue
		}
		if err = u.send(ctx, req); err != nil {
			break
		}
		sent++
	}

	u.c.sessions.DropBefore(head + int64(sent))
	return sent, err
}

func (u *uploader) sessionRequest(rec SessionRecord) (string, error) {
	base := u.base(rec.Timestamp, rec.DeviceID)
	switch rec.Kind {
	case SessionBegin:
		params, err := request.BeginSessionParams(rec.Metrics)
		if err != nil {
			return "", err
		}
		return request.Join(base, params), nil
	case SessionUpdate:
		return request.Join(base, request.SessionDurationParams(rec.Duration)), nil
	default:
		return request.Join(base, request.EndSessionParams(rec.Duration)), nil
	}
}

func (u *uploader) events(ctx context.Context) (int, error) {
	events, head := u.c.events.Snapshot()

	sent := 0
	for len(events) > 0 {
		batch := events[:min(len(events), maxEventsPerRequest)]
		events = events[len(batch):]

		params, err := request.EventsParams(batch)
		if err != nil {
			u.c.logger.Warn("Dropping events batch that cannot be encoded", "count", len(batch), "error", err)
		} else if err := u.send(ctx, request.Join(u.base(u.c.nowMillis(), ""), params)); err != nil {
			return sent, err
		}

		sent += len(batch)
		u.c.events.DropBefore(head + int64(sent))
	}
	return sent, nil
}

func (u *uploader) exceptions(ctx context.Context) (int, error) {
	records, head := u.c.exceptions.Snapshot()

	sent := 0
	for _, rec := range records {
		params, err := request.CrashParams(crashPayload{
			Name:       rec.Message,
			Error:      rec.StackTrace,
			NonFatal:   !rec.Fatal,
			OS:         u.c.provider.OS(),
			OSVersion:  u.c.provider.OSVersion(),
			AppVersion: u.appVersion,
			Custom:     rec.CustomSegments,
		})
		if err != nil {
			u.c.logger.Warn("Dropping exception that cannot be encoded", "error", err)
		} else if err := u.send(ctx, request.Join(u.base(rec.Timestamp, ""), params)); err != nil {
			u.c.exceptions.DropBefore(head + int64(sent))
			return sent, err
		}
		sent++
	}

	u.c.exceptions.DropBefore(head + int64(sent))
	return sent, nil
}

func (u *uploader) location(ctx context.Context) (int, error) {
	u.c.mu.RLock()
	loc, pending := u.c.location, u.c.locationPending
	u.c.mu.RUnlock()

	if !pending {
		return 0, nil
	}

	req, ok := request.AppendLocation(u.base(u.c.nowMillis(), ""), loc)
	if !ok {
		return 0, nil
	}
	if err := u.send(ctx, req); err != nil {
		return 0, err
	}

	u.c.mu.Lock()
	if u.c.location == loc {
		u.c.locationPending = false
	}
	u.c.mu.Unlock()
	return 1, nil
}

func (u *uploader) userDetails(ctx context.Context) (int, error) {
	u.c.mu.RLock()
	details, ver, sentVer := u.c.userDetails, u.c.userDetailsVersion, u.c.userDetailsSent
	u.c.mu.RUnlock()

	if details == nil || ver == sentVer {
		return 0, nil
	}

	params, err := request.UserDetailsParams(details)
	if err != nil {
		return 0, err
	}
	if err := u.send(ctx, request.Join(u.base(u.c.nowMillis(), ""), params)); err != nil {
		return 0, err
	}

	u.c.mu.Lock()
	u.c.userDetailsSent = ver
	current := ver == u.c.userDetailsVersion
	u.c.mu.Unlock()

	if current {
		if err := u.c.store.Remove(ctx, storage.UserDetailsName); err != nil {
			u.c.logger.Warn("Failed to remove delivered user details", "error", err)
		}
	}
	return 1, nil
}
