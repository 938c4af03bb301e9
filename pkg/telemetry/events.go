package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/countly/countly-sdk-go/pkg/request"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

// RecordEvent queues a custom event. It may be called in any state; the
// event is persisted on the next heartbeat or session transition.
func (c *Client) RecordEvent(key string, count int, sum, duration *float64, segmentation map[string]string) error {
	if key == "" {
		return errors.New("event key cannot be empty")
	}
	if count < 1 {
		return fmt.Errorf("event %q: count must be at least 1, got %d", key, count)
	}

	if !finite(sum) || !finite(duration) {
		return fmt.Errorf("event %q: sum and duration must be finite numbers", key)
	}

	e := Event{
		Key:          key,
		Count:        count,
		Segmentation: cloneSegments(segmentation),
		Timestamp:    c.nowMillis(),
	}
	if sum != nil {
		v := *sum
		e.Sum = &v
	}
	if duration != nil {
		v := *duration
		e.Duration = &v
	}

	c.warnDropped(storage.EventsName, c.events.Append(e))
	return nil
}

// RecordException queues a handled exception.
func (c *Client) RecordException(message, stackTrace string, customSegments map[string]string) error {
	if message == "" {
		return errors.New("exception message cannot be empty")
	}
	c.warnDropped(storage.ExceptionsName, c.exceptions.Append(ExceptionRecord{
		Message:        message,
		StackTrace:     stackTrace,
		CustomSegments: cloneSegments(customSegments),
		Timestamp:      c.nowMillis(),
	}))
	return nil
}

// RecordUnhandledException queues a fatal exception and persists the
// exception queue right away, since the process is likely about to exit.
func (c *Client) RecordUnhandledException(ctx context.Context, message, stackTrace string, customSegments map[string]string) error {
	if message == "" {
		return errors.New("exception message cannot be empty")
	}
	c.loadQueues(ctx)
	c.warnDropped(storage.ExceptionsName, c.exceptions.Append(ExceptionRecord{
		Message:        message,
		StackTrace:     stackTrace,
		Fatal:          true,
		CustomSegments: cloneSegments(customSegments),
		Timestamp:      c.nowMillis(),
	}))

	if err := storage.SaveCollection(ctx, c.store, storage.ExceptionsName, c.exceptions); err != nil {
		c.logger.Warn("Failed to persist unhandled exception", "error", err)
	}
	return nil
}

// SetUserDetails replaces the pending user profile update and persists it.
// It is sent with the next upload.
func (c *Client) SetUserDetails(ctx context.Context, details UserDetails) error {
	details.Custom = cloneSegments(details.Custom)

	c.mu.Lock()
	c.userDetails = &details
	c.userDetailsVersion++
	c.mu.Unlock()

	if err := c.store.Save(ctx, storage.UserDetailsName, details); err != nil {
		c.logger.Warn("Failed to persist user details", "error", err)
	}
	return nil
}

// SetLocation sets the location reported with the next upload. Fields left
// nil are not sent.
func (c *Client) SetLocation(loc request.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = loc
	c.locationPending = !loc.IsZero()
}

func finite(v *float64) bool {
	return v == nil || (!math.IsNaN(*v) && !math.IsInf(*v, 0))
}
