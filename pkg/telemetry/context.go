package telemetry

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	clientContextKey contextKey = "countly_client"
)

// WithClient adds a client to the context
func WithClient(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// FromContext retrieves the client from context
func FromContext(ctx context.Context) *Client {
	if client, ok := ctx.Value(clientContextKey).(*Client); ok {
		return client
	}
	return nil
}

// RecordEvent records an event on the context's client, if any.
func RecordEvent(ctx context.Context, key string, count int, segmentation map[string]string) {
	if client := FromContext(ctx); client != nil {
		if err := client.RecordEvent(key, count, nil, nil, segmentation); err != nil {
			client.logger.Debug("Event rejected", "key", key, "error", err)
		}
	}
}

// RecordException records a handled exception on the context's client, if
// any.
func RecordException(ctx context.Context, err error, stackTrace string) {
	if err == nil {
		return
	}
	if client := FromContext(ctx); client != nil {
		if recErr := client.RecordException(err.Error(), stackTrace, nil); recErr != nil {
			client.logger.Debug("Exception rejected", "error", recErr)
		}
	}
}
