// Package telemetry is the client-side analytics pipeline.
//
// A Client buffers events, session records, exceptions and user profile
// updates in memory, persists them to local storage on every heartbeat and
// session transition, and hands them to a Transport for delivery. Records
// leave the in-memory queues only once the transport accepted them, so
// delivery is at-least-once.
//
// Files in this package:
// - client.go: Client construction and options
// - session.go: session state machine and heartbeat
// - events.go: recording events, exceptions and user details
// - flush.go: persisting queues and uploading them
// - scheduler.go: the recurring heartbeat timer
// - http.go: HTTP transport
// - types.go: record types
// - context.go: context injection helpers
package telemetry
