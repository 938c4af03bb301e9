package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by a Backend when nothing was stored under a name.
	ErrNotFound = errors.New("storage: not found")

	// ErrCorrupt is returned when stored bytes cannot be decoded.
	ErrCorrupt = errors.New("storage: corrupt data")

	// ErrSaveContention is returned when a collection kept changing while
	// it was being saved and the retry budget ran out.
	ErrSaveContention = errors.New("storage: collection changed during every save attempt")
)

// Collection names used by the SDK.
const (
	EventsName      = "events"
	SessionsName    = "sessions"
	ExceptionsName  = "exceptions"
	UserDetailsName = "userdetails"
	DeviceName      = "device"
)

// Backend reads and writes opaque blobs by name. Implementations must make
// Write all-or-nothing: a failed or interrupted write leaves the previous
// value readable.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}
