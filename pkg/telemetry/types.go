package telemetry

import (
	"fmt"
	"time"

	"github.com/countly/countly-sdk-go/pkg/device"
)

// State is the session state of a Client.
type State int

const (
	StateInactive State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Event is a custom event recorded by the host.
type Event struct {
	Key          string            `json:"key" cbor:"key"`
	Count        int               `json:"count" cbor:"count"`
	Sum          *float64          `json:"sum,omitempty" cbor:"sum,omitempty"`
	Duration     *float64          `json:"dur,omitempty" cbor:"dur,omitempty"`
	Segmentation map[string]string `json:"segmentation,omitempty" cbor:"segmentation,omitempty"`
	Timestamp    int64             `json:"timestamp" cbor:"timestamp"`
}

// SessionKind distinguishes session records.
type SessionKind int

const (
	SessionBegin SessionKind = iota + 1
	SessionUpdate
	SessionEnd
)

func (k SessionKind) String() string {
	switch k {
	case SessionBegin:
		return "begin"
	case SessionUpdate:
		return "update"
	case SessionEnd:
		return "end"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SessionRecord is one step of a session's lifetime. Begin records carry
// the device id and metrics; update and end records carry the seconds
// elapsed since the previous record.
type SessionRecord struct {
	Kind      SessionKind     `cbor:"kind"`
	DeviceID  string          `cbor:"device_id,omitempty"`
	Metrics   *device.Metrics `cbor:"metrics,omitempty"`
	Duration  int64           `cbor:"duration,omitempty"`
	Timestamp int64           `cbor:"timestamp"`
}

// ExceptionRecord is a handled or unhandled exception report.
type ExceptionRecord struct {
	Message        string            `cbor:"message"`
	StackTrace     string            `cbor:"stack_trace"`
	Fatal          bool              `cbor:"fatal"`
	CustomSegments map[string]string `cbor:"custom,omitempty"`
	Timestamp      int64             `cbor:"timestamp"`
}

// crashPayload is the wire form of an ExceptionRecord.
type crashPayload struct {
	Name       string            `json:"_name"`
	Error      string            `json:"_error"`
	NonFatal   bool              `json:"_nonfatal"`
	OS         string            `json:"_os,omitempty"`
	OSVersion  string            `json:"_os_version,omitempty"`
	AppVersion string            `json:"_app_version,omitempty"`
	Custom     map[string]string `json:"_custom,omitempty"`
}

// UserDetails is a user profile update.
type UserDetails struct {
	Name         string            `json:"name,omitempty" cbor:"name,omitempty"`
	Username     string            `json:"username,omitempty" cbor:"username,omitempty"`
	Email        string            `json:"email,omitempty" cbor:"email,omitempty"`
	Organization string            `json:"organization,omitempty" cbor:"organization,omitempty"`
	Phone        string            `json:"phone,omitempty" cbor:"phone,omitempty"`
	Picture      string            `json:"picture,omitempty" cbor:"picture,omitempty"`
	Gender       string            `json:"gender,omitempty" cbor:"gender,omitempty"`
	BirthYear    int               `json:"byear,omitempty" cbor:"byear,omitempty"`
	Custom       map[string]string `json:"custom,omitempty" cbor:"custom,omitempty"`
}

// SessionStartedEvent is delivered to OnSessionStarted observers.
type SessionStartedEvent struct {
	DeviceID  string
	StartTime time.Time
}

func cloneSegments(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
