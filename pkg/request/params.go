package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Param renders name=value with value query-escaped, prefixed by '&'.
func Param(name, value string) string {
	return "&" + name + "=" + url.QueryEscape(value)
}

// JSONParam renders v as a query-escaped JSON parameter.
func JSONParam(name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	return Param(name, string(data)), nil
}

// BeginSessionParams marks a request as a session start carrying metrics.
func BeginSessionParams(metrics any) (string, error) {
	m, err := JSONParam("metrics", metrics)
	if err != nil {
		return "", err
	}
	return "&begin_session=1" + m, nil
}

// SessionDurationParams reports seconds elapsed since the previous update.
func SessionDurationParams(seconds int64) string {
	return "&session_duration=" + strconv.FormatInt(seconds, 10)
}

// EndSessionParams closes a session, reporting the last duration slice.
func EndSessionParams(seconds int64) string {
	return "&end_session=1" + SessionDurationParams(seconds)
}

// EventsParams encodes a batch of events.
func EventsParams(events any) (string, error) {
	return JSONParam("events", events)
}

// CrashParams encodes an exception report.
func CrashParams(crash any) (string, error) {
	return JSONParam("crash", crash)
}

// UserDetailsParams encodes a user profile update.
func UserDetailsParams(details any) (string, error) {
	return JSONParam("user_details", details)
}

// Join concatenates a base request and its parameters.
func Join(base string, params ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, p := range params {
		b.WriteString(p)
	}
	return b.String()
}
