package telemetry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrTransmission wraps every failure to hand a request to the server.
var ErrTransmission = errors.New("telemetry: transmission failed")

// ConfigurationError reports a malformed server URL or app key. The
// session is not started when it is returned.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func validateServerURL(serverURL string) error {
	if strings.TrimSpace(serverURL) == "" {
		return &ConfigurationError{Field: "server url", Value: serverURL, Reason: "must not be empty"}
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return &ConfigurationError{Field: "server url", Value: serverURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Field: "server url", Value: serverURL, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ConfigurationError{Field: "server url", Value: serverURL, Reason: "missing host"}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return &ConfigurationError{Field: "server url", Value: serverURL, Reason: "must not carry a query or fragment"}
	}
	return nil
}

func validateAppKey(appKey string) error {
	if appKey == "" {
		return &ConfigurationError{Field: "app key", Value: appKey, Reason: "must not be empty"}
	}
	if strings.ContainsAny(appKey, " \t\r\n&=?#") {
		return &ConfigurationError{Field: "app key", Value: appKey, Reason: "contains characters not allowed in a query"}
	}
	return nil
}
