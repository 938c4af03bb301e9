// Package device describes the host capabilities the SDK reads device
// metadata from. The SDK only depends on InfoProvider; each target platform
// supplies its own implementation.
package device

import "errors"

// ErrUnavailable is returned by capabilities the platform cannot provide.
var ErrUnavailable = errors.New("device: capability unavailable")

// InfoProvider exposes the device metadata of the host platform. Accessors
// return the zero value when the information is not known.
type InfoProvider interface {
	OS() string
	OSVersion() string
	Manufacturer() string
	DeviceName() string
	AppVersion() string
	Resolution() string
	Carrier() string
	Orientation() string
	RAMCurrent() (int64, bool)
	RAMTotal() (int64, bool)
	Online() bool
	Locale() string

	// MachineID returns a stable identifier of the installation, or
	// ErrUnavailable.
	MachineID() (string, error)
}

// Metrics is the device snapshot sent with a session begin record.
type Metrics struct {
	OS         string `json:"_os,omitempty" cbor:"os,omitempty"`
	OSVersion  string `json:"_os_version,omitempty" cbor:"os_version,omitempty"`
	Device     string `json:"_device,omitempty" cbor:"device,omitempty"`
	Resolution string `json:"_resolution,omitempty" cbor:"resolution,omitempty"`
	Carrier    string `json:"_carrier,omitempty" cbor:"carrier,omitempty"`
	AppVersion string `json:"_app_version,omitempty" cbor:"app_version,omitempty"`
	Locale     string `json:"_locale,omitempty" cbor:"locale,omitempty"`
}

// Snapshot collects Metrics from p. appVersion, when set, wins over the
// provider's own AppVersion.
func Snapshot(p InfoProvider, appVersion string) Metrics {
	if appVersion == "" {
		appVersion = p.AppVersion()
	}
	return Metrics{
		OS:         p.OS(),
		OSVersion:  p.OSVersion(),
		Device:     p.DeviceName(),
		Resolution: p.Resolution(),
		Carrier:    p.Carrier(),
		AppVersion: appVersion,
		Locale:     p.Locale(),
	}
}
