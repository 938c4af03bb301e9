package device

import (
	"cmp"
	"os"
	"runtime"
	"strings"
	"sync"
)

// machineIDFiles are tried in order by Host.MachineID.
var machineIDFiles = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// Host reads device metadata from the Go runtime and the environment. It
// is the provider used when the host application does not supply one.
type Host struct {
	// Version is reported by AppVersion.
	Version string

	mu   sync.Mutex
	name string
}

func NewHost(appVersion string) *Host {
	return &Host{Version: appVersion}
}

func (h *Host) OS() string {
	return runtime.GOOS
}

// OSVersion returns the kernel release on unix systems.
func (h *Host) OSVersion() string {
	return osVersion()
}

func (h *Host) Manufacturer() string {
	return ""
}

// DeviceName returns the name set with SetDeviceName, or the hostname.
func (h *Host) DeviceName() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.name != "" {
		return h.name
	}
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// SetDeviceName overrides the reported device name.
func (h *Host) SetDeviceName(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.name = name
}

func (h *Host) AppVersion() string {
	return h.Version
}

func (h *Host) Resolution() string {
	return ""
}

func (h *Host) Carrier() string {
	return ""
}

func (h *Host) Orientation() string {
	return ""
}

// RAMCurrent returns the available memory in bytes.
func (h *Host) RAMCurrent() (int64, bool) {
	free, _, ok := memory()
	return free, ok
}

// RAMTotal returns the installed memory in bytes.
func (h *Host) RAMTotal() (int64, bool) {
	_, total, ok := memory()
	return total, ok
}

func (h *Host) Online() bool {
	return true
}

func (h *Host) Locale() string {
	lang := cmp.Or(os.Getenv("LC_ALL"), os.Getenv("LANG"), "en-US")
	// en_US.UTF-8 -> en_US
	if i := strings.IndexByte(lang, '.'); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func (h *Host) MachineID() (string, error) {
	for _, path := range machineIDFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", ErrUnavailable
}
