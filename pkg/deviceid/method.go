package deviceid

import (
	"fmt"
	"strings"
)

// Method is the strategy that produced a device id.
type Method int

const (
	MethodNone Method = 0
	// MethodMachineID derives the id from the platform's installation id.
	MethodMachineID Method = 1
	// MethodFingerprint hashes several device fields together.
	MethodFingerprint Method = 2
	// MethodRandom generates a random UUID. It is always available.
	MethodRandom Method = 3
	// MethodDeveloperSupplied marks ids set explicitly by the host.
	MethodDeveloperSupplied Method = 100
)

// Origin groups methods by who produced the id.
type Origin int

const (
	OriginNone Origin = iota
	OriginPlatformComputed
	OriginDeveloperSupplied
)

func (m Method) Origin() Origin {
	switch m {
	case MethodNone:
		return OriginNone
	case MethodDeveloperSupplied:
		return OriginDeveloperSupplied
	default:
		return OriginPlatformComputed
	}
}

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodMachineID:
		return "machine_id"
	case MethodFingerprint:
		return "fingerprint"
	case MethodRandom:
		return "random"
	case MethodDeveloperSupplied:
		return "developer_supplied"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMethod parses the names returned by Method.String. The empty string
// parses as MethodNone.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return MethodNone, nil
	case "machine_id":
		return MethodMachineID, nil
	case "fingerprint":
		return MethodFingerprint, nil
	case "random":
		return MethodRandom, nil
	case "developer_supplied":
		return MethodDeveloperSupplied, nil
	default:
		return MethodNone, fmt.Errorf("unknown device id method: %q", name)
	}
}

// defaultPriority is the order platform methods are tried in. Random is
// last because it cannot fail.
var defaultPriority = []Method{MethodMachineID, MethodFingerprint, MethodRandom}

// priority returns the resolution order with preferred moved to the front.
func priority(preferred Method) []Method {
	if preferred.Origin() != OriginPlatformComputed {
		return defaultPriority
	}
	order := []Method{preferred}
	for _, m := range defaultPriority {
		if m != preferred {
			order = append(order, m)
		}
	}
	return order
}
