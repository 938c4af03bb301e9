package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for countly.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory. This is a best-effort fallback and
// not intended to be a security boundary.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".countly-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "countly"))
}

// GetDataDir returns the directory holding the buffered queues, the device
// id and the debug log.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".countly"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".countly"))
}

// GetStorageDir returns the directory the file backend writes its
// collections to.
func GetStorageDir() string {
	return filepath.Join(GetDataDir(), "storage")
}
