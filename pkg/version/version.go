// Package version holds build information, set with -ldflags at release time.
package version

var (
	Version = "dev"
	Commit  = "unknown"
)

// SDKName is reported in the sdk_name field of every request.
const SDKName = "go-native"
