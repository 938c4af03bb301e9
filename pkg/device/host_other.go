//go:build !unix

package device

func osVersion() string {
	return ""
}
