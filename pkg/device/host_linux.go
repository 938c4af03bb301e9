package device

import "golang.org/x/sys/unix"

func memory() (free, total int64, ok bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, false
	}
	unit := int64(max(info.Unit, 1))
	return int64(info.Freeram) * unit, int64(info.Totalram) * unit, true
}
