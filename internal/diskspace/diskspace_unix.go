//go:build !windows

package diskspace

import "golang.org/x/sys/unix"

// availableBytes returns the space available to unprivileged users.
func availableBytes(dir string) (uint64, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, false
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), true
}
