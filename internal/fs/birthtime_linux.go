//go:build linux

package fs

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// BirthTime returns when path was created. Filesystems that do not record a
// birth time fall back to the modification time.
func BirthTime(path string) (time.Time, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME|unix.STATX_MTIME, &stx)
	if err != nil {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return time.Time{}, fmt.Errorf("stat %s: %w", path, statErr)
		}
		return info.ModTime(), nil
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
	}
	return time.Unix(stx.Mtime.Sec, int64(stx.Mtime.Nsec)), nil
}
