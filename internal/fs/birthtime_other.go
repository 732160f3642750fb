//go:build !linux && !darwin

package fs

import (
	"fmt"
	"os"
	"time"
)

// BirthTime returns the modification time; this platform does not expose a
// creation time through os.FileInfo.
func BirthTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
