package sk

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	QuicksaveLabel    = "[Quicksave]"
	MigratedLabel     = "Migrated Save"
	QuicksaveSuffix   = "_quicksave"
	FolderTimeFormat  = "2006-01-02_15-04-05"
	DisplayTimeFormat = "2006-01-02 15:04:05"

	maxNameLength = 20
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// ValidateName trims a backup label or character name and checks it is
// 1-20 characters of letters, digits and spaces.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > maxNameLength || !namePattern.MatchString(name) {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidName)
	}
	return name, nil
}

// BackupFolderName is the storage folder for a regular backup.
func BackupFolderName(profileID string, at time.Time) string {
	return profileID + "_" + at.Format(FolderTimeFormat)
}

// QuicksaveFolderName is the single storage folder a profile's quicksave uses.
func QuicksaveFolderName(profileID string) string {
	return profileID + QuicksaveSuffix
}

// IsQuicksaveFolder reports whether a storage folder follows the quicksave
// naming convention. Only Reconcile relies on this; everything else uses
// Snapshot.IsQuicksave.
func IsQuicksaveFolder(folder string) bool {
	return strings.HasSuffix(strings.ToLower(folder), QuicksaveSuffix)
}

// Layout resolves paths under the backup root.
type Layout struct {
	BackupRoot string
	FlagPath   string
}

// SnapshotDir is the storage folder of a snapshot.
func (l Layout) SnapshotDir(s *Snapshot) string {
	return filepath.Join(l.BackupRoot, s.StorageFolderName)
}

// SnapshotProfileDir is the copy of the profile tree inside a snapshot.
func (l Layout) SnapshotProfileDir(s *Snapshot) string {
	return filepath.Join(l.BackupRoot, s.StorageFolderName, s.ProfileID)
}

// SnapshotFlagPath is where a snapshot keeps its copy of the flag file.
// It returns "" when no flag file is configured.
func (l Layout) SnapshotFlagPath(s *Snapshot) string {
	if l.FlagPath == "" {
		return ""
	}
	return filepath.Join(l.SnapshotDir(s), filepath.Base(l.FlagPath))
}
