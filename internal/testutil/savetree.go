package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	// ModeSuffix and PayloadExt match what tests pass to fs.NewOSSaveScanner.
	ModeSuffix = "__HonourMode"
	PayloadExt = ".lsv"
)

// SaveTree is a throwaway save root, backup root and flag file.
type SaveTree struct {
	SaveRoot   string
	BackupRoot string
	FlagPath   string
}

// NewSaveTree creates empty save and backup roots under t.TempDir. The
// flag file is not created; use WriteFlag.
func NewSaveTree(t *testing.T) *SaveTree {
	t.Helper()

	base := t.TempDir()
	tree := &SaveTree{
		SaveRoot:   filepath.Join(base, "saves"),
		BackupRoot: filepath.Join(base, "backups"),
		FlagPath:   filepath.Join(base, "config", "profile8.lsx"),
	}
	for _, dir := range []string{tree.SaveRoot, tree.BackupRoot, filepath.Dir(tree.FlagPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return tree
}

// ProfileID builds a profile folder name carrying the mode suffix.
func ProfileID(name string) string {
	return name + ModeSuffix
}

// ProfileDir returns the live directory of a profile.
func (s *SaveTree) ProfileDir(profileID string) string {
	return filepath.Join(s.SaveRoot, profileID)
}

// WriteSave writes a payload into a live profile and sets its mtime.
// It returns the payload path.
func (s *SaveTree) WriteSave(t *testing.T, profileID, name, content string, mtime time.Time) string {
	t.Helper()
	return WriteFileAt(t, filepath.Join(s.ProfileDir(profileID), name+PayloadExt), content, mtime)
}

// WriteFlag writes the flag file.
func (s *SaveTree) WriteFlag(t *testing.T, content string) {
	t.Helper()
	WriteFileAt(t, s.FlagPath, content, time.Now())
}

// ReadFile returns a file's content, failing the test if it cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// WriteFileAt writes content to path, creating parents, and sets the mtime.
func WriteFileAt(t *testing.T, path, content string, mtime time.Time) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", path, err)
	}
	return path
}
