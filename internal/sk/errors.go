package sk

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrDeleteFailed is returned when a directory could not be removed even
	// after every fallback strategy.
	ErrDeleteFailed = errors.New("directory delete failed")

	ErrCopyFailed       = errors.New("directory copy failed")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNotConfirmed     = errors.New("restore not confirmed")

	// ErrAborted is returned when the caller declines to continue a restore
	// after a flag file problem.
	ErrAborted = errors.New("restore aborted")

	ErrFlagMissing    = errors.New("flag file missing from snapshot")
	ErrInvalidName    = errors.New("names must be 1-20 letters, digits or spaces")
	ErrUnnamedProfile = errors.New("profile has no character name")
)

// DuplicateLabelError is returned by CreateBackup when the character already
// has a backup with the requested label and overwrite was not requested.
type DuplicateLabelError struct {
	Existing *Snapshot
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("a backup named %q already exists for %s", e.Existing.UserLabel, e.Existing.CharacterName)
}

// FlagRestoreError reports a failure to put the flag file back during a
// restore. Permission is set when the destination is protected, which the
// caller cannot resolve by retrying.
type FlagRestoreError struct {
	Permission bool
	Err        error
}

func (e *FlagRestoreError) Error() string {
	if e.Permission {
		return fmt.Sprintf("permission denied restoring flag file: %v", e.Err)
	}
	return fmt.Sprintf("restoring flag file: %v", e.Err)
}

func (e *FlagRestoreError) Unwrap() error { return e.Err }

func newFlagRestoreError(err error) *FlagRestoreError {
	return &FlagRestoreError{
		Permission: errors.Is(err, fs.ErrPermission),
		Err:        err,
	}
}
