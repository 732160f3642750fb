package sk

import "context"

// Database stores restoration marks and the history of mutating commands.
type Database interface {
	// FindRestorationMark returns the mark for a profile, or nil if none.
	FindRestorationMark(profileID string) (*RestorationMark, error)

	// UpsertRestorationMark replaces the mark for mark.ProfileID.
	UpsertRestorationMark(mark *RestorationMark) error

	// ListRestorationMarks returns every mark, ordered by profile id.
	ListRestorationMarks() ([]*RestorationMark, error)

	CreateOperation(operation, parameters string) (*Operation, error)
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// CheckMigrations reports an error if the schema is not current.
	CheckMigrations() error

	Close() error
}

// Ledger persists snapshot records and the profile name table.
// Save and SaveNames rewrite their files wholesale and must only be called
// while the caller holds the service's write lock.
type Ledger interface {
	// Load reads the ledger. Records whose storage folder no longer exists
	// are dropped.
	Load() (*LedgerState, error)

	Save(snapshots []*Snapshot) error
	SaveNames(names *NameTable) error

	// Reconcile adopts folders under the backup root that have no record,
	// merging any legacy ledger, and returns the number of records added.
	// Running it twice on an unchanged root adds nothing the second time.
	Reconcile() (int, error)
}

// DirectoryReplacer deletes and repopulates directory trees.
type DirectoryReplacer interface {
	// Copy recursively copies src onto dst, creating dst and overwriting
	// files. Modes and modification times are preserved.
	Copy(src, dst string) error

	// Delete removes a directory tree, falling back to stronger strategies
	// when read-only entries block a plain removal. A missing dir is not an error.
	Delete(dir string) error

	// Replace deletes dst and copies src onto it.
	Replace(src, dst string) error

	// CopyFlag copies a single file after clearing read-only bits on the
	// source and any existing destination.
	CopyFlag(src, dst string) error

	// Size returns the total size of the regular files under dir.
	Size(dir string) (int64, error)
}

// SaveScanner discovers profiles and their save payloads.
type SaveScanner interface {
	// ScanProfiles lists the profile directories under root that carry at
	// least one payload, ordered by id.
	ScanProfiles(root string) ([]*Profile, error)

	// NewestPayload returns the most recently modified payload directly
	// inside dir, or nil if there is none.
	NewestPayload(dir string) (*Payload, error)

	// StatPayload returns payload info for a file, or nil if it does not exist.
	StatPayload(path string) (*Payload, error)
}

// NameExtractor reads the character name out of a save payload.
type NameExtractor interface {
	ExtractCharacterName(ctx context.Context, savePath string) (string, error)
}
