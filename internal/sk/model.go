package sk

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile is a live save slot discovered under the save root.
// Only ID and CharacterName outlive a rescan; both persist through the
// ledger's name table.
type Profile struct {
	ID                 string
	Path               string
	MostRecentSaveFile string
	LastModified       time.Time
	CharacterName      string
}

// Named reports whether a character name has been assigned or detected.
func (p *Profile) Named() bool {
	return strings.TrimSpace(p.CharacterName) != ""
}

// DisplayName returns the character name, or the folder id when unnamed.
func (p *Profile) DisplayName() string {
	if p.Named() {
		return p.CharacterName
	}
	return p.ID
}

// Snapshot is one stored backup or quicksave.
type Snapshot struct {
	ID                string
	StorageFolderName string
	ProfileID         string
	CharacterName     string
	UserLabel         string
	CreatedAt         time.Time
	IsQuicksave       bool
}

// DisplayLabel returns the user label, falling back to the storage folder
// for migrated snapshots without one.
func (s *Snapshot) DisplayLabel() string {
	if s.UserLabel != "" {
		return s.UserLabel
	}
	return s.StorageFolderName
}

// RestorationMark records the last snapshot restored into a profile.
// There is at most one per profile; a newer restore supersedes it.
type RestorationMark struct {
	ProfileID          string
	RestoredSnapshotID string
	RestoredAt         time.Time
}

// MarkedRestore pairs a restoration mark with the snapshot it names.
// Snapshot is nil once that snapshot has been deleted.
type MarkedRestore struct {
	Mark     *RestorationMark
	Snapshot *Snapshot
}

// NameTable maps profile ids to character names and remembers which
// profiles have already been run through automatic name detection.
type NameTable struct {
	Names   map[string]string
	Scanned map[string]bool
}

// NewNameTable returns an empty table.
func NewNameTable() *NameTable {
	return &NameTable{
		Names:   make(map[string]string),
		Scanned: make(map[string]bool),
	}
}

// Get returns the character name for a profile id ("" if unknown).
func (t *NameTable) Get(profileID string) string {
	return t.Names[profileID]
}

// Set assigns a character name. An empty name removes the entry.
func (t *NameTable) Set(profileID, name string) {
	if name == "" {
		delete(t.Names, profileID)
		return
	}
	t.Names[profileID] = name
}

// MarkScanned records that auto-detection has run for a profile.
func (t *NameTable) MarkScanned(profileID string) {
	t.Scanned[profileID] = true
}

// WasScanned reports whether auto-detection already ran for a profile.
func (t *NameTable) WasScanned(profileID string) bool {
	return t.Scanned[profileID]
}

// SortedIDs returns the ids with a name, sorted.
func (t *NameTable) SortedIDs() []string {
	ids := make([]string, 0, len(t.Names))
	for id := range t.Names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedScanned returns the scanned ids, sorted.
func (t *NameTable) SortedScanned() []string {
	ids := make([]string, 0, len(t.Scanned))
	for id, ok := range t.Scanned {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// LedgerState is everything the ledger persists.
// Snapshots keep their insertion order.
type LedgerState struct {
	Snapshots []*Snapshot
	Names     *NameTable
}

// FindSnapshot returns the snapshot with the given id, or nil.
func (l *LedgerState) FindSnapshot(id string) *Snapshot {
	for _, s := range l.Snapshots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FindQuicksave returns the quicksave snapshot of a profile, or nil.
func (l *LedgerState) FindQuicksave(profileID string) *Snapshot {
	for _, s := range l.Snapshots {
		if s.IsQuicksave && s.ProfileID == profileID {
			return s
		}
	}
	return nil
}

// FindByLabel returns the regular snapshot for a character carrying the
// given label. Both comparisons ignore case.
func (l *LedgerState) FindByLabel(characterName, label string) *Snapshot {
	for _, s := range l.Snapshots {
		if s.IsQuicksave {
			continue
		}
		if strings.EqualFold(s.CharacterName, characterName) && strings.EqualFold(s.UserLabel, label) {
			return s
		}
	}
	return nil
}

// Remove drops the snapshot with the given id and reports whether it existed.
func (l *LedgerState) Remove(id string) bool {
	for i, s := range l.Snapshots {
		if s.ID == id {
			l.Snapshots = append(l.Snapshots[:i], l.Snapshots[i+1:]...)
			return true
		}
	}
	return false
}

// HasFolder reports whether any snapshot uses the storage folder.
func (l *LedgerState) HasFolder(folder string) bool {
	for _, s := range l.Snapshots {
		if s.StorageFolderName == folder {
			return true
		}
	}
	return false
}

// StateKind is the derived restoration state of a profile.
type StateKind int

const (
	// StateCurrent means the live save holds progress not known to any snapshot.
	StateCurrent StateKind = iota
	// StateRestored means the live save still equals a snapshot.
	StateRestored
)

func (k StateKind) String() string {
	switch k {
	case StateCurrent:
		return "current"
	case StateRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// State is what DescribeState reports for a profile.
type State struct {
	Kind StateKind

	// Snapshot is the snapshot the live save equals. It is nil for
	// StateCurrent and for a mark whose snapshot no longer exists.
	Snapshot *Snapshot

	// SnapshotID is the id recorded by the restoration mark, if any.
	SnapshotID string

	// RestoredAt is set when the state comes from a restoration mark.
	RestoredAt time.Time

	LiveModified time.Time

	// Heuristic is true when the state was inferred by matching the live
	// payload against snapshots instead of read from a mark.
	Heuristic bool
}

// String renders the state for status output.
func (s State) String() string {
	if s.Kind == StateCurrent {
		if s.LiveModified.IsZero() {
			return "Current Save"
		}
		return fmt.Sprintf("Current Save (%s)", s.LiveModified.Format(DisplayTimeFormat))
	}
	if s.Snapshot == nil {
		return fmt.Sprintf("Restored at %s (backup no longer exists)", s.RestoredAt.Format(DisplayTimeFormat))
	}
	if s.Heuristic {
		return fmt.Sprintf("Matches %s", s.Snapshot.DisplayLabel())
	}
	return fmt.Sprintf("Restored %s (%s)", s.Snapshot.DisplayLabel(), s.RestoredAt.Format(DisplayTimeFormat))
}

// BackupResult is returned by CreateBackup. Warnings carry non-fatal
// problems such as a missing flag file.
type BackupResult struct {
	Snapshot *Snapshot
	Warnings []string
}

// Payload describes a save payload file.
type Payload struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Operation is a persisted record of a mutating CLI command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
