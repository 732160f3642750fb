package sk

import (
	"strings"
	"time"
)

// MatchTolerance is how far apart the live and stored payload mtimes may be
// for the two to be considered the same save.
const MatchTolerance = 2 * time.Second

// Matcher decides whether a live save corresponds to a stored snapshot by
// comparing the modification time and length of the newest payloads.
// It does not hash content, so identical-size saves written within the
// tolerance window can collide.
type Matcher struct {
	layout  Layout
	scanner SaveScanner
	logger  Logger
}

// NewMatcher creates a Matcher reading snapshot trees under layout.BackupRoot.
func NewMatcher(layout Layout, scanner SaveScanner, logger Logger) *Matcher {
	return &Matcher{layout: layout, scanner: scanner, logger: logger}
}

// FindMatchingSnapshot returns the first non-quicksave snapshot of the
// profile's character whose newest payload matches the live one, in
// ledger order. It returns nil when nothing matches.
func (m *Matcher) FindMatchingSnapshot(profile *Profile, snapshots []*Snapshot) *Snapshot {
	if profile.MostRecentSaveFile == "" {
		return nil
	}
	live, err := m.scanner.StatPayload(profile.MostRecentSaveFile)
	if err != nil || live == nil {
		return nil
	}

	for _, snap := range snapshots {
		if snap.IsQuicksave || !strings.EqualFold(snap.CharacterName, profile.CharacterName) {
			continue
		}
		stored := m.snapshotPayload(snap)
		if stored == nil {
			continue
		}
		if payloadsMatch(live, stored) {
			m.logger.Debug("live save matches snapshot", "profile", profile.ID, "snapshot", snap.ID)
			return snap
		}
	}
	return nil
}

// snapshotPayload locates the newest payload inside a snapshot. Snapshots
// taken from another profile folder fall back to the first profile
// directory found inside the storage folder.
func (m *Matcher) snapshotPayload(snap *Snapshot) *Payload {
	p, err := m.scanner.NewestPayload(m.layout.SnapshotProfileDir(snap))
	if err == nil && p != nil {
		return p
	}

	profiles, err := m.scanner.ScanProfiles(m.layout.SnapshotDir(snap))
	if err != nil || len(profiles) == 0 {
		return nil
	}
	p, err = m.scanner.StatPayload(profiles[0].MostRecentSaveFile)
	if err != nil {
		return nil
	}
	return p
}

func payloadsMatch(live, stored *Payload) bool {
	if live.Size != stored.Size {
		return false
	}
	delta := live.ModTime.Sub(stored.ModTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= MatchTolerance
}
