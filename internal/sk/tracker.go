package sk

import (
	"fmt"
	"time"
)

// RestoreGrace absorbs the timestamp jitter a restore's own copy leaves on
// the live payload. A live save modified later than RestoredAt+RestoreGrace
// was written by the game after the restore.
const RestoreGrace = time.Minute

// Tracker derives a profile's restoration state from its mark, falling back
// to payload matching when no mark exists. Marks live in the database.
type Tracker struct {
	matcher  *Matcher
	database Database
}

// NewTracker creates a Tracker.
func NewTracker(matcher *Matcher, database Database) *Tracker {
	return &Tracker{matcher: matcher, database: database}
}

// Record supersedes the profile's mark with a restore of snapshotID at at.
// Marks are never cleared.
func (t *Tracker) Record(profileID, snapshotID string, at time.Time) error {
	mark := &RestorationMark{
		ProfileID:          profileID,
		RestoredSnapshotID: snapshotID,
		RestoredAt:         at,
	}
	if err := t.database.UpsertRestorationMark(mark); err != nil {
		return fmt.Errorf("recording restoration mark: %w", err)
	}
	return nil
}

// Mark returns the profile's current mark, or nil.
func (t *Tracker) Mark(profileID string) (*RestorationMark, error) {
	mark, err := t.database.FindRestorationMark(profileID)
	if err != nil {
		return nil, fmt.Errorf("finding restoration mark: %w", err)
	}
	return mark, nil
}

// Marks returns every recorded mark, ordered by profile id.
func (t *Tracker) Marks() ([]*RestorationMark, error) {
	marks, err := t.database.ListRestorationMarks()
	if err != nil {
		return nil, fmt.Errorf("listing restoration marks: %w", err)
	}
	return marks, nil
}

// DescribeState reports whether the live save still equals a snapshot.
// A live save modified exactly RestoredAt+RestoreGrace counts as restored.
// Heuristic matches are reported but never persisted.
func (t *Tracker) DescribeState(profile *Profile, mark *RestorationMark, snapshots []*Snapshot) State {
	if mark == nil {
		if match := t.matcher.FindMatchingSnapshot(profile, snapshots); match != nil {
			return State{
				Kind:         StateRestored,
				Snapshot:     match,
				SnapshotID:   match.ID,
				LiveModified: profile.LastModified,
				Heuristic:    true,
			}
		}
		return State{Kind: StateCurrent, LiveModified: profile.LastModified}
	}

	if profile.LastModified.After(mark.RestoredAt.Add(RestoreGrace)) {
		return State{Kind: StateCurrent, LiveModified: profile.LastModified}
	}

	state := State{
		Kind:         StateRestored,
		SnapshotID:   mark.RestoredSnapshotID,
		RestoredAt:   mark.RestoredAt,
		LiveModified: profile.LastModified,
	}
	for _, s := range snapshots {
		if s.ID == mark.RestoredSnapshotID {
			state.Snapshot = s
			break
		}
	}
	return state
}
