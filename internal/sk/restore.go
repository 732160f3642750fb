package sk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FlagDecision is asked whether a restore should continue after a flag file
// problem that is not a permission failure. Returning false aborts the
// restore before the restoration mark is written. A nil FlagDecision
// declines.
type FlagDecision func(problem error) bool

// QuickSave replaces the profile's single quicksave with a copy of the live
// save tree. An existing quicksave keeps its id. The flag file is copied
// best-effort. Callers running off a hotkey are expected to log and discard
// the returned error.
func (s *BackupService) QuickSave(profile *Profile) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	snap := state.FindQuicksave(profile.ID)
	if snap == nil {
		snap = &Snapshot{
			ID:          s.idgen.New(),
			ProfileID:   profile.ID,
			UserLabel:   QuicksaveLabel,
			IsQuicksave: true,
		}
		state.Snapshots = append(state.Snapshots, snap)
	} else if snap.StorageFolderName != QuicksaveFolderName(profile.ID) {
		if err := s.replacer.Delete(s.layout.SnapshotDir(snap)); err != nil {
			return nil, fmt.Errorf("deleting previous quicksave: %w", err)
		}
	}
	snap.StorageFolderName = QuicksaveFolderName(profile.ID)
	snap.CharacterName = profile.CharacterName
	snap.CreatedAt = s.clock.Now()

	// A profile owns exactly one quicksave.
	for _, other := range append([]*Snapshot(nil), state.Snapshots...) {
		if other.IsQuicksave && other.ProfileID == profile.ID && other.ID != snap.ID {
			state.Remove(other.ID)
		}
	}

	if err := s.replaceQuicksave(profile, snap); err != nil {
		// The old quicksave folder is gone, so its record must go too.
		state.Remove(snap.ID)
		if saveErr := s.ledger.Save(state.Snapshots); saveErr != nil {
			s.logger.Error("saving ledger after failed quicksave", "error", saveErr)
		}
		return nil, err
	}
	if err := s.copyFlagInto(snap); err != nil {
		s.logger.Warn("flag file not quicksaved", "profile", profile.ID, "error", err)
	}

	if err := s.ledger.Save(state.Snapshots); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}

	s.logger.Info("quicksave created", "profile", profile.ID, "snapshot", snap.ID)
	return snap, nil
}

// QuickRestore restores the profile's quicksave over the live save. It
// returns nil, nil when the profile has no quicksave. The flag file is
// restored best-effort.
func (s *BackupService) QuickRestore(profile *Profile) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	snap := state.FindQuicksave(profile.ID)
	if snap == nil {
		s.logger.Debug("no quicksave to restore", "profile", profile.ID)
		return nil, nil
	}

	if err := s.restoreTree(profile, snap); err != nil {
		return nil, err
	}
	if flag := s.layout.SnapshotFlagPath(snap); flag != "" {
		if err := s.replacer.CopyFlag(flag, s.paths.FlagPath); err != nil {
			s.logger.Warn("flag file not restored", "profile", profile.ID, "error", err)
		}
	}
	if err := s.recordRestore(profile, snap); err != nil {
		return nil, err
	}

	s.logger.Info("quicksave restored", "profile", profile.ID, "snapshot", snap.ID)
	return snap, nil
}

// Restore replaces the live save tree with a snapshot. confirmed must be
// true. If the flag file cannot be put back because of permissions, Restore
// returns a *FlagRestoreError without recording the restore. Other flag
// problems, including a snapshot without a flag file, are passed to decide;
// declining returns ErrAborted and leaves the mark untouched.
func (s *BackupService) Restore(profile *Profile, snapshotID string, confirmed bool, decide FlagDecision) (*Snapshot, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	snap := state.FindSnapshot(snapshotID)
	if snap == nil {
		return nil, fmt.Errorf("%s: %w", snapshotID, ErrSnapshotNotFound)
	}

	if err := s.restoreTree(profile, snap); err != nil {
		return nil, err
	}
	if err := s.restoreFlag(snap, decide); err != nil {
		return nil, err
	}
	if err := s.recordRestore(profile, snap); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot restored", "profile", profile.ID, "snapshot", snap.ID, "label", snap.UserLabel)
	return snap, nil
}

// restoreTree replaces the live profile directory with the snapshot's copy.
func (s *BackupService) restoreTree(profile *Profile, snap *Snapshot) error {
	src := s.layout.SnapshotProfileDir(snap)
	if _, err := os.Stat(src); err != nil {
		profiles, scanErr := s.scanner.ScanProfiles(s.layout.SnapshotDir(snap))
		if scanErr != nil || len(profiles) == 0 {
			return fmt.Errorf("snapshot %s has no save tree: %w", snap.ID, err)
		}
		src = profiles[0].Path
	}

	if err := s.replacer.Replace(src, profile.Path); err != nil {
		return fmt.Errorf("replacing live save: %w", err)
	}
	return nil
}

// replaceQuicksave overwrites the quicksave's save tree with the live one.
// The previous flag copy is removed first so a missing live flag file is
// not masked by a stale one. A partial folder is discarded.
func (s *BackupService) replaceQuicksave(profile *Profile, snap *Snapshot) error {
	if flag := s.layout.SnapshotFlagPath(snap); flag != "" {
		if err := os.Remove(flag); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing previous quicksave flag: %w", err)
		}
	}
	if err := s.replacer.Replace(profile.Path, s.layout.SnapshotProfileDir(snap)); err != nil {
		s.discardFolder(snap)
		return fmt.Errorf("replacing quicksave: %w", err)
	}
	s.logger.Debug("quicksave replaced", "profile", profile.ID, "folder", snap.StorageFolderName)
	return nil
}

func (s *BackupService) restoreFlag(snap *Snapshot, decide FlagDecision) error {
	src := s.layout.SnapshotFlagPath(snap)
	if src == "" {
		return nil
	}

	var problem error
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		problem = ErrFlagMissing
	} else if err := s.replacer.CopyFlag(src, s.paths.FlagPath); err != nil {
		ferr := newFlagRestoreError(err)
		if ferr.Permission {
			s.logger.Error("flag file restore denied", "snapshot", snap.ID, "error", err)
			return ferr
		}
		problem = ferr
	}
	if problem == nil {
		return nil
	}

	s.logger.Warn("flag file problem during restore", "snapshot", snap.ID, "error", problem)
	if decide == nil || !decide(problem) {
		return fmt.Errorf("%w: %w", ErrAborted, problem)
	}
	return nil
}
