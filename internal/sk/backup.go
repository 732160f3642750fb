package sk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CreateBackup copies the profile's save tree into a new storage folder and
// records it in the ledger. If the character already has a backup with the
// same label, CreateBackup returns a *DuplicateLabelError unless overwrite is
// set, in which case the old backup is deleted first. A missing or
// uncopyable flag file is reported in the result's warnings.
func (s *BackupService) CreateBackup(profile *Profile, label string, overwrite bool) (*BackupResult, error) {
	label, err := ValidateName(label)
	if err != nil {
		return nil, err
	}
	if !profile.Named() {
		return nil, fmt.Errorf("%s: %w", profile.ID, ErrUnnamedProfile)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	if existing := state.FindByLabel(profile.CharacterName, label); existing != nil {
		if !overwrite {
			return nil, &DuplicateLabelError{Existing: existing}
		}
		if err := s.deleteLocked(state, existing); err != nil {
			return nil, fmt.Errorf("replacing existing backup: %w", err)
		}
		s.logger.Info("existing backup replaced", "snapshot", existing.ID, "label", label)
	}

	now := s.clock.Now()
	snap := &Snapshot{
		ID:                s.idgen.New(),
		StorageFolderName: s.allocateFolder(state, BackupFolderName(profile.ID, now)),
		ProfileID:         profile.ID,
		CharacterName:     profile.CharacterName,
		UserLabel:         label,
		CreatedAt:         now,
	}

	if err := s.copyProfileInto(profile, snap); err != nil {
		return nil, err
	}

	result := &BackupResult{Snapshot: snap}
	if err := s.copyFlagInto(snap); err != nil {
		s.logger.Warn("flag file not backed up", "snapshot", snap.ID, "error", err)
		result.Warnings = append(result.Warnings, err.Error())
	}

	state.Snapshots = append(state.Snapshots, snap)
	if err := s.ledger.Save(state.Snapshots); err != nil {
		s.discardFolder(snap)
		return nil, fmt.Errorf("saving ledger: %w", err)
	}

	s.logger.Info("backup created", "snapshot", snap.ID, "folder", snap.StorageFolderName, "profile", profile.ID, "label", label)
	return result, nil
}

// DeleteSnapshot removes a snapshot's storage folder and its ledger record.
// If the folder cannot be removed the ledger is left untouched.
func (s *BackupService) DeleteSnapshot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	snap := state.FindSnapshot(id)
	if snap == nil {
		return fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
	}
	if err := s.deleteLocked(state, snap); err != nil {
		return err
	}
	s.logger.Info("snapshot deleted", "snapshot", id, "folder", snap.StorageFolderName)
	return nil
}

// deleteLocked removes a snapshot's folder and record and persists the ledger.
func (s *BackupService) deleteLocked(state *LedgerState, snap *Snapshot) error {
	if err := s.replacer.Delete(s.layout.SnapshotDir(snap)); err != nil {
		return fmt.Errorf("deleting snapshot folder: %w", err)
	}
	state.Remove(snap.ID)
	if err := s.ledger.Save(state.Snapshots); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

// RenameProfile assigns a character name to a profile and re-syncs the
// denormalized name on every snapshot taken from it.
func (s *BackupService) RenameProfile(profile *Profile, name string) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}

	state.Names.Set(profile.ID, name)
	state.Names.MarkScanned(profile.ID)
	if err := s.ledger.SaveNames(state.Names); err != nil {
		return fmt.Errorf("saving name table: %w", err)
	}

	synced := 0
	for _, snap := range state.Snapshots {
		if snap.ProfileID == profile.ID && snap.CharacterName != name {
			snap.CharacterName = name
			synced++
		}
	}
	if synced > 0 {
		if err := s.ledger.Save(state.Snapshots); err != nil {
			return fmt.Errorf("saving ledger: %w", err)
		}
	}

	profile.CharacterName = name
	s.logger.Info("profile renamed", "profile", profile.ID, "name", name, "snapshots", synced)
	return nil
}

// RelabelSnapshot changes the user label of a regular snapshot.
func (s *BackupService) RelabelSnapshot(id, label string) (*Snapshot, error) {
	label, err := ValidateName(label)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	snap := state.FindSnapshot(id)
	if snap == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
	}
	if snap.IsQuicksave {
		return nil, fmt.Errorf("quicksave %s cannot be relabeled", id)
	}
	if other := state.FindByLabel(snap.CharacterName, label); other != nil && other.ID != snap.ID {
		return nil, &DuplicateLabelError{Existing: other}
	}

	snap.UserLabel = label
	if err := s.ledger.Save(state.Snapshots); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	s.logger.Info("snapshot relabeled", "snapshot", id, "label", label)
	return snap, nil
}

// allocateFolder returns base, or base with a numeric suffix when the name is
// taken in the ledger or on disk. Two backups within the same second would
// otherwise share a folder.
func (s *BackupService) allocateFolder(state *LedgerState, base string) string {
	name := base
	for n := 2; ; n++ {
		if !state.HasFolder(name) && !s.folderExists(name) {
			return name
		}
		name = base + "_" + strconv.Itoa(n)
	}
}

func (s *BackupService) folderExists(name string) bool {
	_, err := os.Lstat(filepath.Join(s.paths.BackupRoot, name))
	return !errors.Is(err, fs.ErrNotExist)
}

// copyProfileInto copies the live profile tree into a snapshot folder. A
// partial folder left by a failed copy is removed best-effort.
func (s *BackupService) copyProfileInto(profile *Profile, snap *Snapshot) error {
	start := time.Now()
	if err := s.replacer.Copy(profile.Path, s.layout.SnapshotProfileDir(snap)); err != nil {
		s.discardFolder(snap)
		return fmt.Errorf("copying save tree: %w", err)
	}
	s.logger.Debug("save tree copied", "profile", profile.ID, "folder", snap.StorageFolderName, "elapsed", time.Since(start))
	return nil
}

func (s *BackupService) discardFolder(snap *Snapshot) {
	if err := s.replacer.Delete(s.layout.SnapshotDir(snap)); err != nil {
		s.logger.Warn("could not remove partial snapshot folder", "folder", snap.StorageFolderName, "error", err)
	}
}
