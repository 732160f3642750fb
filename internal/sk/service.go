package sk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Paths locates the live saves, the backup root and the flag file.
type Paths struct {
	SaveRoot   string
	BackupRoot string
	FlagPath   string
}

// Layout returns the backup-root layout for these paths.
func (p Paths) Layout() Layout {
	return Layout{BackupRoot: p.BackupRoot, FlagPath: p.FlagPath}
}

// BackupService orchestrates backups, quicksaves and restores.
//
// Mutating operations hold mu exclusively for their whole unit of work
// because they rewrite the ledger and delete directories. Read operations
// share mu so rescans never observe a half-finished delete or copy.
type BackupService struct {
	mu sync.RWMutex

	paths     Paths
	layout    Layout
	database  Database
	ledger    Ledger
	replacer  DirectoryReplacer
	scanner   SaveScanner
	extractor NameExtractor
	matcher   *Matcher
	tracker   *Tracker
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	scans singleflight.Group
}

// NewBackupService creates a BackupService with the provided dependencies.
// extractor may be nil, in which case character names are never detected.
func NewBackupService(paths Paths, database Database, ledger Ledger, replacer DirectoryReplacer, scanner SaveScanner, extractor NameExtractor, logger Logger, clock Clock, idgen IDGenerator) *BackupService {
	layout := paths.Layout()
	matcher := NewMatcher(layout, scanner, logger)
	return &BackupService{
		paths:     paths,
		layout:    layout,
		database:  database,
		ledger:    ledger,
		replacer:  replacer,
		scanner:   scanner,
		extractor: extractor,
		matcher:   matcher,
		tracker:   NewTracker(matcher, database),
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Reconcile runs the ledger migration. It is meant to be called once at startup.
func (s *BackupService) Reconcile() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.ledger.Reconcile()
	if err != nil {
		return 0, fmt.Errorf("reconciling ledger: %w", err)
	}
	if added > 0 {
		s.logger.Info("ledger reconciled", "added", added)
	}
	return added, nil
}

// Profiles rescans the save root and attaches character names. Profiles
// never run through name detection are detected once; the result, found or
// not, is remembered so detection does not repeat. Concurrent callers share
// a single scan.
func (s *BackupService) Profiles(ctx context.Context) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanProfiles(ctx)
}

func (s *BackupService) scanProfiles(ctx context.Context) ([]*Profile, error) {
	v, err, _ := s.scans.Do("profiles", func() (any, error) {
		return s.doScan(ctx)
	})
	if err != nil {
		return nil, err
	}
	profiles, ok := v.([]*Profile)
	if !ok {
		return nil, fmt.Errorf("unexpected type from profile scan: got %T", v)
	}

	// Callers may mutate the profiles they get back.
	out := make([]*Profile, len(profiles))
	for i, p := range profiles {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (s *BackupService) doScan(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.scanner.ScanProfiles(s.paths.SaveRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning save root: %w", err)
	}

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	changed := false
	for _, p := range profiles {
		p.CharacterName = state.Names.Get(p.ID)
		if p.Named() || state.Names.WasScanned(p.ID) || s.extractor == nil {
			continue
		}

		name, err := s.extractor.ExtractCharacterName(ctx, p.MostRecentSaveFile)
		if err != nil {
			s.logger.Warn("character name detection failed", "profile", p.ID, "error", err)
		} else if name, err = ValidateName(name); err == nil {
			p.CharacterName = name
			state.Names.Set(p.ID, name)
			s.logger.Info("character name detected", "profile", p.ID, "name", name)
		}
		state.Names.MarkScanned(p.ID)
		changed = true
	}

	if changed {
		if err := s.ledger.SaveNames(state.Names); err != nil {
			return nil, fmt.Errorf("saving name table: %w", err)
		}
	}
	return profiles, nil
}

// Profile finds a profile by folder id or character name (ignoring case).
func (s *BackupService) Profile(ctx context.Context, key string) (*Profile, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.ID == key {
			return p, nil
		}
	}
	for _, p := range profiles {
		if p.Named() && strings.EqualFold(p.CharacterName, key) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", key, ErrProfileNotFound)
}

// Snapshots returns the regular snapshots of the profile's character,
// newest first.
func (s *BackupService) Snapshots(profile *Profile) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	var out []*Snapshot
	for _, snap := range state.Snapshots {
		if snap.IsQuicksave {
			continue
		}
		if snap.ProfileID == profile.ID || (profile.Named() && strings.EqualFold(snap.CharacterName, profile.CharacterName)) {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AllSnapshots returns every snapshot in ledger order, quicksaves included.
func (s *BackupService) AllSnapshots() ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return state.Snapshots, nil
}

// Quicksave returns the profile's quicksave snapshot, or nil.
func (s *BackupService) Quicksave(profile *Profile) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return state.FindQuicksave(profile.ID), nil
}

// Describe reports the restoration state of a profile.
func (s *BackupService) Describe(profile *Profile) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return State{}, fmt.Errorf("loading ledger: %w", err)
	}
	mark, err := s.tracker.Mark(profile.ID)
	if err != nil {
		return State{}, err
	}
	return s.tracker.DescribeState(profile, mark, state.Snapshots), nil
}

// Marks lists every profile's last recorded restore, including profiles
// that no longer exist under the save root.
func (s *BackupService) Marks() ([]*MarkedRestore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	marks, err := s.tracker.Marks()
	if err != nil {
		return nil, err
	}
	out := make([]*MarkedRestore, 0, len(marks))
	for _, m := range marks {
		out = append(out, &MarkedRestore{Mark: m, Snapshot: state.FindSnapshot(m.RestoredSnapshotID)})
	}
	return out, nil
}

// SnapshotSize returns the on-disk size of a snapshot's storage folder.
func (s *BackupService) SnapshotSize(id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.ledger.Load()
	if err != nil {
		return 0, fmt.Errorf("loading ledger: %w", err)
	}
	snap := state.FindSnapshot(id)
	if snap == nil {
		return 0, fmt.Errorf("%s: %w", id, ErrSnapshotNotFound)
	}
	return s.replacer.Size(s.layout.SnapshotDir(snap))
}

// History returns the most recent mutating operations, newest first.
func (s *BackupService) History(limit int) ([]*Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// copyFlagInto copies the configured flag file into a snapshot folder.
// Callers treat failures as warnings.
func (s *BackupService) copyFlagInto(snap *Snapshot) error {
	if s.paths.FlagPath == "" {
		return nil
	}
	if err := s.replacer.CopyFlag(s.paths.FlagPath, s.layout.SnapshotFlagPath(snap)); err != nil {
		return fmt.Errorf("copying flag file: %w", err)
	}
	return nil
}

// recordRestore writes the restoration mark for a completed restore.
func (s *BackupService) recordRestore(profile *Profile, snap *Snapshot) error {
	return s.tracker.Record(profile.ID, snap.ID, s.clock.Now())
}
