package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"savekeep/internal/config"
	"savekeep/internal/database"
	"savekeep/internal/extract"
	skfs "savekeep/internal/fs"
	"savekeep/internal/ledger"
	"savekeep/internal/sk"
)

// MirrorDir is the hidden folder under the backup root that receives a copy
// of the database after mutating commands. Reconcile skips dot-folders.
const MirrorDir = ".savekeep"

// SKApp is the application layer between the CLI and BackupService.
// It constructs all dependencies from config, resolves the profile and
// snapshot references typed on the command line, and manages the DB
// lifecycle on Close.
type SKApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *sk.BackupService
	logger  sk.Logger
	op      *Operation
	logFile *os.File
}

// ProfileStatus is one row of the status view.
type ProfileStatus struct {
	Profile   *sk.Profile
	State     sk.State
	Quicksave *sk.Snapshot
	Backups   int
}

// NewSKApp creates a fully wired SKApp from the given config and runs the
// startup ledger reconciliation. operation identifies the CLI command being
// run (e.g. "CreateBackup", "Status"). The caller must call Close when done.
func NewSKApp(cfg *config.Config, operation string) (*SKApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	idgen := sk.UUIDGenerator{}
	store := ledger.NewStore(cfg.Backups.Root, idgen, logger)
	replacer := skfs.NewOSDirectoryReplacer(logger)
	scanner := skfs.NewOSSaveScanner(cfg.Saves.ModeSuffix, cfg.Saves.Extension)

	// A nil *CommandExtractor must not become a non-nil interface.
	var extractor sk.NameExtractor
	if e := extract.NewCommandExtractor(cfg.Extractor); e != nil {
		extractor = e
	}

	paths := sk.Paths{
		SaveRoot:   cfg.Saves.Root,
		BackupRoot: cfg.Backups.Root,
		FlagPath:   cfg.Flag.Path,
	}
	svc := sk.NewBackupService(paths, db, store, replacer, scanner, extractor, logger, sk.RealClock{}, idgen)

	a := &SKApp{
		cfg:     cfg,
		db:      db,
		service: svc,
		logger:  logger,
		op:      NewOperation(operation, ""),
		logFile: logFile,
	}

	if _, err := svc.Reconcile(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *SKApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Profiles rescans the save root.
func (a *SKApp) Profiles(ctx context.Context) ([]*sk.Profile, error) {
	return a.service.Profiles(ctx)
}

// Profile resolves a profile by folder id or character name. An empty key
// selects the profile whose save was written most recently, which is the
// one the game is playing.
func (a *SKApp) Profile(ctx context.Context, key string) (*sk.Profile, error) {
	if key != "" {
		return a.service.Profile(ctx, key)
	}
	profiles, err := a.service.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	var active *sk.Profile
	for _, p := range profiles {
		if active == nil || p.LastModified.After(active.LastModified) {
			active = p
		}
	}
	if active == nil {
		return nil, fmt.Errorf("no profiles under %s: %w", a.cfg.Saves.Root, sk.ErrProfileNotFound)
	}
	return active, nil
}

// Status describes every profile.
func (a *SKApp) Status(ctx context.Context) ([]*ProfileStatus, error) {
	profiles, err := a.service.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ProfileStatus, 0, len(profiles))
	for _, p := range profiles {
		st, err := a.profileStatus(p)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (a *SKApp) profileStatus(p *sk.Profile) (*ProfileStatus, error) {
	state, err := a.service.Describe(p)
	if err != nil {
		return nil, err
	}
	qs, err := a.service.Quicksave(p)
	if err != nil {
		return nil, err
	}
	snaps, err := a.service.Snapshots(p)
	if err != nil {
		return nil, err
	}
	return &ProfileStatus{Profile: p, State: state, Quicksave: qs, Backups: len(snaps)}, nil
}

// RenameProfile assigns a character name to a profile.
func (a *SKApp) RenameProfile(ctx context.Context, key, name string) (*sk.Profile, error) {
	if err := a.persistOperation(joinParams(key, name)); err != nil {
		return nil, err
	}
	p, err := a.service.Profile(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if err := a.service.RenameProfile(p, name); err != nil {
		return nil, a.op.Fail(err)
	}
	return p, nil
}

// Snapshots lists the regular snapshots of a profile, or every snapshot
// including quicksaves when key is empty.
func (a *SKApp) Snapshots(ctx context.Context, key string) ([]*sk.Snapshot, error) {
	if key == "" {
		return a.service.AllSnapshots()
	}
	p, err := a.service.Profile(ctx, key)
	if err != nil {
		return nil, err
	}
	return a.service.Snapshots(p)
}

// CreateBackup backs up the profile identified by key under label.
func (a *SKApp) CreateBackup(ctx context.Context, key, label string, overwrite bool) (*sk.BackupResult, error) {
	if err := a.persistOperation(joinParams(key, label)); err != nil {
		return nil, err
	}
	p, err := a.Profile(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	res, err := a.service.CreateBackup(p, label, overwrite)
	return res, a.op.Fail(err)
}

// ResolveSnapshot finds the snapshot ref names for a profile. ref is a
// snapshot id, or a label of one of the profile's regular snapshots.
func (a *SKApp) ResolveSnapshot(ctx context.Context, key, ref string) (*sk.Profile, *sk.Snapshot, error) {
	p, err := a.Profile(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	all, err := a.service.AllSnapshots()
	if err != nil {
		return nil, nil, err
	}
	for _, s := range all {
		if s.ID == ref {
			return p, s, nil
		}
	}
	snaps, err := a.service.Snapshots(p)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range snaps {
		if strings.EqualFold(s.UserLabel, ref) {
			return p, s, nil
		}
	}
	return nil, nil, fmt.Errorf("%s: %w", ref, sk.ErrSnapshotNotFound)
}

// Restore restores the snapshot ref names into the profile identified by key.
func (a *SKApp) Restore(ctx context.Context, key, ref string, confirmed bool, decide sk.FlagDecision) (*sk.Snapshot, error) {
	if err := a.persistOperation(joinParams(key, ref)); err != nil {
		return nil, err
	}
	p, snap, err := a.ResolveSnapshot(ctx, key, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	restored, err := a.service.Restore(p, snap.ID, confirmed, decide)
	return restored, a.op.Fail(err)
}

// DeleteSnapshot removes a snapshot by id.
func (a *SKApp) DeleteSnapshot(id string) error {
	if err := a.persistOperation(id); err != nil {
		return err
	}
	return a.op.Fail(a.service.DeleteSnapshot(id))
}

// RelabelSnapshot changes a snapshot's label.
func (a *SKApp) RelabelSnapshot(id, label string) (*sk.Snapshot, error) {
	if err := a.persistOperation(joinParams(id, label)); err != nil {
		return nil, err
	}
	snap, err := a.service.RelabelSnapshot(id, label)
	return snap, a.op.Fail(err)
}

// QuickSave quicksaves the profile identified by key (or the active one).
func (a *SKApp) QuickSave(ctx context.Context, key string) (*sk.Snapshot, error) {
	if err := a.persistOperation(key); err != nil {
		return nil, err
	}
	p, err := a.Profile(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	snap, err := a.service.QuickSave(p)
	return snap, a.op.Fail(err)
}

// QuickRestore restores the quicksave of the profile identified by key (or
// the active one). It returns nil, nil when there is no quicksave.
func (a *SKApp) QuickRestore(ctx context.Context, key string) (*sk.Snapshot, error) {
	if err := a.persistOperation(key); err != nil {
		return nil, err
	}
	p, err := a.Profile(ctx, key)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	snap, err := a.service.QuickRestore(p)
	return snap, a.op.Fail(err)
}

// SnapshotSize returns the on-disk size of a snapshot.
func (a *SKApp) SnapshotSize(id string) (int64, error) {
	return a.service.SnapshotSize(id)
}

// History returns the most recent mutating operations.
func (a *SKApp) History(limit int) ([]*sk.Operation, error) {
	return a.service.History(limit)
}

// Marks lists the last recorded restore of every profile.
func (a *SKApp) Marks() ([]*sk.MarkedRestore, error) {
	return a.service.Marks()
}

// Logger returns the application logger.
func (a *SKApp) Logger() sk.Logger {
	return a.logger
}

// Close finalizes the operation and closes all resources.
// For persisted operations the operation record is finished and, when
// configured, the database is mirrored into the backup root.
func (a *SKApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
		if a.cfg.Backups.MirrorDatabase {
			if err := a.mirrorDatabase(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// mirrorDatabase snapshots the database into <backupRoot>/.savekeep so the
// restoration marks travel with the backups.
func (a *SKApp) mirrorDatabase() error {
	dir := filepath.Join(a.cfg.Backups.Root, MirrorDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating mirror directory: %w", err)
	}

	target := filepath.Join(dir, database.FileName)
	if sameFile(a.db.Path(), target) {
		a.logger.Warn("database already lives in the mirror folder, not mirroring", "path", target)
		return nil
	}

	// VACUUM INTO refuses to overwrite, so write a fresh file and rename it.
	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".db")
	if err := a.db.BackupTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mirroring database: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("mirroring database: %w", err)
	}
	return nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
