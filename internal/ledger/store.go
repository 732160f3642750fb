// Package ledger persists snapshot records and the profile name table as
// line-oriented files at the top of the backup root.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	skfs "savekeep/internal/fs"
	"savekeep/internal/sk"
)

const (
	DataFile    = "backup_data.txt"
	NamesFile   = "profile_names.txt"
	ScannedFile = "scanned_profiles.txt"

	// LegacyFile is the folder-keyed ledger written by older versions. It is
	// renamed with MigratedSuffix once merged.
	LegacyFile     = "backup_names.txt"
	MigratedSuffix = ".migrated"
)

// Store is the file-backed implementation of sk.Ledger.
type Store struct {
	root   string
	idgen  sk.IDGenerator
	logger sk.Logger

	birthTime func(path string) (time.Time, error)
}

// NewStore creates a Store for the given backup root.
func NewStore(root string, idgen sk.IDGenerator, logger sk.Logger) *Store {
	return &Store{
		root:      root,
		idgen:     idgen,
		logger:    logger,
		birthTime: skfs.BirthTime,
	}
}

// Load reads snapshots and names. Records whose storage folder is gone, or
// that repeat an id or folder already seen, are dropped.
func (s *Store) Load() (*sk.LedgerState, error) {
	state := &sk.LedgerState{Names: sk.NewNameTable()}

	if err := s.readFile(NamesFile, func(r io.Reader) error { return decodeNames(r, state.Names) }); err != nil {
		return nil, err
	}
	if err := s.readFile(ScannedFile, func(r io.Reader) error { return decodeScanned(r, state.Names) }); err != nil {
		return nil, err
	}

	var records []*sk.Snapshot
	err := s.readFile(DataFile, func(r io.Reader) error {
		var skipped int
		var err error
		records, skipped, err = decodeSnapshots(r)
		if skipped > 0 {
			s.logger.Warn("skipped unreadable ledger lines", "count", skipped)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	seenIDs := make(map[string]bool)
	seenFolders := make(map[string]bool)
	for _, rec := range records {
		if seenIDs[rec.ID] || seenFolders[rec.StorageFolderName] {
			s.logger.Warn("dropping duplicate ledger record", "id", rec.ID, "folder", rec.StorageFolderName)
			continue
		}
		if !s.folderExists(rec.StorageFolderName) {
			s.logger.Debug("dropping record for missing folder", "id", rec.ID, "folder", rec.StorageFolderName)
			continue
		}
		seenIDs[rec.ID] = true
		seenFolders[rec.StorageFolderName] = true
		state.Snapshots = append(state.Snapshots, rec)
	}
	return state, nil
}

// Save rewrites the snapshot records.
func (s *Store) Save(snapshots []*sk.Snapshot) error {
	var buf bytes.Buffer
	if err := encodeSnapshots(&buf, snapshots); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return s.writeFile(DataFile, buf.Bytes())
}

// SaveNames rewrites the name table and the scanned-profile list.
func (s *Store) SaveNames(names *sk.NameTable) error {
	var buf bytes.Buffer
	if err := encodeNames(&buf, names); err != nil {
		return fmt.Errorf("encoding names: %w", err)
	}
	if err := s.writeFile(NamesFile, buf.Bytes()); err != nil {
		return err
	}

	buf.Reset()
	if err := encodeScanned(&buf, names); err != nil {
		return fmt.Errorf("encoding scanned profiles: %w", err)
	}
	return s.writeFile(ScannedFile, buf.Bytes())
}

// Reconcile adopts storage folders that have no record. Each adopted folder
// gets a fresh id, the profile id of its first subdirectory, the character
// name from the name table and its birth time as createdAt. Folders ending
// in the quicksave suffix become the profile's quicksave unless it already
// has one; the rest are labeled "Migrated Save". Matching legacy records
// supply character name and label, after which the legacy file is renamed.
func (s *Store) Reconcile() (int, error) {
	state, err := s.Load()
	if err != nil {
		return 0, err
	}

	legacy := map[string]legacyRecord{}
	legacyPath := filepath.Join(s.root, LegacyFile)
	legacyFound := false
	err = s.readFile(LegacyFile, func(r io.Reader) error {
		legacyFound = true
		var err error
		legacy, err = decodeLegacy(r)
		return err
	})
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading backup root: %w", err)
	}

	added := 0
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || state.HasFolder(name) {
			continue
		}
		snap := s.synthesize(state, name)
		if rec, ok := legacy[name]; ok {
			if rec.CharacterName != "" {
				snap.CharacterName = rec.CharacterName
			}
			if rec.UserLabel != "" && !snap.IsQuicksave {
				snap.UserLabel = rec.UserLabel
			}
		}
		state.Snapshots = append(state.Snapshots, snap)
		added++
		s.logger.Info("adopted untracked backup folder", "folder", name, "id", snap.ID, "label", snap.UserLabel)
	}

	if added > 0 {
		if err := s.Save(state.Snapshots); err != nil {
			return 0, err
		}
	}

	if legacyFound {
		if err := os.Rename(legacyPath, legacyPath+MigratedSuffix); err != nil {
			return added, fmt.Errorf("archiving legacy ledger: %w", err)
		}
		s.logger.Info("legacy ledger archived", "path", legacyPath+MigratedSuffix, "records", len(legacy))
	}
	return added, nil
}

func (s *Store) synthesize(state *sk.LedgerState, folder string) *sk.Snapshot {
	dir := filepath.Join(s.root, folder)
	profileID := firstSubdir(dir)
	quick := sk.IsQuicksaveFolder(folder)
	if profileID == "" {
		profileID = folder
		if quick {
			profileID = folder[:len(folder)-len(sk.QuicksaveSuffix)]
		}
	}

	createdAt, err := s.birthTime(dir)
	if err != nil {
		s.logger.Warn("no creation time for folder", "folder", folder, "error", err)
	}

	snap := &sk.Snapshot{
		ID:                s.idgen.New(),
		StorageFolderName: folder,
		ProfileID:         profileID,
		CharacterName:     state.Names.Get(profileID),
		UserLabel:         sk.MigratedLabel,
		CreatedAt:         createdAt,
	}
	if quick && state.FindQuicksave(profileID) == nil {
		snap.IsQuicksave = true
		snap.UserLabel = sk.QuicksaveLabel
	}
	return snap
}

func firstSubdir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			return e.Name()
		}
	}
	return ""
}

func (s *Store) folderExists(folder string) bool {
	info, err := os.Stat(filepath.Join(s.root, folder))
	return err == nil && info.IsDir()
}

// readFile opens a ledger file and passes it to fn. A missing file is not
// an error and fn is not called.
func (s *Store) readFile(name string, fn func(io.Reader) error) error {
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// writeFile replaces a ledger file atomically (temp file + rename).
func (s *Store) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating backup root: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that Store implements sk.Ledger
var _ sk.Ledger = (*Store)(nil)
