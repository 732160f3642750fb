package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"savekeep/internal/sk"
)

// OSSaveScanner discovers profiles under a save root. A profile is a
// directory whose name ends with the mode suffix (case-insensitive) and
// that holds at least one payload file with the configured extension.
type OSSaveScanner struct {
	modeSuffix string
	extension  string
}

// NewOSSaveScanner creates a scanner for the given profile suffix and payload
// extension (for example "__HonourMode" and ".lsv").
func NewOSSaveScanner(modeSuffix, extension string) *OSSaveScanner {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &OSSaveScanner{
		modeSuffix: strings.ToLower(modeSuffix),
		extension:  strings.ToLower(extension),
	}
}

// ScanProfiles lists the profiles under root, sorted by id.
func (s *OSSaveScanner) ScanProfiles(root string) ([]*sk.Profile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading save root: %w", err)
	}

	var profiles []*sk.Profile
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), s.modeSuffix) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		payload, err := s.NewestPayload(dir)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			continue
		}
		profiles = append(profiles, &sk.Profile{
			ID:                 e.Name(),
			Path:               dir,
			MostRecentSaveFile: payload.Path,
			LastModified:       payload.ModTime,
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// NewestPayload returns the most recently modified payload directly inside
// dir. Subdirectories are not searched. A missing dir yields nil.
func (s *OSSaveScanner) NewestPayload(dir string) (*sk.Payload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile directory: %w", err)
	}

	var newest *sk.Payload
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), s.extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if newest == nil || info.ModTime().After(newest.ModTime) {
			newest = &sk.Payload{
				Path:    filepath.Join(dir, e.Name()),
				ModTime: info.ModTime(),
				Size:    info.Size(),
			}
		}
	}
	return newest, nil
}

// StatPayload returns the mtime and size of a payload file.
func (s *OSSaveScanner) StatPayload(path string) (*sk.Payload, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat payload: %w", err)
	}
	return &sk.Payload{Path: path, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Compile-time check that OSSaveScanner implements sk.SaveScanner
var _ sk.SaveScanner = (*OSSaveScanner)(nil)
