package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOSSaveScanner_ScanProfiles(t *testing.T) {
	root := t.TempDir()
	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	writeFile(t, filepath.Join(root, "Karlach__HonourMode", "old.lsv"), "o", 0644)
	writeFile(t, filepath.Join(root, "Karlach__HonourMode", "new.LSV"), "nn", 0644)
	os.Chtimes(filepath.Join(root, "Karlach__HonourMode", "old.lsv"), older, older)
	os.Chtimes(filepath.Join(root, "Karlach__HonourMode", "new.LSV"), newer, newer)

	writeFile(t, filepath.Join(root, "Astarion__honourmode", "a.lsv"), "a", 0644)
	writeFile(t, filepath.Join(root, "Normal_Run", "a.lsv"), "a", 0644)
	writeFile(t, filepath.Join(root, "Empty__HonourMode", "notes.txt"), "a", 0644)
	writeFile(t, filepath.Join(root, "Nested__HonourMode", "deep", "a.lsv"), "a", 0644)

	s := NewOSSaveScanner("__HonourMode", "lsv")
	profiles, err := s.ScanProfiles(root)
	if err != nil {
		t.Fatalf("ScanProfiles() error = %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2: %+v", len(profiles), profiles)
	}
	if profiles[0].ID != "Astarion__honourmode" || profiles[1].ID != "Karlach__HonourMode" {
		t.Errorf("ids = %q, %q", profiles[0].ID, profiles[1].ID)
	}

	k := profiles[1]
	if filepath.Base(k.MostRecentSaveFile) != "new.LSV" {
		t.Errorf("MostRecentSaveFile = %q, want new.LSV", k.MostRecentSaveFile)
	}
	if !k.LastModified.Equal(newer) {
		t.Errorf("LastModified = %v, want %v", k.LastModified, newer)
	}
	if k.Path != filepath.Join(root, "Karlach__HonourMode") {
		t.Errorf("Path = %q", k.Path)
	}
}

func TestOSSaveScanner_NewestPayload(t *testing.T) {
	t.Run("missing directory yields nil", func(t *testing.T) {
		s := NewOSSaveScanner("__HonourMode", ".lsv")
		p, err := s.NewestPayload(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("NewestPayload() error = %v", err)
		}
		if p != nil {
			t.Errorf("NewestPayload() = %+v, want nil", p)
		}
	})

	t.Run("reports size", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "x.lsv"), "123456", 0644)
		s := NewOSSaveScanner("__HonourMode", ".lsv")
		p, err := s.NewestPayload(dir)
		if err != nil {
			t.Fatalf("NewestPayload() error = %v", err)
		}
		if p == nil || p.Size != 6 {
			t.Errorf("NewestPayload() = %+v, want size 6", p)
		}
	})
}

func TestOSSaveScanner_StatPayload(t *testing.T) {
	s := NewOSSaveScanner("__HonourMode", ".lsv")
	p, err := s.StatPayload(filepath.Join(t.TempDir(), "none.lsv"))
	if err != nil || p != nil {
		t.Errorf("StatPayload() = %+v, %v; want nil, nil", p, err)
	}
}

func TestBirthTime(t *testing.T) {
	dir := t.TempDir()
	before := time.Now().Add(-time.Minute)

	got, err := BirthTime(dir)
	if err != nil {
		t.Fatalf("BirthTime() error = %v", err)
	}
	if got.Before(before) {
		t.Errorf("BirthTime() = %v, want after %v", got, before)
	}
}
