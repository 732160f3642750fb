package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/savekeep",
		LogDir:  "/home/user/.local/share/savekeep/log",
		Saves: SavesConfig{
			Root:       "/games/saves",
			ModeSuffix: "__HonourMode",
			Extension:  ".lsv",
		},
		Backups:  BackupsConfig{Root: "/games/backups", MirrorDatabase: true},
		Flag:     FlagConfig{Path: "/games/config/profile8.lsx"},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/savekeep/db"},
		Watch:    WatchConfig{DebounceMillis: 250},
		Extractor: ExtractorConfig{
			Command:        "lslib-name",
			Args:           []string{"--save", "{save}"},
			TimeoutSeconds: 5,
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Saves != original.Saves {
		t.Errorf("Saves = %+v, want %+v", got.Saves, original.Saves)
	}
	if got.Backups != original.Backups {
		t.Errorf("Backups = %+v, want %+v", got.Backups, original.Backups)
	}
	if got.Flag.Path != original.Flag.Path {
		t.Errorf("Flag.Path = %q, want %q", got.Flag.Path, original.Flag.Path)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Watch.DebounceMillis != 250 {
		t.Errorf("Watch.DebounceMillis = %d, want 250", got.Watch.DebounceMillis)
	}
	if got.Extractor.Command != "lslib-name" || len(got.Extractor.Args) != 2 || got.Extractor.Args[1] != "{save}" {
		t.Errorf("Extractor = %+v", got.Extractor)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/savekeep")

	if cfg.BaseDir != "/data/savekeep" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/savekeep")
	}
	if cfg.LogDir != "/data/savekeep/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/savekeep/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/savekeep/db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Saves.ModeSuffix != DefaultModeSuffix || cfg.Saves.Extension != DefaultExtension {
		t.Errorf("Saves = %+v", cfg.Saves)
	}
	if cfg.Watch.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce() = %v, want 500ms", cfg.Watch.Debounce())
	}
}

func TestWatchConfig_Debounce(t *testing.T) {
	if got := (WatchConfig{}).Debounce(); got != 500*time.Millisecond {
		t.Errorf("zero Debounce() = %v, want 500ms", got)
	}
	if got := (WatchConfig{DebounceMillis: 50}).Debounce(); got != 50*time.Millisecond {
		t.Errorf("Debounce() = %v, want 50ms", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("complete config", func(t *testing.T) {
		cfg := NewConfig("/data")
		cfg.Saves.Root = "/saves"
		cfg.Backups.Root = "/backups"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("reports every missing root", func(t *testing.T) {
		err := NewConfig("/data").Validate()
		if err == nil {
			t.Fatal("Validate() expected error")
		}
		for _, want := range []string{"saves.root", "backups.root"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Validate() error = %q, want mention of %s", err, want)
			}
		}
	})

	t.Run("roots must differ", func(t *testing.T) {
		cfg := NewConfig("/data")
		cfg.Saves.Root = "/same"
		cfg.Backups.Root = "/same"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for identical roots")
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "savekeep.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "savekeep.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "savekeep.toml")
		cfg := NewConfig(dir)
		cfg.Saves.Root = "/games/saves"
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Saves.Root != "/games/saves" {
			t.Errorf("Saves.Root = %q, want %q", got.Saves.Root, "/games/saves")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/savekeep.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
