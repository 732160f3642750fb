package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for savekeep.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Saves     SavesConfig     `toml:"saves"`
	Backups   BackupsConfig   `toml:"backups"`
	Flag      FlagConfig      `toml:"flag"`
	Database  DatabaseConfig  `toml:"database"`
	Watch     WatchConfig     `toml:"watch"`
	Extractor ExtractorConfig `toml:"extractor"`
}

// SavesConfig locates the live save tree.
type SavesConfig struct {
	Root       string `toml:"root"`
	ModeSuffix string `toml:"mode_suffix"` // profile folder suffix, e.g. "__HonourMode"
	Extension  string `toml:"extension"`   // payload extension, e.g. ".lsv"
}

// BackupsConfig locates the backup root holding snapshot folders and the ledger.
type BackupsConfig struct {
	Root string `toml:"root"`

	// MirrorDatabase copies the database into <root>/.savekeep after each
	// mutating command.
	MirrorDatabase bool `toml:"mirror_database"`
}

// FlagConfig is the sidecar flag file. An empty path disables flag handling.
type FlagConfig struct {
	Path string `toml:"path"`
}

// DatabaseConfig represents configuration for the restoration mark database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// WatchConfig tunes the save root watcher.
type WatchConfig struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Debounce returns the debounce window, defaulting to 500ms.
func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMillis <= 0 {
		return DefaultDebounceMillis * time.Millisecond
	}
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// ExtractorConfig is the external command that reads a character name out
// of a save payload. "{save}" in Args is replaced by the payload path; if
// no argument contains it, the path is appended.
type ExtractorConfig struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args,omitempty"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

const (
	DefaultModeSuffix       = "__HonourMode"
	DefaultExtension        = ".lsv"
	DefaultDebounceMillis   = 500
	DefaultExtractorTimeout = 10
)

// NewConfig creates a new Config rooted at baseDir with default settings.
// Save root, backup root and flag path are left for the caller.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Saves: SavesConfig{
			ModeSuffix: DefaultModeSuffix,
			Extension:  DefaultExtension,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Watch: WatchConfig{DebounceMillis: DefaultDebounceMillis},
		Extractor: ExtractorConfig{
			TimeoutSeconds: DefaultExtractorTimeout,
		},
	}
}

// Validate reports settings a command cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Saves.Root == "" {
		errs = append(errs, errors.New("saves.root is not set"))
	}
	if c.Backups.Root == "" {
		errs = append(errs, errors.New("backups.root is not set"))
	}
	if c.Saves.Root != "" && c.Saves.Root == c.Backups.Root {
		errs = append(errs, errors.New("saves.root and backups.root must differ"))
	}
	if c.Database.Type == "" {
		errs = append(errs, errors.New("database.type is not set"))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
