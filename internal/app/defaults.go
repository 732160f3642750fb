package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "SAVEKEEP_CONFIG_PATH"
	EnvHome       = "SAVEKEEP_HOME"
)

// GetDefaults returns the config path, base directory and log directory.
// Keys: "config_path", "base_dir", "log_dir".
//
// Without overrides the config lives at ~/.config/savekeep.toml and data
// under ~/.local/share/savekeep. On Windows data goes to
// %LOCALAPPDATA%\savekeep, next to where the game keeps its own saves.
func GetDefaults() (map[string]string, error) {
	home, err := os.UserHomeDir()
	if err != nil && (os.Getenv(EnvConfigPath) == "" || os.Getenv(EnvHome) == "") {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		configPath = filepath.Join(home, ".config", "savekeep.toml")
	}

	baseDir := os.Getenv(EnvHome)
	if baseDir == "" {
		baseDir = platformBaseDir(home)
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func platformBaseDir(home string) string {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "savekeep")
		}
	}
	return filepath.Join(home, ".local", "share", "savekeep")
}
