// Package config provides configuration management for filehop.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDirectory returns the per-user filehop configuration directory.
//
// Locations:
//   - Windows: %USERPROFILE%\.config\filehop
//   - Unix: ~/.config/filehop
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", "filehop"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "filehop"), nil
}

// DefaultConfigPath returns the default path of the INI config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// LogDirectory returns the directory for rotated log files.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\filehop\logs
//   - Unix: $XDG_CONFIG_HOME/filehop/logs (usually ~/.config/filehop/logs)
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "filehop-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "filehop", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "filehop-logs")
		}
		return filepath.Join(homeDir, ".config", "filehop", "logs")
	}
	return filepath.Join(configDir, "filehop", "logs")
}

// DefaultLogFile is the rotated log file used when logging.file is unset.
func DefaultLogFile() string {
	return filepath.Join(LogDirectory(), "filehop.log")
}

// DefaultDownloadDir is where downloads land when transfer.download_dir is unset.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
