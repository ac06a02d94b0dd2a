// Package paths resolves where consultora keeps its configuration, its
// database and its filesystem backups.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory and file names.
const (
	AppName            = "consultora"
	DefaultDataDirName = ".consultora-db"
	ConfigFileName     = "config.yaml"
	EnvFileName        = ".env"
	BackupDirName      = "backups-store"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CONSULTORA_CONFIG_DIR"
	EnvDataDir   = "CONSULTORA_DATA_DIR"
)

// platformDir holds platform lookups that tests can replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/consultora (fallback ~/.config/consultora)
// macOS:   ~/Library/Application Support/consultora
// Windows: %APPDATA%/consultora
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir picks the configuration directory:
// flag > CONSULTORA_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the database directory:
// flag > CONSULTORA_DATA_DIR > config value > $(CWD)/.consultora-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, os.Getenv(EnvDataDir), configValue} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveBackupRoot returns the filesystem backup destination: the
// configured root when set, otherwise <dataDir>/backups-store.
func ResolveBackupRoot(dataDir, configValue string) (string, error) {
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	return filepath.Join(dataDir, BackupDirName), nil
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// EnvFile returns the path of the .env file inside configDir.
func EnvFile(configDir string) string {
	return filepath.Join(configDir, EnvFileName)
}
