package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - EXIFREC_CONFIG_PATH: config file location (default: ~/.config/exifrec.toml)
//   - EXIFREC_HOME: base directory for exifrec data (default: ~/.local/share/exifrec)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("EXIFREC_CONFIG_PATH", ".config", "exifrec.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("EXIFREC_HOME", ".local", "share", "exifrec")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env when set, else the path elem joined
// under the user's home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
