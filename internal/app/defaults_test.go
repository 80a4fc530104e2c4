package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("EXIFREC_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("EXIFREC_HOME", "/custom/exifrec")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/exifrec" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/exifrec")
		}
		if defaults["log_dir"] != "/custom/exifrec/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/exifrec/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("EXIFREC_CONFIG_PATH", "")
		t.Setenv("EXIFREC_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "exifrec.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "exifrec")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})

	t.Run("home override moves the log dir but not the config", func(t *testing.T) {
		t.Setenv("EXIFREC_CONFIG_PATH", "")
		t.Setenv("EXIFREC_HOME", "/srv/exifrec")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		if want := filepath.Join(homeDir, ".config", "exifrec.toml"); defaults["config_path"] != want {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], want)
		}
		if defaults["log_dir"] != "/srv/exifrec/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/srv/exifrec/log")
		}
	})
}
