package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"exifrec-go/internal/media"
)

// Config represents the main configuration for exifrec.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Extractor  ExtractorConfig  `toml:"extractor"`
	Inference  InferenceConfig  `toml:"inference"`
	Reconcile  ReconcileConfig  `toml:"reconcile"`
	Metrics    MetricsConfig    `toml:"metrics"`

	// Tags overrides the built-in tag tables per media kind ("photo",
	// "video", or a new kind).
	Tags map[string]media.TagTable `toml:"tags,omitempty"`
}

// EncryptionConfig selects how original backups are protected.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
	// Extensions restricts discovery to these extensions (".jpg"). Empty
	// means every extension with a known media kind.
	Extensions []string `toml:"extensions,omitempty"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the reconciliation store.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ExtractorConfig controls the exiftool processes.
type ExtractorConfig struct {
	BinaryPath string        `toml:"binary_path,omitempty"` // empty means exiftool from PATH
	Timeout    time.Duration `toml:"timeout,omitempty"`     // per file, 0 means 30s
	Workers    int           `toml:"workers,omitempty"`     // 0 means one per CPU
}

// FilenamePattern is a regular expression whose first capture group holds
// a timestamp in Go layout Layout.
type FilenamePattern struct {
	Regex  string `toml:"regex"`
	Layout string `toml:"layout"`
}

// InferenceConfig tunes the inference strategies. Zero values keep the
// built-in defaults.
type InferenceConfig struct {
	FilenamePatterns []FilenamePattern `toml:"filename_patterns,omitempty"`
	SiblingWindow    time.Duration     `toml:"sibling_window,omitempty"`
	CoordinateWindow time.Duration     `toml:"coordinate_window,omitempty"`
	Disagreement     time.Duration     `toml:"disagreement,omitempty"`
}

// ReconcileConfig controls the store.
type ReconcileConfig struct {
	MaxWriteBackAttempts int  `toml:"max_writeback_attempts,omitempty"` // 0 means 3
	MatchMoved           bool `toml:"match_moved,omitempty"`
}

// MetricsConfig controls the batch metrics export.
type MetricsConfig struct {
	// TextfilePath is where batch metrics are written in the Prometheus text
	// format. Empty disables the export.
	TextfilePath string `toml:"textfile_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vaults: []VaultConfig{{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		}},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "exifrec.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "exifrec.key"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// TagTables returns the built-in tag tables with the configured overrides.
func (c *Config) TagTables() media.Tables {
	return media.DefaultTagTables().Merge(c.Tags)
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

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
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

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
