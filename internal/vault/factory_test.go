package vault

import (
	"context"
	"path/filepath"
	"testing"

	"exifrec-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.VaultConfig
		wantErr  bool
		validate bool
	}{
		{
			name:     "memory vault",
			cfg:      config.VaultConfig{Type: "memory", Name: "test-memory"},
			validate: true,
		},
		{
			name:     "filesystem vault",
			cfg:      config.VaultConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: root},
			validate: true,
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:     "filesystem vault creates its layout",
			cfg:      config.VaultConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: filepath.Join(root, "nested")},
			validate: true,
		},
		{
			name: "s3 vault",
			cfg: config.VaultConfig{
				Type:              "s3",
				Name:              "test-s3",
				S3Bucket:          "photos-backup",
				S3Region:          "us-east-1",
				S3Endpoint:        "http://127.0.0.1:9000",
				S3PathStyle:       true,
				S3AccessKeyID:     "key",
				S3SecretAccessKey: "secret",
			},
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("NewVaultFromConfig() = %v, want nil on error", got)
				}
				return
			}
			if got == nil {
				t.Fatal("NewVaultFromConfig() returned nil")
			}
			if tt.validate {
				if err := got.ValidateSetup(); err != nil {
					t.Errorf("ValidateSetup() error = %v", err)
				}
			}
		})
	}
}
