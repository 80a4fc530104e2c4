package database

import (
	"fmt"
	"os"
	"path/filepath"

	"exifrec-go/internal/config"
	"exifrec-go/internal/exifrec"
)

// NewDatabaseFromConfig creates the store selected by the database config
// type and brings its schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, opts Options) (*SQLiteDatabase, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, hostID+".db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path, nil, nil, opts)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var _ exifrec.Store = (*SQLiteDatabase)(nil)
