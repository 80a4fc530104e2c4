package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"exifrec-go/internal/config"
	"exifrec-go/internal/database"
	"exifrec-go/internal/detect"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/encryption"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/extract"
	"exifrec-go/internal/fs"
	"exifrec-go/internal/geotz"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/metrics"
	"exifrec-go/internal/vault"
)

// ExifrecApp is the application layer between the CLI and the service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type ExifrecApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     exifrec.Vault
	fsmgr     exifrec.FilesystemManager
	encryptor exifrec.Encryptor
	extractor exifrec.Extractor
	metrics   *metrics.Batch
	service   *exifrec.Service
	op        *Operation
	started   time.Time
	logFile   *os.File
}

// NewExifrecApp creates a fully wired ExifrecApp from the given config.
// operation identifies the CLI command being run (e.g. "scan", "apply").
// The caller must call Close when done.
func NewExifrecApp(ctx context.Context, cfg *config.Config, operation string, verbose bool) (*ExifrecApp, error) {
	return newExifrecApp(ctx, cfg, operation, verbose, nil)
}

// newExifrecApp builds the app around ext, or around exiftool when ext is nil.
func newExifrecApp(ctx context.Context, cfg *config.Config, operation string, verbose bool, ext exifrec.Extractor) (*ExifrecApp, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore, cfg.Filesystem.Extensions)
	tables := cfg.TagTables()

	if len(cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	patterns := infer.DefaultPatterns()
	if len(cfg.Inference.FilenamePatterns) > 0 {
		specs := make([]infer.PatternSpec, len(cfg.Inference.FilenamePatterns))
		for i, p := range cfg.Inference.FilenamePatterns {
			specs[i] = infer.PatternSpec{Regex: p.Regex, Layout: p.Layout}
		}
		if patterns, err = infer.CompilePatterns(specs); err != nil {
			return nil, err
		}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, database.Options{
		Tables:               tables,
		MaxWriteBackAttempts: cfg.Reconcile.MaxWriteBackAttempts,
		MatchMoved:           cfg.Reconcile.MatchMoved,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	// Check local DB version against remote vault version.
	remoteVersion, err := v.GetMetadataVersion(cfg.HostID, "db")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking remote metadata version: %w", err)
	}

	localMax, err := db.MaxOperationID(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checking local metadata version: %w", err)
	}

	if remoteVersion > localMax {
		db.Close()
		return nil, fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore from vault or re-initialize", localMax, remoteVersion)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	resolver, err := geotz.NewResolver()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading time zone boundaries: %w", err)
	}

	if ext == nil {
		ext, err = extract.New(extract.Options{
			BinaryPath: cfg.Extractor.BinaryPath,
			Timeout:    cfg.Extractor.Timeout,
			Workers:    cfg.Extractor.Workers,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	started := time.Now()
	opID := started.UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, verbose)
	if err != nil {
		ext.Close()
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	opts := infer.DefaultOptions()
	opts.Patterns = patterns
	if cfg.Inference.SiblingWindow > 0 {
		opts.SiblingWindow = cfg.Inference.SiblingWindow
	}
	if cfg.Inference.CoordinateWindow > 0 {
		opts.CoordinateWindow = cfg.Inference.CoordinateWindow
	}
	if cfg.Inference.Disagreement > 0 {
		opts.Disagreement = cfg.Inference.Disagreement
	}
	engine := exifrec.NewEngine(detect.Default(tables), infer.Default(tables, resolver, opts))

	batch := metrics.NewBatch(operation)
	svc := exifrec.NewService(db, ext, fsmgr, v, enc, engine, &slogAdapter{l: logger}, exifrec.RealClock{}, exifrec.ServiceOptions{
		Tables:   tables,
		Workers:  cfg.Extractor.Workers,
		Recorder: batch,
	})

	return &ExifrecApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		extractor: ext,
		metrics:   batch,
		service:   svc,
		op:        NewOperation(operation, ""),
		started:   started,
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *ExifrecApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	id, err := a.db.CreateOperation(ctx, a.op.Operation, parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// track marks the operation failed when err is not nil and returns err.
func (a *ExifrecApp) track(err error) error {
	if err != nil {
		a.op.Status = StatusError
	}
	return err
}

// ScanOptions are the CLI-facing batch options.
type ScanOptions struct {
	Recursive bool
	Force     bool
	Filter    string
}

func (o ScanOptions) toService() (exifrec.ScanOptions, error) {
	out := exifrec.ScanOptions{Recursive: o.Recursive, Force: o.Force}
	if o.Filter != "" {
		re, err := regexp.Compile(o.Filter)
		if err != nil {
			return out, fmt.Errorf("invalid filter: %w", err)
		}
		out.Filter = re
	}
	return out, nil
}

// Scan resolves rawPath and imports every media file under it.
func (a *ExifrecApp) Scan(ctx context.Context, rawPath string, opts ScanOptions) (*exifrec.BatchSummary, error) {
	p, _, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	sopts, err := opts.toService()
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(ctx, p); err != nil {
		return nil, err
	}
	summary, err := a.service.Scan(ctx, p, sopts)
	if err == nil && (summary.Cancelled || len(summary.Failures()) > 0) {
		a.op.Status = StatusError
	}
	return summary, a.track(err)
}

// Check resolves rawPath and reports what a scan would propose without
// storing anything.
func (a *ExifrecApp) Check(ctx context.Context, rawPath string, opts ScanOptions) (*exifrec.BatchSummary, error) {
	p, _, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	sopts, err := opts.toService()
	if err != nil {
		return nil, err
	}
	return a.service.Check(ctx, p, sopts)
}

// Pending returns the change sets awaiting review.
func (a *ExifrecApp) Pending(ctx context.Context) ([]*diff.ChangeSet, error) {
	return a.service.Pending(ctx)
}

// Commit applies a reviewed change set.
func (a *ExifrecApp) Commit(ctx context.Context, cs *diff.ChangeSet) (*exifrec.CommitResult, error) {
	if err := a.persistOperation(ctx, "review"); err != nil {
		return nil, err
	}
	res, err := a.service.Commit(ctx, cs)
	return res, a.track(err)
}

// AcceptAll accepts and commits everything that needs no manual review.
func (a *ExifrecApp) AcceptAll(ctx context.Context) (int, []*diff.ChangeSet, error) {
	if err := a.persistOperation(ctx, "accept-all"); err != nil {
		return 0, nil, err
	}
	n, remaining, err := a.service.AcceptAll(ctx)
	return n, remaining, a.track(err)
}

// Apply writes every pending write-back.
func (a *ExifrecApp) Apply(ctx context.Context) ([]exifrec.ApplyReport, error) {
	if err := a.persistOperation(ctx, ""); err != nil {
		return nil, err
	}
	reports, err := a.service.ApplyPending(ctx)
	for _, r := range reports {
		if r.Err != nil {
			a.op.Status = StatusError
		}
	}
	return reports, a.track(err)
}

// FileHistory returns the stored history of rawPath. The file need not
// exist any more.
func (a *ExifrecApp) FileHistory(ctx context.Context, rawPath string) (*exifrec.FileHistory, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.History(ctx, absPath)
}

// Operations returns the most recent operations.
func (a *ExifrecApp) Operations(ctx context.Context, limit int) ([]exifrec.OperationRecord, error) {
	return a.service.Operations(ctx, limit)
}

// NeedsPassphrase reports whether restoring requires unlocking the private key.
func (a *ExifrecApp) NeedsPassphrase() bool {
	return a.encryptor != nil
}

// RestoreOriginal writes the backed-up original of rawPath next to it and
// returns the new file's path. passphrase unlocks the private key when
// backups are encrypted.
func (a *ExifrecApp) RestoreOriginal(ctx context.Context, rawPath, hash, passphrase string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	var dc exifrec.DecryptionContext
	if a.encryptor != nil {
		if dc, err = a.encryptor.Unlock(passphrase); err != nil {
			return "", fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.service.Restore(ctx, absPath, hash, dc)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, backs up the DB,
// uploads it to the vault and exports the batch metrics.
// For non-persisted operations: just closes the database.
func (a *ExifrecApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	ctx := context.Background()

	keep(a.extractor.Close())

	if a.op.Persisted() {
		if err := a.db.FinishOperation(ctx, a.op.ID, a.op.Status); err != nil {
			keep(fmt.Errorf("finishing operation: %w", err))
		}

		// Snapshot the DB to a temp file
		var tmpPath string
		tmpFile, err := os.CreateTemp("", "exifrec-db-backup-*.db")
		if err != nil {
			keep(fmt.Errorf("creating temp file for db backup: %w", err))
		} else {
			tmpPath = tmpFile.Name()
			tmpFile.Close()
			if err := a.db.BackupTo(tmpPath); err != nil {
				keep(fmt.Errorf("backing up database: %w", err))
				os.Remove(tmpPath)
				tmpPath = ""
			}
		}

		if err := a.db.Close(); err != nil {
			keep(fmt.Errorf("closing database: %w", err))
		}

		// Upload DB snapshot to vault with version = operation ID
		if tmpPath != "" {
			keep(a.uploadMetadata(tmpPath, a.op.ID))
			os.Remove(tmpPath)
		}

		if path := a.cfg.Metrics.TextfilePath; path != "" {
			a.metrics.Finish(a.started, time.Now())
			keep(a.metrics.WriteTextfile(path))
		}
	} else if err := a.db.Close(); err != nil {
		keep(fmt.Errorf("closing database: %w", err))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadMetadata opens the temp DB file and uploads it to the vault as metadata.
func (a *ExifrecApp) uploadMetadata(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.HostID, "db", f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}
	return nil
}
