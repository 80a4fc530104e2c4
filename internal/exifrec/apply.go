package exifrec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"exifrec-go/internal/media"
)

// ErrContentChanged is returned when a file changed on disk after the scan
// that queued its write-back. The file has to be scanned again first.
var ErrContentChanged = errors.New("file changed since last scan")

// ApplyReport is the result of applying the pending writes of one file.
type ApplyReport struct {
	Path   string
	Writes []media.TagWrite
	// State is the write-back state after the attempt.
	State WriteBackState
	// Backup is the vault copy of the original bytes.
	Backup *OriginalBackup
	// Confirmed is set when re-reading the file showed every written value.
	Confirmed bool
	Err       error
}

// ApplyPending writes the accepted values owed to every pending file. Before
// a file is first modified its original bytes are copied to the vault. A
// failed write leaves the file pending; it is not retried until the next
// call. Per-file failures are reported, not returned.
func (s *Service) ApplyPending(ctx context.Context) ([]ApplyReport, error) {
	pending, err := s.store.PendingWriteBacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending write-backs: %w", err)
	}
	s.logger.Info("apply started", "files", len(pending))

	reports := make([]ApplyReport, len(pending))
	for i, wb := range pending {
		reports[i] = ApplyReport{Path: wb.Path, Writes: wb.Items, State: WriteBackPending, Err: context.Canceled}
	}
	s.forEach(ctx, len(pending), func(ctx context.Context, i int) {
		reports[i] = s.applyOne(ctx, pending[i])
	})

	written := 0
	for _, r := range reports {
		if r.Err == nil {
			written++
		}
	}
	s.logger.Info("apply finished", "files", len(pending), "written", written)
	return reports, ctx.Err()
}

func (s *Service) applyOne(ctx context.Context, wb WriteBack) ApplyReport {
	report := ApplyReport{Path: wb.Path, Writes: wb.Items, State: WriteBackPending}
	fail := func(err error) ApplyReport {
		s.logger.Warn("write-back failed", "path", wb.Path, "error", err)
		report.Err = err
		return report
	}

	hash, err := s.fsmgr.Hash(wb.Path)
	if err != nil {
		return fail(fmt.Errorf("hashing: %w", err))
	}
	if hash != wb.ContentHash {
		return fail(fmt.Errorf("%w: %s", ErrContentChanged, wb.Path))
	}

	backup, err := s.backupOriginal(ctx, wb.Path, hash)
	if err != nil {
		return fail(fmt.Errorf("backing up original: %w", err))
	}
	report.Backup = backup

	writeErr := s.extractor.Write(ctx, wb.Path, wb.Items)
	s.recorder.WriteBackAttempted(writeErr == nil)
	state, err := s.store.RecordWriteBackAttempt(ctx, wb.Path, writeErr)
	if err != nil {
		return fail(errors.Join(writeErr, err))
	}
	report.State = state
	if writeErr != nil {
		return fail(writeErr)
	}
	s.logger.Info("write-back written", "path", wb.Path, "tags", len(wb.Items))

	// Read the file back so the store can confirm the values landed.
	confirmed, err := s.reimport(ctx, wb.Path)
	if err != nil {
		return fail(fmt.Errorf("re-reading written file: %w", err))
	}
	report.Confirmed = confirmed
	if confirmed {
		report.State = WriteBackClean
	}
	return report
}

// reimport imports path on its own, outside any batch.
func (s *Service) reimport(ctx context.Context, path string) (bool, error) {
	snap, report := s.load(ctx, path, ScanOptions{Force: true})
	if snap == nil {
		return false, report.Err
	}
	report = s.reconcile(ctx, snap, nil, ScanOptions{})
	if report.Err != nil {
		return false, report.Err
	}
	return report.Import.Confirmed, nil
}

// backupOriginal copies the current bytes of path to the vault unless that
// content is already stored. Encrypted copies are keyed by the content hash
// plus ".age".
func (s *Service) backupOriginal(ctx context.Context, path, hash string) (*OriginalBackup, error) {
	info, err := s.fsmgr.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	backup := &OriginalBackup{
		ContentHash: hash,
		VaultKey:    hash,
		Encrypted:   s.encryptor != nil,
		Size:        info.Size(),
		CreatedAt:   s.clock.Now(),
	}
	if backup.Encrypted {
		backup.VaultKey = hash + ".age"
	}

	stored, err := s.vault.HasContent(backup.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("checking vault: %w", err)
	}
	if !stored {
		if err := s.upload(path, backup); err != nil {
			return nil, err
		}
		s.logger.Info("original backed up", "path", path, "key", backup.VaultKey, "encrypted", backup.Encrypted)
	}

	if err := s.store.RecordOriginalBackup(ctx, path, *backup); err != nil {
		return nil, err
	}
	return backup, nil
}

func (s *Service) upload(path string, backup *OriginalBackup) error {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return fmt.Errorf("opening original: %w", err)
	}
	defer f.Close()

	if !backup.Encrypted {
		if err := s.vault.PutContent(backup.VaultKey, f, backup.Size); err != nil {
			return fmt.Errorf("uploading to vault: %w", err)
		}
		return nil
	}

	// The vault needs the exact size up front, so the ciphertext is spooled
	// to a temporary file first.
	tmp, err := os.CreateTemp("", "exifrec-backup-*.age")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := s.encryptor.Encrypt(f, tmp); err != nil {
		return fmt.Errorf("encrypting original: %w", err)
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("sizing ciphertext: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding ciphertext: %w", err)
	}
	if err := s.vault.PutContent(backup.VaultKey, tmp, size); err != nil {
		return fmt.Errorf("uploading to vault: %w", err)
	}
	return nil
}
