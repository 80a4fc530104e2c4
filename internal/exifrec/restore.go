package exifrec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RestoredSuffix ends the name of every restored original. Discovery ignores
// such files.
const RestoredSuffix = ".exifrec-original"

// Restore writes the original bytes of path, as backed up before its first
// write-back, next to it as <name>.<hash[:12]>.exifrec-original. hash
// selects a specific backup by content hash prefix; empty means the most
// recent one. dc is required for encrypted backups. The file itself is
// never touched.
func (s *Service) Restore(ctx context.Context, path, hash string, dc DecryptionContext) (string, error) {
	s.logger.Info("restore started", "path", path)

	backups, err := s.store.OriginalBackups(ctx, path)
	if err != nil {
		return "", err
	}
	var backup *OriginalBackup
	for i := range backups {
		if strings.HasPrefix(backups[i].ContentHash, hash) {
			backup = &backups[i]
			break
		}
	}
	if backup == nil {
		if hash != "" {
			return "", fmt.Errorf("no backup of %s with hash %s", path, hash)
		}
		return "", fmt.Errorf("no backup of %s: it was never rewritten", path)
	}
	if backup.Encrypted && dc == nil {
		return "", fmt.Errorf("backup is encrypted but no passphrase was provided")
	}

	outPath := restorePath(path, backup.ContentHash)
	if _, err := os.Stat(outPath); err == nil {
		return "", fmt.Errorf("output file already exists: %s", outPath)
	}
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if backup.Encrypted {
		err = s.fetchDecrypted(backup.VaultKey, f, dc)
	} else {
		err = s.vault.GetContent(backup.VaultKey, f)
	}
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("restoring %s: %w", path, err)
	}

	s.logger.Info("original restored", "path", path, "output", outPath, "hash", backup.ContentHash)
	return outPath, nil
}

// fetchDecrypted pipes the vault stream straight into the decryptor.
func (s *Service) fetchDecrypted(key string, w io.Writer, dc DecryptionContext) error {
	pr, pw := io.Pipe()
	vaultErr := make(chan error, 1)
	go func() {
		err := s.vault.GetContent(key, pw)
		pw.CloseWithError(err)
		vaultErr <- err
	}()

	decryptErr := dc.Decrypt(pr, w)
	pr.CloseWithError(decryptErr) // unblocks the writer if Decrypt stopped early
	err := <-vaultErr
	if decryptErr != nil {
		return fmt.Errorf("decrypting backup: %w", decryptErr)
	}
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("retrieving backup from vault: %w", err)
	}
	return nil
}

func restorePath(path, hash string) string {
	short := hash
	if len(short) > 12 {
		short = short[:12]
	}
	return filepath.Join(filepath.Dir(path), filepath.Base(path)+"."+short+RestoredSuffix)
}
