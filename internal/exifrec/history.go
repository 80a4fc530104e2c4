package exifrec

import (
	"context"
	"fmt"
)

// FileHistory is everything the store remembers about one file.
type FileHistory struct {
	Identity   *IdentityRecord
	Snapshots  []SnapshotRecord
	ChangeSets []ChangeSetRecord
	Backups    []OriginalBackup
}

// History returns the stored history of path, oldest first.
func (s *Service) History(ctx context.Context, path string) (*FileHistory, error) {
	s.logger.Debug("fetching file history", "path", path)

	rec, err := s.store.FindIdentity(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, path)
	}

	h := &FileHistory{Identity: rec}
	if h.Snapshots, err = s.store.SnapshotHistory(ctx, path); err != nil {
		return nil, err
	}
	if h.ChangeSets, err = s.store.ChangeSetHistory(ctx, path); err != nil {
		return nil, err
	}
	if h.Backups, err = s.store.OriginalBackups(ctx, path); err != nil {
		return nil, err
	}
	return h, nil
}

// Operations returns the most recent operations, newest first.
func (s *Service) Operations(ctx context.Context, limit int) ([]OperationRecord, error) {
	ops, err := s.store.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
