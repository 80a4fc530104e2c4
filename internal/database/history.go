package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"exifrec-go/internal/database/sqlc"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// RecordOriginalBackup remembers where the original bytes of path were put.
// Recording the same content twice is a no-op.
func (s *SQLiteDatabase) RecordOriginalBackup(ctx context.Context, path string, backup exifrec.OriginalBackup) error {
	row, err := s.identityByPath(ctx, path)
	if err != nil {
		return err
	}
	createdAt := backup.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	err = s.queries.InsertOriginalBackup(ctx, sqlc.InsertOriginalBackupParams{
		IdentityID:  row.ID,
		ContentHash: backup.ContentHash,
		VaultKey:    backup.VaultKey,
		Encrypted:   backup.Encrypted,
		Size:        backup.Size,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return fmt.Errorf("recording original backup: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) OriginalBackups(ctx context.Context, path string) ([]exifrec.OriginalBackup, error) {
	row, err := s.identityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	rows, err := s.queries.ListOriginalBackups(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("listing original backups: %w", err)
	}

	result := make([]exifrec.OriginalBackup, len(rows))
	for i, r := range rows {
		result[i] = exifrec.OriginalBackup{
			ContentHash: r.ContentHash,
			VaultKey:    r.VaultKey,
			Encrypted:   r.Encrypted,
			Size:        r.Size,
			CreatedAt:   r.CreatedAt,
		}
	}
	return result, nil
}

// SnapshotHistory returns every stored snapshot of path, oldest first.
func (s *SQLiteDatabase) SnapshotHistory(ctx context.Context, path string) ([]exifrec.SnapshotRecord, error) {
	row, err := s.identityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	snaps, err := s.queries.ListSnapshotsByIdentity(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	result := make([]exifrec.SnapshotRecord, 0, len(snaps))
	for _, sn := range snaps {
		snap, origins, _, err := loadSnapshot(ctx, s.queries, row, sn.Seq)
		if err != nil {
			return nil, err
		}
		result = append(result, exifrec.SnapshotRecord{
			Seq:          sn.Seq,
			Origin:       sn.Origin,
			ContentHash:  sn.ContentHash,
			CreatedAt:    sn.CreatedAt,
			Snapshot:     snap,
			FieldOrigins: origins,
		})
	}
	return result, nil
}

// ChangeSetHistory returns every change set of path, oldest first.
func (s *SQLiteDatabase) ChangeSetHistory(ctx context.Context, path string) ([]exifrec.ChangeSetRecord, error) {
	row, err := s.identityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	sets, err := s.queries.ListChangesetsByIdentity(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("listing change sets: %w", err)
	}

	id := media.Identity{Path: row.Path, ContentHash: row.ContentHash}
	result := make([]exifrec.ChangeSetRecord, 0, len(sets))
	for _, c := range sets {
		cs, err := loadChangeSet(ctx, s.queries, id, row.ID, c.Seq, c.BaseSeq)
		if err != nil {
			return nil, err
		}
		result = append(result, exifrec.ChangeSetRecord{
			ChangeSet: cs,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
			DecidedAt: nullTime(c.DecidedAt),
		})
	}
	return result, nil
}

func (s *SQLiteDatabase) identityByPath(ctx context.Context, path string) (sqlc.MediaIdentity, error) {
	row, err := s.queries.GetIdentityByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, fmt.Errorf("%w: %s", exifrec.ErrNotTracked, path)
		}
		return row, fmt.Errorf("finding identity by path: %w", err)
	}
	return row, nil
}
