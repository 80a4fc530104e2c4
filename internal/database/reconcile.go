package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exifrec-go/internal/database/sqlc"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
)

// findIdentity looks the file up by path and, when allowed, by content hash
// for files that moved.
func (s *SQLiteDatabase) findIdentity(ctx context.Context, q *sqlc.Queries, id media.Identity) (*sqlc.MediaIdentity, bool, error) {
	row, err := q.GetIdentityByPath(ctx, id.Path)
	if err == nil {
		return &row, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("finding identity by path: %w", err)
	}
	if !s.opts.MatchMoved || id.ContentHash == "" {
		return nil, false, nil
	}

	rows, err := q.ListIdentitiesByContentHash(ctx, id.ContentHash)
	if err != nil {
		return nil, false, fmt.Errorf("finding identity by content hash: %w", err)
	}
	var gone []sqlc.MediaIdentity
	for _, r := range rows {
		if !s.opts.Exists(r.Path) {
			gone = append(gone, r)
		}
	}
	// Two vanished copies of the same bytes are ambiguous.
	if len(gone) != 1 {
		return nil, false, nil
	}
	return &gone[0], true, nil
}

// AcceptedSnapshot returns the last accepted snapshot of the file, or nil and
// 0 when nothing was accepted yet.
func (s *SQLiteDatabase) AcceptedSnapshot(ctx context.Context, id media.Identity) (*media.Snapshot, int64, error) {
	row, _, err := s.findIdentity(ctx, s.queries, id)
	if err != nil {
		return nil, 0, err
	}
	if row == nil || !row.AcceptedSeq.Valid {
		return nil, 0, nil
	}
	snap, _, _, err := loadSnapshot(ctx, s.queries, *row, row.AcceptedSeq.Int64)
	if err != nil {
		return nil, 0, fmt.Errorf("loading accepted snapshot: %w", err)
	}
	snap.Identity = id
	return snap, row.AcceptedSeq.Int64, nil
}

// Import records the current snapshot of a file together with the change set
// computed against its accepted snapshot.
//
// Nothing new is stored when the change set is empty after suppression, or
// when an identical proposal is already open. A different open proposal is
// superseded. Entries a reviewer already rejected for the same old value, and
// entries on fields with a write-back in flight, are suppressed.
func (s *SQLiteDatabase) Import(ctx context.Context, id media.Identity, snap *media.Snapshot, cs *diff.ChangeSet) (*exifrec.ImportResult, error) {
	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	row, moved, err := s.findIdentity(ctx, qtx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		if cs.BaseSeq != 0 {
			return nil, fmt.Errorf("%w: %s has no accepted snapshot %d", exifrec.ErrConcurrentModification, id.Path, cs.BaseSeq)
		}
		created, err := qtx.InsertIdentity(ctx, sqlc.InsertIdentityParams{
			ID:          s.idgen.New(),
			Path:        id.Path,
			ContentHash: id.ContentHash,
			Kind:        string(snap.Kind),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("inserting identity: %w", err)
		}
		row = &created
	} else if row.Path != id.Path || row.ContentHash != id.ContentHash || row.Kind != string(snap.Kind) {
		err := qtx.UpdateIdentityLocation(ctx, sqlc.UpdateIdentityLocationParams{
			Path:        id.Path,
			ContentHash: id.ContentHash,
			Kind:        string(snap.Kind),
			UpdatedAt:   now,
			ID:          row.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("updating identity: %w", err)
		}
	}

	if row.AcceptedSeq.Int64 != cs.BaseSeq {
		return nil, fmt.Errorf("%w: %s accepted snapshot is %d, change set is based on %d",
			exifrec.ErrConcurrentModification, id.Path, row.AcceptedSeq.Int64, cs.BaseSeq)
	}

	res := &exifrec.ImportResult{IdentityID: row.ID, Moved: moved}

	inFlight, confirmed, err := s.confirmWriteBack(ctx, qtx, row, snap.Raw)
	if err != nil {
		return nil, err
	}
	res.Confirmed = confirmed

	proposed, suppressed, err := suppress(ctx, qtx, row.ID, cs, inFlight)
	if err != nil {
		return nil, err
	}
	proposed.Identity = id
	res.Suppressed = suppressed

	open, err := qtx.GetOpenChangeset(ctx, row.ID)
	hasOpen := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding open change set: %w", err)
	}

	if hasOpen && !proposed.Empty() && open.BaseSeq == proposed.BaseSeq {
		existing, err := loadChangeSet(ctx, qtx, id, row.ID, open.Seq, open.BaseSeq)
		if err != nil {
			return nil, err
		}
		if diff.SameEntries(existing, proposed) {
			res.ChangeSet = existing
			res.Reused = true
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("committing transaction: %w", err)
			}
			return res, nil
		}
	}

	if hasOpen {
		err := qtx.UpdateChangesetStatus(ctx, sqlc.UpdateChangesetStatusParams{
			Status:     exifrec.StatusSuperseded,
			DecidedAt:  sql.NullTime{Time: now, Valid: true},
			IdentityID: row.ID,
			Seq:        open.Seq,
		})
		if err != nil {
			return nil, fmt.Errorf("superseding change set: %w", err)
		}
		res.SupersededSeq = open.Seq
	}

	if !proposed.Empty() {
		snapSeq, err := qtx.GetMaxSnapshotSeq(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("getting snapshot sequence: %w", err)
		}
		snapSeq++
		if err := insertSnapshot(ctx, qtx, row.ID, snapSeq, exifrec.OriginExtracted, snap, nil, now); err != nil {
			return nil, err
		}

		csSeq, err := qtx.GetMaxChangesetSeq(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("getting change set sequence: %w", err)
		}
		csSeq++
		err = qtx.InsertChangeset(ctx, sqlc.InsertChangesetParams{
			IdentityID:  row.ID,
			Seq:         csSeq,
			BaseSeq:     proposed.BaseSeq,
			SnapshotSeq: snapSeq,
			Status:      exifrec.StatusProposed,
			CreatedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("inserting change set: %w", err)
		}
		if err := insertEntries(ctx, qtx, row.ID, csSeq, proposed.Entries); err != nil {
			return nil, err
		}
		proposed.Seq = csSeq
		res.ChangeSet = proposed
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return res, nil
}

// confirmWriteBack checks a file with a write-back in flight against the
// values it was owed. It returns the fields still in flight.
func (s *SQLiteDatabase) confirmWriteBack(ctx context.Context, q *sqlc.Queries, row *sqlc.MediaIdentity, raw map[string]string) (map[media.Field]bool, bool, error) {
	state := exifrec.WriteBackState(row.WritebackState)
	if (state != exifrec.WriteBackPending && state != exifrec.WriteBackWritten) || !row.WritebackSeq.Valid {
		return nil, false, nil
	}

	items, err := q.ListWritebackItems(ctx, sqlc.ListWritebackItemsParams{IdentityID: row.ID, ChangesetSeq: row.WritebackSeq.Int64})
	if err != nil {
		return nil, false, fmt.Errorf("listing write-back items: %w", err)
	}
	matched := true
	for _, item := range items {
		if !media.TagValueMatches(raw[item.Tag], item.Value) {
			matched = false
			break
		}
	}

	now := s.clock.Now()
	if matched {
		err := q.UpdateIdentityWriteback(ctx, sqlc.UpdateIdentityWritebackParams{
			WritebackState: string(exifrec.WriteBackClean),
			UpdatedAt:      now,
			ID:             row.ID,
		})
		if err != nil {
			return nil, false, fmt.Errorf("confirming write-back: %w", err)
		}
		return nil, true, nil
	}

	if state == exifrec.WriteBackWritten {
		// The tool reported success but the values did not stick.
		next, attempts := s.failedAttempt(row.WritebackAttempts)
		err := q.UpdateIdentityWriteback(ctx, sqlc.UpdateIdentityWritebackParams{
			WritebackState:    string(next),
			WritebackSeq:      row.WritebackSeq,
			WritebackAttempts: attempts,
			WritebackError:    "written values not found on re-import",
			UpdatedAt:         now,
			ID:                row.ID,
		})
		if err != nil {
			return nil, false, fmt.Errorf("recording unconfirmed write-back: %w", err)
		}
		if next == exifrec.WriteBackFailed {
			return nil, false, nil
		}
	}

	inFlight := make(map[media.Field]bool)
	for _, item := range items {
		inFlight[media.Field(item.Field)] = true
	}
	return inFlight, false, nil
}

func (s *SQLiteDatabase) failedAttempt(attempts int64) (exifrec.WriteBackState, int64) {
	attempts++
	if attempts >= int64(s.opts.MaxWriteBackAttempts) {
		return exifrec.WriteBackFailed, attempts
	}
	return exifrec.WriteBackPending, attempts
}

// suppress drops entries on in-flight fields and entries a reviewer rejected
// before with the same old and new value.
func suppress(ctx context.Context, q *sqlc.Queries, identityID string, cs *diff.ChangeSet, inFlight map[media.Field]bool) (*diff.ChangeSet, []media.Field, error) {
	rejected, err := q.ListRejectedEntries(ctx, identityID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing rejected entries: %w", err)
	}

	out := &diff.ChangeSet{Identity: cs.Identity, BaseSeq: cs.BaseSeq}
	var dropped []media.Field
	for _, e := range cs.Entries {
		if inFlight[e.Field] || wasRejected(rejected, e) {
			dropped = append(dropped, e.Field)
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, dropped, nil
}

func wasRejected(rejected []sqlc.ListRejectedEntriesRow, e diff.Entry) bool {
	old, nw := valueArg(e.Old), valueArg(e.New)
	for _, r := range rejected {
		if r.Field == string(e.Field) && r.OldValue == old && r.NewValue == nw {
			return true
		}
	}
	return false
}

// OpenChangeSet returns the proposal awaiting review for path, or nil.
func (s *SQLiteDatabase) OpenChangeSet(ctx context.Context, path string) (*diff.ChangeSet, error) {
	row, err := s.queries.GetIdentityByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding identity by path: %w", err)
	}
	open, err := s.queries.GetOpenChangeset(ctx, row.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding open change set: %w", err)
	}
	id := media.Identity{Path: row.Path, ContentHash: row.ContentHash}
	return loadChangeSet(ctx, s.queries, id, row.ID, open.Seq, open.BaseSeq)
}

// OpenChangeSets returns every proposal awaiting review, ordered by path.
func (s *SQLiteDatabase) OpenChangeSets(ctx context.Context) ([]*diff.ChangeSet, error) {
	rows, err := s.queries.ListOpenChangesets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open change sets: %w", err)
	}

	result := make([]*diff.ChangeSet, 0, len(rows))
	for _, r := range rows {
		id := media.Identity{Path: r.Path, ContentHash: r.ContentHash}
		cs, err := loadChangeSet(ctx, s.queries, id, r.IdentityID, r.Seq, r.BaseSeq)
		if err != nil {
			return nil, err
		}
		result = append(result, cs)
	}
	return result, nil
}

// Commit applies a fully reviewed change set. The accepted snapshot becomes
// the previous accepted values with the accepted entries applied; the values
// the file does not already carry are queued for write-back.
//
// Commits of one path are serialized in-process, and the accepted sequence
// is compared and swapped inside the transaction so a second process that
// committed in between is detected.
func (s *SQLiteDatabase) Commit(ctx context.Context, reviewed *diff.ChangeSet) (*exifrec.CommitResult, error) {
	path := reviewed.Identity.Path
	if !reviewed.Resolved() {
		return nil, fmt.Errorf("%w: %s has undecided entries", exifrec.ErrIncompleteReview, path)
	}

	s.locks.Lock(path)
	defer s.locks.Unlock(path)

	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	row, err := qtx.GetIdentityByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", exifrec.ErrNotTracked, path)
		}
		return nil, fmt.Errorf("finding identity by path: %w", err)
	}

	open, err := qtx.GetOpenChangeset(ctx, row.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding open change set: %w", err)
	}
	if err != nil || open.Seq != reviewed.Seq {
		return nil, fmt.Errorf("%w: change set %d of %s is no longer open", exifrec.ErrConcurrentModification, reviewed.Seq, path)
	}
	base := row.AcceptedSeq.Int64
	if open.BaseSeq != base || reviewed.BaseSeq != base {
		return nil, fmt.Errorf("%w: %s accepted snapshot moved to %d", exifrec.ErrConcurrentModification, path, base)
	}

	stored, err := qtx.ListChangesetEntries(ctx, sqlc.ListChangesetEntriesParams{IdentityID: row.ID, ChangesetSeq: open.Seq})
	if err != nil {
		return nil, fmt.Errorf("listing change set entries: %w", err)
	}
	if len(stored) != len(reviewed.Entries) {
		return nil, fmt.Errorf("%w: change set %d of %s has %d entries, reviewed %d",
			exifrec.ErrConcurrentModification, open.Seq, path, len(stored), len(reviewed.Entries))
	}

	observed, _, _, err := loadSnapshot(ctx, qtx, row, open.SnapshotSeq)
	if err != nil {
		return nil, fmt.Errorf("loading observed snapshot: %w", err)
	}
	next := &media.Snapshot{Identity: observed.Identity, Kind: observed.Kind, ModifiedAt: observed.ModifiedAt}
	origins := make(map[media.Field]diff.Origin)
	if base != 0 {
		prev, prevOrigins, _, err := loadSnapshot(ctx, qtx, row, base)
		if err != nil {
			return nil, fmt.Errorf("loading accepted snapshot: %w", err)
		}
		next.Creation, next.Offset, next.Coordinate = prev.Creation, prev.Offset, prev.Coordinate
		origins = prevOrigins
	}

	var accepted []media.Field
	for i, e := range reviewed.Entries {
		if stored[i].Field != string(e.Field) {
			return nil, fmt.Errorf("%w: change set %d of %s changed", exifrec.ErrConcurrentModification, open.Seq, path)
		}
		err := qtx.UpdateChangesetEntryDecision(ctx, sqlc.UpdateChangesetEntryDecisionParams{
			Decision:      string(e.Decision),
			OverrideValue: valueArg(e.Override),
			IdentityID:    row.ID,
			ChangesetSeq:  open.Seq,
			Position:      int64(i),
		})
		if err != nil {
			return nil, fmt.Errorf("recording decision for %s: %w", e.Field, err)
		}
		if e.Decision != diff.Accepted {
			continue
		}

		if err := setAccepted(next, observed, e.Field, e.Final()); err != nil {
			return nil, err
		}
		origins[e.Field] = e.Origin
		if e.Override != nil {
			origins[e.Field] = diff.Manual
		}
		accepted = append(accepted, e.Field)
	}

	err = qtx.UpdateChangesetStatus(ctx, sqlc.UpdateChangesetStatusParams{
		Status:     exifrec.StatusCommitted,
		DecidedAt:  sql.NullTime{Time: now, Valid: true},
		IdentityID: row.ID,
		Seq:        open.Seq,
	})
	if err != nil {
		return nil, fmt.Errorf("committing change set: %w", err)
	}

	result := &exifrec.CommitResult{AcceptedSeq: base}
	if len(accepted) > 0 {
		seq, err := qtx.GetMaxSnapshotSeq(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("getting snapshot sequence: %w", err)
		}
		seq++
		if err := insertSnapshot(ctx, qtx, row.ID, seq, exifrec.OriginAccepted, next, origins, now); err != nil {
			return nil, err
		}
		n, err := qtx.UpdateIdentityAcceptedSeq(ctx, sqlc.UpdateIdentityAcceptedSeqParams{
			AcceptedSeq: seqArg(seq),
			UpdatedAt:   now,
			ID:          row.ID,
			ExpectedSeq: seqArg(base),
		})
		if err != nil {
			return nil, fmt.Errorf("advancing accepted snapshot: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s accepted snapshot moved during commit", exifrec.ErrConcurrentModification, path)
		}
		result.AcceptedSeq = seq

		writes, fields, err := writeBackItems(s.opts.Tables.For(next.Kind), next, observed, accepted)
		if err != nil {
			return nil, fmt.Errorf("computing write-back for %s: %w", path, err)
		}
		for i, w := range writes {
			err := qtx.InsertWritebackItem(ctx, sqlc.InsertWritebackItemParams{
				IdentityID:   row.ID,
				ChangesetSeq: open.Seq,
				Position:     int64(i),
				Field:        string(fields[i]),
				Tag:          w.Tag,
				Value:        w.Value,
			})
			if err != nil {
				return nil, fmt.Errorf("inserting write-back item: %w", err)
			}
		}
		if len(writes) > 0 {
			err := qtx.UpdateIdentityWriteback(ctx, sqlc.UpdateIdentityWritebackParams{
				WritebackState: string(exifrec.WriteBackPending),
				WritebackSeq:   seqArg(open.Seq),
				UpdatedAt:      now,
				ID:             row.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("marking write-back pending: %w", err)
			}
		}
		result.WriteBack = writes
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

// setAccepted stores v as the accepted value of field. A nil v clears it.
func setAccepted(next, observed *media.Snapshot, field media.Field, v media.Value) error {
	tag := ""
	if obs, ok := observed.Value(field); ok && media.EqualValues(obs, v) {
		tag = observed.SourceTag(field)
	}
	raw := ""
	if v != nil {
		raw = v.String()
	}

	switch field {
	case media.FieldCreation:
		next.Creation = media.FieldValue[media.Instant]{}
		if v != nil {
			inst, ok := v.(media.Instant)
			if !ok {
				return fmt.Errorf("accepted %s has type %T", field, v)
			}
			next.Creation = media.NewFieldValue(raw, tag, media.Valid, inst)
		}
	case media.FieldOffset:
		next.Offset = media.FieldValue[media.Offset]{}
		if v != nil {
			off, ok := v.(media.Offset)
			if !ok {
				return fmt.Errorf("accepted %s has type %T", field, v)
			}
			next.Offset = media.NewFieldValue(raw, tag, media.Valid, off)
		}
	case media.FieldCoordinate:
		next.Coordinate = media.FieldValue[media.Coordinate]{}
		if v != nil {
			c, ok := v.(media.Coordinate)
			if !ok {
				return fmt.Errorf("accepted %s has type %T", field, v)
			}
			next.Coordinate = media.NewFieldValue(raw, tag, media.Valid, c)
		}
	}
	return nil
}

// writeBackItems returns the tag writes that bring the file from observed to
// accepted for the given fields, and the field each write belongs to. A UTC
// creation instant is written as local time when an offset was accepted.
// Cleared values are never written; later writes of a tag win.
func writeBackItems(table media.TagTable, accepted, observed *media.Snapshot, fields []media.Field) ([]media.TagWrite, []media.Field, error) {
	var writes []media.TagWrite
	var owners []media.Field
	index := make(map[string]int)

	for _, f := range fields {
		v, ok := accepted.Value(f)
		if !ok {
			continue
		}
		if obs, ok := observed.Value(f); ok && media.EqualValues(obs, v) {
			continue
		}
		if inst, ok := v.(media.Instant); ok && inst.UTC {
			if off, ok := accepted.Offset.Parsed(); ok {
				v = media.LocalInstant(inst.Wall.Add(time.Duration(off.Seconds) * time.Second))
			}
		}

		ws, err := media.WritesFor(table, v)
		if err != nil {
			return nil, nil, err
		}
		for _, w := range ws {
			if i, ok := index[w.Tag]; ok {
				writes[i], owners[i] = w, f
				continue
			}
			index[w.Tag] = len(writes)
			writes = append(writes, w)
			owners = append(owners, f)
		}
	}
	return writes, owners, nil
}

// PendingWriteBacks lists the files with writes waiting, ordered by path.
func (s *SQLiteDatabase) PendingWriteBacks(ctx context.Context) ([]exifrec.WriteBack, error) {
	rows, err := s.queries.ListIdentitiesByWritebackState(ctx, string(exifrec.WriteBackPending))
	if err != nil {
		return nil, fmt.Errorf("listing pending write-backs: %w", err)
	}

	var result []exifrec.WriteBack
	for _, row := range rows {
		if !row.WritebackSeq.Valid {
			continue
		}
		items, err := s.queries.ListWritebackItems(ctx, sqlc.ListWritebackItemsParams{IdentityID: row.ID, ChangesetSeq: row.WritebackSeq.Int64})
		if err != nil {
			return nil, fmt.Errorf("listing write-back items: %w", err)
		}
		wb := exifrec.WriteBack{
			IdentityID:   row.ID,
			Path:         row.Path,
			ContentHash:  row.ContentHash,
			Kind:         media.Kind(row.Kind),
			ChangeSetSeq: row.WritebackSeq.Int64,
			Attempts:     int(row.WritebackAttempts),
		}
		for _, item := range items {
			wb.Items = append(wb.Items, media.TagWrite{Tag: item.Tag, Value: item.Value})
		}
		result = append(result, wb)
	}
	return result, nil
}

// RecordWriteBackAttempt records the outcome of writing path.
func (s *SQLiteDatabase) RecordWriteBackAttempt(ctx context.Context, path string, attemptErr error) (exifrec.WriteBackState, error) {
	row, err := s.queries.GetIdentityByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", exifrec.ErrNotTracked, path)
		}
		return "", fmt.Errorf("finding identity by path: %w", err)
	}

	next, attempts, msg := exifrec.WriteBackWritten, row.WritebackAttempts, ""
	if attemptErr != nil {
		next, attempts = s.failedAttempt(row.WritebackAttempts)
		msg = attemptErr.Error()
	}
	err = s.queries.UpdateIdentityWriteback(ctx, sqlc.UpdateIdentityWritebackParams{
		WritebackState:    string(next),
		WritebackSeq:      row.WritebackSeq,
		WritebackAttempts: attempts,
		WritebackError:    msg,
		UpdatedAt:         s.clock.Now(),
		ID:                row.ID,
	})
	if err != nil {
		return "", fmt.Errorf("recording write-back attempt: %w", err)
	}
	return next, nil
}
