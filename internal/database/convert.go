package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"exifrec-go/internal/database/sqlc"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
)

func identityRecord(row sqlc.MediaIdentity) *exifrec.IdentityRecord {
	return &exifrec.IdentityRecord{
		ID:                row.ID,
		Path:              row.Path,
		ContentHash:       row.ContentHash,
		Kind:              media.Kind(row.Kind),
		AcceptedSeq:       row.AcceptedSeq.Int64,
		WriteBackState:    exifrec.WriteBackState(row.WritebackState),
		WriteBackAttempts: int(row.WritebackAttempts),
		WriteBackError:    row.WritebackError,
		UpdatedAt:         row.UpdatedAt,
	}
}

// seqArg maps sequence 0 (none) to NULL.
func seqArg(seq int64) sql.NullInt64 {
	return sql.NullInt64{Int64: seq, Valid: seq != 0}
}

func valueArg(v media.Value) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func parseValueArg(field media.Field, ns sql.NullString) (media.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return media.ParseValue(field, ns.String)
}

func rawText(s *media.Snapshot, f media.Field) string {
	switch f {
	case media.FieldCreation:
		return s.Creation.RawText
	case media.FieldOffset:
		return s.Offset.RawText
	case media.FieldCoordinate:
		return s.Coordinate.RawText
	}
	return ""
}

// insertSnapshot stores snap under seq. origins is only set for accepted
// snapshots.
func insertSnapshot(ctx context.Context, q *sqlc.Queries, identityID string, seq int64, origin string, snap *media.Snapshot, origins map[media.Field]diff.Origin, createdAt time.Time) error {
	raw := snap.Raw
	if raw == nil {
		raw = map[string]string{}
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding raw tags: %w", err)
	}

	err = q.InsertSnapshot(ctx, sqlc.InsertSnapshotParams{
		IdentityID:  identityID,
		Seq:         seq,
		Origin:      origin,
		ContentHash: snap.Identity.ContentHash,
		ModifiedAt:  sql.NullTime{Time: snap.ModifiedAt, Valid: !snap.ModifiedAt.IsZero()},
		RawTags:     string(rawJSON),
		CreatedAt:   createdAt,
	})
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	for _, f := range media.Fields {
		v, _ := snap.Value(f)
		err := q.InsertSnapshotField(ctx, sqlc.InsertSnapshotFieldParams{
			IdentityID:  identityID,
			SnapshotSeq: seq,
			Field:       string(f),
			RawText:     rawText(snap, f),
			Value:       valueArg(v),
			SourceTag:   snap.SourceTag(f),
			Validity:    snap.Validity(f).String(),
			Origin:      string(origins[f]),
		})
		if err != nil {
			return fmt.Errorf("inserting snapshot field %s: %w", f, err)
		}
	}
	return nil
}

// loadSnapshot rebuilds a stored snapshot of the identity.
func loadSnapshot(ctx context.Context, q *sqlc.Queries, identity sqlc.MediaIdentity, seq int64) (*media.Snapshot, map[media.Field]diff.Origin, *sqlc.Snapshot, error) {
	row, err := q.GetSnapshot(ctx, sqlc.GetSnapshotParams{IdentityID: identity.ID, Seq: seq})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("getting snapshot %d: %w", seq, err)
	}
	fields, err := q.ListSnapshotFields(ctx, sqlc.ListSnapshotFieldsParams{IdentityID: identity.ID, SnapshotSeq: seq})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing snapshot fields: %w", err)
	}

	snap := &media.Snapshot{
		Identity:   media.Identity{Path: identity.Path, ContentHash: row.ContentHash},
		Kind:       media.Kind(identity.Kind),
		ModifiedAt: nullTime(row.ModifiedAt),
	}
	if err := json.Unmarshal([]byte(row.RawTags), &snap.Raw); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding raw tags: %w", err)
	}

	origins := make(map[media.Field]diff.Origin)
	for _, f := range fields {
		field := media.Field(f.Field)
		if f.Origin != "" {
			origins[field] = diff.Origin(f.Origin)
		}
		switch field {
		case media.FieldCreation:
			snap.Creation, err = storedField[media.Instant](f)
		case media.FieldOffset:
			snap.Offset, err = storedField[media.Offset](f)
		case media.FieldCoordinate:
			snap.Coordinate, err = storedField[media.Coordinate](f)
		}
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return snap, origins, &row, nil
}

func storedField[T media.Value](f sqlc.SnapshotField) (media.FieldValue[T], error) {
	validity := media.ParseValidity(f.Validity)
	if !f.Value.Valid {
		return media.FieldValue[T]{RawText: f.RawText, SourceTag: f.SourceTag, Validity: validity}, nil
	}
	v, err := media.ParseValue(media.Field(f.Field), f.Value.String)
	if err != nil {
		return media.FieldValue[T]{}, fmt.Errorf("decoding stored %s: %w", f.Field, err)
	}
	typed, ok := v.(T)
	if !ok {
		return media.FieldValue[T]{}, fmt.Errorf("stored %s has type %T", f.Field, v)
	}
	return media.NewFieldValue(f.RawText, f.SourceTag, validity, typed), nil
}

func insertEntries(ctx context.Context, q *sqlc.Queries, identityID string, seq int64, entries []diff.Entry) error {
	for i, e := range entries {
		evidence, err := json.Marshal(nonNil(e.Evidence))
		if err != nil {
			return fmt.Errorf("encoding evidence: %w", err)
		}
		alts := make([]string, 0, len(e.Alternatives))
		for _, a := range e.Alternatives {
			alts = append(alts, a.String())
		}
		altJSON, err := json.Marshal(alts)
		if err != nil {
			return fmt.Errorf("encoding alternatives: %w", err)
		}
		confidence := ""
		if e.Confidence != 0 {
			confidence = e.Confidence.String()
		}

		err = q.InsertChangesetEntry(ctx, sqlc.InsertChangesetEntryParams{
			IdentityID:    identityID,
			ChangesetSeq:  seq,
			Position:      int64(i),
			Field:         string(e.Field),
			Kind:          string(e.Kind),
			OldValue:      valueArg(e.Old),
			NewValue:      valueArg(e.New),
			Origin:        string(e.Origin),
			Strategy:      e.Strategy,
			Confidence:    confidence,
			Evidence:      string(evidence),
			Alternatives:  string(altJSON),
			NeedsReview:   e.NeedsReview,
			Decision:      string(e.Decision),
			OverrideValue: valueArg(e.Override),
		})
		if err != nil {
			return fmt.Errorf("inserting change set entry %s: %w", e.Field, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// loadChangeSet rebuilds a stored change set.
func loadChangeSet(ctx context.Context, q *sqlc.Queries, id media.Identity, identityID string, seq, baseSeq int64) (*diff.ChangeSet, error) {
	rows, err := q.ListChangesetEntries(ctx, sqlc.ListChangesetEntriesParams{IdentityID: identityID, ChangesetSeq: seq})
	if err != nil {
		return nil, fmt.Errorf("listing change set entries: %w", err)
	}

	cs := &diff.ChangeSet{Identity: id, Seq: seq, BaseSeq: baseSeq}
	for _, row := range rows {
		e, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		cs.Entries = append(cs.Entries, e)
	}
	return cs, nil
}

func entryFromRow(row sqlc.ChangesetEntry) (diff.Entry, error) {
	field := media.Field(row.Field)
	e := diff.Entry{
		Field:       field,
		Kind:        diff.Kind(row.Kind),
		Origin:      diff.Origin(row.Origin),
		Strategy:    row.Strategy,
		Confidence:  infer.ParseConfidence(row.Confidence),
		NeedsReview: row.NeedsReview,
		Decision:    diff.Decision(row.Decision),
	}

	var err error
	if e.Old, err = parseValueArg(field, row.OldValue); err != nil {
		return e, fmt.Errorf("decoding old %s: %w", field, err)
	}
	if e.New, err = parseValueArg(field, row.NewValue); err != nil {
		return e, fmt.Errorf("decoding new %s: %w", field, err)
	}
	if e.Override, err = parseValueArg(field, row.OverrideValue); err != nil {
		return e, fmt.Errorf("decoding override %s: %w", field, err)
	}
	if err := json.Unmarshal([]byte(row.Evidence), &e.Evidence); err != nil {
		return e, fmt.Errorf("decoding evidence: %w", err)
	}
	if len(e.Evidence) == 0 {
		e.Evidence = nil
	}

	var alts []string
	if err := json.Unmarshal([]byte(row.Alternatives), &alts); err != nil {
		return e, fmt.Errorf("decoding alternatives: %w", err)
	}
	for _, a := range alts {
		v, err := media.ParseValue(field, a)
		if err != nil {
			return e, fmt.Errorf("decoding alternative %s: %w", field, err)
		}
		e.Alternatives = append(e.Alternatives, v)
	}
	return e, nil
}
