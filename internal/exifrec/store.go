package exifrec

import (
	"context"
	"time"

	"exifrec-go/internal/diff"
	"exifrec-go/internal/media"
)

// WriteBackState tracks whether accepted values still have to reach the file.
type WriteBackState string

const (
	WriteBackClean WriteBackState = "clean"
	// WriteBackPending items are waiting to be written.
	WriteBackPending WriteBackState = "pending"
	// WriteBackWritten items were written and await confirmation by the next
	// import of the file.
	WriteBackWritten WriteBackState = "written"
	// WriteBackFailed items exhausted their attempts and need attention.
	WriteBackFailed WriteBackState = "failed"
)

// Snapshot origins as stored.
const (
	OriginExtracted = "extracted"
	OriginAccepted  = "accepted"
)

// Change set statuses as stored.
const (
	StatusProposed   = "proposed"
	StatusCommitted  = "committed"
	StatusSuperseded = "superseded"
)

// IdentityRecord is the stored state of one tracked file.
type IdentityRecord struct {
	ID                string
	Path              string
	ContentHash       string
	Kind              media.Kind
	AcceptedSeq       int64 // 0 when nothing was accepted yet
	WriteBackState    WriteBackState
	WriteBackAttempts int
	WriteBackError    string
	UpdatedAt         time.Time
}

// ImportResult describes what an import stored.
type ImportResult struct {
	IdentityID string

	// ChangeSet is the open proposal for the file, nil when the file matches
	// its accepted state.
	ChangeSet *diff.ChangeSet

	// Reused is set when an identical proposal was already open.
	Reused bool

	// SupersededSeq is the sequence of the proposal this import replaced.
	SupersededSeq int64

	// Suppressed lists fields dropped from the proposal because they were
	// rejected before or have a write-back in flight.
	Suppressed []media.Field

	// Confirmed is set when the file now carries every value of a pending
	// write-back.
	Confirmed bool

	// Moved is set when the identity was matched by content hash at a new path.
	Moved bool
}

// Accepted reports whether the file needs no review.
func (r *ImportResult) Accepted() bool { return r.ChangeSet.Empty() }

// CommitResult describes a committed change set.
type CommitResult struct {
	AcceptedSeq int64
	WriteBack   []media.TagWrite
}

// WriteBack is the set of tag writes owed to one file.
type WriteBack struct {
	IdentityID   string
	Path         string
	ContentHash  string
	Kind         media.Kind
	ChangeSetSeq int64
	Items        []media.TagWrite
	Attempts     int
}

// SnapshotRecord is one stored snapshot.
type SnapshotRecord struct {
	Seq         int64
	Origin      string
	ContentHash string
	CreatedAt   time.Time
	Snapshot    *media.Snapshot
	// FieldOrigins says where each accepted value came from. Empty for
	// extracted snapshots.
	FieldOrigins map[media.Field]diff.Origin
}

// ChangeSetRecord is one stored change set.
type ChangeSetRecord struct {
	ChangeSet *diff.ChangeSet
	Status    string
	CreatedAt time.Time
	DecidedAt time.Time
}

// OriginalBackup locates the vault copy of a file taken before it was
// first rewritten.
type OriginalBackup struct {
	ContentHash string
	VaultKey    string
	Encrypted   bool
	Size        int64
	CreatedAt   time.Time
}

// OperationRecord is one entry of the operations log.
type OperationRecord struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Operation  string
	Parameters string
	Status     string
}

// Store is the durable per-file history of snapshots and change sets. Each
// method runs in its own transaction.
type Store interface {
	// FindIdentity returns the stored state of path, nil when untracked.
	FindIdentity(ctx context.Context, path string) (*IdentityRecord, error)

	// AcceptedSnapshot returns the last accepted snapshot of the file and its
	// sequence number, or nil and 0 when nothing was accepted.
	AcceptedSnapshot(ctx context.Context, id media.Identity) (*media.Snapshot, int64, error)

	// Import records the current snapshot of a file and the change set
	// computed against the accepted snapshot numbered cs.BaseSeq. It is
	// idempotent: importing the same state twice stores nothing new.
	Import(ctx context.Context, id media.Identity, snap *media.Snapshot, cs *diff.ChangeSet) (*ImportResult, error)

	// OpenChangeSet returns the proposal awaiting review for path, or nil.
	OpenChangeSet(ctx context.Context, path string) (*diff.ChangeSet, error)

	// OpenChangeSets returns every proposal awaiting review, ordered by path.
	OpenChangeSets(ctx context.Context) ([]*diff.ChangeSet, error)

	// Commit applies a fully reviewed change set: the accepted values become
	// a new accepted snapshot and the values the file lacks are queued for
	// write-back.
	Commit(ctx context.Context, reviewed *diff.ChangeSet) (*CommitResult, error)

	// PendingWriteBacks lists the files with writes waiting, ordered by path.
	PendingWriteBacks(ctx context.Context) ([]WriteBack, error)

	// RecordWriteBackAttempt records the outcome of writing path. A nil
	// attemptErr moves the file to WriteBackWritten.
	RecordWriteBackAttempt(ctx context.Context, path string, attemptErr error) (WriteBackState, error)

	// RecordOriginalBackup remembers the vault copy of a file's original bytes.
	RecordOriginalBackup(ctx context.Context, path string, backup OriginalBackup) error

	// OriginalBackups lists the vault copies for path, newest first.
	OriginalBackups(ctx context.Context, path string) ([]OriginalBackup, error)

	SnapshotHistory(ctx context.Context, path string) ([]SnapshotRecord, error)
	ChangeSetHistory(ctx context.Context, path string) ([]ChangeSetRecord, error)

	CreateOperation(ctx context.Context, operation, parameters string) (int64, error)
	FinishOperation(ctx context.Context, id int64, status string) error
	ListOperations(ctx context.Context, limit int) ([]OperationRecord, error)
	MaxOperationID(ctx context.Context) (int64, error)

	Close() error
}
