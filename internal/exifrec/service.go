package exifrec

import (
	"context"
	"fmt"
	"runtime"

	"exifrec-go/internal/diff"
	"exifrec-go/internal/media"
)

// Service is the orchestration layer between the CLI and the components:
// it discovers files, extracts and reconciles them, and applies reviewed
// changes back to the files.
type Service struct {
	store     Store
	extractor Extractor
	fsmgr     FilesystemManager
	vault     Vault
	encryptor Encryptor
	engine    *Engine
	tables    media.Tables
	logger    Logger
	clock     Clock
	recorder  Recorder
	workers   int
}

// ServiceOptions holds the optional tuning of a Service.
type ServiceOptions struct {
	Tables   media.Tables // defaults to media.DefaultTagTables
	Workers  int          // defaults to one per CPU
	Recorder Recorder     // defaults to NopRecorder
}

// NewService wires a Service. encryptor may be nil, in which case original
// backups are stored unencrypted.
func NewService(store Store, extractor Extractor, fsmgr FilesystemManager, vault Vault, encryptor Encryptor, engine *Engine, logger Logger, clock Clock, opts ServiceOptions) *Service {
	if opts.Tables == nil {
		opts.Tables = media.DefaultTagTables()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}
	return &Service{
		store:     store,
		extractor: extractor,
		fsmgr:     fsmgr,
		vault:     vault,
		encryptor: encryptor,
		engine:    engine,
		tables:    opts.Tables,
		logger:    logger,
		clock:     clock,
		recorder:  opts.Recorder,
		workers:   opts.Workers,
	}
}

// Pending returns every change set awaiting review, ordered by path.
func (s *Service) Pending(ctx context.Context) ([]*diff.ChangeSet, error) {
	sets, err := s.store.OpenChangeSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing open change sets: %w", err)
	}
	return sets, nil
}

// Commit applies a fully reviewed change set.
func (s *Service) Commit(ctx context.Context, reviewed *diff.ChangeSet) (*CommitResult, error) {
	res, err := s.store.Commit(ctx, reviewed)
	if err != nil {
		return nil, fmt.Errorf("committing %s: %w", reviewed.Identity.Path, err)
	}
	s.logger.Info("change set committed",
		"path", reviewed.Identity.Path,
		"seq", reviewed.Seq,
		"accepted_seq", res.AcceptedSeq,
		"writes", len(res.WriteBack))
	return res, nil
}

// AcceptAll accepts every entry that does not need manual review and commits
// the change sets that end up fully decided. It returns the number committed
// and the change sets still waiting for a reviewer. A failing commit is
// logged and leaves its change set open.
func (s *Service) AcceptAll(ctx context.Context) (int, []*diff.ChangeSet, error) {
	sets, err := s.Pending(ctx)
	if err != nil {
		return 0, nil, err
	}

	committed := 0
	var remaining []*diff.ChangeSet
	for _, cs := range sets {
		if err := ctx.Err(); err != nil {
			return committed, remaining, err
		}
		if cs.AcceptAll() > 0 {
			remaining = append(remaining, cs)
			continue
		}
		if _, err := s.Commit(ctx, cs); err != nil {
			s.logger.Error("commit failed", "path", cs.Identity.Path, "error", err)
			remaining = append(remaining, cs)
			continue
		}
		committed++
	}
	return committed, remaining, nil
}
