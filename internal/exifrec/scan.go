package exifrec

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/maruel/natural"
	"golang.org/x/sync/errgroup"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/media"
)

// Outcome classifies what a batch did with one file.
type Outcome string

const (
	// OutcomeAccepted files match their accepted state.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeReview files have a change set awaiting review.
	OutcomeReview Outcome = "review"
	// OutcomeSkipped files were not read because their content is unchanged
	// since the last import.
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// ScanOptions controls a batch.
type ScanOptions struct {
	Recursive bool
	// Force re-reads files whose content hash is unchanged.
	Force bool
	// Filter keeps only paths matching the expression.
	Filter *regexp.Regexp
	// DryRun analyzes the files without storing anything.
	DryRun bool
}

// FileReport is the result of one file in a batch.
type FileReport struct {
	Path      string
	Outcome   Outcome
	Anomalies []detect.Anomaly
	// ChangeSet is the proposal awaiting review, nil when there is none.
	ChangeSet *diff.ChangeSet
	// Import is set when the snapshot was stored.
	Import *ImportResult
	Err    error
}

// DirSummary aggregates the files of one directory.
type DirSummary struct {
	Dir       string
	Files     int
	Review    int
	Failures  int
	Anomalies map[detect.Kind]int
}

// BatchSummary is the result of a batch, files in program order.
type BatchSummary struct {
	Root      string
	Files     []FileReport
	Counts    map[Outcome]int
	Dirs      []DirSummary
	Cancelled bool
}

// Failures returns the reports of files that failed.
func (b *BatchSummary) Failures() []FileReport {
	var out []FileReport
	for _, f := range b.Files {
		if f.Outcome == OutcomeFailed {
			out = append(out, f)
		}
	}
	return out
}

// Scan imports every media file under root. Per-file failures are reported
// in the summary and never abort the batch; cancelling ctx stops the batch
// between files.
//
// Files are processed in two phases. The first extracts and builds the
// snapshots of all files in parallel. The second reconciles each snapshot,
// again in parallel, with the snapshots of the same directory that come
// before it in program order as siblings.
func (s *Service) Scan(ctx context.Context, root string, opts ScanOptions) (*BatchSummary, error) {
	paths, err := s.fsmgr.FindFiles(root, opts.Recursive)
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}
	if opts.Filter != nil {
		paths = slices.DeleteFunc(paths, func(p string) bool { return !opts.Filter.MatchString(p) })
	}
	s.logger.Info("batch started", "root", root, "files", len(paths), "dry_run", opts.DryRun)

	reports := make([]FileReport, len(paths))
	snaps := make([]*media.Snapshot, len(paths))
	for i, p := range paths {
		reports[i] = FileReport{Path: p, Outcome: OutcomeCancelled}
	}

	s.forEach(ctx, len(paths), func(ctx context.Context, i int) {
		snaps[i], reports[i] = s.load(ctx, paths[i], opts)
	})

	siblings := siblingsByFile(paths, snaps)
	s.forEach(ctx, len(paths), func(ctx context.Context, i int) {
		if snaps[i] == nil {
			return
		}
		reports[i] = s.reconcile(ctx, snaps[i], siblings[i], opts)
	})

	summary := summarize(root, reports)
	summary.Cancelled = ctx.Err() != nil
	for _, r := range reports {
		s.recorder.FileProcessed(string(r.Outcome))
		for _, a := range r.Anomalies {
			s.recorder.AnomalyFound(string(a.Kind))
		}
	}
	s.logger.Info("batch finished",
		"root", root,
		"accepted", summary.Counts[OutcomeAccepted],
		"review", summary.Counts[OutcomeReview],
		"skipped", summary.Counts[OutcomeSkipped],
		"failed", summary.Counts[OutcomeFailed],
		"cancelled", summary.Cancelled)
	return summary, nil
}

// Check analyzes the files under root without storing anything.
func (s *Service) Check(ctx context.Context, root string, opts ScanOptions) (*BatchSummary, error) {
	opts.DryRun = true
	return s.Scan(ctx, root, opts)
}

// forEach runs fn for 0..n-1 on the worker pool. Indexes not yet started
// when ctx is cancelled are skipped.
func (s *Service) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, i)
			return nil
		})
	}
	g.Wait()
}

// load extracts path and builds its snapshot. A nil snapshot means the
// report is final; otherwise the file counts as cancelled until reconciled.
func (s *Service) load(ctx context.Context, path string, opts ScanOptions) (*media.Snapshot, FileReport) {
	report := FileReport{Path: path, Outcome: OutcomeCancelled}
	fail := func(err error) (*media.Snapshot, FileReport) {
		s.logger.Warn("file failed", "path", path, "error", err)
		report.Outcome, report.Err = OutcomeFailed, err
		return nil, report
	}

	kind, ok := media.KindForPath(path)
	if !ok {
		return fail(fmt.Errorf("unsupported file type: %s", path))
	}
	hash, err := s.fsmgr.Hash(path)
	if err != nil {
		return fail(fmt.Errorf("hashing: %w", err))
	}

	if !opts.Force && !opts.DryRun {
		rec, err := s.store.FindIdentity(ctx, path)
		if err != nil {
			return fail(err)
		}
		// A written file must be read again to confirm the write-back.
		if rec != nil && rec.ContentHash == hash && rec.WriteBackState != WriteBackWritten {
			s.logger.Debug("file unchanged", "path", path)
			report.Outcome = OutcomeSkipped
			return nil, report
		}
	}

	started := s.clock.Now()
	raw, err := s.extractor.Extract(ctx, path)
	s.recorder.ExtractionObserved(s.clock.Now().Sub(started))
	if err != nil {
		return fail(err)
	}

	id := media.Identity{Path: path, ContentHash: hash}
	return media.Build(id, kind, raw, s.tables.For(kind)), report
}

// reconcile runs the engine on snap and stores the result.
func (s *Service) reconcile(ctx context.Context, snap *media.Snapshot, siblings []*media.Snapshot, opts ScanOptions) FileReport {
	report := FileReport{Path: snap.Identity.Path}
	fail := func(err error) FileReport {
		s.logger.Warn("file failed", "path", snap.Identity.Path, "error", err)
		report.Outcome, report.Err = OutcomeFailed, err
		return report
	}

	accepted, seq, err := s.store.AcceptedSnapshot(ctx, snap.Identity)
	if err != nil {
		return fail(err)
	}
	a := s.engine.Analyze(snap, accepted, seq, siblings)
	report.Anomalies = a.Anomalies

	if opts.DryRun {
		report.Outcome = OutcomeAccepted
		if !a.ChangeSet.Empty() {
			report.Outcome, report.ChangeSet = OutcomeReview, a.ChangeSet
		}
		return report
	}

	res, err := s.store.Import(ctx, snap.Identity, snap, a.ChangeSet)
	if err != nil {
		return fail(err)
	}
	report.Import = res
	report.Outcome = OutcomeAccepted
	if !res.Accepted() {
		report.Outcome, report.ChangeSet = OutcomeReview, res.ChangeSet
	}
	if res.Confirmed {
		s.logger.Info("write-back confirmed", "path", snap.Identity.Path)
	}
	if res.Moved {
		s.logger.Info("file moved", "path", snap.Identity.Path, "hash", snap.Identity.ContentHash)
	}
	s.logger.Debug("file imported",
		"path", snap.Identity.Path,
		"outcome", report.Outcome,
		"anomalies", len(a.Anomalies),
		"suppressed", len(res.Suppressed))
	return report
}

// siblingsByFile returns, for each file, the snapshots of the same directory
// that precede it in program order.
func siblingsByFile(paths []string, snaps []*media.Snapshot) [][]*media.Snapshot {
	out := make([][]*media.Snapshot, len(paths))
	seen := make(map[string][]*media.Snapshot)
	for i, p := range paths {
		dir := filepath.Dir(p)
		out[i] = seen[dir]
		if snaps[i] != nil {
			// Clip so later appends never show through earlier views.
			seen[dir] = append(slices.Clip(seen[dir]), snaps[i])
		}
	}
	return out
}

func summarize(root string, reports []FileReport) *BatchSummary {
	b := &BatchSummary{
		Root:   root,
		Files:  reports,
		Counts: make(map[Outcome]int),
	}
	dirs := make(map[string]*DirSummary)
	for _, r := range reports {
		b.Counts[r.Outcome]++

		dir := filepath.Dir(r.Path)
		d, ok := dirs[dir]
		if !ok {
			d = &DirSummary{Dir: dir, Anomalies: make(map[detect.Kind]int)}
			dirs[dir] = d
		}
		d.Files++
		switch r.Outcome {
		case OutcomeReview:
			d.Review++
		case OutcomeFailed:
			d.Failures++
		}
		for _, a := range r.Anomalies {
			if !a.Kind.Informational() {
				d.Anomalies[a.Kind]++
			}
		}
	}

	for _, d := range dirs {
		b.Dirs = append(b.Dirs, *d)
	}
	slices.SortFunc(b.Dirs, func(x, y DirSummary) int {
		switch {
		case x.Dir == y.Dir:
			return 0
		case natural.Less(x.Dir, y.Dir):
			return -1
		default:
			return 1
		}
	})
	return b
}
