package main

import (
	"fmt"
	"slices"
	"strings"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/exifrec"
)

func printSummary(b *exifrec.BatchSummary, showProposals bool) {
	for _, d := range b.Dirs {
		fmt.Printf("%s: %d file(s), %d to review, %d failed", d.Dir, d.Files, d.Review, d.Failures)
		if len(d.Anomalies) > 0 {
			kinds := make([]string, 0, len(d.Anomalies))
			for k := range d.Anomalies {
				kinds = append(kinds, string(k))
			}
			slices.Sort(kinds)
			parts := make([]string, len(kinds))
			for i, k := range kinds {
				parts[i] = fmt.Sprintf("%s=%d", k, d.Anomalies[detect.Kind(k)])
			}
			fmt.Printf(" [%s]", strings.Join(parts, " "))
		}
		fmt.Println()
	}

	if showProposals {
		for _, f := range b.Files {
			if f.ChangeSet.Empty() {
				continue
			}
			fmt.Printf("\n%s\n", f.Path)
			for i := range f.ChangeSet.Entries {
				printEntry(&f.ChangeSet.Entries[i])
			}
		}
	}

	if failures := b.Failures(); len(failures) > 0 {
		fmt.Println("\nFailures:")
		for _, f := range failures {
			fmt.Printf("  %s: %v\n", f.Path, f.Err)
		}
	}

	fmt.Printf("\n%d accepted, %d to review, %d skipped, %d failed\n",
		b.Counts[exifrec.OutcomeAccepted],
		b.Counts[exifrec.OutcomeReview],
		b.Counts[exifrec.OutcomeSkipped],
		b.Counts[exifrec.OutcomeFailed])
	if b.Cancelled {
		fmt.Printf("%d file(s) not processed\n", b.Counts[exifrec.OutcomeCancelled])
	}
}

func printHistory(h *exifrec.FileHistory) {
	id := h.Identity
	fmt.Printf("%s\n  hash %s  write-back %s\n", id.Path, id.ContentHash, id.WriteBackState)

	fmt.Println("\nSnapshots:")
	for _, s := range h.Snapshots {
		fmt.Printf("  #%d  %-9s  %s  creation=%s offset=%s gps=%s\n",
			s.Seq,
			s.Origin,
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fieldText(s.Snapshot.Creation),
			fieldText(s.Snapshot.Offset),
			fieldText(s.Snapshot.Coordinate),
		)
	}

	if len(h.ChangeSets) > 0 {
		fmt.Println("\nChange sets:")
	}
	for _, c := range h.ChangeSets {
		fmt.Printf("  #%d  %-9s  %s  (base #%d)\n",
			c.ChangeSet.Seq,
			c.Status,
			c.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			c.ChangeSet.BaseSeq,
		)
		for _, e := range c.ChangeSet.Entries {
			decision := string(e.Decision)
			if decision == "" {
				decision = "pending"
			}
			next := "(lost)"
			if v := e.Final(); v != nil {
				next = v.String()
			}
			fmt.Printf("      %-16s -> %s  %s\n", e.Field, next, decision)
		}
	}

	if len(h.Backups) > 0 {
		fmt.Println("\nOriginal backups:")
	}
	for _, b := range h.Backups {
		enc := ""
		if b.Encrypted {
			enc = " encrypted"
		}
		fmt.Printf("  %s  %d bytes%s  %s\n", b.ContentHash[:min(12, len(b.ContentHash))], b.Size, enc, b.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}
