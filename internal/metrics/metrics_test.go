package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBatch_Counters(t *testing.T) {
	b := NewBatch("scan")

	b.FileProcessed("accepted")
	b.FileProcessed("accepted")
	b.FileProcessed("review")
	b.AnomalyFound("invalid-hour")
	b.WriteBackAttempted(true)
	b.WriteBackAttempted(false)
	b.ExtractionObserved(120 * time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"accepted", testutil.ToFloat64(b.files.WithLabelValues("accepted")), 2},
		{"review", testutil.ToFloat64(b.files.WithLabelValues("review")), 1},
		{"invalid-hour", testutil.ToFloat64(b.anomalies.WithLabelValues("invalid-hour")), 1},
		{"writeback ok", testutil.ToFloat64(b.writeBacks.WithLabelValues("ok")), 1},
		{"writeback failed", testutil.ToFloat64(b.writeBacks.WithLabelValues("failed")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("counter = %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(b.extraction); n != 1 {
		t.Errorf("extraction histogram series = %d, want 1", n)
	}
}

func TestBatch_WriteTextfile(t *testing.T) {
	b := NewBatch("apply")
	b.FileProcessed("written")
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	b.Finish(start, start.Add(90*time.Second))

	path := filepath.Join(t.TempDir(), "exifrec.prom")
	if err := b.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`exifrec_files_total{command="apply",outcome="written"} 1`,
		`exifrec_last_run_duration_seconds{command="apply"} 90`,
		`exifrec_last_run_timestamp_seconds{command="apply"}`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestBatch_WriteTextfile_BadDir(t *testing.T) {
	b := NewBatch("scan")
	if err := b.WriteTextfile(filepath.Join(t.TempDir(), "missing", "exifrec.prom")); err == nil {
		t.Fatal("WriteTextfile() expected error for missing directory")
	}
}
