package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exifrec-go/internal/config"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/testutil"
	"exifrec-go/internal/vault"
)

type appFixture struct {
	cfg       *config.Config
	photos    string
	extractor *testutil.StubExtractor
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewConfig("host-1", base)
	cfg.Encryption = config.EncryptionConfig{Type: "test"}

	photos := filepath.Join(base, "photos")
	if err := os.MkdirAll(photos, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(photos, "IMG_0001.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	ext := testutil.NewStubExtractor(nil)
	ext.SetTags(path, map[string]string{
		"DateTimeOriginal":   "2023:07:15 10:00:00",
		"OffsetTimeOriginal": "+02:00",
	})
	return &appFixture{cfg: cfg, photos: photos, extractor: ext}
}

func (f *appFixture) open(t *testing.T, operation string) *ExifrecApp {
	t.Helper()
	a, err := newExifrecApp(context.Background(), f.cfg, operation, false, f.extractor)
	if err != nil {
		t.Fatalf("newExifrecApp() error = %v", err)
	}
	return a
}

func (f *appFixture) remoteVersion(t *testing.T) int64 {
	t.Helper()
	v, err := vault.NewVaultFromConfig(context.Background(), f.cfg.Vaults[0])
	if err != nil {
		t.Fatalf("NewVaultFromConfig() error = %v", err)
	}
	version, err := v.GetMetadataVersion(f.cfg.HostID, "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	return version
}

func TestExifrecApp_Scan(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	f.cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "exifrec.prom")

	a := f.open(t, "scan")
	summary, err := a.Scan(ctx, f.photos, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := summary.Counts[exifrec.OutcomeReview]; got != 1 {
		t.Errorf("review = %d, want 1 (files %+v)", got, summary.Files)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if v := f.remoteVersion(t); v != 1 {
		t.Errorf("remote db version = %d, want 1", v)
	}
	data, err := os.ReadFile(f.cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("reading metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), `exifrec_files_total{command="scan",outcome="review"} 1`) {
		t.Errorf("metrics textfile = %s", data)
	}

	// Reopening against the uploaded copy is fine.
	a = f.open(t, "log")
	h, err := a.FileHistory(ctx, filepath.Join(f.photos, "IMG_0001.jpg"))
	if err != nil {
		t.Fatalf("FileHistory() error = %v", err)
	}
	if len(h.Snapshots) != 1 {
		t.Errorf("len(Snapshots) = %d, want 1", len(h.Snapshots))
	}
	ops, err := a.Operations(ctx, 10)
	if err != nil {
		t.Fatalf("Operations() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "scan" || ops[0].Status != StatusSuccess {
		t.Errorf("Operations() = %+v, want one successful scan", ops)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestExifrecApp_Check(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)

	a := f.open(t, "check")
	if _, err := a.Check(ctx, f.photos, ScanOptions{Filter: "("}); err == nil {
		t.Error("Check() expected error for invalid filter")
	}
	summary, err := a.Check(ctx, f.photos, ScanOptions{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(summary.Files) != 1 {
		t.Errorf("len(Files) = %d, want 1", len(summary.Files))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if v := f.remoteVersion(t); v != 0 {
		t.Errorf("remote db version = %d, want 0 after a read-only command", v)
	}
}

func TestExifrecApp_AcceptAll(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)

	a := f.open(t, "scan")
	if _, err := a.Scan(ctx, f.photos, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	a.Close()

	a = f.open(t, "review")
	committed, remaining, err := a.AcceptAll(ctx)
	if err != nil {
		t.Fatalf("AcceptAll() error = %v", err)
	}
	if committed != 1 || len(remaining) != 0 {
		t.Errorf("AcceptAll() = %d, %d remaining, want 1, 0", committed, len(remaining))
	}
	pending, err := a.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(Pending) = %d, want 0", len(pending))
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if v := f.remoteVersion(t); v != 2 {
		t.Errorf("remote db version = %d, want 2", v)
	}
}

func TestExifrecApp_LocalBehindRemote(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)

	a := f.open(t, "scan")
	if _, err := a.Scan(ctx, f.photos, ScanOptions{}); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A fresh local database has seen fewer operations than the vault copy.
	f.cfg.Database.DataDir = filepath.Join(t.TempDir(), "db")
	_, err := newExifrecApp(ctx, f.cfg, "scan", false, f.extractor)
	if err == nil || !strings.Contains(err.Error(), "behind remote") {
		t.Fatalf("newExifrecApp() error = %v, want local behind remote", err)
	}
}

func TestExifrecApp_NoVaults(t *testing.T) {
	f := newAppFixture(t)
	f.cfg.Vaults = nil

	if _, err := newExifrecApp(context.Background(), f.cfg, "scan", false, f.extractor); err == nil {
		t.Fatal("newExifrecApp() expected error without vaults")
	}
}

func TestSetupKeys(t *testing.T) {
	base := t.TempDir()
	cfg := config.NewConfig("host-1", base)

	needs, err := NeedsKeySetup(cfg)
	if err != nil {
		t.Fatalf("NeedsKeySetup() error = %v", err)
	}
	if !needs {
		t.Fatal("NeedsKeySetup() = false before setup")
	}
	if err := SetupKeys(cfg, "correct horse"); err != nil {
		t.Fatalf("SetupKeys() error = %v", err)
	}
	if needs, _ := NeedsKeySetup(cfg); needs {
		t.Error("NeedsKeySetup() = true after setup")
	}

	cfg.Encryption = config.EncryptionConfig{Type: "none"}
	if needs, _ := NeedsKeySetup(cfg); needs {
		t.Error("NeedsKeySetup() = true without encryption")
	}
}
