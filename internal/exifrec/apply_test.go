package exifrec_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"exifrec-go/internal/database"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/media"
	"exifrec-go/internal/testutil"
)

// queueRepair imports a file with an invalid hour and commits the repair,
// leaving one pending write-back.
func queueRepair(t *testing.T, env *testutil.ServiceEnv, path, content string) {
	t.Helper()
	env.AddPhoto(path, content, brokenHourTags)
	scan(t, env, path, exifrec.ScanOptions{})
	committed, _, err := env.Service.AcceptAll(context.Background())
	if err != nil {
		t.Fatalf("AcceptAll() error = %v", err)
	}
	if committed != 1 {
		t.Fatalf("AcceptAll() committed = %d, want 1", committed)
	}
}

func applyOne(t *testing.T, env *testutil.ServiceEnv) exifrec.ApplyReport {
	t.Helper()
	reports, err := env.Service.ApplyPending(context.Background())
	if err != nil {
		t.Fatalf("ApplyPending() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	return reports[0]
}

func TestService_ApplyPending(t *testing.T) {
	ctx := context.Background()
	const path = "/photos/IMG_0001.jpg"
	want := media.TagWrite{Tag: "CreateDate", Value: "2023:07:16 00:00:00"}

	t.Run("nothing pending", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{})
		reports, err := env.Service.ApplyPending(ctx)
		if err != nil {
			t.Fatalf("ApplyPending() error = %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("len(reports) = %d, want 0", len(reports))
		}
	})

	t.Run("writes, backs up and confirms", func(t *testing.T) {
		rec := newCountingRecorder()
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{Recorder: rec})
		queueRepair(t, env, path, "original bytes")

		r := applyOne(t, env)
		if r.Err != nil {
			t.Fatalf("report Err = %v", r.Err)
		}
		if !r.Confirmed || r.State != exifrec.WriteBackClean {
			t.Errorf("Confirmed = %v, State = %q, want confirmed and clean", r.Confirmed, r.State)
		}

		writes := env.Extractor.Writes(path)
		if len(writes) != 1 || len(writes[0]) != 1 || writes[0][0] != want {
			t.Errorf("writes = %+v, want [[%+v]]", writes, want)
		}

		hash := testutil.HashHex([]byte("original bytes"))
		if r.Backup == nil || r.Backup.VaultKey != hash || r.Backup.Encrypted {
			t.Fatalf("Backup = %+v, want plain copy under %s", r.Backup, hash)
		}
		var buf bytes.Buffer
		if err := env.Vault.GetContent(hash, &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != "original bytes" {
			t.Errorf("vault content = %q, want the original bytes", buf.String())
		}

		idRec, _ := env.DB.FindIdentity(ctx, path)
		if idRec.WriteBackState != exifrec.WriteBackClean {
			t.Errorf("WriteBackState = %q, want clean", idRec.WriteBackState)
		}
		pending, _ := env.DB.PendingWriteBacks(ctx)
		if len(pending) != 0 {
			t.Errorf("len(PendingWriteBacks) = %d, want 0", len(pending))
		}
		if rec.writes[true] != 1 {
			t.Errorf("recorded writes = %v, want one success", rec.writes)
		}
	})

	t.Run("encrypts the backup", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{Encryptor: testutil.NewTestEncryptor()})
		queueRepair(t, env, path, "original bytes")

		r := applyOne(t, env)
		if r.Err != nil {
			t.Fatalf("report Err = %v", r.Err)
		}
		hash := testutil.HashHex([]byte("original bytes"))
		if r.Backup == nil || r.Backup.VaultKey != hash+".age" || !r.Backup.Encrypted {
			t.Fatalf("Backup = %+v, want encrypted copy under %s.age", r.Backup, hash)
		}
		var buf bytes.Buffer
		if err := env.Vault.GetContent(hash+".age", &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if bytes.Equal(buf.Bytes(), []byte("original bytes")) {
			t.Error("vault holds the plain bytes, want ciphertext")
		}
		if ok, _ := env.Vault.HasContent(hash); ok {
			t.Error("plain copy stored next to the encrypted one")
		}
	})

	t.Run("failed write stays pending", func(t *testing.T) {
		rec := newCountingRecorder()
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{
			Database: database.Options{MaxWriteBackAttempts: 2},
			Recorder: rec,
		})
		queueRepair(t, env, path, "original bytes")
		env.Extractor.FailWrite(path, errors.New("file is read-only"))

		r := applyOne(t, env)
		if !errors.Is(r.Err, exifrec.ErrWriteBackFailure) {
			t.Fatalf("report Err = %v, want ErrWriteBackFailure", r.Err)
		}
		if r.State != exifrec.WriteBackPending {
			t.Errorf("State = %q, want pending", r.State)
		}
		if r.Backup == nil {
			t.Error("Backup = nil, want the original stored before writing")
		}
		if got := env.FS.Content(path); string(got) != "original bytes" {
			t.Errorf("file content = %q, want untouched", got)
		}

		r = applyOne(t, env)
		if r.State != exifrec.WriteBackFailed {
			t.Errorf("second attempt State = %q, want failed", r.State)
		}
		pending, _ := env.DB.PendingWriteBacks(ctx)
		if len(pending) != 0 {
			t.Errorf("len(PendingWriteBacks) = %d, want 0 after max attempts", len(pending))
		}
		if rec.writes[false] != 2 {
			t.Errorf("recorded failed writes = %d, want 2", rec.writes[false])
		}
	})

	t.Run("refuses a file changed since the scan", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{})
		queueRepair(t, env, path, "original bytes")
		if err := env.FS.SetContent(path, []byte("edited elsewhere")); err != nil {
			t.Fatalf("SetContent() error = %v", err)
		}

		r := applyOne(t, env)
		if !errors.Is(r.Err, exifrec.ErrContentChanged) {
			t.Fatalf("report Err = %v, want ErrContentChanged", r.Err)
		}
		if n := len(env.Extractor.Writes(path)); n != 0 {
			t.Errorf("writes = %d, want 0", n)
		}
		idRec, _ := env.DB.FindIdentity(ctx, path)
		if idRec.WriteBackAttempts != 0 {
			t.Errorf("WriteBackAttempts = %d, want 0", idRec.WriteBackAttempts)
		}
	})

	t.Run("written file is confirmed by the next scan", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{})
		queueRepair(t, env, path, "original bytes")
		applyOne(t, env)

		summary := scan(t, env, "/photos", exifrec.ScanOptions{})
		if got := summary.Counts[exifrec.OutcomeSkipped]; got != 1 {
			t.Errorf("skipped = %d, want 1 once the write is confirmed", got)
		}
	})
}
