package exifrec_test

import (
	"context"
	"errors"
	"testing"

	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/testutil"
)

func TestService_History(t *testing.T) {
	ctx := context.Background()

	t.Run("untracked file", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{})
		_, err := env.Service.History(ctx, "/photos/none.jpg")
		if !errors.Is(err, exifrec.ErrNotTracked) {
			t.Errorf("History() error = %v, want ErrNotTracked", err)
		}
	})

	t.Run("imported and accepted file", func(t *testing.T) {
		env := testutil.NewServiceEnv(t, testutil.EnvOptions{})
		env.AddPhoto("/photos/IMG_0001.jpg", "one", plainTags)
		scan(t, env, "/photos", exifrec.ScanOptions{})
		if _, _, err := env.Service.AcceptAll(ctx); err != nil {
			t.Fatalf("AcceptAll() error = %v", err)
		}

		h, err := env.Service.History(ctx, "/photos/IMG_0001.jpg")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if h.Identity.Path != "/photos/IMG_0001.jpg" {
			t.Errorf("Identity.Path = %q", h.Identity.Path)
		}
		if len(h.Snapshots) != 2 {
			t.Fatalf("len(Snapshots) = %d, want 2", len(h.Snapshots))
		}
		if h.Snapshots[0].Origin != exifrec.OriginExtracted || h.Snapshots[1].Origin != exifrec.OriginAccepted {
			t.Errorf("origins = %q, %q, want extracted then accepted", h.Snapshots[0].Origin, h.Snapshots[1].Origin)
		}
		if len(h.ChangeSets) != 1 || h.ChangeSets[0].Status != exifrec.StatusCommitted {
			t.Errorf("ChangeSets = %+v, want one committed", h.ChangeSets)
		}
		if len(h.Backups) != 0 {
			t.Errorf("len(Backups) = %d, want 0", len(h.Backups))
		}
	})
}

func TestService_Operations(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewServiceEnv(t, testutil.EnvOptions{})

	for _, op := range []string{"scan", "apply"} {
		id, err := env.DB.CreateOperation(ctx, op, "/photos")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if err := env.DB.FinishOperation(ctx, id, "success"); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}
	}

	ops, err := env.Service.Operations(ctx, 10)
	if err != nil {
		t.Fatalf("Operations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(Operations) = %d, want 2", len(ops))
	}
	if ops[0].Operation != "apply" {
		t.Errorf("newest operation = %q, want apply", ops[0].Operation)
	}
}
