package testutil

import (
	"testing"

	"exifrec-go/internal/database"
	"exifrec-go/internal/detect"
	"exifrec-go/internal/exifrec"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
	"exifrec-go/internal/vault"
)

// FixedResolver resolves every coordinate to the same offset.
type FixedResolver struct {
	Offset media.Offset
	Err    error
}

func (r FixedResolver) Resolve(media.Coordinate, media.Instant) (media.Offset, error) {
	return r.Offset, r.Err
}

// ServiceEnv is a service wired to in-memory components.
type ServiceEnv struct {
	Service   *exifrec.Service
	DB        *database.SQLiteDatabase
	FS        *MockFilesystemManager
	Extractor *StubExtractor
	Vault     *vault.MemoryVault
	Clock     *StubClock
}

// EnvOptions tunes NewServiceEnv.
type EnvOptions struct {
	Database  database.Options
	Encryptor exifrec.Encryptor // nil stores backups in plain form
	Resolver  infer.OffsetResolver
	Recorder  exifrec.Recorder
	Workers   int
}

// NewServiceEnv wires a service with the default engine, an in-memory
// store, vault and filesystem, and a stub extractor.
func NewServiceEnv(t *testing.T, opts EnvOptions) *ServiceEnv {
	t.Helper()

	fsmgr := NewMockFilesystemManager()
	if opts.Database.Exists == nil {
		opts.Database.Exists = fsmgr.Exists
	}
	env := &ServiceEnv{
		DB:        NewTestDatabase(t, opts.Database),
		FS:        fsmgr,
		Extractor: NewStubExtractor(fsmgr),
		Vault:     NewTestVault(),
		Clock:     FixedClock(),
	}

	tables := media.DefaultTagTables()
	engine := exifrec.NewEngine(
		detect.Default(tables),
		infer.Default(tables, opts.Resolver, infer.DefaultOptions()),
	)
	env.Service = exifrec.NewService(
		env.DB,
		env.Extractor,
		env.FS,
		env.Vault,
		opts.Encryptor,
		engine,
		exifrec.NewNopLogger(),
		env.Clock,
		exifrec.ServiceOptions{Tables: tables, Workers: opts.Workers, Recorder: opts.Recorder},
	)
	return env
}

// AddPhoto adds a file to the filesystem and its tags to the extractor.
func (e *ServiceEnv) AddPhoto(path string, content string, tags map[string]string) {
	e.FS.AddFile(path, []byte(content), e.Clock.Now())
	e.Extractor.SetTags(path, tags)
}
