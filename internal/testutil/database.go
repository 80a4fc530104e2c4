package testutil

import (
	"testing"

	"exifrec-go/internal/database"
)

// NewTestDatabase creates an in-memory store with the schema applied, a
// fixed clock and sequential IDs. It is closed when the test completes.
func NewTestDatabase(t *testing.T, opts database.Options) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, FixedClock(), NewStubIDGenerator(), opts)
	t.Cleanup(func() { db.Close() })
	return db
}
