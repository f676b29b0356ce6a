package dbtest

import (
	"net/http"
	"os"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go-stellar-sdk/support/db/dbtest"

	"github.com/photoproof/photoproof-backend/db/migrations"
)

// OpenWithoutMigrations creates a fresh Postgres database for the test. Tests are skipped when no Postgres server is
// configured through PGHOST.
func OpenWithoutMigrations(t *testing.T) *dbtest.DB {
	t.Helper()

	if os.Getenv("PGHOST") == "" {
		t.Skip("PGHOST is not set, skipping test that requires Postgres")
	}
	return dbtest.Postgres(t)
}

// Open creates a fresh Postgres database with all migrations applied.
func Open(t *testing.T) *dbtest.DB {
	t.Helper()

	db := OpenWithoutMigrations(t)

	conn := db.Open()
	defer conn.Close()

	ms := migrate.MigrationSet{TableName: "photoproof_migrations"}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	if _, err := ms.ExecMax(conn.DB, "postgres", m, migrate.Up, 0); err != nil {
		t.Fatal(err)
	}

	return db
}
