package db

import (
	"context"
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/photoproof/photoproof-backend/db/migrations"
	"github.com/photoproof/photoproof-backend/internal/utils"
)

const MigrationsTableName = "photoproof_migrations"

// Migrate applies up to count migrations in the given direction. A count of 0 applies all of them.
func Migrate(dbURL string, dir migrate.MigrationDirection, count int) (int, error) {
	dbConnectionPool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, fmt.Errorf("database URL '%s': %w", utils.TruncateString(dbURL, len(dbURL)/4), err)
	}
	defer dbConnectionPool.Close()

	ms := migrate.MigrationSet{TableName: MigrationsTableName}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}

	db, err := dbConnectionPool.SqlDB(context.Background())
	if err != nil {
		return 0, fmt.Errorf("fetching sql.DB: %w", err)
	}
	return ms.ExecMax(db, dbConnectionPool.DriverName(), m, dir, count)
}
