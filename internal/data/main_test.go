package data

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/db/dbtest"
)

func openTestDBConnectionPool(t *testing.T) db.DBConnectionPool {
	t.Helper()

	dbt := dbtest.Open(t)
	t.Cleanup(dbt.Close)

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { dbConnectionPool.Close() })

	return dbConnectionPool
}

func Test_NewModels(t *testing.T) {
	_, err := NewModels(nil)
	require.EqualError(t, err, "dbConnectionPool is required for NewModels")
}
