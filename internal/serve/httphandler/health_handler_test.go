package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/db/dbtest"
)

func Test_HealthHandler(t *testing.T) {
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)

	handler := HealthHandler{
		ReleaseID:        "1234",
		ServiceID:        "serve",
		Version:          "x.y.z",
		DBConnectionPool: dbConnectionPool,
	}

	t.Run("database reachable", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"status": "pass",
			"version": "x.y.z",
			"service_id": "serve",
			"release_id": "1234",
			"services": {"database": "pass"}
		}`, rr.Body.String())
	})

	t.Run("database unreachable", func(t *testing.T) {
		require.NoError(t, dbConnectionPool.Close())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{
			"status": "fail",
			"version": "x.y.z",
			"service_id": "serve",
			"release_id": "1234",
			"services": {"database": "fail"}
		}`, rr.Body.String())
	})
}
