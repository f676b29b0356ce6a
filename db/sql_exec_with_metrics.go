package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/monitor"
)

type QueryType string

const (
	DeleteQueryType    QueryType = "DELETE"
	InsertQueryType    QueryType = "INSERT"
	SelectQueryType    QueryType = "SELECT"
	UndefinedQueryType QueryType = "UNDEFINED"
	UpdateQueryType    QueryType = "UPDATE"
)

func NewSQLExecuterWithMetrics(sqlExec SQLExecuter, monitorServiceInterface monitor.MonitorServiceInterface) *SQLExecuterWithMetrics {
	return &SQLExecuterWithMetrics{
		SQLExecuter:             sqlExec,
		monitorServiceInterface: monitorServiceInterface,
	}
}

// SQLExecuterWithMetrics is a wrapper around SQLExecuter that reports every query duration to the monitor service.
type SQLExecuterWithMetrics struct {
	SQLExecuter
	monitorServiceInterface monitor.MonitorServiceInterface
}

var _ SQLExecuter = (*SQLExecuterWithMetrics)(nil)

func (sqlExec *SQLExecuterWithMetrics) monitorDBQueryDuration(duration time.Duration, query string, err error) {
	labels := monitor.DBQueryLabels{
		QueryType: string(getQueryType(query)),
	}
	errMetric := sqlExec.monitorServiceInterface.MonitorDBQueryDuration(duration, getMetricTag(err), labels)
	if errMetric != nil {
		log.Errorf("Error trying to monitor db query duration: %s", errMetric)
	}
}

func (sqlExec *SQLExecuterWithMetrics) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()
	err := sqlExec.SQLExecuter.GetContext(ctx, dest, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return err
}

func (sqlExec *SQLExecuterWithMetrics) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	then := time.Now()
	err := sqlExec.SQLExecuter.SelectContext(ctx, dest, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return err
}

func (sqlExec *SQLExecuterWithMetrics) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	then := time.Now()
	result, err := sqlExec.SQLExecuter.ExecContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return result, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	then := time.Now()
	rows, err := sqlExec.SQLExecuter.QueryContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	then := time.Now()
	rows, err := sqlExec.SQLExecuter.QueryxContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, err)
	return rows, err
}

func (sqlExec *SQLExecuterWithMetrics) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	then := time.Now()
	row := sqlExec.SQLExecuter.QueryRowxContext(ctx, query, args...)
	sqlExec.monitorDBQueryDuration(time.Since(then), query, row.Err())
	return row
}

// getMetricTag treats sql.ErrNoRows as a successful query: lookups that find nothing are expected.
func getMetricTag(err error) monitor.MetricTag {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return monitor.FailureQueryDurationTag
	}
	return monitor.SuccessfulQueryDurationTag
}

// getQueryType returns the statement type of the query. Queries starting with a CTE are classified by the data
// modifying statement they contain, or as SELECT.
func getQueryType(query string) QueryType {
	words := strings.Fields(strings.ToUpper(query))
	if len(words) == 0 {
		return UndefinedQueryType
	}

	switch qt := QueryType(words[0]); qt {
	case DeleteQueryType, InsertQueryType, SelectQueryType, UpdateQueryType:
		return qt
	case "WITH":
		for _, word := range words[1:] {
			if qt := QueryType(word); qt == DeleteQueryType || qt == InsertQueryType || qt == UpdateQueryType {
				return qt
			}
		}
		return SelectQueryType
	}
	return UndefinedQueryType
}
