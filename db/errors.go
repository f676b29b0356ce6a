package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolationCode     = pq.ErrorCode("23505")
	foreignKeyViolationCode = pq.ErrorCode("23503")
)

// UniqueViolationConstraint returns the name of the unique constraint or index violated by err, if any.
func UniqueViolationConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolationCode {
		return "", false
	}
	return pqErr.Constraint, true
}

// IsForeignKeyViolation reports whether err was caused by a reference to a missing row.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolationCode
}
