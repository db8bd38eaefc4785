package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the services react to.
const (
	SQLStateUniqueViolation       = "23505"
	SQLStateInsufficientPrivilege = "42501"
	SQLStateUndefinedTable        = "42P01"
)

// SQLState extracts the Postgres error code from pgx or lib/pq errors.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation reports whether the provided error references a unique
// violation. When constraintName is provided, the helper also requires the
// constraint name to match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	hit := SQLState(err) == SQLStateUniqueViolation ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	if !hit {
		return false
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName) || constraintOf(err) == constraintName
	}
	return true
}

// IsPolicyViolation reports permission or row-level-security rejections.
func IsPolicyViolation(err error) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == SQLStateInsufficientPrivilege {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "row-level security") || strings.Contains(msg, "permission denied")
}

// IsMissingRelation reports errors caused by a table or relation that does not exist.
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == SQLStateUndefinedTable {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

func constraintOf(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
