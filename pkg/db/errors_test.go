package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx code", err: &pgconn.PgError{Code: "23505", ConstraintName: "favorites_user_store_key"}, want: true},
		{name: "pgx constraint match", err: &pgconn.PgError{Code: "23505", ConstraintName: "favorites_user_store_key"}, constraint: "favorites_user_store_key", want: true},
		{name: "pgx constraint mismatch", err: &pgconn.PgError{Code: "23505", ConstraintName: "other"}, constraint: "favorites_user_store_key", want: false},
		{name: "pq code", err: fmt.Errorf("wrap: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: reviews.store_id, reviews.user_id"), want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPolicyViolation(t *testing.T) {
	if !IsPolicyViolation(&pgconn.PgError{Code: "42501"}) {
		t.Fatal("expected 42501 to be a policy violation")
	}
	if !IsPolicyViolation(errors.New(`new row violates row-level security policy for table "collaborations"`)) {
		t.Fatal("expected rls message to be a policy violation")
	}
	if IsPolicyViolation(errors.New("timeout")) {
		t.Fatal("timeout is not a policy violation")
	}
}

func TestIsMissingRelation(t *testing.T) {
	if !IsMissingRelation(&pgconn.PgError{Code: "42P01"}) {
		t.Fatal("expected 42P01 to be a missing relation")
	}
	if !IsMissingRelation(errors.New(`relation "collaborations" does not exist`)) {
		t.Fatal("expected message match")
	}
	if !IsMissingRelation(errors.New("no such table: collaborations")) {
		t.Fatal("expected sqlite message match")
	}
	if IsMissingRelation(errors.New(`column "foo" does not exist`)) {
		t.Fatal("missing column should not match")
	}
	if SQLState(errors.New("plain")) != "" {
		t.Fatal("expected empty sqlstate for plain errors")
	}
}
