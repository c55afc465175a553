package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, true},
		{"unique", &pgconn.PgError{Code: "23505"}, false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestConstraintClassification(t *testing.T) {
	uniq := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_tenants_slug"})
	name, ok := IsUniqueViolation(uniq)
	if !ok || name != "uq_tenants_slug" {
		t.Errorf("want unique violation on uq_tenants_slug, got %q %v", name, ok)
	}

	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 should be a foreign key violation")
	}
	if !IsCheckViolation(&pgconn.PgError{Code: "23514"}) {
		t.Error("23514 should be a check violation")
	}
	if !IsNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)) {
		t.Error("wrapped ErrRecordNotFound should be not found")
	}
}
