package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestExtractMarker(t *testing.T) {
	query := "--sql 9b79c57c-3615-48a2-9d85-3426d5b3f7eb\nselect 1;\n"
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "9b79c57c-3615-48a2-9d85-3426d5b3f7eb" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}

	if _, _, err := extractMarker("select 1;"); err == nil {
		t.Fatalf("expected error for missing marker")
	}
	if _, _, err := extractMarker("--sql not-a-uuid\nselect 1;"); err == nil {
		t.Fatalf("expected error for invalid marker")
	}
}

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert donation: %w", &pgconn.PgError{Code: "23505", ConstraintName: "donations_external_session_id_key"})
	constraint, ok := UniqueViolation(err)
	if !ok || constraint != "donations_external_session_id_key" {
		t.Fatalf("UniqueViolation() = %q, %v", constraint, ok)
	}
	if _, ok := UniqueViolation(&pgconn.PgError{Code: "23503"}); ok {
		t.Fatalf("foreign key violation reported as unique violation")
	}
	if _, ok := UniqueViolation(errors.New("boom")); ok {
		t.Fatalf("plain error reported as unique violation")
	}
}

func TestCheckViolation(t *testing.T) {
	err := fmt.Errorf("insert campaign: %w", &pgconn.PgError{Code: "23514", ConstraintName: "campaigns_title_check"})
	constraint, ok := CheckViolation(err)
	if !ok || constraint != "campaigns_title_check" {
		t.Fatalf("CheckViolation() = %q, %v", constraint, ok)
	}
	if _, ok := CheckViolation(&pgconn.PgError{Code: "23505"}); ok {
		t.Fatalf("unique violation reported as check violation")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatalf("unexpected no rows")
	}
}
