package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zcox/messagedb-agent/internal/port/eventstore"
)

func TestMapAppendErrorConcurrency(t *testing.T) {
	pgErr := &pgconn.PgError{
		Severity: "ERROR",
		Code:     "P0001",
		Message:  "Wrong expected version: 3 (Stream: agent:v0-t1, Stream Version: 5)",
	}

	err := mapAppendError("agent:v0-t1", 3, pgErr)
	if !eventstore.IsConcurrencyConflict(err) {
		t.Fatalf("error = %v, want concurrency conflict", err)
	}

	var conflict *eventstore.ConcurrencyError
	if !errors.As(err, &conflict) {
		t.Fatal("not a *ConcurrencyError")
	}
	if conflict.Stream != "agent:v0-t1" || conflict.Expected != 3 || conflict.Actual != 5 {
		t.Errorf("conflict = %+v", conflict)
	}
}

func TestMapAppendErrorOther(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "57P01", Message: "terminating connection"}

	err := mapAppendError("agent:v0-t1", 3, pgErr)
	if eventstore.IsConcurrencyConflict(err) {
		t.Fatal("unrelated pg errors must not map to concurrency conflicts")
	}

	var storeErr *eventstore.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %T, want *StoreError", err)
	}
}

func TestParseActualVersion(t *testing.T) {
	cases := []struct {
		message string
		want    int64
	}{
		{"Wrong expected version: 3 (Stream: s, Stream Version: 5)", 5},
		{"Wrong expected version: -1 (Stream: s, Stream Version: 0)", 0},
		{"Wrong expected version: 3", -1},
		{"Stream Version: notanumber)", -1},
	}

	for _, tc := range cases {
		if got := parseActualVersion(tc.message); got != tc.want {
			t.Errorf("parseActualVersion(%q) = %d, want %d", tc.message, got, tc.want)
		}
	}
}
