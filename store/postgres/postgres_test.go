package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/billbatista/acasinha-office/model"
	"github.com/lib/pq"
)

func TestTranslate(t *testing.T) {
	driverErr := errors.New("connection reset by peer")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, model.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), model.ErrNotFound},
		{"foreign key", &pq.Error{Code: foreignKeyViolation, Constraint: "transactions_account_id_fkey"}, model.ErrHasDependents},
		{"unique", &pq.Error{Code: uniqueViolation, Constraint: "users_username_key"}, model.ErrConflict},
		{"other pq code", &pq.Error{Code: "40P01"}, nil},
		{"driver error", driverErr, driverErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.err, "doing work")
			if got == nil {
				t.Fatal("want an error")
			}
			if !strings.HasPrefix(got.Error(), "doing work: ") {
				t.Fatalf("err=%q want context prefix", got)
			}
			if tc.want != nil && !errors.Is(got, tc.want) {
				t.Fatalf("err=%v want %v", got, tc.want)
			}
			for _, sentinel := range []error{model.ErrNotFound, model.ErrHasDependents, model.ErrConflict} {
				if sentinel != tc.want && errors.Is(got, sentinel) {
					t.Fatalf("err=%v must not match %v", got, sentinel)
				}
			}
		})
	}

	if err := translate(nil, "doing work"); err != nil {
		t.Fatalf("translate(nil)=%v", err)
	}
}

func TestTranslateKeepsConstraintName(t *testing.T) {
	err := translate(&pq.Error{Code: foreignKeyViolation, Constraint: "invoice_payments_fkey"}, "deleting invoice")
	if !strings.Contains(err.Error(), "invoice_payments_fkey") {
		t.Fatalf("err=%q", err)
	}
}

type result struct {
	rows int64
	err  error
}

func (r result) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r result) RowsAffected() (int64, error) { return r.rows, r.err }

func TestConflictIfNone(t *testing.T) {
	if err := conflictIfNone(result{rows: 1}, "inserting grant"); err != nil {
		t.Fatalf("one row inserted: %v", err)
	}
	if err := conflictIfNone(result{rows: 0}, "inserting grant"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("nothing inserted: want ErrConflict, got %v", err)
	}
	if err := conflictIfNone(result{err: errors.New("driver")}, "inserting grant"); err == nil || errors.Is(err, model.ErrConflict) {
		t.Fatalf("driver failure: got %v", err)
	}
}

func TestExpectOne(t *testing.T) {
	if err := expectOne(result{rows: 1}, "updating balance"); err != nil {
		t.Fatal(err)
	}
	if err := expectOne(result{rows: 0}, "updating balance"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
