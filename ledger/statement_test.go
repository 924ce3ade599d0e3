package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

func TestWriteStatementCSV(t *testing.T) {
	lines := []store.TransactionLine{
		{
			Transaction: model.Transaction{
				Description: "Rent, March",
				Amount:      dec("1200.5"),
				Kind:        model.KindExpense,
				OccurredAt:  time.Date(2024, 3, 5, 14, 30, 59, 0, time.UTC),
			},
			ActorName: "alice",
		},
		{
			Transaction: model.Transaction{
				Description: "Salary",
				Amount:      dec("3000"),
				Kind:        model.KindIncome,
				OccurredAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, lines); err != nil {
		t.Fatal(err)
	}

	want := "\uFEFFDate,Description,Type,Amount,CreatedBy\r\n" +
		"2024-03-05 14:30,Rent  March,Expense,1200.50,alice\r\n" +
		"2024-03-01 09:00,Salary,Income,3000.00,Unknown\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("csv mismatch\n got=%q\nwant=%q", got, want)
	}
}

func TestWriteStatementCSVNeverQuotes(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	lines := []store.TransactionLine{
		{Transaction: model.Transaction{Description: `Paid "cash"`, Amount: dec("5"), Kind: model.KindIncome, OccurredAt: at}, ActorName: "bob"},
		{Transaction: model.Transaction{Description: ",leading comma", Amount: dec("5"), Kind: model.KindIncome, OccurredAt: at}, ActorName: "bob"},
	}

	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, lines); err != nil {
		t.Fatal(err)
	}

	want := "\uFEFFDate,Description,Type,Amount,CreatedBy\r\n" +
		"2024-03-05 14:30,Paid \"cash\",Income,5.00,bob\r\n" +
		"2024-03-05 14:30, leading comma,Income,5.00,bob\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("csv mismatch\n got=%q\nwant=%q", got, want)
	}
}

func TestWriteStatementCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "\uFEFFDate,Description,Type,Amount,CreatedBy\r\n"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestStatementOrderAndCreatorFilter(t *testing.T) {
	f := newFixture(t)
	a := f.openAccount(t, f.alice, "Household", "0")
	if err := f.svc.ShareAccount(context.Background(), f.alice, a.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []struct {
		by   uuid.UUID
		desc string
		at   time.Time
	}{
		{f.alice.UserID, "groceries", day},
		{f.bob.UserID, "power bill", day.AddDate(0, 0, 2)},
		{f.alice.UserID, "refund", day.AddDate(0, 0, 1)},
	}
	for _, e := range entries {
		p := f.alice
		if e.by == f.bob.UserID {
			p = f.bob
		}
		_, err := f.svc.CreateTransaction(context.Background(), p, CreateTransactionParams{
			AccountID: a.ID, Description: e.desc, Amount: dec("10"), Kind: model.KindExpense, OccurredAt: e.at,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := f.svc.Statement(context.Background(), f.alice, a.ID, StatementFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, l := range all {
		order = append(order, l.Description)
	}
	if len(order) != 3 || order[0] != "power bill" || order[1] != "refund" || order[2] != "groceries" {
		t.Fatalf("order=%v want newest first", order)
	}
	if all[0].ActorName != "bob" {
		t.Fatalf("actor=%q want=bob", all[0].ActorName)
	}

	onlyBob, err := f.svc.Statement(context.Background(), f.alice, a.ID, StatementFilter{
		CreatedBy: uuid.NullUUID{UUID: f.bob.UserID, Valid: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyBob) != 1 || onlyBob[0].Description != "power bill" {
		t.Fatalf("filtered=%+v", onlyBob)
	}
}

func TestStatementRequiresReadAccess(t *testing.T) {
	f := newFixture(t)
	a := f.openAccount(t, f.alice, "Private", "0")
	if _, err := f.svc.Statement(context.Background(), f.bob, a.ID, StatementFilter{}); err == nil {
		t.Fatal("want error for a stranger")
	}
	if _, err := f.svc.Reconcile(context.Background(), f.bob, a.ID); err == nil {
		t.Fatal("want error for a stranger")
	}
}
