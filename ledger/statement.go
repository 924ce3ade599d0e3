package ledger

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StatementFilter struct {
	// CreatedBy keeps only transactions entered by this user.
	CreatedBy uuid.NullUUID
}

// Statement lists an account's transactions, newest first.
func (s *Service) Statement(ctx context.Context, p access.Principal, accountID uuid.UUID, filter StatementFilter) ([]store.TransactionLine, error) {
	var lines []store.TransactionLine
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccount(ctx, tx, p, accountID, false); err != nil {
			return err
		}
		var err error
		lines, err = tx.AccountTransactions(ctx, accountID, filter.CreatedBy)
		return err
	})
	return lines, err
}

const statementTimeLayout = "2006-01-02 15:04"

var statementHeader = []string{"Date", "Description", "Type", "Amount", "CreatedBy"}

// Commas in free text become spaces so that spreadsheet imports split
// columns the same way they always have.
func flatten(s string) string {
	return strings.ReplaceAll(s, ",", " ")
}

// WriteStatementCSV writes lines as a UTF-8 CSV with a byte order mark and
// CRLF line endings, in the order given. Fields are written as they are,
// never quoted; commas in free text have already been flattened.
func WriteStatementCSV(w io.Writer, lines []store.TransactionLine) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("\uFEFF")
	writeStatementRecord(bw, statementHeader)
	for _, l := range lines {
		createdBy := l.ActorName
		if createdBy == "" {
			createdBy = "Unknown"
		}
		writeStatementRecord(bw, []string{
			l.OccurredAt.Format(statementTimeLayout),
			flatten(l.Description),
			string(l.Kind),
			l.Amount.StringFixed(2),
			flatten(createdBy),
		})
	}
	return bw.Flush()
}

// bufio.Writer keeps the first write error and reports it from Flush.
func writeStatementRecord(bw *bufio.Writer, record []string) {
	bw.WriteString(strings.Join(record, ","))
	bw.WriteString("\r\n")
}

type Reconciliation struct {
	AccountID uuid.UUID       `json:"account_id"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
	Drift     decimal.Decimal `json:"drift"`
}

func (r Reconciliation) Balanced() bool {
	return r.Drift.IsZero()
}

// Reconcile recomputes the balance from the opening balance and every
// transaction and compares it with the stored one.
func (s *Service) Reconcile(ctx context.Context, p access.Principal, accountID uuid.UUID) (Reconciliation, error) {
	var r Reconciliation
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		account, err := access.RequireAccount(ctx, tx, p, accountID, false)
		if err != nil {
			return err
		}
		lines, err := tx.AccountTransactions(ctx, accountID, uuid.NullUUID{})
		if err != nil {
			return err
		}
		expected := account.OpeningBalance
		for _, l := range lines {
			expected = expected.Add(l.Kind.Signed(l.Amount))
		}
		r = Reconciliation{
			AccountID: accountID,
			Stored:    account.Balance,
			Expected:  expected,
			Drift:     account.Balance.Sub(expected),
		}
		return nil
	})
	return r, err
}
