package postgres

import (
	"context"
	"database/sql"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, name, currency, opening_balance, balance, created_at`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.OpeningBalance, &a.Balance, &a.CreatedAt)
	return a, err
}

func (t *tx) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return model.Account{}, translate(err, "querying account")
	}
	return a, nil
}

func (t *tx) HasGrant(ctx context.Context, accountID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM account_access WHERE account_id = $1 AND user_id = $2)`
	var ok bool
	if err := t.tx.QueryRowContext(ctx, query, accountID, userID).Scan(&ok); err != nil {
		return false, translate(err, "querying grant")
	}
	return ok, nil
}

func (t *tx) UserByUsername(ctx context.Context, username string) (model.User, error) {
	query := `SELECT id, username, email, role, created_at FROM users WHERE lower(username) = lower($1)`
	var u model.User
	err := t.tx.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, translate(err, "querying user")
	}
	return u, nil
}

func (t *tx) InsertAccount(ctx context.Context, a model.Account) error {
	query := `INSERT INTO accounts (id, user_id, name, currency, opening_balance, balance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.tx.ExecContext(ctx, query, a.ID, a.OwnerID, a.Name, a.Currency, a.OpeningBalance, a.Balance, a.CreatedAt)
	return translate(err, "inserting account")
}

func (t *tx) UpdateAccount(ctx context.Context, id uuid.UUID, name, currency string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET name = $1, currency = $2 WHERE id = $3`, name, currency, id)
	if err != nil {
		return translate(err, "updating account")
	}
	return expectOne(res, "updating account")
}

func (t *tx) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return translate(err, "deleting account")
	}
	return expectOne(res, "deleting account")
}

func (t *tx) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + `
              FROM accounts
              WHERE user_id = $1
                 OR id IN (SELECT account_id FROM account_access WHERE user_id = $1)
              ORDER BY name`

	rows, err := t.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translate(err, "querying accounts")
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (t *tx) OldestOwnedAccount(ctx context.Context, userID uuid.UUID) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1`
	a, err := scanAccount(t.tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		return model.Account{}, translate(err, "querying owned account")
	}
	return a, nil
}

func (t *tx) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, delta, accountID)
	if err != nil {
		return translate(err, "updating balance")
	}
	return expectOne(res, "updating balance")
}

func (t *tx) InsertGrant(ctx context.Context, g model.Grant) error {
	query := `INSERT INTO account_access (account_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	res, err := t.tx.ExecContext(ctx, query, g.AccountID, g.UserID, g.CreatedAt)
	if err != nil {
		return translate(err, "inserting grant")
	}
	return conflictIfNone(res, "inserting grant")
}

func (t *tx) DeleteGrant(ctx context.Context, accountID, userID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM account_access WHERE account_id = $1 AND user_id = $2`, accountID, userID)
	return translate(err, "deleting grant")
}

func (t *tx) DeleteGrants(ctx context.Context, accountID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM account_access WHERE account_id = $1`, accountID)
	return translate(err, "deleting grants")
}

func (t *tx) Grants(ctx context.Context, accountID uuid.UUID) ([]model.Grant, error) {
	query := `SELECT aa.account_id, aa.user_id, u.username, aa.created_at
              FROM account_access aa
              INNER JOIN users u ON u.id = aa.user_id
              WHERE aa.account_id = $1
              ORDER BY u.username`

	rows, err := t.tx.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, translate(err, "querying grants")
	}
	defer rows.Close()

	var grants []model.Grant
	for rows.Next() {
		var g model.Grant
		if err := rows.Scan(&g.AccountID, &g.UserID, &g.Username, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

const transactionColumns = `id, account_id, user_id, invoice_id, description, amount, type, occurred_at, created_at`

func (t *tx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.ExecContext(
		ctx,
		query,
		tr.ID,
		tr.AccountID,
		tr.ActorID,
		tr.InvoiceID,
		tr.Description,
		tr.Amount,
		tr.Kind,
		tr.OccurredAt,
		tr.CreatedAt,
	)
	return translate(err, "inserting transaction")
}

func (t *tx) Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	var tr model.Transaction
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&tr.ID,
		&tr.AccountID,
		&tr.ActorID,
		&tr.InvoiceID,
		&tr.Description,
		&tr.Amount,
		&tr.Kind,
		&tr.OccurredAt,
		&tr.CreatedAt,
	)
	if err != nil {
		return model.Transaction{}, translate(err, "querying transaction")
	}
	return tr, nil
}

func (t *tx) UpdateTransaction(ctx context.Context, tr model.Transaction) error {
	query := `UPDATE transactions SET description = $1, amount = $2, type = $3, occurred_at = $4 WHERE id = $5`
	res, err := t.tx.ExecContext(ctx, query, tr.Description, tr.Amount, tr.Kind, tr.OccurredAt, tr.ID)
	if err != nil {
		return translate(err, "updating transaction")
	}
	return expectOne(res, "updating transaction")
}

func (t *tx) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return translate(err, "deleting transaction")
	}
	return expectOne(res, "deleting transaction")
}

func (t *tx) CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&n)
	return n, translate(err, "counting transactions")
}

func (t *tx) AccountTransactions(ctx context.Context, accountID uuid.UUID, createdBy uuid.NullUUID) ([]store.TransactionLine, error) {
	query := `SELECT t.id, t.account_id, t.user_id, t.invoice_id, t.description, t.amount, t.type,
                     t.occurred_at, t.created_at, COALESCE(u.username, 'Unknown')
              FROM transactions t
              LEFT JOIN users u ON u.id = t.user_id
              WHERE t.account_id = $1 AND ($2::uuid IS NULL OR t.user_id = $2)
              ORDER BY t.occurred_at DESC, t.created_at DESC`

	rows, err := t.tx.QueryContext(ctx, query, accountID, createdBy)
	if err != nil {
		return nil, translate(err, "querying transactions")
	}
	defer rows.Close()

	var lines []store.TransactionLine
	for rows.Next() {
		var l store.TransactionLine
		err := rows.Scan(
			&l.ID,
			&l.AccountID,
			&l.ActorID,
			&l.InvoiceID,
			&l.Description,
			&l.Amount,
			&l.Kind,
			&l.OccurredAt,
			&l.CreatedAt,
			&l.ActorName,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
