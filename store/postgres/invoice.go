package postgres

import (
	"context"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

const invoiceColumns = `id, user_id, client_id, service_type, description, amount, renewal_date, is_paid, is_deleted, created_at`

func (t *tx) Invoice(ctx context.Context, id uuid.UUID) (model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv model.Invoice
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&inv.ID,
		&inv.OwnerID,
		&inv.ClientID,
		&inv.ServiceType,
		&inv.Description,
		&inv.Amount,
		&inv.RenewalDate,
		&inv.IsPaid,
		&inv.IsDeleted,
		&inv.CreatedAt,
	)
	if err != nil {
		return model.Invoice{}, translate(err, "querying invoice")
	}
	return inv, nil
}

func (t *tx) ClientName(ctx context.Context, clientID uuid.UUID) (string, error) {
	var name string
	err := t.tx.QueryRowContext(ctx, `SELECT name FROM clients WHERE id = $1`, clientID).Scan(&name)
	if err != nil {
		return "", translate(err, "querying client")
	}
	return name, nil
}

func (t *tx) InsertInvoice(ctx context.Context, inv model.Invoice) error {
	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := t.tx.ExecContext(
		ctx,
		query,
		inv.ID,
		inv.OwnerID,
		inv.ClientID,
		inv.ServiceType,
		inv.Description,
		inv.Amount,
		inv.RenewalDate,
		inv.IsPaid,
		inv.IsDeleted,
		inv.CreatedAt,
	)
	return translate(err, "inserting invoice")
}

func (t *tx) UpdateInvoice(ctx context.Context, inv model.Invoice) error {
	query := `UPDATE invoices
              SET client_id = $1, service_type = $2, description = $3, amount = $4, renewal_date = $5
              WHERE id = $6`
	res, err := t.tx.ExecContext(ctx, query, inv.ClientID, inv.ServiceType, inv.Description, inv.Amount, inv.RenewalDate, inv.ID)
	if err != nil {
		return translate(err, "updating invoice")
	}
	return expectOne(res, "updating invoice")
}

func (t *tx) SetInvoicePaid(ctx context.Context, id uuid.UUID, paid bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE invoices SET is_paid = $1 WHERE id = $2`, paid, id)
	if err != nil {
		return translate(err, "updating invoice")
	}
	return expectOne(res, "updating invoice")
}

func (t *tx) SetInvoiceDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE invoices SET is_deleted = $1 WHERE id = $2`, deleted, id)
	if err != nil {
		return translate(err, "updating invoice")
	}
	return expectOne(res, "updating invoice")
}

func (t *tx) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return translate(err, "deleting invoice")
	}
	return expectOne(res, "deleting invoice")
}

func (t *tx) Invoices(ctx context.Context, owner uuid.NullUUID, deleted bool) ([]store.InvoiceLine, error) {
	query := `SELECT i.id, i.user_id, i.client_id, i.service_type, i.description, i.amount, i.renewal_date,
                     i.is_paid, i.is_deleted, i.created_at, COALESCE(c.name, '')
              FROM invoices i
              LEFT JOIN clients c ON c.id = i.client_id
              WHERE i.is_deleted = $1 AND ($2::uuid IS NULL OR i.user_id = $2)
              ORDER BY i.renewal_date`

	rows, err := t.tx.QueryContext(ctx, query, deleted, owner)
	if err != nil {
		return nil, translate(err, "querying invoices")
	}
	defer rows.Close()

	var lines []store.InvoiceLine
	for rows.Next() {
		var l store.InvoiceLine
		err := rows.Scan(
			&l.ID,
			&l.OwnerID,
			&l.ClientID,
			&l.ServiceType,
			&l.Description,
			&l.Amount,
			&l.RenewalDate,
			&l.IsPaid,
			&l.IsDeleted,
			&l.CreatedAt,
			&l.ClientName,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *tx) CountInvoiceTransactions(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM transactions WHERE invoice_id = $1`, invoiceID).Scan(&n)
	return n, translate(err, "counting invoice transactions")
}

const reminderColumns = `id, invoice_id, user_id, client_name, message, due_at, is_sent, is_deleted, created_at`

func (t *tx) InsertReminder(ctx context.Context, r model.Reminder) error {
	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.ExecContext(ctx, query, r.ID, r.InvoiceID, r.UserID, r.ClientName, r.Message, r.DueAt, r.IsSent, r.IsDeleted, r.CreatedAt)
	return translate(err, "inserting reminder")
}

func (t *tx) queryReminders(ctx context.Context, query string, args ...any) ([]model.Reminder, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "querying reminders")
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		err := rows.Scan(&r.ID, &r.InvoiceID, &r.UserID, &r.ClientName, &r.Message, &r.DueAt, &r.IsSent, &r.IsDeleted, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (t *tx) InvoiceReminders(ctx context.Context, invoiceID uuid.UUID) ([]model.Reminder, error) {
	return t.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE invoice_id = $1 ORDER BY due_at`, invoiceID)
}

func (t *tx) DeleteInvoiceReminders(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM reminders WHERE invoice_id = $1`, invoiceID)
	return translate(err, "deleting reminders")
}

func (t *tx) SetInvoiceRemindersDeleted(ctx context.Context, invoiceID uuid.UUID, deleted bool) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE reminders SET is_deleted = $1 WHERE invoice_id = $2`, deleted, invoiceID)
	return translate(err, "updating reminders")
}

func (t *tx) InsertPlannerEvent(ctx context.Context, e model.PlannerEvent) error {
	query := `INSERT INTO planner_events (id, invoice_id, user_id, title, description, start_date, end_date) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.tx.ExecContext(ctx, query, e.ID, e.InvoiceID, e.UserID, e.Title, e.Description, e.StartDate, e.EndDate)
	return translate(err, "inserting planner event")
}

func (t *tx) InvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) ([]model.PlannerEvent, error) {
	query := `SELECT id, invoice_id, user_id, title, description, start_date, end_date
              FROM planner_events WHERE invoice_id = $1 ORDER BY start_date`

	rows, err := t.tx.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, translate(err, "querying planner events")
	}
	defer rows.Close()

	var events []model.PlannerEvent
	for rows.Next() {
		var e model.PlannerEvent
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.UserID, &e.Title, &e.Description, &e.StartDate, &e.EndDate); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (t *tx) DeleteInvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM planner_events WHERE invoice_id = $1`, invoiceID)
	return translate(err, "deleting planner events")
}

func (t *tx) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
              FROM reminders
              WHERE due_at <= $1 AND NOT is_sent AND NOT is_deleted
              ORDER BY due_at`
	return t.queryReminders(ctx, query, now)
}

func (t *tx) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `UPDATE reminders SET is_sent = true WHERE id = $1 AND NOT is_sent`, id)
	if err != nil {
		return false, translate(err, "marking reminder sent")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
