// Package store defines the persistence contract the ledger and invoice
// services are written against. Every multi-row change runs inside a single
// WithTransaction scope: either all of it commits or none of it does.
package store

import (
	"context"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store interface {
	// WithTransaction runs fn in one transaction. A non-nil error from fn
	// rolls back everything fn wrote.
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	AccessStore
	LedgerStore
	InvoiceStore
	ReminderStore
}

// AccessStore is the read side used to authorize a principal.
type AccessStore interface {
	Account(ctx context.Context, id uuid.UUID) (model.Account, error)
	HasGrant(ctx context.Context, accountID, userID uuid.UUID) (bool, error)
	Invoice(ctx context.Context, id uuid.UUID) (model.Invoice, error)
}

type LedgerStore interface {
	UserByUsername(ctx context.Context, username string) (model.User, error)

	InsertAccount(ctx context.Context, a model.Account) error
	UpdateAccount(ctx context.Context, id uuid.UUID, name, currency string) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	// AccountsForUser returns owned and shared accounts ordered by name.
	AccountsForUser(ctx context.Context, userID uuid.UUID) ([]model.Account, error)
	// OldestOwnedAccount returns ErrNotFound when the user owns no account.
	OldestOwnedAccount(ctx context.Context, userID uuid.UUID) (model.Account, error)
	// ApplyBalanceDelta adds delta to the stored balance in a single
	// statement, never as a read followed by a write.
	ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error

	// InsertGrant returns ErrConflict if the pair already exists.
	InsertGrant(ctx context.Context, g model.Grant) error
	DeleteGrant(ctx context.Context, accountID, userID uuid.UUID) error
	DeleteGrants(ctx context.Context, accountID uuid.UUID) error
	Grants(ctx context.Context, accountID uuid.UUID) ([]model.Grant, error)

	InsertTransaction(ctx context.Context, t model.Transaction) error
	Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	UpdateTransaction(ctx context.Context, t model.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error)
	// AccountTransactions lists newest first, optionally only those created
	// by one user.
	AccountTransactions(ctx context.Context, accountID uuid.UUID, createdBy uuid.NullUUID) ([]TransactionLine, error)
}

type InvoiceStore interface {
	ClientName(ctx context.Context, clientID uuid.UUID) (string, error)

	InsertInvoice(ctx context.Context, inv model.Invoice) error
	// UpdateInvoice writes client, service type, description, amount and
	// renewal date. Paid and deleted flags have their own setters.
	UpdateInvoice(ctx context.Context, inv model.Invoice) error
	SetInvoicePaid(ctx context.Context, id uuid.UUID, paid bool) error
	SetInvoiceDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	// Invoices lists by renewal date; a null owner lists every owner.
	Invoices(ctx context.Context, owner uuid.NullUUID, deleted bool) ([]InvoiceLine, error)
	CountInvoiceTransactions(ctx context.Context, invoiceID uuid.UUID) (int, error)

	InsertReminder(ctx context.Context, r model.Reminder) error
	InvoiceReminders(ctx context.Context, invoiceID uuid.UUID) ([]model.Reminder, error)
	DeleteInvoiceReminders(ctx context.Context, invoiceID uuid.UUID) error
	SetInvoiceRemindersDeleted(ctx context.Context, invoiceID uuid.UUID, deleted bool) error

	InsertPlannerEvent(ctx context.Context, e model.PlannerEvent) error
	InvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) ([]model.PlannerEvent, error)
	DeleteInvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) error
}

type ReminderStore interface {
	// DueReminders returns unsent, non-deleted reminders due at or before
	// now, oldest first.
	DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	// MarkReminderSent flips is_sent only if it was still false and reports
	// whether it did.
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type TransactionLine struct {
	model.Transaction
	ActorName string `json:"actor_name"`
}

type InvoiceLine struct {
	model.Invoice
	ClientName string `json:"client_name"`
}
