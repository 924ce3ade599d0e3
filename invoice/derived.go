package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

const (
	reminderLead     = 7 * 24 * time.Hour
	eventLength      = 23 * time.Hour
	fallbackClient   = "Client"
	renewalPrefix    = "RENEWAL: "
	renewalDayLayout = "2006-01-02"
)

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextYear moves t one year ahead. Feb 29 becomes Feb 28 when the next year
// has no leap day.
func nextYear(t time.Time) time.Time {
	y, m, d := t.Date()
	if m == time.February && d == 29 && !isLeap(y+1) {
		d = 28
	}
	return time.Date(y+1, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func clientName(ctx context.Context, tx store.InvoiceStore, clientID uuid.UUID) (string, error) {
	name, err := tx.ClientName(ctx, clientID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && name == "") {
		return fallbackClient, nil
	}
	return name, err
}

func newReminder(inv model.Invoice, client string) model.Reminder {
	return model.Reminder{
		ID:         uuid.New(),
		InvoiceID:  inv.ID,
		UserID:     inv.OwnerID,
		ClientName: client,
		Message:    fmt.Sprintf("Renewal for Inv #%s: %s", inv.ID, inv.Description),
		DueAt:      day(inv.RenewalDate).Add(-reminderLead),
		IsDeleted:  inv.IsDeleted,
		CreatedAt:  time.Now().UTC(),
	}
}

func newPlannerEvent(inv model.Invoice, client string) model.PlannerEvent {
	start := day(inv.RenewalDate)
	return model.PlannerEvent{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		UserID:      inv.OwnerID,
		Title:       "Renewal: " + client,
		Description: fmt.Sprintf("Invoice #%s Renewal: %s", inv.ID, inv.Description),
		StartDate:   start,
		EndDate:     start.Add(eventLength),
	}
}

// deriveRecords writes the reminder and planner event for inv. They always
// belong to the invoice owner, whoever triggered the change.
func deriveRecords(ctx context.Context, tx store.InvoiceStore, inv model.Invoice, sent map[int64]bool) error {
	client, err := clientName(ctx, tx, inv.ClientID)
	if err != nil {
		return err
	}
	reminder := newReminder(inv, client)
	reminder.IsSent = sent[reminder.DueAt.Unix()]
	if err := tx.InsertReminder(ctx, reminder); err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	if err := tx.InsertPlannerEvent(ctx, newPlannerEvent(inv, client)); err != nil {
		return fmt.Errorf("failed to insert planner event: %w", err)
	}
	return nil
}

// rederiveRecords replaces every derived record of inv. A reminder already
// delivered for the same due date stays delivered.
func rederiveRecords(ctx context.Context, tx store.InvoiceStore, inv model.Invoice) error {
	existing, err := tx.InvoiceReminders(ctx, inv.ID)
	if err != nil {
		return err
	}
	sent := make(map[int64]bool)
	for _, r := range existing {
		if r.IsSent {
			sent[r.DueAt.Unix()] = true
		}
	}
	if err := tx.DeleteInvoiceReminders(ctx, inv.ID); err != nil {
		return err
	}
	if err := tx.DeleteInvoicePlannerEvents(ctx, inv.ID); err != nil {
		return err
	}
	return deriveRecords(ctx, tx, inv, sent)
}
