package invoice

import (
	"context"
	"fmt"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

// DeleteInvoice moves an invoice to the trash. Its reminders are hidden with
// it so the scheduler no longer picks them up.
func (s *Service) DeleteInvoice(ctx context.Context, p access.Principal, id uuid.UUID) error {
	return s.setDeleted(ctx, p, id, true)
}

func (s *Service) RestoreInvoice(ctx context.Context, p access.Principal, id uuid.UUID) error {
	return s.setDeleted(ctx, p, id, false)
}

func (s *Service) setDeleted(ctx context.Context, p access.Principal, id uuid.UUID, deleted bool) error {
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireInvoice(ctx, tx, p, id); err != nil {
			return err
		}
		if err := tx.SetInvoiceDeleted(ctx, id, deleted); err != nil {
			return err
		}
		return tx.SetInvoiceRemindersDeleted(ctx, id, deleted)
	})
	if err != nil {
		return err
	}
	if deleted {
		s.emit(ctx, p, "Invoice moved to trash", id)
	} else {
		s.emit(ctx, p, "Invoice restored", id)
	}
	return nil
}

// HardDeleteInvoice removes an invoice and its derived records for good.
// Invoices with recorded payments are kept.
func (s *Service) HardDeleteInvoice(ctx context.Context, p access.Principal, id uuid.UUID) error {
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireInvoice(ctx, tx, p, id); err != nil {
			return err
		}
		n, err := tx.CountInvoiceTransactions(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: invoice has %d payment transactions", model.ErrHasDependents, n)
		}
		if err := tx.DeleteInvoiceReminders(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteInvoicePlannerEvents(ctx, id); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, p, "Invoice permanently deleted", id)
	return nil
}

// Invoices lists active or trashed invoices. Administrators see every
// owner's invoices.
func (s *Service) Invoices(ctx context.Context, p access.Principal, deleted bool) ([]store.InvoiceLine, error) {
	owner := uuid.NullUUID{UUID: p.UserID, Valid: !p.IsAdmin()}
	var lines []store.InvoiceLine
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		lines, err = tx.Invoices(ctx, owner, deleted)
		return err
	})
	return lines, err
}

type Detail struct {
	model.Invoice
	Reminders     []model.Reminder     `json:"reminders"`
	PlannerEvents []model.PlannerEvent `json:"planner_events"`
}

func (s *Service) Invoice(ctx context.Context, p access.Principal, id uuid.UUID) (Detail, error) {
	var d Detail
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		inv, err := access.RequireInvoice(ctx, tx, p, id)
		if err != nil {
			return err
		}
		d.Invoice = inv
		if d.Reminders, err = tx.InvoiceReminders(ctx, id); err != nil {
			return err
		}
		d.PlannerEvents, err = tx.InvoicePlannerEvents(ctx, id)
		return err
	})
	return d, err
}
