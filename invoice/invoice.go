// Package invoice runs the invoice lifecycle. Each invoice carries one
// reminder and one planner event derived from its renewal date; they are
// rebuilt in the same store transaction as every change to the invoice.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/ledger"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const category = "Invoice"

var (
	ErrInvalidAmount   = model.Invalid("amount must be positive")
	ErrAmountPrecision = model.Invalid("amount can't have more than %d decimal places", model.MoneyPlaces)
	ErrNoRenewalDate   = model.Invalid("renewal date is required")
	ErrNoClient        = model.Invalid("client is required")
	ErrNoPayAccount    = model.Invalid("no account to record the payment in")
	ErrInvoiceDeleted  = fmt.Errorf("invoice is deleted: %w", model.ErrNotFound)
)

type Service struct {
	store    store.Store
	notifier notify.Notifier
}

func NewService(s store.Store, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Discard
	}
	return &Service{store: s, notifier: n}
}

type Params struct {
	ClientID    uuid.UUID       `json:"client_id"`
	ServiceType string          `json:"service_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	RenewalDate time.Time       `json:"renewal_date"`
}

func (p Params) validate() error {
	if p.ClientID == uuid.Nil {
		return ErrNoClient
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !model.FitsMoney(p.Amount) {
		return ErrAmountPrecision
	}
	if p.RenewalDate.IsZero() {
		return ErrNoRenewalDate
	}
	return nil
}

func (p Params) apply(inv *model.Invoice) {
	inv.ClientID = p.ClientID
	inv.ServiceType = strings.TrimSpace(p.ServiceType)
	inv.Description = strings.TrimSpace(p.Description)
	inv.Amount = p.Amount
	inv.RenewalDate = day(p.RenewalDate)
}

func (s *Service) emit(ctx context.Context, p access.Principal, message string, invoiceID uuid.UUID) {
	notify.Emit(notify.WithActor(ctx, p.UserID), s.notifier, category, message, notify.Related{ID: invoiceID, Name: category})
}

// requireActive loads an invoice p may act on that has not been deleted.
func requireActive(ctx context.Context, tx store.Tx, p access.Principal, id uuid.UUID) (model.Invoice, error) {
	inv, err := access.RequireInvoice(ctx, tx, p, id)
	if err != nil {
		return model.Invoice{}, err
	}
	if inv.IsDeleted {
		return model.Invoice{}, fmt.Errorf("%s: %w", id, ErrInvoiceDeleted)
	}
	return inv, nil
}

func (s *Service) CreateInvoice(ctx context.Context, p access.Principal, params Params) (uuid.UUID, error) {
	if err := params.validate(); err != nil {
		return uuid.Nil, err
	}
	inv := model.Invoice{
		ID:        uuid.New(),
		OwnerID:   p.UserID,
		CreatedAt: time.Now().UTC(),
	}
	params.apply(&inv)

	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}
		return deriveRecords(ctx, tx, inv, nil)
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.emit(ctx, p, fmt.Sprintf("Invoice created for %s", inv.Amount.StringFixed(2)), inv.ID)
	return inv.ID, nil
}

// EditInvoice updates the invoice fields and rebuilds its reminder and
// planner event. The paid flag only moves through TogglePaid.
func (s *Service) EditInvoice(ctx context.Context, p access.Principal, id uuid.UUID, params Params) error {
	if err := params.validate(); err != nil {
		return err
	}
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		inv, err := requireActive(ctx, tx, p, id)
		if err != nil {
			return err
		}
		params.apply(&inv)
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		return rederiveRecords(ctx, tx, inv)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, p, "Invoice updated", id)
	return nil
}

// TogglePaid flips the paid flag. Marking an invoice paid books one Income
// transaction for its amount on accountID, or on the caller's oldest account
// when accountID is nil. Marking it unpaid again leaves that transaction in
// place.
func (s *Service) TogglePaid(ctx context.Context, p access.Principal, id uuid.UUID, accountID *uuid.UUID) (bool, error) {
	var paid bool
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		inv, err := requireActive(ctx, tx, p, id)
		if err != nil {
			return err
		}
		paid = !inv.IsPaid
		if paid {
			account, err := paymentAccount(ctx, tx, p, accountID)
			if err != nil {
				return err
			}
			payment, err := ledger.NewTransaction(account.ID, p.UserID,
				fmt.Sprintf("Payment for Inv #%s: %s", inv.ID, inv.Description),
				inv.Amount, model.KindIncome, time.Time{})
			if err != nil {
				return err
			}
			payment.InvoiceID = uuid.NullUUID{UUID: inv.ID, Valid: true}
			if err := ledger.Post(ctx, tx, payment); err != nil {
				return err
			}
		}
		return tx.SetInvoicePaid(ctx, id, paid)
	})
	if err != nil {
		return false, err
	}
	if paid {
		s.emit(ctx, p, "Invoice marked paid", id)
	} else {
		s.emit(ctx, p, "Invoice marked unpaid", id)
	}
	return paid, nil
}

func paymentAccount(ctx context.Context, tx store.Tx, p access.Principal, accountID *uuid.UUID) (model.Account, error) {
	if accountID != nil {
		return access.RequireAccount(ctx, tx, p, *accountID, true)
	}
	account, err := tx.OldestOwnedAccount(ctx, p.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Account{}, ErrNoPayAccount
	}
	return account, err
}

// RenewInvoice creates the next cycle of an invoice, one year later and
// unpaid, with its own reminder and planner event. The original invoice is
// left as it is.
func (s *Service) RenewInvoice(ctx context.Context, p access.Principal, id uuid.UUID) (uuid.UUID, error) {
	var renewal model.Invoice
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		orig, err := requireActive(ctx, tx, p, id)
		if err != nil {
			return err
		}
		description := orig.Description
		if !strings.HasPrefix(description, renewalPrefix) {
			description = renewalPrefix + description
		}
		renewal = model.Invoice{
			ID:          uuid.New(),
			OwnerID:     orig.OwnerID,
			ClientID:    orig.ClientID,
			ServiceType: orig.ServiceType,
			Description: description,
			Amount:      orig.Amount,
			RenewalDate: nextYear(orig.RenewalDate),
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.InsertInvoice(ctx, renewal); err != nil {
			return fmt.Errorf("failed to insert renewal: %w", err)
		}
		return deriveRecords(ctx, tx, renewal, nil)
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.emit(ctx, p, fmt.Sprintf("Invoice renewed until %s", renewal.RenewalDate.Format(renewalDayLayout)), renewal.ID)
	return renewal.ID, nil
}
