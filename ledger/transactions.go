package ledger

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validateEntry(description string, amount decimal.Decimal, kind model.Kind) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !model.FitsMoney(amount) {
		return ErrAmountPrecision
	}
	if !kind.Valid() {
		return model.Invalid("unknown transaction type %q", kind)
	}
	return nil
}

func NewTransaction(accountID, actorID uuid.UUID, description string, amount decimal.Decimal, kind model.Kind, occurredAt time.Time) (model.Transaction, error) {
	if err := validateEntry(description, amount, kind); err != nil {
		return model.Transaction{}, err
	}

	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}

	return model.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		ActorID:     actorID,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Kind:        kind,
		OccurredAt:  occurredAt,
		CreatedAt:   now,
	}, nil
}

// Post inserts t and moves its account balance in tx. Callers outside this
// package use it to book a transaction as part of a larger change.
func Post(ctx context.Context, tx store.LedgerStore, t model.Transaction) error {
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if err := tx.ApplyBalanceDelta(ctx, t.AccountID, t.Kind.Signed(t.Amount)); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

type CreateTransactionParams struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        model.Kind      `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (s *Service) CreateTransaction(ctx context.Context, p access.Principal, params CreateTransactionParams) (uuid.UUID, error) {
	t, err := NewTransaction(params.AccountID, p.UserID, params.Description, params.Amount, params.Kind, params.OccurredAt)
	if err != nil {
		return uuid.Nil, err
	}
	err = s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccount(ctx, tx, p, params.AccountID, true); err != nil {
			return err
		}
		return Post(ctx, tx, t)
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.emit(ctx, p, categoryTransaction, fmt.Sprintf("%s of %s recorded: %s", t.Kind, t.Amount.StringFixed(2), t.Description), t.AccountID)
	return t.ID, nil
}

type EditTransactionParams struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        model.Kind      `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// EditTransaction corrects a transaction and moves the account balance by
// the difference between the new and the old signed amount.
func (s *Service) EditTransaction(ctx context.Context, p access.Principal, id uuid.UUID, params EditTransactionParams) error {
	if err := validateEntry(params.Description, params.Amount, params.Kind); err != nil {
		return err
	}
	var accountID uuid.UUID
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		old, err := tx.Transaction(ctx, id)
		if err != nil {
			return err
		}
		if _, err := access.RequireAccount(ctx, tx, p, old.AccountID, true); err != nil {
			return err
		}
		accountID = old.AccountID

		updated := old
		updated.Description = strings.TrimSpace(params.Description)
		updated.Amount = params.Amount
		updated.Kind = params.Kind
		if !params.OccurredAt.IsZero() {
			updated.OccurredAt = params.OccurredAt
		}
		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return err
		}

		delta := updated.Kind.Signed(updated.Amount).Sub(old.Kind.Signed(old.Amount))
		if delta.IsZero() {
			return nil
		}
		return tx.ApplyBalanceDelta(ctx, accountID, delta)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, p, categoryTransaction, fmt.Sprintf("Transaction edited: %s", strings.TrimSpace(params.Description)), accountID)
	return nil
}

// DeleteTransaction removes a transaction and reverses its effect on the
// account balance.
func (s *Service) DeleteTransaction(ctx context.Context, p access.Principal, id uuid.UUID) error {
	var old model.Transaction
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		old, err = tx.Transaction(ctx, id)
		if err != nil {
			return err
		}
		if _, err := access.RequireAccount(ctx, tx, p, old.AccountID, true); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return tx.ApplyBalanceDelta(ctx, old.AccountID, old.Kind.Signed(old.Amount).Neg())
	})
	if err != nil {
		return err
	}
	s.emit(ctx, p, categoryTransaction, fmt.Sprintf("Transaction deleted: %s", old.Description), old.AccountID)
	return nil
}

type TransferParams struct {
	FromAccountID uuid.UUID       `json:"from_account_id"`
	ToAccountID   uuid.UUID       `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Transfer books an Expense on the source and an Income on the destination.
// Both legs and both balance changes commit together or not at all.
func (s *Service) Transfer(ctx context.Context, p access.Principal, params TransferParams) (debitID, creditID uuid.UUID, err error) {
	if !params.Amount.IsPositive() {
		return uuid.Nil, uuid.Nil, ErrInvalidAmount
	}
	if params.FromAccountID == params.ToAccountID {
		return uuid.Nil, uuid.Nil, ErrSameAccount
	}
	description := strings.TrimSpace(params.Description)

	debit, err := NewTransaction(params.FromAccountID, p.UserID,
		fmt.Sprintf("Transfer to Account #%s: %s", params.ToAccountID, description),
		params.Amount, model.KindExpense, params.OccurredAt)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	credit, err := NewTransaction(params.ToAccountID, p.UserID,
		fmt.Sprintf("Transfer from Account #%s: %s", params.FromAccountID, description),
		params.Amount, model.KindIncome, debit.OccurredAt)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	err = s.store.WithTransaction(ctx, func(tx store.Tx) error {
		from, err := access.RequireAccount(ctx, tx, p, params.FromAccountID, true)
		if err != nil {
			return err
		}
		to, err := access.RequireAccount(ctx, tx, p, params.ToAccountID, true)
		if err != nil {
			return err
		}
		if from.Currency != to.Currency {
			return model.Invalid("can't transfer between %s and %s accounts", from.Currency, to.Currency)
		}
		if err := tx.InsertTransaction(ctx, debit); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, credit); err != nil {
			return err
		}
		// Balances are locked in id order so opposite transfers between
		// the same two accounts can't deadlock.
		legs := []model.Transaction{debit, credit}
		slices.SortFunc(legs, func(a, b model.Transaction) int {
			return bytes.Compare(a.AccountID[:], b.AccountID[:])
		})
		for _, leg := range legs {
			if err := tx.ApplyBalanceDelta(ctx, leg.AccountID, leg.Kind.Signed(leg.Amount)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("transfer failed: %w", err)
	}

	message := fmt.Sprintf("Transfer of %s from %s to %s", params.Amount.StringFixed(2), params.FromAccountID, params.ToAccountID)
	s.emit(ctx, p, categoryTransfer, message, params.FromAccountID)
	return debit.ID, credit.ID, nil
}
