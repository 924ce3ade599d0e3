// Package ledger keeps account balances consistent with their transactions.
// Every change that touches a balance runs in the same store transaction as
// the rows it derives from.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyName        = model.Invalid("name can't be empty")
	ErrInvalidAmount    = model.Invalid("amount must be positive")
	ErrAmountPrecision  = model.Invalid("amounts can't have more than %d decimal places", model.MoneyPlaces)
	ErrEmptyDescription = model.Invalid("description can't be empty")
	ErrSameAccount      = model.Invalid("can't transfer to the same account")
	ErrShareWithSelf    = model.Invalid("can't share an account with yourself")
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

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return model.DefaultCurrency
	}
	return currency
}

func NewAccount(ownerID uuid.UUID, name, currency string, openingBalance decimal.Decimal) (model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Account{}, ErrEmptyName
	}
	if !model.FitsMoney(openingBalance) {
		return model.Account{}, ErrAmountPrecision
	}

	return model.Account{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		Currency:       normalizeCurrency(currency),
		OpeningBalance: openingBalance,
		Balance:        openingBalance,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

type CreateAccountParams struct {
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (s *Service) CreateAccount(ctx context.Context, p access.Principal, params CreateAccountParams) (model.Account, error) {
	account, err := NewAccount(p.UserID, params.Name, params.Currency, params.OpeningBalance)
	if err != nil {
		return model.Account{}, err
	}
	err = s.store.WithTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	s.emit(ctx, p, categoryAccount, fmt.Sprintf("Account %q created", account.Name), account.ID)
	return account, nil
}

// RenameAccount changes the name and currency of an owned account. The
// currency label is not a conversion; balances keep their amounts.
func (s *Service) RenameAccount(ctx context.Context, p access.Principal, accountID uuid.UUID, name, currency string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccountOwner(ctx, tx, p, accountID); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, accountID, name, normalizeCurrency(currency))
	})
}

type AccountSummary struct {
	model.Account
	Owned    bool          `json:"owned"`
	Grantees []model.Grant `json:"grantees,omitempty"`
}

// Accounts lists the accounts p owns or has been granted, with the grantees
// of the owned ones.
func (s *Service) Accounts(ctx context.Context, p access.Principal) ([]AccountSummary, error) {
	var summaries []AccountSummary
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		accounts, err := tx.AccountsForUser(ctx, p.UserID)
		if err != nil {
			return err
		}
		summaries = make([]AccountSummary, 0, len(accounts))
		for _, a := range accounts {
			summary := AccountSummary{Account: a, Owned: p.IsOwner(a.OwnerID)}
			if summary.Owned {
				if summary.Grantees, err = tx.Grants(ctx, a.ID); err != nil {
					return err
				}
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	return summaries, err
}

func (s *Service) Account(ctx context.Context, p access.Principal, accountID uuid.UUID) (model.Account, error) {
	var account model.Account
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		account, err = access.RequireAccount(ctx, tx, p, accountID, false)
		return err
	})
	return account, err
}

// DeleteAccount removes an owned account and its grants. Accounts that still
// hold transactions are refused.
func (s *Service) DeleteAccount(ctx context.Context, p access.Principal, accountID uuid.UUID) error {
	var name string
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		account, err := access.RequireAccountOwner(ctx, tx, p, accountID)
		if err != nil {
			return err
		}
		name = account.Name
		n, err := tx.CountTransactions(ctx, accountID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: account has %d transactions", model.ErrHasDependents, n)
		}
		if err := tx.DeleteGrants(ctx, accountID); err != nil {
			return err
		}
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, p, categoryAccount, fmt.Sprintf("Account %q deleted", name), accountID)
	return nil
}

// ShareAccount grants username read and write access to an owned account.
// Sharing twice with the same user changes nothing.
func (s *Service) ShareAccount(ctx context.Context, p access.Principal, accountID uuid.UUID, username string) error {
	var (
		granted bool
		grantee model.User
	)
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccountOwner(ctx, tx, p, accountID); err != nil {
			return err
		}
		var err error
		grantee, err = tx.UserByUsername(ctx, strings.TrimSpace(username))
		if err != nil {
			return err
		}
		if grantee.ID == p.UserID {
			return ErrShareWithSelf
		}
		err = tx.InsertGrant(ctx, model.Grant{
			AccountID: accountID,
			UserID:    grantee.ID,
			CreatedAt: time.Now().UTC(),
		})
		if errors.Is(err, model.ErrConflict) {
			return nil
		}
		granted = err == nil
		return err
	})
	if err != nil {
		return err
	}
	if granted {
		s.emit(ctx, p, categoryAccount, fmt.Sprintf("Account shared with %s", grantee.Username), accountID)
	}
	return nil
}

// RevokeAccess removes a grant. Revoking a grant that does not exist is not
// an error.
func (s *Service) RevokeAccess(ctx context.Context, p access.Principal, accountID, userID uuid.UUID) error {
	return s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccountOwner(ctx, tx, p, accountID); err != nil {
			return err
		}
		return tx.DeleteGrant(ctx, accountID, userID)
	})
}

func (s *Service) Grantees(ctx context.Context, p access.Principal, accountID uuid.UUID) ([]model.Grant, error) {
	var grants []model.Grant
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if _, err := access.RequireAccountOwner(ctx, tx, p, accountID); err != nil {
			return err
		}
		var err error
		grants, err = tx.Grants(ctx, accountID)
		return err
	})
	return grants, err
}
