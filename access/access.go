// Package access decides whether a principal may touch an account or an
// invoice. The decision is made once, before any query that depends on it;
// it is never folded into the shape of a query.
package access

import (
	"context"
	"fmt"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

// Principal is the acting user of one operation.
type Principal struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   model.Role `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// IsOwner has no admin bypass. Sharing, revoking and deleting an account are
// reserved to its owner.
func (p Principal) IsOwner(ownerID uuid.UUID) bool {
	return p.UserID == ownerID
}

// CanAccessAccount reports whether p may read or write the account. Grants
// give both read and write, so write only documents the caller's intent.
func CanAccessAccount(ctx context.Context, q store.AccessStore, p Principal, accountID uuid.UUID, write bool) (bool, error) {
	a, err := q.Account(ctx, accountID)
	if err != nil {
		return false, err
	}
	if p.IsAdmin() || p.IsOwner(a.OwnerID) {
		return true, nil
	}
	return q.HasGrant(ctx, accountID, p.UserID)
}

// CanAccessInvoice reports whether p may act on the invoice. Invoices are
// never shared.
func CanAccessInvoice(ctx context.Context, q store.AccessStore, p Principal, invoiceID uuid.UUID) (bool, error) {
	inv, err := q.Invoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	return p.IsAdmin() || p.IsOwner(inv.OwnerID), nil
}

// RequireAccount returns the account, or ErrAccessDenied when p may not
// access it.
func RequireAccount(ctx context.Context, q store.AccessStore, p Principal, accountID uuid.UUID, write bool) (model.Account, error) {
	ok, err := CanAccessAccount(ctx, q, p, accountID, write)
	if err != nil {
		return model.Account{}, err
	}
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", accountID, model.ErrAccessDenied)
	}
	return q.Account(ctx, accountID)
}

func RequireInvoice(ctx context.Context, q store.AccessStore, p Principal, invoiceID uuid.UUID) (model.Invoice, error) {
	ok, err := CanAccessInvoice(ctx, q, p, invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	if !ok {
		return model.Invoice{}, fmt.Errorf("invoice %s: %w", invoiceID, model.ErrAccessDenied)
	}
	return q.Invoice(ctx, invoiceID)
}

// RequireAccountOwner loads the account and fails with ErrNotOwner unless p
// owns it.
func RequireAccountOwner(ctx context.Context, q store.AccessStore, p Principal, accountID uuid.UUID) (model.Account, error) {
	a, err := q.Account(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	if !p.IsOwner(a.OwnerID) {
		return model.Account{}, model.ErrNotOwner
	}
	return a, nil
}
