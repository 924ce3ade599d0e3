package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/billbatista/acasinha-office/store/memstore"
	"github.com/google/uuid"
)

func seed(t *testing.T, st *memstore.Store, fn func(tx store.Tx) error) {
	t.Helper()
	if err := st.WithTransaction(context.Background(), fn); err != nil {
		t.Fatal(err)
	}
}

func TestCanAccessAccount(t *testing.T) {
	st := memstore.New()
	owner := Principal{UserID: uuid.New(), Role: model.RoleUser}
	grantee := Principal{UserID: uuid.New(), Role: model.RoleUser}
	stranger := Principal{UserID: uuid.New(), Role: model.RoleUser}
	admin := Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	account := model.Account{ID: uuid.New(), OwnerID: owner.UserID, Name: "Checking", CreatedAt: time.Now()}

	seed(t, st, func(tx store.Tx) error {
		if err := tx.InsertAccount(context.Background(), account); err != nil {
			return err
		}
		return tx.InsertGrant(context.Background(), model.Grant{AccountID: account.ID, UserID: grantee.UserID})
	})

	cases := []struct {
		name string
		p    Principal
		want bool
	}{
		{"owner", owner, true},
		{"grantee", grantee, true},
		{"admin", admin, true},
		{"stranger", stranger, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seed(t, st, func(tx store.Tx) error {
				for _, write := range []bool{false, true} {
					got, err := CanAccessAccount(context.Background(), tx, tc.p, account.ID, write)
					if err != nil {
						return err
					}
					if got != tc.want {
						t.Errorf("write=%v got=%v want=%v", write, got, tc.want)
					}
				}
				return nil
			})
		})
	}

	seed(t, st, func(tx store.Tx) error {
		if _, err := RequireAccount(context.Background(), tx, stranger, account.ID, true); !errors.Is(err, model.ErrAccessDenied) {
			t.Errorf("want ErrAccessDenied, got %v", err)
		}
		if _, err := RequireAccount(context.Background(), tx, owner, uuid.New(), false); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
		if _, err := RequireAccountOwner(context.Background(), tx, admin, account.ID); !errors.Is(err, model.ErrNotOwner) {
			t.Errorf("admin is not the owner, got %v", err)
		}
		if a, err := RequireAccountOwner(context.Background(), tx, owner, account.ID); err != nil || a.ID != account.ID {
			t.Errorf("owner got=%v err=%v", a.ID, err)
		}
		return nil
	})
}

func TestCanAccessInvoice(t *testing.T) {
	st := memstore.New()
	owner := Principal{UserID: uuid.New(), Role: model.RoleUser}
	other := Principal{UserID: uuid.New(), Role: model.RoleUser}
	admin := Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	inv := model.Invoice{ID: uuid.New(), OwnerID: owner.UserID}

	seed(t, st, func(tx store.Tx) error {
		return tx.InsertInvoice(context.Background(), inv)
	})

	seed(t, st, func(tx store.Tx) error {
		for _, tc := range []struct {
			p    Principal
			want bool
		}{{owner, true}, {admin, true}, {other, false}} {
			got, err := CanAccessInvoice(context.Background(), tx, tc.p, inv.ID)
			if err != nil {
				return err
			}
			if got != tc.want {
				t.Errorf("principal=%v got=%v want=%v", tc.p.UserID, got, tc.want)
			}
		}
		if _, err := RequireInvoice(context.Background(), tx, other, inv.ID); !errors.Is(err, model.ErrAccessDenied) {
			t.Errorf("want ErrAccessDenied, got %v", err)
		}
		if _, err := CanAccessInvoice(context.Background(), tx, owner, uuid.New()); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("want ErrNotFound, got %v", err)
		}
		return nil
	})
}
