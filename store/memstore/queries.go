package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ store.Tx = (*tx)(nil)

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, model.ErrNotFound)
}

func (t *tx) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	a, ok := t.data.accounts[id]
	if !ok {
		return model.Account{}, notFound("account", id)
	}
	return a, nil
}

func (t *tx) HasGrant(ctx context.Context, accountID, userID uuid.UUID) (bool, error) {
	_, ok := t.data.grants[grantKey{accountID, userID}]
	return ok, nil
}

func (t *tx) Invoice(ctx context.Context, id uuid.UUID) (model.Invoice, error) {
	inv, ok := t.data.invoices[id]
	if !ok {
		return model.Invoice{}, notFound("invoice", id)
	}
	return inv, nil
}

func (t *tx) UserByUsername(ctx context.Context, username string) (model.User, error) {
	for _, u := range t.data.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (t *tx) InsertAccount(ctx context.Context, a model.Account) error {
	if err := t.write("InsertAccount"); err != nil {
		return err
	}
	if _, ok := t.data.accounts[a.ID]; ok {
		return fmt.Errorf("account %s: %w", a.ID, model.ErrConflict)
	}
	t.data.accounts[a.ID] = a
	return nil
}

func (t *tx) UpdateAccount(ctx context.Context, id uuid.UUID, name, currency string) error {
	if err := t.write("UpdateAccount"); err != nil {
		return err
	}
	a, ok := t.data.accounts[id]
	if !ok {
		return notFound("account", id)
	}
	a.Name = name
	a.Currency = currency
	t.data.accounts[id] = a
	return nil
}

func (t *tx) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := t.write("DeleteAccount"); err != nil {
		return err
	}
	for _, tr := range t.data.transactions {
		if tr.AccountID == id {
			return fmt.Errorf("account %s: %w", id, model.ErrHasDependents)
		}
	}
	delete(t.data.accounts, id)
	return nil
}

func (t *tx) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]model.Account, error) {
	var out []model.Account
	for _, a := range t.data.accounts {
		_, shared := t.data.grants[grantKey{a.ID, userID}]
		if a.OwnerID == userID || shared {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Account) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (t *tx) OldestOwnedAccount(ctx context.Context, userID uuid.UUID) (model.Account, error) {
	var (
		found  bool
		oldest model.Account
	)
	for _, a := range t.data.accounts {
		if a.OwnerID != userID {
			continue
		}
		if !found || a.CreatedAt.Before(oldest.CreatedAt) {
			oldest, found = a, true
		}
	}
	if !found {
		return model.Account{}, fmt.Errorf("owned account: %w", model.ErrNotFound)
	}
	return oldest, nil
}

func (t *tx) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	if err := t.write("ApplyBalanceDelta"); err != nil {
		return err
	}
	a, ok := t.data.accounts[accountID]
	if !ok {
		return notFound("account", accountID)
	}
	a.Balance = a.Balance.Add(delta)
	t.data.accounts[accountID] = a
	return nil
}

func (t *tx) InsertGrant(ctx context.Context, g model.Grant) error {
	if err := t.write("InsertGrant"); err != nil {
		return err
	}
	k := grantKey{g.AccountID, g.UserID}
	if _, ok := t.data.grants[k]; ok {
		return model.ErrConflict
	}
	t.data.grants[k] = g
	return nil
}

func (t *tx) DeleteGrant(ctx context.Context, accountID, userID uuid.UUID) error {
	if err := t.write("DeleteGrant"); err != nil {
		return err
	}
	delete(t.data.grants, grantKey{accountID, userID})
	return nil
}

func (t *tx) DeleteGrants(ctx context.Context, accountID uuid.UUID) error {
	if err := t.write("DeleteGrants"); err != nil {
		return err
	}
	for k := range t.data.grants {
		if k.accountID == accountID {
			delete(t.data.grants, k)
		}
	}
	return nil
}

func (t *tx) Grants(ctx context.Context, accountID uuid.UUID) ([]model.Grant, error) {
	var out []model.Grant
	for k, g := range t.data.grants {
		if k.accountID != accountID {
			continue
		}
		g.Username = t.data.users[g.UserID].Username
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b model.Grant) int { return cmp.Compare(a.Username, b.Username) })
	return out, nil
}

func (t *tx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	if err := t.write("InsertTransaction"); err != nil {
		return err
	}
	if _, ok := t.data.accounts[tr.AccountID]; !ok {
		return notFound("account", tr.AccountID)
	}
	t.data.transactions[tr.ID] = tr
	return nil
}

func (t *tx) Transaction(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	tr, ok := t.data.transactions[id]
	if !ok {
		return model.Transaction{}, notFound("transaction", id)
	}
	return tr, nil
}

func (t *tx) UpdateTransaction(ctx context.Context, tr model.Transaction) error {
	if err := t.write("UpdateTransaction"); err != nil {
		return err
	}
	if _, ok := t.data.transactions[tr.ID]; !ok {
		return notFound("transaction", tr.ID)
	}
	t.data.transactions[tr.ID] = tr
	return nil
}

func (t *tx) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := t.write("DeleteTransaction"); err != nil {
		return err
	}
	delete(t.data.transactions, id)
	return nil
}

func (t *tx) CountTransactions(ctx context.Context, accountID uuid.UUID) (int, error) {
	n := 0
	for _, tr := range t.data.transactions {
		if tr.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (t *tx) AccountTransactions(ctx context.Context, accountID uuid.UUID, createdBy uuid.NullUUID) ([]store.TransactionLine, error) {
	var out []store.TransactionLine
	for _, tr := range t.data.transactions {
		if tr.AccountID != accountID {
			continue
		}
		if createdBy.Valid && tr.ActorID != createdBy.UUID {
			continue
		}
		out = append(out, store.TransactionLine{Transaction: tr, ActorName: t.data.users[tr.ActorID].Username})
	}
	slices.SortFunc(out, func(a, b store.TransactionLine) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (t *tx) ClientName(ctx context.Context, clientID uuid.UUID) (string, error) {
	name, ok := t.data.clients[clientID]
	if !ok {
		return "", notFound("client", clientID)
	}
	return name, nil
}

func (t *tx) InsertInvoice(ctx context.Context, inv model.Invoice) error {
	if err := t.write("InsertInvoice"); err != nil {
		return err
	}
	t.data.invoices[inv.ID] = inv
	return nil
}

func (t *tx) UpdateInvoice(ctx context.Context, inv model.Invoice) error {
	if err := t.write("UpdateInvoice"); err != nil {
		return err
	}
	cur, ok := t.data.invoices[inv.ID]
	if !ok {
		return notFound("invoice", inv.ID)
	}
	cur.ClientID = inv.ClientID
	cur.ServiceType = inv.ServiceType
	cur.Description = inv.Description
	cur.Amount = inv.Amount
	cur.RenewalDate = inv.RenewalDate
	t.data.invoices[inv.ID] = cur
	return nil
}

func (t *tx) SetInvoicePaid(ctx context.Context, id uuid.UUID, paid bool) error {
	if err := t.write("SetInvoicePaid"); err != nil {
		return err
	}
	inv, ok := t.data.invoices[id]
	if !ok {
		return notFound("invoice", id)
	}
	inv.IsPaid = paid
	t.data.invoices[id] = inv
	return nil
}

func (t *tx) SetInvoiceDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	if err := t.write("SetInvoiceDeleted"); err != nil {
		return err
	}
	inv, ok := t.data.invoices[id]
	if !ok {
		return notFound("invoice", id)
	}
	inv.IsDeleted = deleted
	t.data.invoices[id] = inv
	return nil
}

func (t *tx) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	if err := t.write("DeleteInvoice"); err != nil {
		return err
	}
	for _, tr := range t.data.transactions {
		if tr.InvoiceID.Valid && tr.InvoiceID.UUID == id {
			return fmt.Errorf("invoice %s: %w", id, model.ErrHasDependents)
		}
	}
	for _, r := range t.data.reminders {
		if r.InvoiceID == id {
			return fmt.Errorf("invoice %s: %w", id, model.ErrHasDependents)
		}
	}
	for _, e := range t.data.events {
		if e.InvoiceID == id {
			return fmt.Errorf("invoice %s: %w", id, model.ErrHasDependents)
		}
	}
	delete(t.data.invoices, id)
	return nil
}

func (t *tx) Invoices(ctx context.Context, owner uuid.NullUUID, deleted bool) ([]store.InvoiceLine, error) {
	var out []store.InvoiceLine
	for _, inv := range t.data.invoices {
		if inv.IsDeleted != deleted {
			continue
		}
		if owner.Valid && inv.OwnerID != owner.UUID {
			continue
		}
		out = append(out, store.InvoiceLine{Invoice: inv, ClientName: t.data.clients[inv.ClientID]})
	}
	slices.SortFunc(out, func(a, b store.InvoiceLine) int { return a.RenewalDate.Compare(b.RenewalDate) })
	return out, nil
}

func (t *tx) CountInvoiceTransactions(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	n := 0
	for _, tr := range t.data.transactions {
		if tr.InvoiceID.Valid && tr.InvoiceID.UUID == invoiceID {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertReminder(ctx context.Context, r model.Reminder) error {
	if err := t.write("InsertReminder"); err != nil {
		return err
	}
	if _, ok := t.data.invoices[r.InvoiceID]; !ok {
		return notFound("invoice", r.InvoiceID)
	}
	t.data.reminders[r.ID] = r
	return nil
}

func (t *tx) InvoiceReminders(ctx context.Context, invoiceID uuid.UUID) ([]model.Reminder, error) {
	var out []model.Reminder
	for _, r := range t.data.reminders {
		if r.InvoiceID == invoiceID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Reminder) int { return a.DueAt.Compare(b.DueAt) })
	return out, nil
}

func (t *tx) DeleteInvoiceReminders(ctx context.Context, invoiceID uuid.UUID) error {
	if err := t.write("DeleteInvoiceReminders"); err != nil {
		return err
	}
	for id, r := range t.data.reminders {
		if r.InvoiceID == invoiceID {
			delete(t.data.reminders, id)
		}
	}
	return nil
}

func (t *tx) SetInvoiceRemindersDeleted(ctx context.Context, invoiceID uuid.UUID, deleted bool) error {
	if err := t.write("SetInvoiceRemindersDeleted"); err != nil {
		return err
	}
	for id, r := range t.data.reminders {
		if r.InvoiceID == invoiceID {
			r.IsDeleted = deleted
			t.data.reminders[id] = r
		}
	}
	return nil
}

func (t *tx) InsertPlannerEvent(ctx context.Context, e model.PlannerEvent) error {
	if err := t.write("InsertPlannerEvent"); err != nil {
		return err
	}
	if _, ok := t.data.invoices[e.InvoiceID]; !ok {
		return notFound("invoice", e.InvoiceID)
	}
	t.data.events[e.ID] = e
	return nil
}

func (t *tx) InvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) ([]model.PlannerEvent, error) {
	var out []model.PlannerEvent
	for _, e := range t.data.events {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.PlannerEvent) int { return a.StartDate.Compare(b.StartDate) })
	return out, nil
}

func (t *tx) DeleteInvoicePlannerEvents(ctx context.Context, invoiceID uuid.UUID) error {
	if err := t.write("DeleteInvoicePlannerEvents"); err != nil {
		return err
	}
	for id, e := range t.data.events {
		if e.InvoiceID == invoiceID {
			delete(t.data.events, id)
		}
	}
	return nil
}

func (t *tx) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var out []model.Reminder
	for _, r := range t.data.reminders {
		if r.IsSent || r.IsDeleted || r.DueAt.After(now) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Reminder) int { return a.DueAt.Compare(b.DueAt) })
	return out, nil
}

func (t *tx) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := t.write("MarkReminderSent"); err != nil {
		return false, err
	}
	r, ok := t.data.reminders[id]
	if !ok || r.IsSent {
		return false, nil
	}
	r.IsSent = true
	t.data.reminders[id] = r
	return true, nil
}
