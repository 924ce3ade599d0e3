package invoice

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/ledger"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/billbatista/acasinha-office/store/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixture struct {
	svc    *Service
	ledger *ledger.Service
	store  *memstore.Store
	alice  access.Principal
	bob    access.Principal
	admin  access.Principal
	client uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{
		svc:    NewService(st, nil),
		ledger: ledger.NewService(st, nil),
		store:  st,
		alice:  addUser(st, "alice", model.RoleUser),
		bob:    addUser(st, "bob", model.RoleUser),
		admin:  addUser(st, "root", model.RoleAdmin),
		client: uuid.New(),
	}
	st.AddClient(f.client, "Acme")
	return f
}

func addUser(st *memstore.Store, name string, role model.Role) access.Principal {
	u := model.User{ID: uuid.New(), Username: name, Role: role, CreatedAt: time.Now()}
	st.AddUser(u)
	return access.Principal{UserID: u.ID, Role: role}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) create(t *testing.T, p access.Principal, description string, renewal time.Time) uuid.UUID {
	t.Helper()
	id, err := f.svc.CreateInvoice(context.Background(), p, Params{
		ClientID:    f.client,
		ServiceType: "Hosting",
		Description: description,
		Amount:      decimal.RequireFromString("99.90"),
		RenewalDate: renewal,
	})
	if err != nil {
		t.Fatalf("CreateInvoice err=%v", err)
	}
	return id
}

func (f *fixture) detail(t *testing.T, id uuid.UUID) Detail {
	t.Helper()
	d, err := f.svc.Invoice(context.Background(), f.admin, id)
	if err != nil {
		t.Fatalf("Invoice(%s) err=%v", id, err)
	}
	return d
}

func (f *fixture) account(t *testing.T, p access.Principal, name string) model.Account {
	t.Helper()
	a, err := f.ledger.CreateAccount(context.Background(), p, ledger.CreateAccountParams{Name: name})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func (f *fixture) payments(t *testing.T, accountID uuid.UUID) []store.TransactionLine {
	t.Helper()
	lines, err := f.ledger.Statement(context.Background(), f.admin, accountID, ledger.StatementFilter{})
	if err != nil {
		t.Fatal(err)
	}
	return lines
}

func TestCreateInvoiceDerivesRecords(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))

	d := f.detail(t, id)
	if d.OwnerID != f.alice.UserID || d.IsPaid || d.IsDeleted {
		t.Fatalf("invoice=%+v", d.Invoice)
	}
	if len(d.Reminders) != 1 || len(d.PlannerEvents) != 1 {
		t.Fatalf("reminders=%d events=%d want 1/1", len(d.Reminders), len(d.PlannerEvents))
	}

	r := d.Reminders[0]
	if !r.DueAt.Equal(date(2024, time.June, 8)) {
		t.Fatalf("due=%s want 2024-06-08", r.DueAt)
	}
	if want := "Renewal for Inv #" + id.String() + ": Web hosting"; r.Message != want {
		t.Fatalf("message=%q want=%q", r.Message, want)
	}
	if r.UserID != f.alice.UserID || r.ClientName != "Acme" || r.IsSent {
		t.Fatalf("reminder=%+v", r)
	}

	e := d.PlannerEvents[0]
	if e.Title != "Renewal: Acme" || e.Description != "Invoice #"+id.String()+" Renewal: Web hosting" {
		t.Fatalf("event=%+v", e)
	}
	if !e.StartDate.Equal(date(2024, time.June, 15)) || !e.EndDate.Equal(date(2024, time.June, 15).Add(23*time.Hour)) {
		t.Fatalf("event span=%s..%s", e.StartDate, e.EndDate)
	}
}

func TestCreateInvoiceUnknownClientName(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.CreateInvoice(context.Background(), f.alice, Params{
		ClientID:    uuid.New(),
		Amount:      decimal.NewFromInt(10),
		RenewalDate: date(2024, time.July, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	d := f.detail(t, id)
	if d.Reminders[0].ClientName != "Client" || d.PlannerEvents[0].Title != "Renewal: Client" {
		t.Fatalf("reminder=%+v event=%+v", d.Reminders[0], d.PlannerEvents[0])
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		params Params
	}{
		{"no client", Params{Amount: decimal.NewFromInt(1), RenewalDate: date(2024, 1, 1)}},
		{"zero amount", Params{ClientID: f.client, RenewalDate: date(2024, 1, 1)}},
		{"no renewal date", Params{ClientID: f.client, Amount: decimal.NewFromInt(1)}},
		{"sub-cent amount", Params{ClientID: f.client, Amount: decimal.RequireFromString("0.004"), RenewalDate: date(2024, 1, 1)}},
		{"three decimals", Params{ClientID: f.client, Amount: decimal.RequireFromString("99.999"), RenewalDate: date(2024, 1, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.CreateInvoice(context.Background(), f.alice, tc.params); !errors.Is(err, model.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateInvoiceIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.store.SetFault(func(op string) error {
		if op == "InsertPlannerEvent" {
			return errors.New("boom")
		}
		return nil
	})
	if _, err := f.svc.CreateInvoice(context.Background(), f.alice, Params{
		ClientID: f.client, Amount: decimal.NewFromInt(5), RenewalDate: date(2024, 3, 3),
	}); err == nil {
		t.Fatal("want error from injected fault")
	}
	f.store.SetFault(nil)

	lines, err := f.svc.Invoices(context.Background(), f.alice, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("invoices=%d want=0", len(lines))
	}
}

func TestEditInvoiceRecomputesDerivedRecords(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))

	err := f.svc.EditInvoice(context.Background(), f.admin, id, Params{
		ClientID:    f.client,
		ServiceType: "Hosting",
		Description: "Hosting + mail",
		Amount:      decimal.NewFromInt(120),
		RenewalDate: date(2024, time.September, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	d := f.detail(t, id)
	if d.Description != "Hosting + mail" || !d.Amount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("invoice=%+v", d.Invoice)
	}
	if len(d.Reminders) != 1 || len(d.PlannerEvents) != 1 {
		t.Fatalf("reminders=%d events=%d want 1/1", len(d.Reminders), len(d.PlannerEvents))
	}
	r := d.Reminders[0]
	if !r.DueAt.Equal(date(2024, time.August, 25)) || !strings.HasSuffix(r.Message, ": Hosting + mail") {
		t.Fatalf("reminder=%+v", r)
	}
	if r.UserID != f.alice.UserID || d.PlannerEvents[0].UserID != f.alice.UserID {
		t.Fatal("derived records must stay with the invoice owner")
	}
	if !d.PlannerEvents[0].StartDate.Equal(date(2024, time.September, 1)) {
		t.Fatalf("event start=%s", d.PlannerEvents[0].StartDate)
	}
}

func TestEditInvoiceKeepsDeliveredReminder(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))
	reminderID := f.detail(t, id).Reminders[0].ID
	err := f.store.WithTransaction(context.Background(), func(tx store.Tx) error {
		_, err := tx.MarkReminderSent(context.Background(), reminderID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = f.svc.EditInvoice(context.Background(), f.alice, id, Params{
		ClientID: f.client, Description: "renamed", Amount: decimal.NewFromInt(1), RenewalDate: date(2024, time.June, 15),
	})
	if err != nil {
		t.Fatal(err)
	}
	if r := f.detail(t, id).Reminders[0]; !r.IsSent {
		t.Fatalf("reminder=%+v want still sent", r)
	}
}

func TestEditInvoiceAccessDenied(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))
	err := f.svc.EditInvoice(context.Background(), f.bob, id, Params{
		ClientID: f.client, Amount: decimal.NewFromInt(1), RenewalDate: date(2025, 1, 1),
	})
	if !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied, got %v", err)
	}
	if d := f.detail(t, id); !d.RenewalDate.Equal(date(2024, time.June, 15)) {
		t.Fatalf("invoice changed: %+v", d.Invoice)
	}
}

func TestTogglePaidAsymmetry(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, f.alice, "Business")
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))

	paid, err := f.svc.TogglePaid(context.Background(), f.alice, id, nil)
	if err != nil || !paid {
		t.Fatalf("paid=%v err=%v", paid, err)
	}
	payments := f.payments(t, a.ID)
	if len(payments) != 1 {
		t.Fatalf("payments=%d want=1", len(payments))
	}
	p := payments[0]
	if p.Kind != model.KindIncome || !p.Amount.Equal(decimal.RequireFromString("99.90")) {
		t.Fatalf("payment=%+v", p)
	}
	if !p.InvoiceID.Valid || p.InvoiceID.UUID != id {
		t.Fatalf("payment not linked to invoice: %+v", p.InvoiceID)
	}
	if want := "Payment for Inv #" + id.String() + ": Web hosting"; p.Description != want {
		t.Fatalf("description=%q want=%q", p.Description, want)
	}

	paid, err = f.svc.TogglePaid(context.Background(), f.alice, id, nil)
	if err != nil || paid {
		t.Fatalf("paid=%v err=%v", paid, err)
	}
	if n := len(f.payments(t, a.ID)); n != 1 {
		t.Fatalf("payments=%d want=1 after unpaying", n)
	}
	if d := f.detail(t, id); d.IsPaid {
		t.Fatal("invoice still paid")
	}
	acct, err := f.ledger.Account(context.Background(), f.alice, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !acct.Balance.Equal(decimal.RequireFromString("99.90")) {
		t.Fatalf("balance=%s want=99.90", acct.Balance)
	}
}

func TestTogglePaidAccountChoice(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))

	if _, err := f.svc.TogglePaid(context.Background(), f.alice, id, nil); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("want ErrValidation without any account, got %v", err)
	}

	f.account(t, f.alice, "Oldest")
	chosen := f.account(t, f.alice, "Chosen")
	stranger := f.account(t, f.bob, "Bob's")

	if _, err := f.svc.TogglePaid(context.Background(), f.alice, id, &stranger.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied, got %v", err)
	}
	if d := f.detail(t, id); d.IsPaid {
		t.Fatal("failed toggle must not mark paid")
	}

	if _, err := f.svc.TogglePaid(context.Background(), f.alice, id, &chosen.ID); err != nil {
		t.Fatal(err)
	}
	if n := len(f.payments(t, chosen.ID)); n != 1 {
		t.Fatalf("payments on chosen account=%d want=1", n)
	}
}

func TestTogglePaidDeletedInvoice(t *testing.T) {
	f := newFixture(t)
	f.account(t, f.alice, "Business")
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))
	if err := f.svc.DeleteInvoice(context.Background(), f.alice, id); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.TogglePaid(context.Background(), f.alice, id, nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRenewInvoice(t *testing.T) {
	f := newFixture(t)
	f.account(t, f.alice, "Business")
	id := f.create(t, f.alice, "Web hosting", date(2024, time.January, 10))
	if _, err := f.svc.TogglePaid(context.Background(), f.alice, id, nil); err != nil {
		t.Fatal(err)
	}

	renewalID, err := f.svc.RenewInvoice(context.Background(), f.admin, id)
	if err != nil {
		t.Fatal(err)
	}
	if renewalID == id {
		t.Fatal("renewal must be a new invoice")
	}

	d := f.detail(t, renewalID)
	if !d.RenewalDate.Equal(date(2025, time.January, 10)) {
		t.Fatalf("renewal date=%s want 2025-01-10", d.RenewalDate)
	}
	if d.IsPaid || d.Description != "RENEWAL: Web hosting" || d.OwnerID != f.alice.UserID {
		t.Fatalf("renewal=%+v", d.Invoice)
	}
	if len(d.Reminders) != 1 || !d.Reminders[0].DueAt.Equal(date(2025, time.January, 3)) {
		t.Fatalf("reminders=%+v want one due 2025-01-03", d.Reminders)
	}
	if len(d.PlannerEvents) != 1 || !d.PlannerEvents[0].StartDate.Equal(date(2025, time.January, 10)) {
		t.Fatalf("events=%+v", d.PlannerEvents)
	}

	orig := f.detail(t, id)
	if !orig.IsPaid || !orig.RenewalDate.Equal(date(2024, time.January, 10)) || len(orig.Reminders) != 1 {
		t.Fatalf("original changed: %+v", orig)
	}

	again, err := f.svc.RenewInvoice(context.Background(), f.alice, renewalID)
	if err != nil {
		t.Fatal(err)
	}
	if d := f.detail(t, again); d.Description != "RENEWAL: Web hosting" {
		t.Fatalf("description=%q", d.Description)
	}
}

func TestNextYear(t *testing.T) {
	cases := []struct {
		in, want time.Time
	}{
		{date(2024, time.January, 10), date(2025, time.January, 10)},
		{date(2024, time.February, 29), date(2025, time.February, 28)},
		{date(2027, time.February, 28), date(2028, time.February, 28)},
		{date(2024, time.December, 31), date(2025, time.December, 31)},
	}
	for _, tc := range cases {
		if got := nextYear(tc.in); !got.Equal(tc.want) {
			t.Errorf("nextYear(%s)=%s want=%s", tc.in.Format(time.DateOnly), got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
		}
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, f.alice, "Web hosting", date(2024, time.June, 15))
	now := date(2024, time.July, 1)

	if err := f.svc.DeleteInvoice(context.Background(), f.bob, id); !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied, got %v", err)
	}
	if err := f.svc.DeleteInvoice(context.Background(), f.alice, id); err != nil {
		t.Fatal(err)
	}

	active, _ := f.svc.Invoices(context.Background(), f.alice, false)
	trash, _ := f.svc.Invoices(context.Background(), f.alice, true)
	if len(active) != 0 || len(trash) != 1 || trash[0].ClientName != "Acme" {
		t.Fatalf("active=%d trash=%+v", len(active), trash)
	}
	if n := dueCount(t, f, now); n != 0 {
		t.Fatalf("due reminders=%d want=0 while trashed", n)
	}

	if err := f.svc.RestoreInvoice(context.Background(), f.alice, id); err != nil {
		t.Fatal(err)
	}
	if d := f.detail(t, id); d.IsDeleted || d.Reminders[0].IsDeleted {
		t.Fatalf("restore left flags set: %+v", d)
	}
	if n := dueCount(t, f, now); n != 1 {
		t.Fatalf("due reminders=%d want=1 after restore", n)
	}
}

func dueCount(t *testing.T, f *fixture, now time.Time) int {
	t.Helper()
	var n int
	err := f.store.WithTransaction(context.Background(), func(tx store.Tx) error {
		due, err := tx.DueReminders(context.Background(), now)
		n = len(due)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestHardDeleteInvoice(t *testing.T) {
	f := newFixture(t)
	f.account(t, f.alice, "Business")
	paidID := f.create(t, f.alice, "paid", date(2024, time.June, 15))
	if _, err := f.svc.TogglePaid(context.Background(), f.alice, paidID, nil); err != nil {
		t.Fatal(err)
	}

	err := f.svc.HardDeleteInvoice(context.Background(), f.alice, paidID)
	if !errors.Is(err, model.ErrHasDependents) || !strings.Contains(err.Error(), "1 payment transactions") {
		t.Fatalf("want ErrHasDependents, got %v", err)
	}

	id := f.create(t, f.alice, "unpaid", date(2024, time.June, 15))
	if err := f.svc.HardDeleteInvoice(context.Background(), f.alice, id); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Invoice(context.Background(), f.alice, id); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	err = f.store.WithTransaction(context.Background(), func(tx store.Tx) error {
		reminders, _ := tx.InvoiceReminders(context.Background(), id)
		events, _ := tx.InvoicePlannerEvents(context.Background(), id)
		if len(reminders)+len(events) != 0 {
			t.Errorf("derived records left: %d reminders, %d events", len(reminders), len(events))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInvoicesAdminSeesEveryOwner(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.alice, "a", date(2024, time.June, 15))
	f.create(t, f.bob, "b", date(2024, time.May, 15))

	mine, err := f.svc.Invoices(context.Background(), f.alice, false)
	if err != nil {
		t.Fatal(err)
	}
	all, err := f.svc.Invoices(context.Background(), f.admin, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || len(all) != 2 {
		t.Fatalf("mine=%d all=%d want 1/2", len(mine), len(all))
	}
	if all[0].Description != "b" {
		t.Fatalf("first=%q want earliest renewal first", all[0].Description)
	}
}

func TestWriteInvoicesCSV(t *testing.T) {
	lines := []store.InvoiceLine{
		{
			Invoice: model.Invoice{
				ServiceType: "Hosting",
				Description: "Web, mail",
				Amount:      decimal.RequireFromString("99.9"),
				RenewalDate: date(2024, time.June, 15),
				IsPaid:      true,
			},
			ClientName: "Acme",
		},
		{
			Invoice: model.Invoice{
				ServiceType: "Domain",
				Description: "acme.example",
				Amount:      decimal.NewFromInt(12),
				RenewalDate: date(2025, time.January, 2),
			},
			ClientName: "Acme",
		},
	}
	var buf bytes.Buffer
	if err := WriteInvoicesCSV(&buf, lines); err != nil {
		t.Fatal(err)
	}
	want := "Client Name,Service Type,Description,Amount,Renewal Date,Status\n" +
		"Acme,Hosting,\"Web, mail\",99.90,2024-06-15,Paid\n" +
		"Acme,Domain,acme.example,12.00,2025-01-02,Unpaid\n"
	if got := buf.String(); got != want {
		t.Fatalf("csv mismatch\n got=%q\nwant=%q", got, want)
	}
}
