// Package memstore is an in-memory store.Store. Transactions are serialized
// and work on a copy of the data that replaces the live copy only on commit,
// so a failed transaction leaves nothing behind.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/store"
	"github.com/google/uuid"
)

type grantKey struct {
	accountID uuid.UUID
	userID    uuid.UUID
}

type state struct {
	users        map[uuid.UUID]model.User
	clients      map[uuid.UUID]string
	accounts     map[uuid.UUID]model.Account
	grants       map[grantKey]model.Grant
	transactions map[uuid.UUID]model.Transaction
	invoices     map[uuid.UUID]model.Invoice
	reminders    map[uuid.UUID]model.Reminder
	events       map[uuid.UUID]model.PlannerEvent
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]model.User),
		clients:      make(map[uuid.UUID]string),
		accounts:     make(map[uuid.UUID]model.Account),
		grants:       make(map[grantKey]model.Grant),
		transactions: make(map[uuid.UUID]model.Transaction),
		invoices:     make(map[uuid.UUID]model.Invoice),
		reminders:    make(map[uuid.UUID]model.Reminder),
		events:       make(map[uuid.UUID]model.PlannerEvent),
	}
}

func (s *state) clone() *state {
	return &state{
		users:        maps.Clone(s.users),
		clients:      maps.Clone(s.clients),
		accounts:     maps.Clone(s.accounts),
		grants:       maps.Clone(s.grants),
		transactions: maps.Clone(s.transactions),
		invoices:     maps.Clone(s.invoices),
		reminders:    maps.Clone(s.reminders),
		events:       maps.Clone(s.events),
	}
}

type Store struct {
	mu    sync.Mutex
	data  *state
	fault func(op string) error
}

func New() *Store {
	return &Store{data: newState()}
}

// SetFault installs a hook called before every write with the operation
// name (e.g. "InsertTransaction"). A non-nil return aborts that write.
func (s *Store) SetFault(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) AddClient(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.clients[id] = name
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{data: s.data.clone(), fault: s.fault}
	if err := fn(t); err != nil {
		return err
	}
	s.data = t.data
	return nil
}

type tx struct {
	data  *state
	fault func(op string) error
}

func (t *tx) write(op string) error {
	if t.fault == nil {
		return nil
	}
	if err := t.fault(op); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
