package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

type Kind string

const (
	KindIncome  Kind = "Income"
	KindExpense Kind = "Expense"
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Signed returns amount as it affects an account balance.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == KindExpense {
		return amount.Neg()
	}
	return amount
}

const DefaultCurrency = "USD"

// MoneyPlaces is the scale of every stored amount and balance.
const MoneyPlaces = 2

// FitsMoney reports whether d can be stored without rounding.
func FitsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Grant delegates read and write access on an account to a non-owner.
type Grant struct {
	AccountID uuid.UUID `json:"account_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	ActorID     uuid.UUID       `json:"actor_id"`
	InvoiceID   uuid.NullUUID   `json:"invoice_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // always positive, sign comes from Kind
	Kind        Kind            `json:"kind"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Invoice struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	ServiceType string          `json:"service_type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	RenewalDate time.Time       `json:"renewal_date"`
	IsPaid      bool            `json:"is_paid"`
	IsDeleted   bool            `json:"is_deleted"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Reminder and PlannerEvent are derived from an invoice and are never
// edited on their own.
type Reminder struct {
	ID         uuid.UUID `json:"id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
	UserID     uuid.UUID `json:"user_id"`
	ClientName string    `json:"client_name"`
	Message    string    `json:"message"`
	DueAt      time.Time `json:"due_at"`
	IsSent     bool      `json:"is_sent"`
	IsDeleted  bool      `json:"is_deleted"`
	CreatedAt  time.Time `json:"created_at"`
}

type PlannerEvent struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}
