package ledger

import (
	"context"

	"github.com/billbatista/acasinha-office/access"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/google/uuid"
)

const (
	categoryAccount     = "Account"
	categoryTransaction = "Transaction"
	categoryTransfer    = "Transfer"
)

// emit runs after commit. The activity feed never decides whether a ledger
// change happened.
func (s *Service) emit(ctx context.Context, p access.Principal, category, message string, accountID uuid.UUID) {
	notify.Emit(notify.WithActor(ctx, p.UserID), s.notifier, category, message, notify.Related{ID: accountID, Name: "Account"})
}
