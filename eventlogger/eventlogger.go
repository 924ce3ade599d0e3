package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one activity feed entry. A null RecipientID makes it a broadcast.
type Event struct {
	ID          uuid.UUID         `json:"id,omitempty"`
	Category    string            `json:"category,omitempty"`
	Message     string            `json:"message,omitempty"`
	RecipientID uuid.NullUUID     `json:"recipient_id"`
	ActorID     uuid.NullUUID     `json:"actor_id"`
	RelatedID   uuid.NullUUID     `json:"related_id"`
	RelatedName string            `json:"related_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithCategory(category string) EventOption {
	return func(e *Event) {
		e.Category = category
	}
}

func WithMessage(message string) EventOption {
	return func(e *Event) {
		e.Message = message
	}
}

func WithRecipient(userID uuid.UUID) EventOption {
	return func(e *Event) {
		e.RecipientID = uuid.NullUUID{UUID: userID, Valid: true}
	}
}

func WithActor(userID uuid.UUID) EventOption {
	return func(e *Event) {
		e.ActorID = uuid.NullUUID{UUID: userID, Valid: true}
	}
}

func WithRelated(id uuid.UUID, name string) EventOption {
	return func(e *Event) {
		e.RelatedID = uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
		e.RelatedName = name
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		e.Metadata = metadata
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

const DefaultRecentLimit = 20

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	// Recent returns the newest events first. With a valid recipient it
	// returns that user's events plus broadcasts, otherwise everything.
	Recent(ctx context.Context, recipient uuid.NullUUID, limit int) ([]Event, error)
	GetByCategory(ctx context.Context, category string) ([]Event, error)
}
