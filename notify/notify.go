// Package notify delivers messages to users: activity feed entries written
// in the background, synchronous feed deliveries and Discord messages.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/billbatista/acasinha-office/eventlogger"
	"github.com/billbatista/acasinha-office/model"
	"github.com/google/uuid"
)

const (
	CategorySystem   = "System"
	CategoryReminder = "Reminder"
)

// Related names the entity a message is about.
type Related struct {
	ID   uuid.UUID
	Name string
}

type Notifier interface {
	// Notify delivers message to recipient, or to everyone when recipient
	// is nil.
	Notify(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error
}

type NotifierFunc func(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error

func (f NotifierFunc) Notify(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error {
	return f(ctx, recipient, message, category, related)
}

// Discard drops every message.
var Discard Notifier = NotifierFunc(func(context.Context, *uuid.UUID, string, string, Related) error { return nil })

type actorKey struct{}

// WithActor records who caused the messages sent with ctx.
func WithActor(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func actorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Emit sends a fire-and-forget activity message. A failure is logged and
// never reaches the caller.
func Emit(ctx context.Context, n Notifier, category, message string, related Related) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, nil, message, category, related); err != nil {
		slog.Warn("failed to emit activity", "error", err, "category", category, "related_id", related.ID)
	}
}

func event(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) eventlogger.Event {
	opts := []eventlogger.EventOption{
		eventlogger.WithCategory(category),
		eventlogger.WithMessage(message),
		eventlogger.WithRelated(related.ID, related.Name),
	}
	if recipient != nil {
		opts = append(opts, eventlogger.WithRecipient(*recipient))
	}
	if actor, ok := actorFrom(ctx); ok {
		opts = append(opts, eventlogger.WithActor(actor))
	}
	return eventlogger.NewEvent(opts...)
}

// Activity queues messages on the event worker without waiting for them to
// be stored.
type Activity struct {
	worker *eventlogger.Worker
}

func NewActivity(worker *eventlogger.Worker) *Activity {
	return &Activity{worker: worker}
}

func (a *Activity) Notify(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error {
	if !a.worker.Log(event(ctx, recipient, message, category, related)) {
		return fmt.Errorf("activity queue full: %w", model.ErrDeliveryFailed)
	}
	return nil
}

// Feed stores the message before returning, so a nil error means the
// recipient will see it.
type Feed struct {
	logger eventlogger.EventLogger
}

func NewFeed(logger eventlogger.EventLogger) *Feed {
	return &Feed{logger: logger}
}

func (f *Feed) Notify(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error {
	if err := f.logger.Save(ctx, event(ctx, recipient, message, category, related)); err != nil {
		return fmt.Errorf("%w: %w", model.ErrDeliveryFailed, err)
	}
	return nil
}
