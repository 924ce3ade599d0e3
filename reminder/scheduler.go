// Package reminder delivers due invoice reminders on a fixed interval.
//
// Delivery is at least once: a reminder is marked sent only after the
// notifier accepted it, so a failure, or a crash between delivery and the
// mark, means it is delivered again on a later cycle. A single scheduler per
// database is assumed; two schedulers may both deliver the same reminder.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/store"
)

const (
	DefaultInterval        = time.Hour
	DefaultDeliveryTimeout = 30 * time.Second
)

type Scheduler struct {
	Store    store.Store
	Notifier notify.Notifier
	// Interval between scans. Zero means DefaultInterval.
	Interval time.Duration
	// DeliveryTimeout bounds one Notify call. Zero means
	// DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration
	Now             func() time.Time
}

type Result struct {
	Due       int `json:"due"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Run scans once right away and then on every tick until ctx is cancelled.
// Cancellation interrupts the wait between scans; a delivery already in
// progress is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("reminder scheduler started", "interval", interval)
	for {
		res, err := s.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			slog.Error("reminder scan failed", "error", err)
		} else if res.Due > 0 {
			slog.Info("reminder scan finished", "due", res.Due, "delivered", res.Delivered, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			slog.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers every reminder that is due now. A failed delivery is
// logged and left unsent for the next scan; it never stops the batch.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var due []model.Reminder
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		due, err = tx.DueReminders(ctx, s.now())
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to load due reminders: %w", err)
	}

	res := Result{Due: len(due)}
	// Deliveries and marks outlive ctx so that shutdown never cuts one in
	// half.
	work := context.WithoutCancel(ctx)
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		if err := s.deliver(work, r); err != nil {
			res.Failed++
			slog.Warn("reminder delivery failed", "error", err, "reminder_id", r.ID, "invoice_id", r.InvoiceID)
			continue
		}
		res.Delivered++
		s.markSent(work, r)
	}
	return res, nil
}

func (s *Scheduler) deliver(ctx context.Context, r model.Reminder) error {
	timeout := s.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	recipient := r.UserID
	err := s.Notifier.Notify(ctx, &recipient, reminderText(r), notify.CategoryReminder, notify.Related{ID: r.InvoiceID, Name: "Invoice"})
	if err != nil && !errors.Is(err, model.ErrDeliveryFailed) {
		err = fmt.Errorf("%w: %w", model.ErrDeliveryFailed, err)
	}
	return err
}

func reminderText(r model.Reminder) string {
	return fmt.Sprintf("Invoice Reminder: %s\n%s\nDue %s", r.ClientName, r.Message, r.DueAt.Format(time.DateOnly))
}

func (s *Scheduler) markSent(ctx context.Context, r model.Reminder) {
	var marked bool
	err := s.Store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		marked, err = tx.MarkReminderSent(ctx, r.ID)
		return err
	})
	switch {
	case err != nil:
		slog.Error("failed to mark reminder sent, it will be delivered again", "error", err, "reminder_id", r.ID)
	case !marked:
		slog.Warn("reminder was already marked sent", "reminder_id", r.ID)
	}
}
