package eventlogger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// activityRow keeps ids as text so the same model works on SQLite.
type activityRow struct {
	ID          string `gorm:"primaryKey"`
	Category    string `gorm:"index"`
	Message     string
	RecipientID *string `gorm:"index"`
	ActorID     *string
	RelatedID   *string
	RelatedName string
	Metadata    string
	CreatedAt   time.Time `gorm:"index"`
}

func (activityRow) TableName() string {
	return "activity_events"
}

type gormEventLogger struct {
	db *gorm.DB
}

// NewGormEventLogger migrates the activity table and returns a logger
// backed by it.
func NewGormEventLogger(db *gorm.DB) (*gormEventLogger, error) {
	if err := db.AutoMigrate(&activityRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate activity events: %w", err)
	}
	return &gormEventLogger{db: db}, nil
}

func nullString(id uuid.NullUUID) *string {
	if !id.Valid {
		return nil
	}
	s := id.UUID.String()
	return &s
}

func parseNull(s *string) uuid.NullUUID {
	if s == nil {
		return uuid.NullUUID{}
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}

func (el *gormEventLogger) Save(ctx context.Context, e Event) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	row := activityRow{
		ID:          e.ID.String(),
		Category:    e.Category,
		Message:     e.Message,
		RecipientID: nullString(e.RecipientID),
		ActorID:     nullString(e.ActorID),
		RelatedID:   nullString(e.RelatedID),
		RelatedName: e.RelatedName,
		Metadata:    string(metadata),
		CreatedAt:   e.CreatedAt,
	}
	if err := el.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (el *gormEventLogger) Recent(ctx context.Context, recipient uuid.NullUUID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	q := el.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if recipient.Valid {
		q = q.Where("recipient_id = ? OR recipient_id IS NULL", recipient.UUID.String())
	}
	var rows []activityRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return toEvents(rows)
}

func (el *gormEventLogger) GetByCategory(ctx context.Context, category string) ([]Event, error) {
	var rows []activityRow
	err := el.db.WithContext(ctx).Where("category = ?", category).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return toEvents(rows)
}

func toEvents(rows []activityRow) ([]Event, error) {
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return events, fmt.Errorf("event id %q: %w", r.ID, err)
		}
		e := Event{
			ID:          id,
			Category:    r.Category,
			Message:     r.Message,
			RecipientID: parseNull(r.RecipientID),
			ActorID:     parseNull(r.ActorID),
			RelatedID:   parseNull(r.RelatedID),
			RelatedName: r.RelatedName,
			CreatedAt:   r.CreatedAt,
		}
		if r.Metadata != "" {
			if err := json.Unmarshal([]byte(r.Metadata), &e.Metadata); err != nil {
				return events, err
			}
		}
		events = append(events, e)
	}
	return events, nil
}
