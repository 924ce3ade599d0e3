package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := `INSERT INTO activity_events (id, category, message, recipient_id, actor_id, related_id, related_name, event_metadata, created_at)
                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = el.db.ExecContext(
		ctx,
		statement,
		e.ID,
		e.Category,
		e.Message,
		e.RecipientID,
		e.ActorID,
		e.RelatedID,
		e.RelatedName,
		jsonMetadata,
		e.CreatedAt,
	)
	return err
}

const eventColumns = `id, category, message, recipient_id, actor_id, related_id, related_name, event_metadata, created_at`

func (el *sqlEventLogger) Recent(ctx context.Context, recipient uuid.NullUUID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	query := `SELECT ` + eventColumns + `
              FROM activity_events
              WHERE $1::uuid IS NULL OR recipient_id = $1 OR recipient_id IS NULL
              ORDER BY created_at DESC
              LIMIT $2`
	return el.query(ctx, query, recipient, limit)
}

func (el *sqlEventLogger) GetByCategory(ctx context.Context, category string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM activity_events WHERE category = $1 ORDER BY created_at DESC`
	return el.query(ctx, query, category)
}

func (el *sqlEventLogger) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	result, err := el.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonMetadata []byte
		err := result.Scan(
			&event.ID,
			&event.Category,
			&event.Message,
			&event.RecipientID,
			&event.ActorID,
			&event.RelatedID,
			&event.RelatedName,
			&jsonMetadata,
			&event.CreatedAt,
		)
		if err != nil {
			return events, err
		}
		if len(jsonMetadata) > 0 {
			if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
				return events, err
			}
		}
		events = append(events, event)
	}

	return events, result.Err()
}
