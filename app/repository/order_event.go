package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

type OrderEventRepository struct {
	db DBTX
}

func NewOrderEventRepository(db DBTX) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

func insertOrderEvent(ctx context.Context, db DBTX, event *entity.OrderEvent) error {
	query := `
		INSERT INTO order_events (
			event_id, order_id, event_type, old_status, new_status, payload_json,
			dispatch_status, dispatch_attempts, next_dispatch_at, last_error,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		event.EventID,
		event.OrderID,
		event.EventType,
		nullableStatusValue(event.OldStatus),
		string(event.NewStatus),
		event.PayloadJSON,
		event.DispatchStatus,
		event.DispatchAttempts,
		nullableTimeValue(event.NextDispatchAt),
		nullableStringValue(event.LastError),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

// ListDue returns pending events whose next dispatch time has come.
func (r *OrderEventRepository) ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.OrderEvent, error) {
	query := `
		SELECT id, event_id, order_id, event_type, old_status, new_status, payload_json,
			dispatch_status, dispatch_attempts, next_dispatch_at, last_error,
			created_at, updated_at
		FROM order_events
		WHERE dispatch_status = ?
		  AND next_dispatch_at IS NOT NULL
		  AND next_dispatch_at <= ?
		ORDER BY next_dispatch_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.DispatchStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.OrderEvent, 0)
	for rows.Next() {
		item := &entity.OrderEvent{}
		var oldStatus sql.NullString
		var newStatus string
		var nextAt sql.NullTime
		var lastErr sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.EventID,
			&item.OrderID,
			&item.EventType,
			&oldStatus,
			&newStatus,
			&item.PayloadJSON,
			&item.DispatchStatus,
			&item.DispatchAttempts,
			&nextAt,
			&lastErr,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if oldStatus.Valid {
			s := entity.OrderStatus(oldStatus.String)
			item.OldStatus = &s
		}
		item.NewStatus = entity.OrderStatus(newStatus)
		item.NextDispatchAt = timePtrFromNull(nextAt)
		item.LastError = stringPtrFromNull(lastErr)
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateDispatch persists the dispatch bookkeeping of event.
func (r *OrderEventRepository) UpdateDispatch(ctx context.Context, event *entity.OrderEvent) error {
	query := `
		UPDATE order_events SET
			dispatch_status = ?,
			dispatch_attempts = ?,
			next_dispatch_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		event.DispatchStatus,
		event.DispatchAttempts,
		nullableTimeValue(event.NextDispatchAt),
		nullableStringValue(event.LastError),
		event.UpdatedAt,
		event.ID,
	)
	return err
}
