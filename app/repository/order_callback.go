package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

type OrderCallbackRepository struct {
	db DBTX
}

func NewOrderCallbackRepository(db DBTX) *OrderCallbackRepository {
	return &OrderCallbackRepository{db: db}
}

func (r *OrderCallbackRepository) Create(ctx context.Context, callback *entity.OrderCallback) error {
	query := `
		INSERT INTO order_callbacks (
			provider, order_id, payload_json, outcome, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		callback.Provider,
		nullableStringValue(callback.OrderID),
		callback.PayloadJSON,
		string(callback.Outcome),
		nullableStringValue(callback.Error),
		callback.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)
	return nil
}
