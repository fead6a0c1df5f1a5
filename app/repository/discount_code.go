package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

type DiscountCodeRepository struct {
	db DBTX
}

func NewDiscountCodeRepository(db DBTX) *DiscountCodeRepository {
	return &DiscountCodeRepository{db: db}
}

func (r *DiscountCodeRepository) FindByCode(ctx context.Context, code string) (*entity.DiscountCode, error) {
	query := `
		SELECT id, code, type, value, min_amount, max_discount, usage_limit, used_count, active,
			expires_at, created_at, updated_at
		FROM discount_codes
		WHERE code = ?
	`

	item := &entity.DiscountCode{}
	var discountType string
	var expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&item.ID,
		&item.Code,
		&discountType,
		&item.Value,
		&item.MinAmount,
		&item.MaxDiscount,
		&item.UsageLimit,
		&item.UsedCount,
		&item.Active,
		&expiresAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.Type = entity.DiscountType(discountType)
	item.ExpiresAt = timePtrFromNull(expiresAt)
	return item, nil
}

// consumeDiscount takes one use of code if it is still redeemable at now.
func consumeDiscount(ctx context.Context, db DBTX, code string, now time.Time) error {
	query := `
		UPDATE discount_codes SET
			used_count = used_count + 1,
			updated_at = ?
		WHERE code = ?
		  AND active = 1
		  AND (usage_limit = 0 OR used_count < usage_limit)
		  AND (expires_at IS NULL OR expires_at > ?)
	`

	result, err := db.ExecContext(ctx, query, now, code, now)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDiscountUnavailable
	}
	return nil
}
