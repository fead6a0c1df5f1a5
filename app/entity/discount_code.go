package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type DiscountCode struct {
	ID uint64

	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinAmount   decimal.Decimal
	MaxDiscount decimal.Decimal
	UsageLimit  int64
	UsedCount   int64
	Active      bool

	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
