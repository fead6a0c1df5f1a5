package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

var (
	ErrDiscountNotFound  = errors.New("discount code not found")
	ErrDiscountExpired   = errors.New("discount code expired")
	ErrDiscountDisabled  = errors.New("discount code is disabled")
	ErrDiscountExhausted = errors.New("discount code usage limit reached")
	ErrDiscountMinimum   = errors.New("amount below discount minimum")
)

var minimumFinalAmount = decimal.NewFromInt(1)

type Quote struct {
	Code     string
	Original decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// NormalizeCode upper-cases and trims a user supplied discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Discount checks the code in order (existence, expiry, state, usage, minimum)
// and returns min(cap, percentage or fixed value) rounded to two places.
func Discount(code *entity.DiscountCode, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if code == nil {
		return decimal.Zero, ErrDiscountNotFound
	}
	if code.ExpiresAt != nil && !now.Before(*code.ExpiresAt) {
		return decimal.Zero, ErrDiscountExpired
	}
	if !code.Active {
		return decimal.Zero, ErrDiscountDisabled
	}
	if code.UsageLimit > 0 && code.UsedCount >= code.UsageLimit {
		return decimal.Zero, ErrDiscountExhausted
	}
	if amount.LessThan(code.MinAmount) {
		return decimal.Zero, fmt.Errorf("%w: minimum %s", ErrDiscountMinimum, code.MinAmount.StringFixed(MoneyPlaces))
	}

	var discount decimal.Decimal
	switch code.Type {
	case entity.DiscountTypePercentage:
		discount = amount.Mul(code.Value).Div(decimal.NewFromInt(100))
	case entity.DiscountTypeFixed:
		discount = code.Value
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown type %q", ErrDiscountNotFound, code.Type)
	}

	if code.MaxDiscount.IsPositive() && discount.GreaterThan(code.MaxDiscount) {
		discount = code.MaxDiscount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(MoneyPlaces), nil
}

// FinalAmount subtracts the discount and never goes below 1. An amount
// already under 1 is returned unchanged, so a discount never raises a price.
func FinalAmount(amount, discount decimal.Decimal) decimal.Decimal {
	floor := decimal.Min(amount, minimumFinalAmount)
	final := amount.Sub(discount).Round(MoneyPlaces)
	if final.LessThan(floor) {
		return floor
	}
	return final
}

// Apply validates code against amount and returns a quote whose discount is
// adjusted so that Original - Discount == Final always holds.
func Apply(code *entity.DiscountCode, amount decimal.Decimal, now time.Time) (*Quote, error) {
	discount, err := Discount(code, amount, now)
	if err != nil {
		return nil, err
	}
	final := FinalAmount(amount, discount)
	return &Quote{
		Code:     code.Code,
		Original: amount,
		Discount: amount.Sub(final),
		Final:    final,
	}, nil
}
