package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyExists  = errors.New("order already exists")
	ErrDiscountUnavailable = errors.New("discount code is no longer available")
)

const orderColumns = `
	id, order_id, request_id, caller_service, user_id,
	package_code, provider, method,
	amount, original_amount, discount_code, discount_amount, fee, currency,
	payment_url, provider_reference, instructions_json,
	customer_name, customer_email, customer_phone, message,
	status, failure_reason, expires_at, paid_at, created_at, updated_at`

type OrderFilter struct {
	UserID   string
	Provider string
	Package  string
	Status   entity.OrderStatus
	Limit    int32
	Offset   int32
}

// Transition moves an order from one of From to To. The Transaction and
// Event, when set, are written in the same database transaction and only if
// the status update wins.
type Transition struct {
	OrderID           string
	From              []entity.OrderStatus
	To                entity.OrderStatus
	FailureReason     *string
	PaidAt            *time.Time
	ProviderReference *string
	Transaction       *entity.Transaction
	Event             *entity.OrderEvent
	At                time.Time
}

// StatsFilter bounds statistics by creation time. From is inclusive, To is
// exclusive; a nil bound is open.
type StatsFilter struct {
	From *time.Time
	To   *time.Time
}

func (f StatsFilter) Includes(createdAt time.Time) bool {
	if f.From != nil && createdAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !createdAt.Before(*f.To) {
		return false
	}
	return true
}

// StatsBucket counts every order in the group. Revenue only sums completed
// orders.
type StatsBucket struct {
	Count     int64
	Total     decimal.Decimal
	Completed int64
	Revenue   decimal.Decimal
}

type OrderStats struct {
	Filter     StatsFilter
	ByStatus   map[string]StatsBucket
	ByProvider map[string]StatsBucket
	ByMethod   map[string]StatsBucket
	ByPackage  map[string]StatsBucket
}

type OrderRepository struct {
	db TxDB
}

func NewOrderRepository(db TxDB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a pending order. When the order carries a discount code the
// code's usage is consumed in the same transaction; a code that ran out in
// the meantime yields ErrDiscountUnavailable and nothing is written.
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return withTx(ctx, r.db, func(tx DBTX) error {
		if order.DiscountCode != nil {
			if err := consumeDiscount(ctx, tx, *order.DiscountCode, order.CreatedAt); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO orders (
				order_id, request_id, caller_service, user_id,
				package_code, provider, method,
				amount, original_amount, discount_code, discount_amount, fee, currency,
				payment_url, provider_reference, instructions_json,
				customer_name, customer_email, customer_phone, message,
				status, failure_reason, expires_at, paid_at, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := tx.ExecContext(ctx, query,
			order.OrderID,
			order.RequestID,
			order.CallerService,
			nullableStringValue(order.UserID),
			order.PackageCode,
			order.Provider,
			order.Method,
			order.Amount,
			order.OriginalAmount,
			nullableStringValue(order.DiscountCode),
			order.DiscountAmount,
			order.Fee,
			order.Currency,
			nullableStringValue(order.PaymentURL),
			nullableStringValue(order.ProviderReference),
			nullableStringValue(order.InstructionsJSON),
			nullableStringValue(order.CustomerName),
			nullableStringValue(order.CustomerEmail),
			nullableStringValue(order.CustomerPhone),
			nullableStringValue(order.Message),
			string(order.Status),
			nullableStringValue(order.FailureReason),
			order.ExpiresAt,
			nullableTimeValue(order.PaidAt),
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isDuplicateEntryError(err) {
				return ErrOrderAlreadyExists
			}
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		order.ID = uint64(id)
		return nil
	})
}

// UpdateCheckout stores what the provider returned for an order that is
// still open.
func (r *OrderRepository) UpdateCheckout(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			payment_url = ?,
			provider_reference = ?,
			instructions_json = ?,
			fee = ?,
			expires_at = ?,
			updated_at = ?
		WHERE order_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(order.PaymentURL),
		nullableStringValue(order.ProviderReference),
		nullableStringValue(order.InstructionsJSON),
		order.Fee,
		order.ExpiresAt,
		order.UpdatedAt,
		order.OrderID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Transition applies t atomically and reports whether this call won. A
// false result with a nil error means the order was no longer in From.
func (r *OrderRepository) Transition(ctx context.Context, t *Transition) (bool, error) {
	if len(t.From) == 0 {
		return false, errors.New("transition requires at least one source status")
	}

	applied := false
	err := withTx(ctx, r.db, func(tx DBTX) error {
		placeholders, args := statusArgs(t.From)
		query := `
			UPDATE orders SET
				status = ?,
				failure_reason = COALESCE(?, failure_reason),
				paid_at = COALESCE(?, paid_at),
				provider_reference = COALESCE(?, provider_reference),
				updated_at = ?
			WHERE order_id = ? AND status IN (` + placeholders + `)
		`
		params := append([]interface{}{
			string(t.To),
			nullableStringValue(t.FailureReason),
			nullableTimeValue(t.PaidAt),
			nullableStringValue(t.ProviderReference),
			t.At,
			t.OrderID,
		}, args...)

		result, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return errTransitionLost
		}

		if t.Transaction != nil {
			if err := insertTransaction(ctx, tx, t.Transaction); err != nil {
				if isDuplicateEntryError(err) {
					return errTransitionLost
				}
				return err
			}
		}
		if t.Event != nil {
			if err := insertOrderEvent(ctx, tx, t.Event); err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if errors.Is(err, errTransitionLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

var errTransitionLost = errors.New("transition lost")

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ?`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByCallerRequestID(ctx context.Context, callerService, requestID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE caller_service = ? AND request_id = ?`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, callerService, requestID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`

	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if strings.TrimSpace(filter.UserID) != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if strings.TrimSpace(filter.Provider) != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if strings.TrimSpace(filter.Package) != "" {
		conditions = append(conditions, "package_code = ?")
		args = append(args, filter.Package)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.queryOrders(ctx, query, args...)
}

// ListExpiredOpen returns open orders whose expiry has passed.
func (r *OrderRepository) ListExpiredOpen(ctx context.Context, now time.Time, limit int32) ([]*entity.Order, error) {
	placeholders, args := statusArgs(entity.OpenOrderStatuses)
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status IN (` + placeholders + `) AND expires_at <= ?
		ORDER BY expires_at ASC
		LIMIT ?`
	args = append(args, now, limit)
	return r.queryOrders(ctx, query, args...)
}

// ListForReconcile returns open orders untouched since before.
func (r *OrderRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	placeholders, args := statusArgs(entity.OpenOrderStatuses)
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status IN (` + placeholders + `) AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?`
	args = append(args, before, limit)
	return r.queryOrders(ctx, query, args...)
}

func (r *OrderRepository) Stats(ctx context.Context, filter StatsFilter) (*OrderStats, error) {
	stats := &OrderStats{Filter: filter}
	var err error
	if stats.ByStatus, err = r.group(ctx, "status", filter); err != nil {
		return nil, err
	}
	if stats.ByProvider, err = r.group(ctx, "provider", filter); err != nil {
		return nil, err
	}
	if stats.ByMethod, err = r.group(ctx, "method", filter); err != nil {
		return nil, err
	}
	if stats.ByPackage, err = r.group(ctx, "package_code", filter); err != nil {
		return nil, err
	}
	return stats, nil
}

// group only accepts the fixed column names used by Stats.
func (r *OrderRepository) group(ctx context.Context, column string, filter StatsFilter) (map[string]StatsBucket, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, *filter.To)
	}

	query := `SELECT ` + column + `, COUNT(*), COALESCE(SUM(amount), 0),
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'completed' THEN amount ELSE 0 END), 0)
		FROM orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` GROUP BY ` + column

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]StatsBucket)
	for rows.Next() {
		var key string
		var bucket StatsBucket
		if err := rows.Scan(&key, &bucket.Count, &bucket.Total, &bucket.Completed, &bucket.Revenue); err != nil {
			return nil, err
		}
		out[key] = bucket
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		item := &entity.Order{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(scan rowScanner, order *entity.Order) error {
	var userID sql.NullString
	var discountCode sql.NullString
	var paymentURL sql.NullString
	var providerReference sql.NullString
	var instructionsJSON sql.NullString
	var customerName sql.NullString
	var customerEmail sql.NullString
	var customerPhone sql.NullString
	var message sql.NullString
	var status string
	var failureReason sql.NullString
	var paidAt sql.NullTime

	err := scan.Scan(
		&order.ID,
		&order.OrderID,
		&order.RequestID,
		&order.CallerService,
		&userID,
		&order.PackageCode,
		&order.Provider,
		&order.Method,
		&order.Amount,
		&order.OriginalAmount,
		&discountCode,
		&order.DiscountAmount,
		&order.Fee,
		&order.Currency,
		&paymentURL,
		&providerReference,
		&instructionsJSON,
		&customerName,
		&customerEmail,
		&customerPhone,
		&message,
		&status,
		&failureReason,
		&order.ExpiresAt,
		&paidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.UserID = stringPtrFromNull(userID)
	order.DiscountCode = stringPtrFromNull(discountCode)
	order.PaymentURL = stringPtrFromNull(paymentURL)
	order.ProviderReference = stringPtrFromNull(providerReference)
	order.InstructionsJSON = stringPtrFromNull(instructionsJSON)
	order.CustomerName = stringPtrFromNull(customerName)
	order.CustomerEmail = stringPtrFromNull(customerEmail)
	order.CustomerPhone = stringPtrFromNull(customerPhone)
	order.Message = stringPtrFromNull(message)
	order.Status = entity.OrderStatus(status)
	order.FailureReason = stringPtrFromNull(failureReason)
	order.PaidAt = timePtrFromNull(paidAt)

	return nil
}
