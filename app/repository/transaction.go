package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

const transactionColumns = `
	id, transaction_id, order_id, type, provider, amount, fee, status,
	provider_txn_id, reference_txn_id, raw_payload, processed_at, created_at`

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transaction, 0)
	for rows.Next() {
		item := &entity.Transaction{}
		if err := scanTransaction(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindCompletedPayment returns the single completed payment of an order.
func (r *TransactionRepository) FindCompletedPayment(ctx context.Context, orderID string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE order_id = ? AND type = ? AND status = ?
		LIMIT 1`

	item := &entity.Transaction{}
	err := scanTransaction(r.db.QueryRowContext(ctx, query, orderID, string(entity.TransactionTypePayment), string(entity.TransactionStatusCompleted)), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func insertTransaction(ctx context.Context, db DBTX, txn *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			transaction_id, order_id, type, provider, amount, fee, status,
			provider_txn_id, reference_txn_id, raw_payload, processed_at, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		txn.TransactionID,
		txn.OrderID,
		string(txn.Type),
		txn.Provider,
		txn.Amount,
		txn.Fee,
		string(txn.Status),
		nullableStringValue(txn.ProviderTxnID),
		nullableStringValue(txn.ReferenceTxnID),
		nullableStringValue(txn.RawPayload),
		nullableTimeValue(txn.ProcessedAt),
		txn.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	txn.ID = uint64(id)
	return nil
}

func scanTransaction(scan rowScanner, txn *entity.Transaction) error {
	var txnType string
	var status string
	var providerTxnID sql.NullString
	var referenceTxnID sql.NullString
	var rawPayload sql.NullString
	var processedAt sql.NullTime

	err := scan.Scan(
		&txn.ID,
		&txn.TransactionID,
		&txn.OrderID,
		&txnType,
		&txn.Provider,
		&txn.Amount,
		&txn.Fee,
		&status,
		&providerTxnID,
		&referenceTxnID,
		&rawPayload,
		&processedAt,
		&txn.CreatedAt,
	)
	if err != nil {
		return err
	}

	txn.Type = entity.TransactionType(txnType)
	txn.Status = entity.TransactionStatus(status)
	txn.ProviderTxnID = stringPtrFromNull(providerTxnID)
	txn.ReferenceTxnID = stringPtrFromNull(referenceTxnID)
	txn.RawPayload = stringPtrFromNull(rawPayload)
	txn.ProcessedAt = timePtrFromNull(processedAt)
	return nil
}
