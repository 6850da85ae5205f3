package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/service"
)

const dateLayout = "2006-01-02"

const transactionSelect = `
	SELECT t.id, t.account_id, t.date, t.amount, t.description, COALESCE(t.merchant, ''),
		t.category_id, COALESCE(c.name, ''), COALESCE(t.notes, ''),
		t.is_manual, t.is_adjustment, t.is_pending, t.external_id, t.created_at, t.updated_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

// CreateTransaction inserts txn and sets its ID.
func (s *store) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = txn.CreatedAt
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (
			account_id, date, amount, description, merchant, category_id, notes,
			is_manual, is_adjustment, is_pending, external_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.AccountID, txn.Date.Format(dateLayout), txn.Amount.String(), txn.Description,
		nullString(txn.Merchant), nullInt64(txn.CategoryID), nullString(txn.Notes),
		txn.IsManual, txn.IsAdjustment, txn.IsPending, nullString(txn.ExternalIDValue()),
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external id %s on account %s: %w", txn.ExternalIDValue(), txn.AccountID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id
	return nil
}

// UpdateTransaction writes the mutable fields of txn.
func (s *store) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if txn.ID == 0 {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, merchant = ?, category_id = ?, notes = ?, is_pending = ?,
			external_id = ?, updated_at = ?
		WHERE id = ?`,
		txn.Description, nullString(txn.Merchant), nullInt64(txn.CategoryID), nullString(txn.Notes),
		txn.IsPending, nullString(txn.ExternalIDValue()), txn.UpdatedAt, txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", txn.ID, err)
	}
	return requireAffected(result, "transaction", txn.ID)
}

// GetTransactionByID returns one transaction.
func (s *store) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	return txn, err
}

// GetTransactions returns transactions matching filter ordered by date then id.
func (s *store) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	var (
		where []string
		args  []any
	)
	if filter.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		where = append(where, "t.date >= ?")
		args = append(args, filter.StartDate.Format(dateLayout))
	}
	if filter.EndDate != nil {
		where = append(where, "t.date <= ?")
		args = append(args, filter.EndDate.Format(dateLayout))
	}

	query := transactionSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date, t.id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// SaveImportBatch records a committed import.
func (s *store) SaveImportBatch(ctx context.Context, batch *service.ImportBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if err := validateString(batch.ID, "batch.ID"); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO import_batches (id, account_id, source, row_count, created, updated, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.AccountID, nullString(batch.Source), batch.RowCount,
		batch.Created, batch.Updated, batch.Skipped, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save import batch: %w", err)
	}
	return nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn          model.Transaction
		date, amount string
		categoryID   sql.NullInt64
		externalID   sql.NullString
	)
	err := row.Scan(&txn.ID, &txn.AccountID, &date, &amount, &txn.Description, &txn.Merchant,
		&categoryID, &txn.CategoryName, &txn.Notes,
		&txn.IsManual, &txn.IsAdjustment, &txn.IsPending, &externalID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %d has invalid date %q: %w", txn.ID, date, err)
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %d has invalid amount %q: %w", txn.ID, amount, err)
	}
	if categoryID.Valid {
		id := categoryID.Int64
		txn.CategoryID = &id
	}
	if externalID.Valid {
		ext := externalID.String
		txn.ExternalID = &ext
	}
	return &txn, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
