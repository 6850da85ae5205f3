package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

const patternSelect = `
	SELECT id, account_id, merchant_key, display_name, frequency, expected_amount, amount_variance,
		day_of_month, day_of_week, last_occurrence, next_expected_date, confidence,
		occurrence_count, status, created_at, updated_at
	FROM recurring_patterns`

// CreatePattern inserts a recurring pattern and sets its ID.
func (s *store) CreatePattern(ctx context.Context, pattern *model.RecurringPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	now := time.Now().UTC()
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	if pattern.UpdatedAt.IsZero() {
		pattern.UpdatedAt = pattern.CreatedAt
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO recurring_patterns (
			account_id, merchant_key, display_name, frequency, expected_amount, amount_variance,
			day_of_month, day_of_week, last_occurrence, next_expected_date, confidence,
			occurrence_count, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pattern.AccountID, pattern.MerchantKey, pattern.DisplayName, string(pattern.Frequency),
		pattern.ExpectedAmount.String(), pattern.AmountVariance.String(),
		nullDayOfMonth(pattern.DayOfMonth), nullWeekday(pattern.DayOfWeek),
		pattern.LastOccurrence.Format(dateLayout), pattern.NextExpectedDate.Format(dateLayout),
		pattern.Confidence, pattern.OccurrenceCount, string(pattern.Status),
		pattern.CreatedAt, pattern.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring pattern: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pattern ID: %w", err)
	}
	pattern.ID = id
	return nil
}

// GetPattern returns one recurring pattern.
func (s *store) GetPattern(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	pattern, err := scanPattern(s.q.QueryRowContext(ctx, patternSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring pattern %d: %w", id, common.ErrNotFound)
	}
	return pattern, err
}

// GetPatterns returns the patterns for an account, or all patterns when accountID is empty.
func (s *store) GetPatterns(ctx context.Context, accountID string) ([]model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := patternSelect
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY next_expected_date, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.RecurringPattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring patterns: %w", err)
	}
	return patterns, nil
}

// UpdatePattern writes every mutable field of pattern.
func (s *store) UpdatePattern(ctx context.Context, pattern *model.RecurringPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}
	if pattern.UpdatedAt.IsZero() {
		pattern.UpdatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE recurring_patterns
		SET display_name = ?, frequency = ?, expected_amount = ?, amount_variance = ?,
			day_of_month = ?, day_of_week = ?, last_occurrence = ?, next_expected_date = ?,
			confidence = ?, occurrence_count = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		pattern.DisplayName, string(pattern.Frequency),
		pattern.ExpectedAmount.String(), pattern.AmountVariance.String(),
		nullDayOfMonth(pattern.DayOfMonth), nullWeekday(pattern.DayOfWeek),
		pattern.LastOccurrence.Format(dateLayout), pattern.NextExpectedDate.Format(dateLayout),
		pattern.Confidence, pattern.OccurrenceCount, string(pattern.Status), pattern.UpdatedAt,
		pattern.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring pattern %d: %w", pattern.ID, err)
	}
	return requireAffected(result, "recurring pattern", pattern.ID)
}

func scanPattern(row rowScanner) (*model.RecurringPattern, error) {
	var (
		p                        model.RecurringPattern
		frequency, status        string
		expected, variance       string
		lastOccurrence, nextDate string
		dayOfMonth, dayOfWeek    sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.AccountID, &p.MerchantKey, &p.DisplayName, &frequency, &expected, &variance,
		&dayOfMonth, &dayOfWeek, &lastOccurrence, &nextDate, &p.Confidence,
		&p.OccurrenceCount, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recurring pattern: %w", err)
	}

	p.Frequency = model.Frequency(frequency)
	p.Status = model.PatternStatus(status)
	if p.ExpectedAmount, err = decimal.NewFromString(expected); err != nil {
		return nil, fmt.Errorf("pattern %d has invalid amount: %w", p.ID, err)
	}
	if p.AmountVariance, err = decimal.NewFromString(variance); err != nil {
		return nil, fmt.Errorf("pattern %d has invalid variance: %w", p.ID, err)
	}
	if p.LastOccurrence, err = time.Parse(dateLayout, lastOccurrence); err != nil {
		return nil, fmt.Errorf("pattern %d has invalid last occurrence: %w", p.ID, err)
	}
	if p.NextExpectedDate, err = time.Parse(dateLayout, nextDate); err != nil {
		return nil, fmt.Errorf("pattern %d has invalid next date: %w", p.ID, err)
	}
	if dayOfMonth.Valid {
		d := int(dayOfMonth.Int64)
		p.DayOfMonth = &d
	}
	if dayOfWeek.Valid {
		d := time.Weekday(dayOfWeek.Int64)
		p.DayOfWeek = &d
	}
	return &p, nil
}

func nullDayOfMonth(d *int) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}

func nullWeekday(d *time.Weekday) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}
