package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

const ruleSelect = `
	SELECT id, name, COALESCE(household_id, ''), category_id, priority, enabled, conditions, created_at
	FROM categorization_rules`

// CreateRule inserts a categorization rule and sets its ID.
func (s *store) CreateRule(ctx context.Context, rule *model.CategorizationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO categorization_rules (name, household_id, category_id, priority, enabled, conditions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.Name, nullString(rule.HouseholdID), rule.CategoryID, rule.Priority, rule.Enabled,
		string(conditions), rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id
	return nil
}

// GetRule returns one rule.
func (s *store) GetRule(ctx context.Context, id int64) (*model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rule, err := scanRule(s.q.QueryRowContext(ctx, ruleSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return rule, err
}

// GetRules returns every rule in evaluation order.
func (s *store) GetRules(ctx context.Context) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, ruleSelect+` ORDER BY priority ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategorizationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// UpdateRule writes every field of rule except its creation time.
func (s *store) UpdateRule(ctx context.Context, rule *model.CategorizationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE categorization_rules
		SET name = ?, household_id = ?, category_id = ?, priority = ?, enabled = ?, conditions = ?
		WHERE id = ?`,
		rule.Name, nullString(rule.HouseholdID), rule.CategoryID, rule.Priority, rule.Enabled,
		string(conditions), rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
	}
	return requireAffected(result, "rule", rule.ID)
}

// DeleteRule removes a rule.
func (s *store) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM categorization_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	return requireAffected(result, "rule", id)
}

func scanRule(row rowScanner) (*model.CategorizationRule, error) {
	var (
		rule       model.CategorizationRule
		conditions string
	)
	err := row.Scan(&rule.ID, &rule.Name, &rule.HouseholdID, &rule.CategoryID, &rule.Priority,
		&rule.Enabled, &conditions, &rule.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("rule %d has invalid conditions: %w", rule.ID, err)
	}
	return &rule, nil
}
