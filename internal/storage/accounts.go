package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

const accountColumns = `id, name, type, balance, is_manual, owner_id, household_id, institution, external_id`

// CreateAccount inserts a local account.
func (s *store) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	if account.Type == "" {
		account.Type = model.AccountOther
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, string(account.Type), account.Balance.String(), account.IsManual,
		nullString(account.OwnerID), nullString(account.HouseholdID),
		nullString(account.Institution), nullString(account.ExternalID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", account.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount returns the account with the given id.
func (s *store) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccounts returns all accounts ordered by name.
func (s *store) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// LinkAccount records the external id of a local account after reconciliation.
func (s *store) LinkAccount(ctx context.Context, id, externalID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE accounts SET external_id = ? WHERE id = ?`, externalID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external account %s already linked: %w", externalID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to link account: %w", err)
	}
	return requireAffected(result, "account", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account               model.Account
		accountType, balance  string
		ownerID, householdID  sql.NullString
		institution, external sql.NullString
	)
	if err := row.Scan(&account.ID, &account.Name, &accountType, &balance, &account.IsManual,
		&ownerID, &householdID, &institution, &external); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("account %s has invalid balance %q: %w", account.ID, balance, err)
	}
	account.Balance = amount
	account.Type = model.AccountType(accountType)
	account.OwnerID = ownerID.String
	account.HouseholdID = householdID.String
	account.Institution = institution.String
	account.ExternalID = external.String
	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(result sql.Result, kind string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, common.ErrNotFound)
	}
	return nil
}
