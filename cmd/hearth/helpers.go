package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/config"
	"github.com/Veraticus/hearth/internal/importer"
	"github.com/Veraticus/hearth/internal/matcher"
	"github.com/Veraticus/hearth/internal/ofx"
	"github.com/Veraticus/hearth/internal/recurring"
	"github.com/Veraticus/hearth/internal/storage"
)

// app bundles the validated configuration with an open, migrated store.
type app struct {
	engine *config.Engine
	store  *storage.SQLiteStorage
	logger *slog.Logger
}

// openApp loads the engine configuration and opens the database.
func openApp(ctx context.Context) (*app, error) {
	engine, err := config.LoadEngine(viper.GetViper())
	if err != nil {
		return nil, err
	}
	store, err := initStorage(ctx, engine.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &app{engine: engine, store: store, logger: slog.Default()}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

// initStorage opens the database at dbPath and applies pending migrations.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (a *app) builder() (*importer.Builder, error) {
	m, err := matcher.New(a.engine.Matcher)
	if err != nil {
		return nil, fmt.Errorf("%w: matcher: %v", common.ErrInvalidConfig, err)
	}
	return importer.NewBuilder(m, a.logger), nil
}

func (a *app) executor(opts ...importer.ExecutorOption) (*importer.Executor, error) {
	builder, err := a.builder()
	if err != nil {
		return nil, err
	}
	opts = append([]importer.ExecutorOption{importer.WithProtectManual(a.engine.ProtectManual)}, opts...)
	return importer.NewExecutor(a.store, builder, a.logger, opts...), nil
}

func (a *app) recurringService() (*recurring.Service, error) {
	detector, err := recurring.NewDetector(a.engine.Recurring)
	if err != nil {
		return nil, err
	}
	return recurring.NewService(a.store, detector, common.SystemClock{}, a.logger), nil
}

// loadImportRequest reads a statement file into an import request for accountID.
// OFX and QFX files yield parsed candidates; everything else goes through the
// tabular reader.
func loadImportRequest(ctx context.Context, a *app, path, accountID string) (importer.ExecuteRequest, error) {
	req := importer.ExecuteRequest{AccountID: accountID, Source: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return req, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		account, err := a.store.GetAccount(ctx, accountID)
		if err != nil {
			return req, err
		}
		statements, err := ofx.NewParser(a.logger).ParseFile(ctx, f)
		if err != nil {
			return req, err
		}
		stmt, err := pickStatement(statements, account.ExternalID)
		if err != nil {
			return req, err
		}
		for _, c := range stmt.Candidates {
			c.AccountID = accountID
			c.AccountType = string(account.Type)
			c.OwnerID = account.OwnerID
			req.Candidates = append(req.Candidates, c)
		}
	default:
		rows, err := importer.ReadFile(f, path)
		if err != nil {
			return req, err
		}
		req.Rows = rows
	}
	return req, nil
}

// pickStatement selects the statement for a local account. A file with several
// statements needs the account to be linked to one of them.
func pickStatement(statements []ofx.Statement, externalID string) (ofx.Statement, error) {
	switch {
	case len(statements) == 0:
		return ofx.Statement{}, fmt.Errorf("no statements found in file")
	case len(statements) == 1:
		return statements[0], nil
	}
	for _, s := range statements {
		if externalID != "" && s.Account.ExternalID == externalID {
			return s, nil
		}
	}
	return ofx.Statement{}, fmt.Errorf("file holds %d statements and none is linked to this account", len(statements))
}

// parseSkips parses a comma separated list of row numbers.
func parseSkips(raw string) ([]int, error) {
	var rows []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid row number %q", part)
		}
		rows = append(rows, n)
	}
	return rows, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
