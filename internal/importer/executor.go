package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/service"
	"github.com/Veraticus/hearth/internal/similarity"
)

// ExecuteRequest is an import to commit.
type ExecuteRequest struct {
	AccountID      string
	Source         string
	Rows           []RawRow
	Candidates     []model.Candidate
	SkipRowNumbers []int
}

// ProgressFunc is called after each committed row.
type ProgressFunc func(done, total int)

// Executor commits import rows. Each call re-derives the preview from the store, so
// retrying a request that already succeeded writes nothing new.
type Executor struct {
	store         service.Storage
	builder       *Builder
	clock         common.Clock
	logger        *slog.Logger
	progress      ProgressFunc
	protectManual bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClock sets the clock used for timestamps.
func WithClock(c common.Clock) ExecutorOption {
	return func(e *Executor) { e.clock = c }
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) ExecutorOption {
	return func(e *Executor) { e.progress = fn }
}

// WithProtectManual controls whether matches on manual transactions are skipped.
func WithProtectManual(protect bool) ExecutorOption {
	return func(e *Executor) { e.protectManual = protect }
}

// NewExecutor creates an executor writing to store.
func NewExecutor(store service.Storage, builder *Builder, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:         store,
		builder:       builder,
		clock:         common.SystemClock{},
		logger:        common.ComponentLogger(logger, "executor"),
		protectManual: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadContext reads the account, its transactions around the given dates and the
// rules from the store.
func LoadContext(ctx context.Context, store service.Storage, accountID string, dates []time.Time, window int, protectManual bool) (AccountContext, error) {
	account, err := store.GetAccount(ctx, accountID)
	if err != nil {
		return AccountContext{}, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	actx := AccountContext{Account: *account, ProtectManual: protectManual}

	if len(dates) > 0 {
		from, to := dates[0], dates[0]
		for _, d := range dates[1:] {
			if d.Before(from) {
				from = d
			}
			if d.After(to) {
				to = d
			}
		}
		from = from.AddDate(0, 0, -window)
		to = to.AddDate(0, 0, window)

		actx.Pool, err = store.GetTransactions(ctx, service.TransactionFilter{
			AccountID: accountID,
			StartDate: &from,
			EndDate:   &to,
		})
		if err != nil {
			return AccountContext{}, fmt.Errorf("failed to load transactions: %w", err)
		}
	}

	actx.Rules, err = store.GetRules(ctx)
	if err != nil {
		return AccountContext{}, fmt.Errorf("failed to load rules: %w", err)
	}

	return actx, nil
}

// Preview builds the preview for req against the current store contents.
func (e *Executor) Preview(ctx context.Context, req ExecuteRequest) (model.ImportPreview, error) {
	dates := e.candidateDates(req)
	actx, err := LoadContext(ctx, e.store, req.AccountID, dates, e.builder.Matcher().Config().DateWindowDays, e.protectManual)
	if err != nil {
		return model.ImportPreview{}, err
	}

	var preview model.ImportPreview
	if req.Rows != nil {
		preview = e.builder.Preview(req.Rows, actx)
	} else {
		preview = e.builder.PreviewCandidates(req.Candidates, actx)
	}
	return ApplySkips(preview, req.SkipRowNumbers), nil
}

func (e *Executor) candidateDates(req ExecuteRequest) []time.Time {
	var dates []time.Time
	for _, row := range req.Rows {
		if d, ok := ParseDate(row.Get(ColDate)); ok {
			dates = append(dates, d)
		}
	}
	for _, c := range req.Candidates {
		dates = append(dates, model.DayOf(c.Date))
	}
	return dates
}

// Execute commits the create and update rows of req in one store transaction.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) (result *model.ImportResult, err error) {
	preview, err := e.Preview(ctx, req)
	if err != nil {
		return nil, err
	}

	result = &model.ImportResult{
		BatchID: uuid.NewString(),
		Preview: preview,
		Created: []int64{},
		Updated: []int64{},
	}

	pending := preview.Summary.Create + preview.Summary.Update
	if pending == 0 {
		e.logger.Info("Nothing to import", "account_id", req.AccountID, "rows", preview.TotalRows)
		return result, nil
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("Failed to rollback import", "error", rbErr)
			}
		}
	}()

	categories, err := tx.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	resolver := &categoryResolver{tx: tx, index: model.NewCategoryIndex(categories)}

	now := e.clock.Now()
	done := 0
	for _, row := range preview.Rows {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		switch row.Action {
		case model.ActionCreate:
			var txn *model.Transaction
			txn, err = e.newTransaction(ctx, row, resolver, now)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row.RowNumber, err)
			}
			if err = tx.CreateTransaction(ctx, txn); err != nil {
				return nil, fmt.Errorf("row %d: failed to create transaction: %w", row.RowNumber, err)
			}
			result.Created = append(result.Created, txn.ID)

		case model.ActionUpdate:
			var txn *model.Transaction
			txn, err = e.applyChanges(ctx, row, resolver, now)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row.RowNumber, err)
			}
			if err = tx.UpdateTransaction(ctx, txn); err != nil {
				return nil, fmt.Errorf("row %d: failed to update transaction: %w", row.RowNumber, err)
			}
			result.Updated = append(result.Updated, txn.ID)

		default:
			continue
		}

		done++
		if e.progress != nil {
			e.progress(done, pending)
		}
	}

	err = tx.SaveImportBatch(ctx, &service.ImportBatch{
		ID:        result.BatchID,
		AccountID: req.AccountID,
		Source:    req.Source,
		RowCount:  preview.TotalRows,
		Created:   len(result.Created),
		Updated:   len(result.Updated),
		Skipped:   preview.Summary.Skip,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record import batch: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	result.Committed = done
	e.logger.Info("Import committed",
		"batch_id", result.BatchID,
		"account_id", req.AccountID,
		"created", len(result.Created),
		"updated", len(result.Updated),
		"skipped", preview.Summary.Skip,
		"unchanged", preview.Summary.Unchanged)

	return result, nil
}

func (e *Executor) newTransaction(ctx context.Context, row model.ImportRow, resolver *categoryResolver, now time.Time) (*model.Transaction, error) {
	c := row.Parsed
	txn := &model.Transaction{
		AccountID:   c.AccountID,
		Date:        model.DayOf(c.Date),
		Amount:      c.Amount,
		Description: c.Description,
		Merchant:    c.Merchant,
		Notes:       c.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.ExternalID != "" {
		id := c.ExternalID
		txn.ExternalID = &id
	}

	switch {
	case c.CategoryHint != "":
		cat, err := resolver.resolve(ctx, c.CategoryHint)
		if err != nil {
			return nil, err
		}
		txn.CategoryID = &cat.ID
		txn.CategoryName = cat.Name
	case row.SuggestedCategoryID != nil:
		id := *row.SuggestedCategoryID
		txn.CategoryID = &id
	}

	return txn, nil
}

func (e *Executor) applyChanges(ctx context.Context, row model.ImportRow, resolver *categoryResolver, now time.Time) (*model.Transaction, error) {
	txn := *row.MatchedTransaction
	for _, change := range row.Changes {
		switch change.Field {
		case model.FieldDescription:
			txn.Description = change.After
		case model.FieldMerchant:
			txn.Merchant = change.After
		case model.FieldNotes:
			txn.Notes = change.After
		case model.FieldCategory:
			cat, err := resolver.resolve(ctx, change.After)
			if err != nil {
				return nil, err
			}
			txn.CategoryID = &cat.ID
			txn.CategoryName = cat.Name
		}
	}
	txn.UpdatedAt = now
	return &txn, nil
}

// categoryResolver finds categories by name, creating missing ones inside the import
// transaction so a retried import sees them.
type categoryResolver struct {
	tx    service.Transaction
	index *model.CategoryIndex
	added []model.Category
}

func (r *categoryResolver) resolve(ctx context.Context, name string) (*model.Category, error) {
	if cat, ok := r.index.ByName(name); ok {
		return &cat, nil
	}
	for i := range r.added {
		if similarity.Equal(r.added[i].Name, name) {
			return &r.added[i], nil
		}
	}

	cat, err := r.tx.CreateCategory(ctx, name, model.CategoryTypeExpense)
	if err != nil && !errors.Is(err, common.ErrDuplicateEntry) {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	if err != nil {
		cat, err = r.tx.GetCategoryByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load category %q: %w", name, err)
		}
	}
	r.added = append(r.added, *cat)
	return cat, nil
}
