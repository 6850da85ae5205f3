package recurring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/service"
)

// DetectReport summarizes one detection run.
type DetectReport struct {
	Patterns   []model.RecurringPattern
	Created    int
	Refreshed  int
	Redetected int
	Untouched  int
}

// Service runs detection against the store and applies lifecycle changes.
type Service struct {
	store    service.Storage
	detector *Detector
	clock    common.Clock
	logger   *slog.Logger
}

// NewService creates a recurring pattern service.
func NewService(store service.Storage, detector *Detector, clock common.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &Service{
		store:    store,
		detector: detector,
		clock:    clock,
		logger:   common.ComponentLogger(logger, "recurring"),
	}
}

// Detect scans the history of accountID (every account when empty) and merges the
// detected patterns into the stored ones. Patterns in a user-controlled state other
// than CONFIRMED are never modified, and no duplicate is created for their group.
func (s *Service) Detect(ctx context.Context, accountID string) (*DetectReport, error) {
	history, err := s.store.GetTransactions(ctx, service.TransactionFilter{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	existing, err := s.store.GetPatterns(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring patterns: %w", err)
	}

	byKey := make(map[string]*model.RecurringPattern, len(existing))
	for i := range existing {
		p := &existing[i]
		byKey[p.AccountID+"\x00"+p.GroupKey()] = p
	}

	detected := s.detector.Detect(history)
	report := &DetectReport{}
	now := s.clock.Now()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, found := range detected {
		current, ok := byKey[found.AccountID+"\x00"+found.GroupKey()]
		switch {
		case !ok:
			found.CreatedAt = now
			found.UpdatedAt = now
			if err = tx.CreatePattern(ctx, &found); err != nil {
				return nil, fmt.Errorf("failed to create pattern %s: %w", found.MerchantKey, err)
			}
			report.Created++
			report.Patterns = append(report.Patterns, found)

		case current.Status == model.PatternConfirmed:
			current.NextExpectedDate = found.NextExpectedDate
			current.OccurrenceCount = found.OccurrenceCount
			current.Confidence = found.Confidence
			current.LastOccurrence = found.LastOccurrence
			current.UpdatedAt = now
			if err = tx.UpdatePattern(ctx, current); err != nil {
				return nil, fmt.Errorf("failed to refresh pattern %d: %w", current.ID, err)
			}
			report.Refreshed++
			report.Patterns = append(report.Patterns, *current)

		case current.Status == model.PatternDetected:
			found.ID = current.ID
			found.CreatedAt = current.CreatedAt
			found.UpdatedAt = now
			if err = tx.UpdatePattern(ctx, &found); err != nil {
				return nil, fmt.Errorf("failed to update pattern %d: %w", current.ID, err)
			}
			report.Redetected++
			report.Patterns = append(report.Patterns, found)

		default:
			report.Untouched++
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit detection: %w", err)
	}

	s.logger.Info("Recurring detection complete",
		"account_id", accountID,
		"transactions", len(history),
		"created", report.Created,
		"refreshed", report.Refreshed,
		"redetected", report.Redetected,
		"untouched", report.Untouched)

	return report, nil
}

// List returns the stored patterns of accountID, or of every account when empty.
func (s *Service) List(ctx context.Context, accountID string) ([]model.RecurringPattern, error) {
	return s.store.GetPatterns(ctx, accountID)
}

// Confirm accepts a detected pattern.
func (s *Service) Confirm(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	return s.transition(ctx, id, model.PatternDetected, model.PatternConfirmed)
}

// Dismiss rejects a detected pattern.
func (s *Service) Dismiss(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	return s.transition(ctx, id, model.PatternDetected, model.PatternDismissed)
}

// Pause suspends a confirmed pattern.
func (s *Service) Pause(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	return s.transition(ctx, id, model.PatternConfirmed, model.PatternPaused)
}

// Resume reactivates a paused pattern.
func (s *Service) Resume(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	return s.transition(ctx, id, model.PatternPaused, model.PatternConfirmed)
}

// End retires a confirmed or paused pattern.
func (s *Service) End(ctx context.Context, id int64) (*model.RecurringPattern, error) {
	return s.transition(ctx, id, "", model.PatternEnded)
}

// transition moves pattern id to next. When from is set the pattern must currently be
// in that state, which separates Confirm from Resume.
func (s *Service) transition(ctx context.Context, id int64, from, next model.PatternStatus) (*model.RecurringPattern, error) {
	pattern, err := s.store.GetPattern(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern %d: %w", id, err)
	}

	previous := pattern.Status
	if from != "" && previous != from {
		return nil, fmt.Errorf("%w: pattern %d is %s, expected %s", model.ErrInvalidTransition, id, previous, from)
	}
	if err := pattern.Transition(next); err != nil {
		return nil, fmt.Errorf("pattern %d: %w", id, err)
	}

	pattern.UpdatedAt = s.clock.Now()
	if err := s.store.UpdatePattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to update pattern %d: %w", id, err)
	}

	s.logger.Info("Recurring pattern status changed",
		"pattern_id", id,
		"merchant", pattern.MerchantKey,
		"from", previous,
		"to", next)

	return pattern, nil
}
