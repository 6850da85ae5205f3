package matcher

import (
	"strings"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/similarity"
)

const scoreEpsilon = 1e-9

// FuzzyMatcher scores stored transactions on amount, date proximity and text
// similarity. Amount equality is a hard filter.
type FuzzyMatcher struct {
	cfg Config
}

// New creates a matcher with the given configuration.
func New(cfg Config) (*FuzzyMatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FuzzyMatcher{cfg: cfg}, nil
}

// NewDefault creates a matcher with DefaultConfig.
func NewDefault() *FuzzyMatcher {
	return &FuzzyMatcher{cfg: DefaultConfig()}
}

// Config returns the matcher configuration.
func (m *FuzzyMatcher) Config() Config {
	return m.cfg
}

type scored struct {
	txn   *model.Transaction
	score float64
	days  int
}

// better reports whether a outranks b: higher score, then nearer date, then lower id.
func (a scored) better(b scored) bool {
	if d := a.score - b.score; d > scoreEpsilon || d < -scoreEpsilon {
		return d > 0
	}
	if a.days != b.days {
		return a.days < b.days
	}
	return a.txn.ID < b.txn.ID
}

// Match returns the best stored counterpart of candidate within pool.
func (m *FuzzyMatcher) Match(candidate model.Candidate, pool []model.Transaction) model.MatchResult {
	result := model.MatchResult{Candidate: candidate}

	window := m.InWindow(candidate, pool)

	if candidate.ExternalID != "" {
		var conflict *model.Transaction
		for _, txn := range window {
			if txn.ExternalIDValue() != candidate.ExternalID {
				continue
			}
			if !txn.Amount.Equal(candidate.Amount) {
				if conflict == nil || txn.ID < conflict.ID {
					conflict = txn
				}
				continue
			}
			if result.Match == nil || txn.ID < result.Match.ID {
				result.Match = txn
			}
		}
		if result.Match != nil {
			result.Confidence = 1
			result.Changes = Diff(candidate, *result.Match)
			return result
		}
		result.ExternalIDConflict = conflict
	}

	var best *scored
	for _, txn := range window {
		score, ok := m.Score(candidate, *txn)
		if !ok {
			continue
		}
		s := scored{txn: txn, score: score, days: model.DaysBetween(candidate.Date, txn.Date)}
		if best == nil || s.better(*best) {
			best = &s
		}
	}

	if best == nil {
		return result
	}
	if best.score+scoreEpsilon < m.cfg.AcceptThreshold {
		result.Miss = &model.ThresholdUnmetError{
			BestID:    best.txn.ID,
			BestScore: best.score,
			Threshold: m.cfg.AcceptThreshold,
		}
		return result
	}

	result.Match = best.txn
	result.Confidence = best.score
	result.Changes = Diff(candidate, *best.txn)
	return result
}

// InWindow returns the transactions in pool that belong to the candidate's account and
// fall within the date window. Callers may pass a wider pool; it is filtered here.
func (m *FuzzyMatcher) InWindow(candidate model.Candidate, pool []model.Transaction) []*model.Transaction {
	out := make([]*model.Transaction, 0, len(pool))
	for i := range pool {
		txn := &pool[i]
		if candidate.AccountID != "" && txn.AccountID != candidate.AccountID {
			continue
		}
		if model.DaysBetween(candidate.Date, txn.Date) > m.cfg.DateWindowDays {
			continue
		}
		out = append(out, txn)
	}
	return out
}

// Score returns the match score of txn for candidate. ok is false when the amounts
// differ, in which case txn can never match. Text similarity under MinTextSimilarity
// scores zero, so a pair with unrelated text stays below the threshold.
func (m *FuzzyMatcher) Score(candidate model.Candidate, txn model.Transaction) (score float64, ok bool) {
	if !txn.Amount.Equal(candidate.Amount) {
		return 0, false
	}

	days := model.DaysBetween(candidate.Date, txn.Date)
	dateScore := 1 - float64(days)/float64(m.cfg.DateWindowDays+1)
	if dateScore < 0 {
		dateScore = 0
	}

	textScore := TextSimilarity(candidate, txn)
	if textScore < m.cfg.MinTextSimilarity {
		textScore = 0
	}

	w := m.cfg.Weights
	score = w.Amount + w.Date*dateScore + w.Text*textScore
	return clamp(score), true
}

// TextSimilarity compares the candidate's description and merchant with the stored
// transaction's, returning the strongest pairing.
func TextSimilarity(candidate model.Candidate, txn model.Transaction) float64 {
	left := nonEmpty(candidate.Description, candidate.Merchant)
	right := nonEmpty(txn.Description, txn.Merchant)

	best := 0.0
	for _, a := range left {
		for _, b := range right {
			best = max(best, similarity.Score(a, b))
		}
	}
	return best
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
