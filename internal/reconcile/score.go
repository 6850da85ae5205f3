package reconcile

import (
	"math"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/similarity"
)

// Signal weights of the account match score.
const (
	nameWeight    = 0.5
	typeWeight    = 0.3
	balanceWeight = 0.2
)

// Suggestion proposes linking an external account to a local one.
type Suggestion struct {
	LocalAccountID string  `json:"localAccountId"`
	LocalName      string  `json:"localName"`
	Score          float64 `json:"score"`
	NameScore      float64 `json:"nameScore"`
	BalanceScore   float64 `json:"balanceScore"`
	TypeMatch      bool    `json:"typeMatch"`

	// Linked is set when the local account is already linked to the external one.
	Linked bool `json:"linked,omitempty"`
}

// Score rates how likely ext and local are the same account.
func (c Config) Score(ext model.ExternalAccount, local model.Account) Suggestion {
	name := similarity.Score(ext.Name, local.Name)
	if ext.OfficialName != "" {
		name = math.Max(name, similarity.Score(ext.OfficialName, local.Name))
	}

	s := Suggestion{
		LocalAccountID: local.ID,
		LocalName:      local.Name,
		NameScore:      name,
		TypeMatch:      ext.Type != "" && ext.Type == local.Type,
		BalanceScore:   c.balanceProximity(ext, local),
	}

	typeScore := 0.0
	if s.TypeMatch {
		typeScore = 1
	}
	s.Score = math.Min(1, nameWeight*s.NameScore+typeWeight*typeScore+balanceWeight*s.BalanceScore)
	return s
}

// balanceProximity is 1 for equal balances and falls linearly to 0 at the tolerance,
// which is the larger of the absolute and relative tolerances.
func (c Config) balanceProximity(ext model.ExternalAccount, local model.Account) float64 {
	a, b := ext.Balance.InexactFloat64(), local.Balance.InexactFloat64()
	diff := math.Abs(a - b)

	tolerance := math.Max(c.BalanceTolerance, c.RelativeTolerance*math.Max(math.Abs(a), math.Abs(b)))
	if tolerance == 0 {
		if diff == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-diff/tolerance)
}
