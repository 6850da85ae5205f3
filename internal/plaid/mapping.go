package plaid

import (
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/model"
)

// transactionFields are the parts of a Plaid transaction hearth uses.
type transactionFields struct {
	ID             string
	AccountID      string
	Date           string
	AuthorizedDate string
	Name           string
	MerchantName   string
	Amount         float64
	Pending        bool
}

func transactionFieldsOf(pt plaid.Transaction) transactionFields {
	return transactionFields{
		ID:             pt.GetTransactionId(),
		AccountID:      pt.GetAccountId(),
		Date:           pt.GetDate(),
		AuthorizedDate: pt.GetAuthorizedDate(),
		Name:           pt.GetName(),
		MerchantName:   pt.GetMerchantName(),
		Amount:         pt.GetAmount(),
		Pending:        pt.GetPending(),
	}
}

// toCandidate converts a posted transaction. Plaid reports outflows as positive
// amounts, so the sign is flipped to make expenses negative. Pending transactions
// are rejected because their ids change once they post.
func toCandidate(f transactionFields) (model.Candidate, bool) {
	if f.Pending {
		return model.Candidate{}, false
	}

	date, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		date, err = time.Parse("2006-01-02", f.AuthorizedDate)
		if err != nil {
			return model.Candidate{}, false
		}
	}

	c := model.Candidate{
		Date:        date,
		Amount:      decimal.NewFromFloat(f.Amount).Neg().Round(2),
		Description: strings.TrimSpace(f.Name),
		AccountID:   f.AccountID,
		ExternalID:  f.ID,
	}
	if f.MerchantName != "" {
		c.Merchant = cleanMerchantName(f.MerchantName)
	}
	if c.Description == "" {
		c.Description = c.Merchant
	}
	return c, true
}

// accountFields are the parts of a Plaid account hearth uses.
type accountFields struct {
	ID           string
	Name         string
	OfficialName string
	Type         string
	Subtype      string
	Mask         string
	Current      float64
}

func accountFieldsOf(a plaid.AccountBase) accountFields {
	balances := a.GetBalances()
	return accountFields{
		ID:           a.GetAccountId(),
		Name:         a.GetName(),
		OfficialName: a.GetOfficialName(),
		Type:         string(a.GetType()),
		Subtype:      string(a.GetSubtype()),
		Mask:         a.GetMask(),
		Current:      balances.GetCurrent(),
	}
}

// toExternalAccount converts a Plaid account. Liability balances are reported as
// amounts owed, so they are negated to match local account balances.
func toExternalAccount(f accountFields) model.ExternalAccount {
	accountType := model.NormalizeAccountType(f.Subtype)
	if accountType == model.AccountOther {
		accountType = model.NormalizeAccountType(f.Type)
	}

	balance := decimal.NewFromFloat(f.Current).Round(2)
	if accountType == model.AccountCredit || accountType == model.AccountLoan {
		balance = balance.Neg()
	}

	return model.ExternalAccount{
		ExternalID:   f.ID,
		Name:         f.Name,
		OfficialName: f.OfficialName,
		Type:         accountType,
		Subtype:      f.Subtype,
		Mask:         f.Mask,
		Balance:      balance,
	}
}

// ByAccount splits candidates by their external account id, keeping input order.
func ByAccount(candidates []model.Candidate) map[string][]model.Candidate {
	out := make(map[string][]model.Candidate)
	for _, c := range candidates {
		out[c.AccountID] = append(out[c.AccountID], c)
	}
	return out
}

// cleanMerchantName standardizes merchant names by removing common suffixes and normalizing format.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// A trailing run of more than five digits is a transaction reference.
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}
	name = strings.Join(words, " ")

	suffixes := []string{" Llc", " Inc", " Corp", " Corporation", " Company", " Co", " Ltd", " Limited"}
	for changed := true; changed; {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}
