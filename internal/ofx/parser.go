// Package ofx reads OFX/QFX statements into import candidates.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Statement is one account's section of an OFX file.
type Statement struct {
	Account    model.ExternalAccount
	Candidates []model.Candidate
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: common.ComponentLogger(logger, "ofx")}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file into per-account statements. Each transaction's
// FITID becomes the candidate's external id.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.BankAcctFrom.AcctID)
		account := newAccount(acctID, bankAccountType(stmt.BankAcctFrom.AcctType.String()), stmt.BalAmt)
		statements = append(statements, Statement{
			Account:    account,
			Candidates: p.convertList(stmt.BankTranList, acctID),
		})
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.CCAcctFrom.AcctID)
		account := newAccount(acctID, model.AccountCredit, stmt.BalAmt)
		statements = append(statements, Statement{
			Account:    account,
			Candidates: p.convertList(stmt.BankTranList, acctID),
		})
	}

	total := 0
	for _, s := range statements {
		total += len(s.Candidates)
	}
	p.logger.Info("Parsed OFX file", "statements", len(statements), "total_transactions", total)

	return statements, nil
}

func newAccount(acctID string, accountType model.AccountType, balance ofxgo.Amount) model.ExternalAccount {
	mask := acctID
	if len(mask) > 4 {
		mask = mask[len(mask)-4:]
	}
	return model.ExternalAccount{
		ExternalID: acctID,
		Name:       fmt.Sprintf("%s ...%s", accountType, mask),
		Type:       accountType,
		Mask:       mask,
		Balance:    toDecimal(balance),
	}
}

func bankAccountType(raw string) model.AccountType {
	switch strings.ToUpper(raw) {
	case "MONEYMRKT":
		return model.AccountSavings
	case "CREDITLINE":
		return model.AccountCredit
	default:
		return model.NormalizeAccountType(raw)
	}
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []model.Candidate {
	if list == nil {
		return nil
	}
	candidates := make([]model.Candidate, 0, len(list.Transactions))
	for _, tx := range list.Transactions {
		candidates = append(candidates, p.convertTransaction(tx, accountID))
	}
	return candidates
}

// toDecimal converts an OFX amount to cents without going through float64.
func toDecimal(a ofxgo.Amount) decimal.Decimal {
	return decimal.NewFromBigRat(&a.Rat, 2)
}

// convertTransaction converts an OFX transaction. OFX already uses negative amounts
// for debits.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, accountID string) model.Candidate {

	description := strings.TrimSpace(string(tx.Name))
	if description == "" && tx.Payee != nil {
		description = strings.TrimSpace(string(tx.Payee.Name))
	}
	if description == "" {
		description = strings.TrimSpace(string(tx.Memo))
	}

	c := model.Candidate{
		Date:        model.DayOf(tx.DtPosted.Time),
		Amount:      toDecimal(tx.TrnAmt),
		Description: description,
		Merchant:    p.extractMerchantName(tx),
		AccountID:   accountID,
		ExternalID:  string(tx.FiTID),
	}
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" && memo != description {
		c.Notes = memo
	}
	if tx.CheckNum != "" {
		c.Notes = strings.TrimSpace(c.Notes + " check " + string(tx.CheckNum))
	}
	return c
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	default:
		return false
	}
}
