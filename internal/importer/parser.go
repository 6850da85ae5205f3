package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
	time.RFC3339,
}

// ParseDate parses a date in ISO or a common US/bank export layout and returns
// midnight UTC of that day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DayOf(t), true
		}
	}
	return time.Time{}, false
}

// ParseAmount parses a signed decimal amount. Currency symbols, thousands separators
// and accounting-style parentheses are accepted. A comma that does not separate a
// group of three digits, as in the decimal comma "12,50", is rejected.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", " ", "", "+", "").Replace(s)
	if !thousandsGrouped(s) {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "-") && negative {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// thousandsGrouped reports whether every comma in s sits in the integer part and is
// followed by exactly three digits.
func thousandsGrouped(s string) bool {
	if !strings.Contains(s, ",") {
		return true
	}
	intPart, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ",") {
		return false
	}
	groups := strings.Split(intPart, ",")
	if strings.TrimLeft(groups[0], "-") == "" {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// ParseRow converts a raw row into a candidate. It returns a *model.ParseError when
// the date, amount or description is missing or malformed.
func ParseRow(row RawRow) (model.Candidate, error) {
	var c model.Candidate

	rawDate := row.Get(ColDate)
	if rawDate == "" {
		return c, &model.ParseError{Row: row.Number, Field: ColDate, Reason: "missing"}
	}
	date, ok := ParseDate(rawDate)
	if !ok {
		return c, &model.ParseError{Row: row.Number, Field: ColDate, Value: rawDate, Reason: "unrecognized date format"}
	}

	amount, err := rowAmount(row)
	if err != nil {
		return c, err
	}

	c = model.Candidate{
		Date:         date,
		Amount:       amount,
		Description:  row.Get(ColDescription),
		Merchant:     row.Get(ColMerchant),
		CategoryHint: row.Get(ColCategory),
		Notes:        row.Get(ColNotes),
		ExternalID:   row.Get(ColExternalID),
	}
	if c.Description == "" {
		c.Description = c.Merchant
	}
	if c.Description == "" {
		return model.Candidate{}, &model.ParseError{Row: row.Number, Field: ColDescription, Reason: "missing"}
	}

	return c, nil
}

func rowAmount(row RawRow) (decimal.Decimal, error) {
	if raw := row.Get(ColAmount); raw != "" {
		amount, ok := ParseAmount(raw)
		if !ok {
			return decimal.Zero, &model.ParseError{Row: row.Number, Field: ColAmount, Value: raw, Reason: "not a number"}
		}
		return amount, nil
	}

	debit, credit := row.Get(ColDebit), row.Get(ColCredit)
	if debit == "" && credit == "" {
		return decimal.Zero, &model.ParseError{Row: row.Number, Field: ColAmount, Reason: "missing"}
	}

	total := decimal.Zero
	if debit != "" {
		d, ok := ParseAmount(debit)
		if !ok {
			return decimal.Zero, &model.ParseError{Row: row.Number, Field: ColDebit, Value: debit, Reason: "not a number"}
		}
		total = total.Sub(d.Abs())
	}
	if credit != "" {
		c, ok := ParseAmount(credit)
		if !ok {
			return decimal.Zero, &model.ParseError{Row: row.Number, Field: ColCredit, Value: credit, Reason: "not a number"}
		}
		total = total.Add(c.Abs())
	}
	return total, nil
}
