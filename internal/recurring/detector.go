package recurring

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/similarity"
)

// Detector finds recurring payment patterns in transaction history. It is pure and
// never touches stored transactions.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

type group struct {
	accountID   string
	merchantKey string
	key         string
	txns        []model.Transaction
}

// Detect returns one DETECTED pattern per qualifying merchant/amount group, ordered
// by account and group key.
func (d *Detector) Detect(history []model.Transaction) []model.RecurringPattern {
	groups := make(map[string]*group)
	for _, txn := range history {
		if txn.IsPending || txn.IsAdjustment {
			continue
		}
		merchantKey := similarity.MerchantKey(txn.Merchant)
		if merchantKey == "" {
			merchantKey = similarity.MerchantKey(txn.Description)
		}
		if merchantKey == "" {
			continue
		}

		key := model.GroupKey(merchantKey, txn.Amount)
		id := txn.AccountID + "\x00" + key
		g, ok := groups[id]
		if !ok {
			g = &group{accountID: txn.AccountID, merchantKey: merchantKey, key: key}
			groups[id] = g
		}
		g.txns = append(g.txns, txn)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var patterns []model.RecurringPattern
	for _, id := range ids {
		if p, ok := d.analyze(groups[id]); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func (d *Detector) analyze(g *group) (model.RecurringPattern, bool) {
	n := len(g.txns)
	if n < d.cfg.MinOccurrences {
		return model.RecurringPattern{}, false
	}

	txns := g.txns
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})

	gaps := make([]float64, n-1)
	for i := 1; i < n; i++ {
		gaps[i-1] = float64(model.DaysBetween(txns[i-1].Date, txns[i].Date))
	}

	frequency, ok := Classify(median(gaps), d.cfg.Tolerance)
	if !ok {
		return model.RecurringPattern{}, false
	}

	last := txns[n-1]
	amounts := make([]decimal.Decimal, n)
	for i, txn := range txns {
		amounts[i] = txn.Amount
	}

	p := model.RecurringPattern{
		AccountID:       g.accountID,
		MerchantKey:     g.merchantKey,
		DisplayName:     displayName(last),
		Frequency:       frequency,
		ExpectedAmount:  medianAmount(amounts),
		AmountVariance:  stddevAmount(amounts),
		LastOccurrence:  model.DayOf(last.Date),
		Confidence:      Confidence(n, gaps),
		OccurrenceCount: n,
		Status:          model.PatternDetected,
	}

	if frequency.Months() > 0 {
		day := modeDayOfMonth(txns)
		p.DayOfMonth = &day
	} else {
		weekday := modeWeekday(txns)
		p.DayOfWeek = &weekday
	}
	p.NextExpectedDate = NextExpected(p.LastOccurrence, frequency, p.DayOfMonth, p.DayOfWeek)

	return p, true
}

// Classify maps a median gap in days to the nearest frequency whose nominal interval
// is within tolerance of it.
func Classify(gap, tolerance float64) (model.Frequency, bool) {
	var (
		best      model.Frequency
		bestDelta = math.Inf(1)
	)
	for _, f := range model.Frequencies {
		nominal := float64(f.NominalDays())
		delta := math.Abs(gap-nominal) / nominal
		if delta <= tolerance && delta < bestDelta {
			best, bestDelta = f, delta
		}
	}
	return best, best != ""
}

// Confidence grows with the number of occurrences and shrinks with the coefficient of
// variation of the gaps.
func Confidence(occurrences int, gaps []float64) float64 {
	if occurrences < 2 || len(gaps) == 0 {
		return 0
	}
	evidence := 1 - math.Pow(0.5, float64(occurrences-1))

	mean, sd := meanStddev(gaps)
	cv := 1.0
	if mean > 0 {
		cv = math.Min(sd/mean, 1)
	}

	c := evidence * (1 - cv)
	return math.Max(0, math.Min(1, c))
}

// NextExpected adds the nominal interval to last and snaps the result to the anchor.
func NextExpected(last time.Time, f model.Frequency, dayOfMonth *int, dayOfWeek *time.Weekday) time.Time {
	next := model.DayOf(last).AddDate(0, 0, f.NominalDays())
	switch {
	case dayOfMonth != nil:
		return snapToDay(next, *dayOfMonth)
	case dayOfWeek != nil:
		return snapToWeekday(next, *dayOfWeek)
	default:
		return next
	}
}

// snapToDay returns the date nearest to t whose day of month is day, clamped to the
// length of short months. Ties go to the later date.
func snapToDay(t time.Time, day int) time.Time {
	var best time.Time
	bestDist := math.MaxInt
	for _, offset := range []int{-1, 0, 1} {
		month := time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		candidate := month.AddDate(0, 0, min(day, daysIn(month))-1)
		dist := model.DaysBetween(t, candidate)
		if dist < bestDist || (dist == bestDist && candidate.After(best)) {
			best, bestDist = candidate, dist
		}
	}
	return best
}

func snapToWeekday(t time.Time, weekday time.Weekday) time.Time {
	diff := (int(weekday) - int(t.Weekday()) + 7) % 7
	if diff > 3 {
		diff -= 7
	}
	return t.AddDate(0, 0, diff)
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func displayName(txn model.Transaction) string {
	if txn.Merchant != "" {
		return txn.Merchant
	}
	return txn.Description
}

func modeDayOfMonth(txns []model.Transaction) int {
	counts := make(map[int]int)
	for _, txn := range txns {
		counts[txn.Date.Day()]++
	}
	best, bestCount := 0, 0
	for day := 1; day <= 31; day++ {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best
}

func modeWeekday(txns []model.Transaction) time.Weekday {
	var counts [7]int
	for _, txn := range txns {
		counts[txn.Date.Weekday()]++
	}
	best := time.Sunday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if counts[wd] > counts[best] {
			best = wd
		}
	}
	return best
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func medianAmount(values []decimal.Decimal) decimal.Decimal {
	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)).Round(2)
}

func stddevAmount(values []decimal.Decimal) decimal.Decimal {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = v.InexactFloat64()
	}
	_, sd := meanStddev(floats)
	return decimal.NewFromFloat(sd).Round(2)
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
