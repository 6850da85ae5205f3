package model

// ImportAction is the classification of an import row.
type ImportAction string

// Import action constants.
const (
	ActionCreate    ImportAction = "create"
	ActionUpdate    ImportAction = "update"
	ActionSkip      ImportAction = "skip"
	ActionUnchanged ImportAction = "unchanged"
)

// MatchResult is the outcome of matching one candidate against a pool.
type MatchResult struct {
	Match              *Transaction
	ExternalIDConflict *Transaction
	Miss               *ThresholdUnmetError
	Candidate          Candidate
	Changes            []FieldChange
	Confidence         float64
}

// Matched reports whether a stored transaction was accepted as the counterpart.
func (r MatchResult) Matched() bool {
	return r.Match != nil
}

// ImportRow is one classified row of an import preview.
type ImportRow struct {
	Parsed              *Candidate    `json:"parsed"`
	MatchedTransaction  *Transaction  `json:"matchedTransaction,omitempty"`
	MatchConfidence     *float64      `json:"matchConfidence,omitempty"`
	SuggestedCategoryID *int64        `json:"suggestedCategoryId,omitempty"`
	SuggestedRuleID     *int64        `json:"suggestedRuleId,omitempty"`
	Action              ImportAction  `json:"action"`
	Changes             []FieldChange `json:"changes,omitempty"`
	Warnings            []string      `json:"warnings"`
	RowNumber           int           `json:"rowNumber"`
}

// ImportSummary counts rows per action.
type ImportSummary struct {
	Create    int `json:"create"`
	Update    int `json:"update"`
	Skip      int `json:"skip"`
	Unchanged int `json:"unchanged"`
}

// Add counts one row with the given action.
func (s *ImportSummary) Add(action ImportAction) {
	switch action {
	case ActionCreate:
		s.Create++
	case ActionUpdate:
		s.Update++
	case ActionSkip:
		s.Skip++
	case ActionUnchanged:
		s.Unchanged++
	}
}

// Total returns the number of counted rows.
func (s ImportSummary) Total() int {
	return s.Create + s.Update + s.Skip + s.Unchanged
}

// ImportPreview is the full classified result of an import.
type ImportPreview struct {
	Rows      []ImportRow   `json:"rows"`
	Summary   ImportSummary `json:"summary"`
	TotalRows int           `json:"totalRows"`
}

// ImportResult reports what an execution committed.
type ImportResult struct {
	BatchID   string        `json:"batchId"`
	Created   []int64       `json:"created"`
	Updated   []int64       `json:"updated"`
	Preview   ImportPreview `json:"preview"`
	Committed int           `json:"committed"`
}
