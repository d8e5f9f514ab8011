package model

// FieldMapping pairs a secondary-system column with its truth-system
// counterpart. The mapping list is user-supplied and ordered.
type FieldMapping struct {
	Secondary string `json:"secondary"`
	Truth     string `json:"truth"`
}

// Status classifies the comparison of one mapped field between a matched
// pair of records.
type Status string

const (
	StatusOK                 Status = "OK"
	StatusMismatch           Status = "MISMATCH"
	StatusMissingInSecondary Status = "MISSING_IN_SECONDARY"
	StatusMissingInTruth     Status = "MISSING_IN_TRUTH"
	StatusMissingInBoth      Status = "MISSING_IN_BOTH"
	StatusSkipped            Status = "SKIPPED"
)

// AllStatuses is the fixed reporting order for per-status counts.
var AllStatuses = []Status{
	StatusOK,
	StatusMismatch,
	StatusMissingInSecondary,
	StatusMissingInTruth,
	StatusMissingInBoth,
	StatusSkipped,
}

// ComparisonResult is one detail row: one employee, one mapped field.
type ComparisonResult struct {
	EmployeeID          string       `json:"employee_id"`
	Mapping             FieldMapping `json:"mapping"`
	SecondaryValue      string       `json:"secondary_value"`
	TruthValue          string       `json:"truth_value"`
	SecondaryNormalized string       `json:"secondary_normalized"`
	TruthNormalized     string       `json:"truth_normalized"`
	Status              Status       `json:"status"`
	// Context holds review-only values aligned with
	// AuditResult.ContextColumns. Excluded from all statistics.
	Context []string `json:"context,omitempty"`
}

// FieldSummary counts detail rows per status for one mapping.
type FieldSummary struct {
	Mapping FieldMapping   `json:"mapping"`
	Counts  map[Status]int `json:"counts"`
	Total   int            `json:"total"`
}

// DatasetSummary holds dataset-level totals and overlap.
type DatasetSummary struct {
	SecondaryTotal int `json:"secondary_total"`
	TruthTotal     int `json:"truth_total"`
	Matched        int `json:"matched"`
	SecondaryOnly  int `json:"secondary_only"`
	TruthOnly      int `json:"truth_only"`
}

// AuditResult is the complete output of one audit run.
type AuditResult struct {
	Details        []ComparisonResult `json:"details"`
	Fields         []FieldSummary     `json:"fields"`
	Dataset        DatasetSummary     `json:"dataset"`
	ContextColumns []string           `json:"context_columns"`
}
