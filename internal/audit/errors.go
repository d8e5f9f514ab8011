package audit

import "fmt"

// ConfigurationError is a fail-fast error: a mapped column or identifier
// column does not exist in its declared dataset, even after alias fallback.
// No comparison output is produced when it is returned.
type ConfigurationError struct {
	Dataset string // "secondary", "truth", or "mapping"
	Column  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("column %q not found in %s dataset", e.Column, e.Dataset)
}

// EmptyDatasetError is a fail-fast error: one input table has no data rows,
// so no meaningful audit is possible.
type EmptyDatasetError struct {
	Dataset string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s dataset has no data rows", e.Dataset)
}
