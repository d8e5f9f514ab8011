package model

// Source identifies which census export a record came from.
type Source string

const (
	SourceSecondary Source = "SECONDARY"
	SourceTruth     Source = "TRUTH"
)

// Record is one employee row from a census export. Fields is keyed by the
// table's display headers (whitespace-folded, original casing). Records are
// never mutated after ingest.
type Record struct {
	Source Source
	Row    int // 1-based data row within the source sheet
	Fields map[string]string
}

// Value returns the raw cell value for a display header, or "" when the
// column is absent from this row.
func (r *Record) Value(column string) string {
	return r.Fields[column]
}

// Table is an ordered set of records sharing one header row. Row order is
// the upload order and is the canonical iteration order everywhere.
type Table struct {
	Name    string // dataset name for error messages, e.g. "secondary"
	Source  Source
	Headers []string
	Records []*Record

	fold     func(string) string
	byFolded map[string]string // case-folded header -> display header
}

// NewTable builds a table and its case-insensitive header index. Headers are
// expected to already be display-normalized by the ingest layer. On duplicate
// folded headers the first occurrence wins.
func NewTable(name string, source Source, headers []string, fold func(string) string) *Table {
	t := &Table{
		Name:     name,
		Source:   source,
		Headers:  headers,
		fold:     fold,
		byFolded: make(map[string]string, len(headers)),
	}
	for _, h := range headers {
		key := fold(h)
		if _, ok := t.byFolded[key]; !ok {
			t.byFolded[key] = h
		}
	}
	return t
}

// ResolveColumn maps a user-supplied column name to the table's display
// header, matching case-insensitively. Returns false when no header matches.
func (t *Table) ResolveColumn(name string) (string, bool) {
	display, ok := t.byFolded[t.fold(name)]
	return display, ok
}

// Append adds a record in upload order.
func (t *Table) Append(r *Record) {
	t.Records = append(t.Records, r)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Records) }
