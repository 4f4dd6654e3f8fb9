package report

// Key is the composite key rows are aligned on across reports.
type Key struct {
	Country  string
	Provider string
	Product  string
}

// Row is one observation from a report.
type Row struct {
	Key
	// SampleSize is nil when the report left the cell blank.
	SampleSize *int
	Value      float64
}

// Table holds the rows of one report for a single metric, in file order.
// Rows sharing a key are kept as separate entries.
type Table struct {
	Metric MetricKind
	Path   string
	Rows   []Row
	// Dropped lists rows skipped during loading.
	Dropped []*RowError
}

// Len returns the number of usable rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
