package comparison

import (
	"github.com/lehigh-university-libraries/report-comparator/internal/report"
)

// Row is one line of a comparison table. Nil pointers mark an absent value;
// zero is a legitimate metric value and is never used as a placeholder.
type Row struct {
	Metric report.MetricKind
	report.Key
	SampleSize *int
	Existing   *float64
	New        *float64
	// Delta is New - Existing, nil unless both sides are present.
	Delta *float64
}

// Paired reports whether both reports contributed a value.
func (r Row) Paired() bool {
	return r.Existing != nil && r.New != nil
}

// Compare full-outer-joins existing and new on (country, provider, product).
//
// Rows sharing a key are paired in order of occurrence; surplus duplicates on
// either side are emitted as unpaired. Output follows the existing table's
// order, then new-only rows in the new table's order.
func Compare(existing, newTable *report.Table, kind report.MetricKind) []Row {
	var existingRows, newRows []report.Row
	if existing != nil {
		existingRows = existing.Rows
	}
	if newTable != nil {
		newRows = newTable.Rows
	}

	pending := make(map[report.Key][]int, len(newRows))
	for i, r := range newRows {
		pending[r.Key] = append(pending[r.Key], i)
	}
	consumed := make([]bool, len(newRows))

	out := make([]Row, 0, len(existingRows)+len(newRows))
	for i := range existingRows {
		e := &existingRows[i]
		var n *report.Row
		if queue := pending[e.Key]; len(queue) > 0 {
			n = &newRows[queue[0]]
			consumed[queue[0]] = true
			pending[e.Key] = queue[1:]
		}
		out = append(out, buildRow(kind, e, n))
	}

	for i := range newRows {
		if consumed[i] {
			continue
		}
		out = append(out, buildRow(kind, nil, &newRows[i]))
	}

	return out
}

func buildRow(kind report.MetricKind, existing, newRow *report.Row) Row {
	row := Row{Metric: kind}

	if existing != nil {
		row.Key = existing.Key
		v := existing.Value
		row.Existing = &v
	}
	if newRow != nil {
		row.Key = newRow.Key
		v := newRow.Value
		row.New = &v
	}

	row.SampleSize = resolveSampleSize(existing, newRow)

	if row.Paired() {
		d := *row.New - *row.Existing
		row.Delta = &d
	}
	return row
}

// resolveSampleSize prefers the new report's sample size, falling back to the existing one.
func resolveSampleSize(existing, newRow *report.Row) *int {
	if newRow != nil && newRow.SampleSize != nil {
		n := *newRow.SampleSize
		return &n
	}
	if existing != nil && existing.SampleSize != nil {
		n := *existing.SampleSize
		return &n
	}
	return nil
}
