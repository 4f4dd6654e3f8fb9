package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Column names recognised in report headers, after normalisation.
const (
	ColumnCountry    = "country"
	ColumnProvider   = "provider"
	ColumnProduct    = "product"
	ColumnSampleSize = "sample_size"
	ColumnMetric     = "metric"
)

var columnAliases = map[string][]string{
	ColumnCountry:    {"country"},
	ColumnProvider:   {"provider", "provider_id"},
	ColumnProduct:    {"product"},
	ColumnSampleSize: {"sample_size", "samplesize"},
}

// Source points at a report file plus the per-side overrides from config.
type Source struct {
	Path string
	// Column overrides the metric value column name.
	Column string
	// Scale multiplies every metric value when non-zero, e.g. 100 for fractions.
	Scale float64
}

// Loader reads report files into typed tables
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader that logs to logger (slog.Default when nil).
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the report at path for the given metric.
func (l *Loader) Load(path string, kind MetricKind) (*Table, error) {
	return l.LoadSource(Source{Path: path}, kind)
}

// LoadSource reads a report (CSV, JSONL or Parquet) and validates its schema.
func (l *Loader) LoadSource(src Source, kind MetricKind) (*Table, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, src.Path)
		}
		return nil, fmt.Errorf("failed to access report %s: %w", src.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, src.Path)
	}

	l.logger.Debug("Opening report", "path", src.Path, "metric", kind, "size_bytes", info.Size())

	var raw *rawTable
	switch ext := strings.ToLower(filepath.Ext(src.Path)); ext {
	case ".csv":
		raw, err = readCSV(src.Path)
	case ".jsonl", ".json":
		raw, err = readJSONL(src.Path)
	case ".parquet":
		raw, err = readParquet(src.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q for %s (supported: .csv, .jsonl, .parquet)", ErrMalformedReport, ext, src.Path)
	}
	if err != nil {
		return nil, err
	}

	table, err := l.buildTable(raw, src, kind)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loaded report",
		"path", src.Path,
		"metric", kind,
		"rows", len(table.Rows),
		"dropped", len(table.Dropped))

	return table, nil
}

// rawTable is an untyped view of a report: normalised column names and string cells.
// columns maps a normalised name to its position in each record; width is the record length.
type rawTable struct {
	columns map[string]int
	width   int
	records [][]string
}

func newRawTable() *rawTable {
	return &rawTable{columns: make(map[string]int)}
}

// addColumn returns the position of name, registering it on first sight.
func (r *rawTable) addColumn(name string) int {
	key := normalizeColumn(name)
	if idx, ok := r.columns[key]; ok {
		return idx
	}
	r.columns[key] = r.width
	r.width++
	return r.columns[key]
}

// addHeader registers the next header cell at its own position. Blank headers
// hold their position but are not addressable.
func (r *rawTable) addHeader(name string) (int, error) {
	key := normalizeColumn(name)
	pos := r.width
	r.width++
	if key == "" {
		return pos, nil
	}
	if _, ok := r.columns[key]; ok {
		return 0, fmt.Errorf("duplicate column %q", name)
	}
	r.columns[key] = pos
	return pos, nil
}

func (r *rawTable) lookup(names ...string) (int, string, bool) {
	for _, name := range names {
		if idx, ok := r.columns[normalizeColumn(name)]; ok {
			return idx, name, true
		}
	}
	return 0, "", false
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// valueColumns lists the metric value column candidates for kind, in priority order.
func valueColumns(kind MetricKind, override string) []string {
	if override != "" {
		return []string{override}
	}
	return []string{string(kind), string(kind) + "_value", "metric_value", "match"}
}

func (l *Loader) buildTable(raw *rawTable, src Source, kind MetricKind) (*Table, error) {
	idx := make(map[string]int, len(columnAliases))
	for _, name := range []string{ColumnCountry, ColumnProvider, ColumnProduct, ColumnSampleSize} {
		i, _, ok := raw.lookup(columnAliases[name]...)
		if !ok {
			return nil, fmt.Errorf("%w: %s: missing required column %q", ErrMalformedReport, src.Path, name)
		}
		idx[name] = i
	}

	candidates := valueColumns(kind, src.Column)
	valueIdx, valueName, ok := raw.lookup(candidates...)
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing metric value column for %s (looked for %s)",
			ErrMalformedReport, src.Path, kind, strings.Join(candidates, ", "))
	}
	metricIdx, _, hasMetric := raw.lookup(ColumnMetric)

	l.logger.Debug("Resolved report schema", "path", src.Path, "metric", kind, "value_column", valueName, "metric_filter", hasMetric)

	table := &Table{Metric: kind, Path: src.Path}
	considered := 0
	for i, record := range raw.records {
		if hasMetric && !strings.EqualFold(cell(record, metricIdx), string(kind)) {
			continue
		}
		considered++

		row, err := parseRow(record, idx, valueIdx, src.Scale)
		if err != nil {
			rowErr := &RowError{Path: src.Path, Metric: kind, Index: i + 1, Err: err}
			table.Dropped = append(table.Dropped, rowErr)
			l.logger.Warn("Dropping malformed report row",
				"path", src.Path,
				"metric", kind,
				"row", i+1,
				"error", err)
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if considered > 0 && len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s: all %d rows for %s are malformed (first: %v)",
			ErrMalformedReport, src.Path, considered, kind, table.Dropped[0])
	}

	return table, nil
}

func parseRow(record []string, idx map[string]int, valueIdx int, scale float64) (Row, error) {
	row := Row{
		Key: Key{
			Country:  strings.ToUpper(cell(record, idx[ColumnCountry])),
			Provider: cell(record, idx[ColumnProvider]),
			Product:  cell(record, idx[ColumnProduct]),
		},
	}
	switch {
	case row.Country == "":
		return Row{}, errors.New("empty country")
	case row.Provider == "":
		return Row{}, errors.New("empty provider")
	case row.Product == "":
		return Row{}, errors.New("empty product")
	}

	if raw := cell(record, idx[ColumnSampleSize]); raw != "" {
		n, err := parseSampleSize(raw)
		if err != nil {
			return Row{}, err
		}
		row.SampleSize = &n
	}

	raw := cell(record, valueIdx)
	if raw == "" {
		return Row{}, errors.New("empty metric value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Row{}, fmt.Errorf("metric value %q is not numeric", raw)
	}
	if scale != 0 {
		v *= scale
	}
	row.Value = v

	return row, nil
}

// parseSampleSize accepts integers and whole floats such as "120.0".
func parseSampleSize(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative sample size %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("sample size %q is not an integer", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative sample size %q", raw)
	}
	if f >= math.MaxInt {
		return 0, fmt.Errorf("sample size %q is out of range", raw)
	}
	return int(f), nil
}

func readCSV(path string) (*rawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformedReport, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReport, path, err)
	}

	raw := newRawTable()
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, err := raw.addHeader(name); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReport, path, err)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReport, path, err)
		}
		raw.records = append(raw.records, record)
	}

	return raw, nil
}

func readJSONL(path string) (*rawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	var objects []map[string]any
	raw := newRawTable()

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("%w: %s: failed to parse JSON at line %d: %v", ErrMalformedReport, path, lineNum, err)
		}
		// Key order in a Go map is random; sort for stable column indexes.
		seen := make(map[string]string, len(obj))
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			key := normalizeColumn(k)
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("%w: %s: line %d: keys %q and %q name the same column",
					ErrMalformedReport, path, lineNum, prev, k)
			}
			seen[key] = k
			raw.addColumn(k)
		}
		objects = append(objects, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading report %s: %w", path, err)
	}

	for _, obj := range objects {
		record := make([]string, raw.width)
		for k, v := range obj {
			record[raw.columns[normalizeColumn(k)]] = jsonCell(v)
		}
		raw.records = append(raw.records, record)
	}

	return raw, nil
}

func jsonCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func readParquet(path string) (*rawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to open parquet: %v", ErrMalformedReport, path, err)
	}

	schema := pf.Schema()
	raw := newRawTable()
	// leaf column index -> position in the string record
	positions := make(map[int]int)
	for _, field := range schema.Fields() {
		if !field.Leaf() {
			return nil, fmt.Errorf("%w: %s: nested column %q is not supported", ErrMalformedReport, path, field.Name())
		}
		leaf, ok := schema.Lookup(field.Name())
		if !ok {
			continue
		}
		pos, err := raw.addHeader(field.Name())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReport, path, err)
		}
		positions[leaf.ColumnIndex] = pos
	}

	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, positions, raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReport, path, err)
		}
	}

	return raw, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, positions map[int]int, raw *rawTable) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			record := make([]string, raw.width)
			for _, v := range row {
				if pos, ok := positions[v.Column()]; ok {
					record[pos] = parquetCell(v)
				}
			}
			raw.records = append(raw.records, record)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func parquetCell(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
