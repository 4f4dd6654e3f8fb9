package report

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func quietLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "asf.csv", `country,provider,product,sample_size,asf
us,ProvX,ProdY,100,95.0
FR, ProvA ,ProdB,,80.5
US,ProvX,ProdY,120.0,96
`)

	table, err := quietLoader().Load(path, ASF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if table.Metric != ASF || table.Path != path {
		t.Errorf("Unexpected table metadata: %s %s", table.Metric, table.Path)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Country != "US" || first.Provider != "ProvX" || first.Product != "ProdY" {
		t.Errorf("Unexpected key %+v", first.Key)
	}
	if first.SampleSize == nil || *first.SampleSize != 100 {
		t.Errorf("Expected sample size 100, got %v", first.SampleSize)
	}
	if first.Value != 95.0 {
		t.Errorf("Expected value 95.0, got %v", first.Value)
	}

	second := table.Rows[1]
	if second.Provider != "ProvA" {
		t.Errorf("Expected trimmed provider, got %q", second.Provider)
	}
	if second.SampleSize != nil {
		t.Errorf("Expected nil sample size for blank cell, got %d", *second.SampleSize)
	}

	// duplicates are preserved in file order
	if table.Rows[2].Key != first.Key || *table.Rows[2].SampleSize != 120 {
		t.Errorf("Expected duplicate key row with sample size 120, got %+v", table.Rows[2])
	}
}

func TestLoadCSVHeaderVariants(t *testing.T) {
	path := writeFile(t, "new.csv", "\ufeffCountry,Provider_ID,Product,Sample Size,Match\nde,P,Q,10,0.925\n")

	table, err := quietLoader().LoadSource(Source{Path: path, Scale: 100}, APA)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(table.Rows))
	}
	if got := table.Rows[0].Value; got < 92.49 || got > 92.51 {
		t.Errorf("Expected scaled value 92.5, got %v", got)
	}
	if table.Rows[0].Country != "DE" {
		t.Errorf("Expected upper-cased country, got %s", table.Rows[0].Country)
	}
}

func TestLoadValueColumnPriority(t *testing.T) {
	path := writeFile(t, "r.csv", "country,provider,product,sample_size,metric_value,psf\nUS,P,Q,1,10,20\n")

	table, err := quietLoader().Load(path, PSF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Rows[0].Value != 20 {
		t.Errorf("Expected the kind-named column to win, got %v", table.Rows[0].Value)
	}

	table, err = quietLoader().LoadSource(Source{Path: path, Column: "metric_value"}, PSF)
	if err != nil {
		t.Fatalf("Load with override failed: %v", err)
	}
	if table.Rows[0].Value != 10 {
		t.Errorf("Expected override column value 10, got %v", table.Rows[0].Value)
	}
}

func TestLoadFiltersByMetricColumn(t *testing.T) {
	path := writeFile(t, "shared.csv", `metric,country,provider,product,sample_size,metric_value
ASF,US,P,Q,10,90
apa,US,P,Q,10,4.2
asf,FR,P,Q,5,70
`)

	table, err := quietLoader().Load(path, ASF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 asf rows, got %d", len(table.Rows))
	}

	table, err = quietLoader().Load(path, SSF)
	if err != nil {
		t.Fatalf("Expected empty table for absent metric, got error %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Expected no ssf rows, got %d", table.Len())
	}
}

func TestLoadDropsMalformedRows(t *testing.T) {
	path := writeFile(t, "ssf.csv", `country,provider,product,sample_size,ssf
US,P,Q,10,abc
US,P,R,10,50
US,P,S,-1,50
,P,T,1,1
US,P,U,1,NaN
US,P,V,1e30,50
US,P,W,99999999999999999999,50
`)

	table, err := quietLoader().Load(path, SSF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Product != "R" {
		t.Fatalf("Expected only product R to survive, got %+v", table.Rows)
	}
	if len(table.Dropped) != 6 {
		t.Fatalf("Expected 6 dropped rows, got %d", len(table.Dropped))
	}
	if table.Dropped[0].Index != 1 || table.Dropped[5].Index != 7 {
		t.Errorf("Unexpected dropped row indexes: %d, %d", table.Dropped[0].Index, table.Dropped[5].Index)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{
			name:    "all rows malformed",
			file:    "bad.csv",
			content: "country,provider,product,sample_size,asf\nUS,P,Q,1,x\nUS,P,R,1,\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "missing required column",
			file:    "nocol.csv",
			content: "country,provider,sample_size,asf\nUS,P,1,1\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "missing value column",
			file:    "noval.csv",
			content: "country,provider,product,sample_size\nUS,P,Q,1\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "empty file",
			file:    "empty.csv",
			content: "",
			want:    ErrMalformedReport,
		},
		{
			name:    "duplicate sample size column",
			file:    "dup.csv",
			content: "country,provider,product,sample_size,Sample Size,asf,asf_lower\nUS,ProvX,ProdY,100,100,95.5,90.1\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "duplicate provider column",
			file:    "dupprov.csv",
			content: "country,Provider,provider,product,sample_size,asf\nUS,A,B,Q,1,1\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "duplicate jsonl key",
			file:    "dup.jsonl",
			content: `{"Country":"US","country":"FR","provider":"P","product":"Q","sample_size":1,"asf":2}` + "\n",
			want:    ErrMalformedReport,
		},
		{
			name:    "unsupported format",
			file:    "report.txt",
			content: "anything",
			want:    ErrMalformedReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := quietLoader().Load(path, ASF)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadCSVBlankHeaderKeepsPositions(t *testing.T) {
	path := writeFile(t, "blank.csv", `country,provider,,product,sample_size,asf,
US,P,ignored,Q,7,42.5,
`)

	table, err := quietLoader().Load(path, ASF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(table.Rows))
	}
	row := table.Rows[0]
	if row.Product != "Q" || *row.SampleSize != 7 || row.Value != 42.5 {
		t.Errorf("Unexpected row %+v", row)
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeFile(t, "header.csv", "country,provider,product,sample_size,asf\n")

	table, err := quietLoader().Load(path, ASF)
	if err != nil {
		t.Fatalf("Expected header-only report to load, got %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d rows", table.Len())
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := quietLoader().Load("/nonexistent/path/report.csv", ASF)
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}

	_, err = quietLoader().Load(t.TempDir(), ASF)
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound for a directory, got %v", err)
	}
}

func TestLoadJSONL(t *testing.T) {
	path := writeFile(t, "psf.jsonl", `{"country":"us","provider":"P","product":"Q","sample_size":12,"psf":88.5}

{"country":"GB","provider":"P","product":"Q","sample_size":null,"psf":"71"}
`)

	table, err := quietLoader().Load(path, PSF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0].Country != "US" || table.Rows[0].Value != 88.5 || *table.Rows[0].SampleSize != 12 {
		t.Errorf("Unexpected first row %+v", table.Rows[0])
	}
	if table.Rows[1].SampleSize != nil || table.Rows[1].Value != 71 {
		t.Errorf("Unexpected second row %+v", table.Rows[1])
	}
}

func TestLoadJSONLInvalidLine(t *testing.T) {
	path := writeFile(t, "bad.jsonl", "{\"country\":\"US\"}\nnot json\n")

	_, err := quietLoader().Load(path, PSF)
	if !errors.Is(err, ErrMalformedReport) {
		t.Errorf("Expected ErrMalformedReport, got %v", err)
	}
}

type parquetReportRow struct {
	Country    string  `parquet:"country"`
	Provider   string  `parquet:"provider"`
	Product    string  `parquet:"product"`
	SampleSize int64   `parquet:"sample_size"`
	Match      float64 `parquet:"match"`
}

func TestLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asf.parquet")
	rows := []parquetReportRow{
		{Country: "us", Provider: "ProvX", Product: "ProdY", SampleSize: 120, Match: 0.975},
		{Country: "FR", Provider: "ProvA", Product: "ProdB", SampleSize: 50, Match: 0.8},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("Failed to write parquet fixture: %v", err)
	}

	table, err := quietLoader().LoadSource(Source{Path: path, Scale: 100}, ASF)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Country != "US" || first.Provider != "ProvX" || first.Product != "ProdY" {
		t.Errorf("Unexpected key %+v", first.Key)
	}
	if first.SampleSize == nil || *first.SampleSize != 120 {
		t.Errorf("Expected sample size 120, got %v", first.SampleSize)
	}
	if first.Value < 97.49 || first.Value > 97.51 {
		t.Errorf("Expected value 97.5, got %v", first.Value)
	}
}
