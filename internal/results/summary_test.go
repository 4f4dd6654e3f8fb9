package results

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
	"github.com/lehigh-university-libraries/report-comparator/internal/report"
	"gopkg.in/yaml.v3"
)

func partialSummary() *comparison.Summary {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return &comparison.Summary{
		Selection:  report.Selection{All: true},
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Outcomes: []comparison.Outcome{
			{
				Metric:     report.ASF,
				Status:     comparison.StatusSucceeded,
				OutputPath: "/out/asf_comparison.csv",
				Stats:      comparison.Stats{Total: 1, Paired: 1, Increased: 1, MeanDelta: 2.5},
			},
			{
				Metric: report.APA,
				Status: comparison.StatusFailed,
				Err:    fmt.Errorf("apa new report: %w: /data/apa.csv", report.ErrFileNotFound),
			},
		},
	}
}

func TestBuildSummary(t *testing.T) {
	doc := BuildSummary(partialSummary())

	if doc.Run.Selection != "all" || doc.Run.Succeeded != 1 || doc.Run.Failed != 1 {
		t.Errorf("Unexpected run info %+v", doc.Run)
	}
	if doc.Run.StartedAt != "2026-10-15T09:00:00Z" {
		t.Errorf("Unexpected start time %s", doc.Run.StartedAt)
	}

	if len(doc.Metrics) != 2 {
		t.Fatalf("Expected 2 metric entries, got %d", len(doc.Metrics))
	}

	asf := doc.Metrics[0]
	if asf.Status != "succeeded" || asf.Stats == nil || asf.Stats.Paired != 1 || asf.Output != "/out/asf_comparison.csv" {
		t.Errorf("Unexpected asf entry %+v", asf)
	}
	if asf.Description != "Address Successfully Found" {
		t.Errorf("Unexpected description %q", asf.Description)
	}

	apa := doc.Metrics[1]
	if apa.Status != "failed" || apa.ErrorKind != "FileNotFoundError" || apa.Stats != nil {
		t.Errorf("Unexpected apa entry %+v", apa)
	}
	if apa.Reason == "" {
		t.Error("Expected a failure reason for apa")
	}
}

func TestSaveSummary(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveSummary(dir, partialSummary())
	if err != nil {
		t.Fatalf("SaveSummary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}

	var decoded SummaryDocument
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Summary is not valid YAML: %v", err)
	}
	if decoded.Run.Failed != 1 || decoded.Metrics[1].Metric != "apa" {
		t.Errorf("Unexpected decoded summary %+v", decoded)
	}
}
