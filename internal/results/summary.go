package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
	"gopkg.in/yaml.v3"
)

// SummaryFileName is the run summary written next to the comparison CSVs.
const SummaryFileName = "comparison_summary.yaml"

// RunInfo is the header section of the summary file
type RunInfo struct {
	Selection  string `yaml:"selection"`
	StartedAt  string `yaml:"started_at"`
	FinishedAt string `yaml:"finished_at"`
	Succeeded  int    `yaml:"succeeded"`
	Failed     int    `yaml:"failed"`
}

// MetricResult is one metric's entry in the summary file
type MetricResult struct {
	Metric      string            `yaml:"metric"`
	Description string            `yaml:"description"`
	Status      string            `yaml:"status"`
	Output      string            `yaml:"output,omitempty"`
	Stats       *comparison.Stats `yaml:"stats,omitempty"`
	Dropped     int               `yaml:"dropped_rows,omitempty"`
	ErrorKind   string            `yaml:"error_kind,omitempty"`
	Reason      string            `yaml:"reason,omitempty"`
}

// SummaryDocument is the complete summary document
type SummaryDocument struct {
	Run     RunInfo        `yaml:"run"`
	Metrics []MetricResult `yaml:"metrics"`
}

// BuildSummary converts a run summary into its serialisable form.
func BuildSummary(s *comparison.Summary) SummaryDocument {
	doc := SummaryDocument{
		Run: RunInfo{
			Selection:  s.Selection.String(),
			StartedAt:  s.StartedAt.Format(time.RFC3339),
			FinishedAt: s.FinishedAt.Format(time.RFC3339),
		},
		Metrics: make([]MetricResult, 0, len(s.Outcomes)),
	}

	for _, o := range s.Outcomes {
		result := MetricResult{
			Metric:      o.Metric.String(),
			Description: o.Metric.Description(),
			Status:      string(o.Status),
			Dropped:     o.Dropped,
		}
		if o.Status == comparison.StatusSucceeded {
			doc.Run.Succeeded++
			stats := o.Stats
			result.Stats = &stats
			result.Output = o.OutputPath
		} else {
			doc.Run.Failed++
			result.ErrorKind = comparison.ErrorKind(o.Err)
			result.Reason = o.Reason()
		}
		doc.Metrics = append(doc.Metrics, result)
	}

	return doc
}

// SaveSummary writes the run summary as YAML into outputDir and returns the file path.
func SaveSummary(outputDir string, s *comparison.Summary) (string, error) {
	doc := BuildSummary(s)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := filepath.Join(outputDir, SummaryFileName)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
