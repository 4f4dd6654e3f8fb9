package comparison

import (
	"errors"

	"github.com/lehigh-university-libraries/report-comparator/internal/config"
	"github.com/lehigh-university-libraries/report-comparator/internal/report"
)

var (
	ErrPartialFailure = errors.New("some metric comparisons failed")
	ErrAllFailed      = errors.New("all metric comparisons failed")
)

// ErrorKind names the failure category of err for summaries.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, report.ErrFileNotFound):
		return "FileNotFoundError"
	case errors.Is(err, report.ErrMalformedReport):
		return "MalformedReportError"
	case errors.Is(err, report.ErrInvalidSelection):
		return "InvalidSelectionError"
	default:
		return "Error"
	}
}
