package report

import (
	"fmt"
	"strings"
)

// MetricKind identifies which address-quality metric a report column holds.
type MetricKind string

const (
	ASF MetricKind = "asf" // Address Successfully Found
	APA MetricKind = "apa" // Address Positional Accuracy
	PSF MetricKind = "psf" // PostCode Successfully Found
	SSF MetricKind = "ssf" // Street Successfully Found
)

// AllKinds is the fixed order used when every metric is compared.
var AllKinds = []MetricKind{ASF, APA, PSF, SSF}

// Description returns the long name shown in menus and summaries.
func (k MetricKind) Description() string {
	switch k {
	case ASF:
		return "Address Successfully Found"
	case APA:
		return "Address Positional Accuracy"
	case PSF:
		return "PostCode Successfully Found"
	case SSF:
		return "Street Successfully Found"
	default:
		return "unknown metric"
	}
}

func (k MetricKind) String() string {
	return string(k)
}

// ParseKind converts a user supplied name into a MetricKind.
func ParseKind(s string) (MetricKind, bool) {
	k := MetricKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// AllSelection is the sentinel accepted in place of a single metric.
const AllSelection = "all"

// Selection is either a single metric or every metric.
type Selection struct {
	Kind MetricKind
	All  bool
}

// ParseSelection validates a metric choice. It performs no I/O.
func ParseSelection(s string) (Selection, error) {
	if strings.EqualFold(strings.TrimSpace(s), AllSelection) {
		return Selection{All: true}, nil
	}
	k, ok := ParseKind(s)
	if !ok {
		return Selection{}, fmt.Errorf("%w: %q (expected one of asf, apa, psf, ssf, all)", ErrInvalidSelection, s)
	}
	return Selection{Kind: k}, nil
}

// Kinds expands the selection into the metrics it covers.
func (s Selection) Kinds() []MetricKind {
	if s.All {
		out := make([]MetricKind, len(AllKinds))
		copy(out, AllKinds)
		return out
	}
	return []MetricKind{s.Kind}
}

func (s Selection) String() string {
	if s.All {
		return AllSelection
	}
	return s.Kind.String()
}
