package comparison

// Stats summarises a comparison table.
type Stats struct {
	Total        int     `yaml:"total" json:"total"`
	Paired       int     `yaml:"paired" json:"paired"`
	ExistingOnly int     `yaml:"existing_only" json:"existing_only"`
	NewOnly      int     `yaml:"new_only" json:"new_only"`
	Increased    int     `yaml:"increased" json:"increased"`
	Decreased    int     `yaml:"decreased" json:"decreased"`
	Unchanged    int     `yaml:"unchanged" json:"unchanged"`
	MeanDelta    float64 `yaml:"mean_delta" json:"mean_delta"`
}

// Summarize counts paired and unpaired rows and averages the deltas of paired rows.
func Summarize(rows []Row) Stats {
	stats := Stats{Total: len(rows)}

	sum := 0.0
	for _, r := range rows {
		switch {
		case r.Paired():
			stats.Paired++
			sum += *r.Delta
			switch {
			case *r.Delta > 0:
				stats.Increased++
			case *r.Delta < 0:
				stats.Decreased++
			default:
				stats.Unchanged++
			}
		case r.Existing != nil:
			stats.ExistingOnly++
		case r.New != nil:
			stats.NewOnly++
		}
	}

	if stats.Paired > 0 {
		stats.MeanDelta = sum / float64(stats.Paired)
	}

	return stats
}
