package pipeline

import "time"

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	RunID            string
	Total            int
	Current          int
	Rendered         int
	Failed           int
	RestoreFailures  int
	Icons            int
	TotalOutputBytes int64
	Elapsed          time.Duration
}

// Complete reports whether every planned job rendered.
func (s *RunStats) Complete() bool {
	return s.Failed == 0 && s.Rendered == s.Total
}
