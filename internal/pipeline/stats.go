package pipeline

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total            int
	Current          int
	Converted        int
	Failed           int
	Retried          int // conversions that needed the thumbnail-less retry
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

// OK reports whether at least one file was converted and none failed.
func (s *RunStats) OK() bool {
	return s.Failed == 0 && s.Converted > 0
}
