package exchange

import "fmt"

// Stats summarises one reconciliation batch. Per-item failures are recorded
// in Errors and never abort the batch.
type Stats struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	NotFound int      `json:"not_found"`
	Errors   []string `json:"errors,omitempty"`
}

// AddError counts a failed item and records its error keyed by foreign id.
func (s *Stats) AddError(id string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", id, err))
}

// Processed returns the number of items that were written.
func (s Stats) Processed() int {
	return s.Created + s.Updated
}

// Merge adds the counters and errors of other into s.
func (s *Stats) Merge(other Stats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.NotFound += other.NotFound
	s.Errors = append(s.Errors, other.Errors...)
}

// String renders the counters for log lines and sync log messages.
func (s Stats) String() string {
	return fmt.Sprintf("created=%d updated=%d failed=%d skipped=%d not_found=%d",
		s.Created, s.Updated, s.Failed, s.Skipped, s.NotFound)
}
