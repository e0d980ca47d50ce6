package runstatus

import "time"

// Run is the subset of a platform run record the metrics recorder needs.
type Run struct {
	ID          string     `json:"id,omitempty"`
	Status      string     `json:"status"`
	Duration    *float64   `json:"duration,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DurationSeconds returns the reported duration, or the span between the two
// timestamps when the API left it out.
func (r *Run) DurationSeconds() *float64 {
	if r.Duration != nil {
		return r.Duration
	}
	if r.StartedAt == nil || r.CompletedAt == nil {
		return nil
	}
	seconds := r.CompletedAt.Sub(*r.StartedAt).Seconds()
	if seconds < 0 {
		return nil
	}
	return &seconds
}
