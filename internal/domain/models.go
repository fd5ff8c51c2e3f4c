package domain

import "time"

// Domain contains core models shared by storage and publishers.

// Run is one optimization attempt: where the image came from, what was
// asked of the service and how it ended.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Output      string    `json:"output,omitempty"`
	Option      string    `json:"option"`
	Endpoint    string    `json:"endpoint"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	InputBytes  int       `json:"input_bytes"`
	OutputBytes int       `json:"output_bytes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Duration is the wall time the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SavedRatio is the fraction of input bytes saved, or 0 when unknown.
func (r Run) SavedRatio() float64 {
	if r.InputBytes <= 0 || r.OutputBytes <= 0 {
		return 0
	}
	return 1 - float64(r.OutputBytes)/float64(r.InputBytes)
}
