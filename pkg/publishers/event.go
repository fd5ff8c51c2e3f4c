package publishers

import (
	"time"

	"github.com/samvad-hq/optimus/internal/domain"
)

// Event represents the payload published downstream after each optimization run.
type Event struct {
	Run         domain.Run `json:"run"`
	SavedRatio  float64    `json:"saved_ratio"`
	PublishedAt time.Time  `json:"published_at"`
}

// NewEvent constructs an Event for the given run.
func NewEvent(run domain.Run) Event {
	return Event{
		Run:         run,
		SavedRatio:  run.SavedRatio(),
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the message attributes attached by queue/topic publishers.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"run_id": e.Run.ID,
		"option": e.Run.Option,
		"status": e.Run.Status,
	}
	if e.Run.ErrorKind != "" {
		attrs["error_kind"] = e.Run.ErrorKind
	}
	return attrs
}
