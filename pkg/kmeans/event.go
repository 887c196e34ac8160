package kmeans

import "time"

type EventKind int

const (
	EventSeeded EventKind = iota + 1
	EventIteration
	EventClustered
	EventBestK
)

func (k EventKind) String() string {
	switch k {
	case EventSeeded:
		return "seeded"
	case EventIteration:
		return "iteration"
	case EventClustered:
		return "clustered"
	case EventBestK:
		return "best_k"
	default:
		return "unknown"
	}
}

// Event reports engine progress. Fields not relevant to Kind are zero.
type Event struct {
	Kind      EventKind
	Strategy  string
	K         int
	Iteration int
	Rounds    int
	Converged bool
	SSE       float64
	Duration  time.Duration
}

// Observer receives events synchronously on the calling goroutine and must
// return quickly.
type Observer func(Event)
