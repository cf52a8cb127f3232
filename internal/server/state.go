package server

// State is the lifecycle phase of a Runtime.
type State string

const (
	StateInitializing State = "initializing"
	StateServing      State = "serving"
	StateDraining     State = "draining"
	StateStopped      State = "stopped"
)

func (s State) rank() int {
	switch s {
	case StateInitializing:
		return 0
	case StateServing:
		return 1
	case StateDraining:
		return 2
	case StateStopped:
		return 3
	default:
		return -1
	}
}

// canAdvance reports whether moving from s to next goes forward. Skipping
// phases is allowed; going back is not.
func (s State) canAdvance(next State) bool {
	return next.rank() > s.rank()
}
