package lifecycle

import "fmt"

// Phase is the coordinator's position in the application lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBootstrapping
	PhaseRunning
	PhaseShuttingDown
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseRunning:
		return "running"
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}
