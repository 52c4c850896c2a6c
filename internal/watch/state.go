package watch

import (
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/artifact"
)

// ControlState is everything the loop carries from one tick to the next.
// It is owned by whoever calls Tick; the orchestrator keeps no copy.
type ControlState struct {
	// LastSeen is the signal of the last artifact version that was dispatched
	LastSeen artifact.Signal
}

// Initial returns the startup state. An artifact that already exists
// counts as changed on the first tick.
func Initial() ControlState {
	return ControlState{LastSeen: artifact.Absent}
}

// Report describes what a single tick did
type Report struct {
	Time     time.Time
	Signal   artifact.Signal
	Changed  bool
	Outcome  *artifact.Outcome // nil when nothing was invoked
	Rendered bool
	Reset    bool
}
