package timer

type EventType int

const (
	EventNone EventType = iota
	// EventWorkComplete: a work phase ran out and the engine waits for a rating.
	EventWorkComplete
	// EventBreakStarted: a work phase ran out and the engine moved into a break.
	EventBreakStarted
	// EventBreakComplete: a break ran out and a new work phase began.
	EventBreakComplete
)

// Event reports what a Tick did.
type Event struct {
	Type                 EventType
	Phase                Phase // phase after the transition
	CompletedWorkPeriods int
}

// PhaseChanged reports whether the tick ended a phase.
func (e Event) PhaseChanged() bool {
	return e.Type != EventNone
}
