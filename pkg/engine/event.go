package engine

import "time"

// Event is one observable state-machine transition (spec.md §4.9, §6). The
// engine is oblivious to where events go; it only calls Observer.OnEvent.
type Event struct {
	Type       string
	Wave       int
	Level      int
	CheckID    string
	Scope      string
	Phase      string // "start" | "end"
	Status     string
	DurationMs int64
	Timestamp  time.Time
}

const (
	EventStateTransition = "state_transition"
	EventCheckDispatch   = "check_dispatch"
	EventRoutingApplied  = "routing_applied"
)

// Observer receives engine events. Implementations must not block the
// scheduler thread for long — the engine notifies synchronously between
// wave steps (spec.md §5's "RunState mutations only on the scheduler
// thread" extends to the notification call site).
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// noopObserver discards every event; used when the caller registers none.
type noopObserver struct{}

func (noopObserver) OnEvent(Event) {}
