// Package observer fans engine.Event out to N sinks without blocking the
// scheduler thread that calls OnEvent. Grounded on the teacher's
// ObserverManager (internal/application/observer/manager.go), reworked
// onto pkg/engine.Event/Observer directly instead of the teacher's own
// ExecutionEvent/Observer pair.
package observer

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/pkg/engine"
)

// Sink is a named, independently-failing engine.Observer.
type Sink interface {
	engine.Observer
	Name() string
}

// Manager registers sinks and notifies them concurrently, recovering any
// sink panic so one bad sink never drops an event for the others.
type Manager struct {
	mu    sync.RWMutex
	sinks []Sink
	log   zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Register adds sink. A duplicate name is rejected.
func (m *Manager) Register(sink Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sinks {
		if s.Name() == sink.Name() {
			return fmt.Errorf("observer %q already registered", sink.Name())
		}
	}
	m.sinks = append(m.sinks, sink)
	return nil
}

// Unregister removes the sink registered under name.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sinks {
		if s.Name() == name {
			m.sinks = append(m.sinks[:i], m.sinks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("observer %q not found", name)
}

// Count returns the number of registered sinks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

// OnEvent implements engine.Observer: each sink is notified in its own
// goroutine so a slow or blocking sink never stalls the scheduler thread
// the engine calls this from (spec.md §5's scheduler-thread-only rule
// extends to this call site, not to what sinks do with the event after).
func (m *Manager) OnEvent(event engine.Event) {
	m.mu.RLock()
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.RUnlock()

	for _, sink := range sinks {
		go m.notify(sink, event)
	}
}

func (m *Manager) notify(sink Sink, event engine.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("observer", sink.Name()).Interface("panic", r).Msg("observer panic recovered")
		}
	}()
	sink.OnEvent(event)
}
