// Package events is the lifecycle event bus a host runner fires into and
// plugins subscribe to.
package events

import (
	"sync"

	"github.com/spboyer/debugprompt/internal/models"
	"github.com/spboyer/debugprompt/internal/projectconfig"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	KindConfigLoaded   Kind = "config_loaded"
	KindScenarioFailed Kind = "scenario_failed"
)

// Event is implemented by every lifecycle event.
type Event interface {
	Kind() Kind
}

// ConfigLoaded is fired once, before any scenario runs.
type ConfigLoaded struct {
	Config *projectconfig.ProjectConfig
}

func (ConfigLoaded) Kind() Kind { return KindConfigLoaded }

// ScenarioFailed is fired once per failed scenario.
type ScenarioFailed struct {
	Record models.FailureRecord

	mu      sync.Mutex
	details []string
}

// NewScenarioFailed wraps a record into an event.
func NewScenarioFailed(rec models.FailureRecord) *ScenarioFailed {
	return &ScenarioFailed{Record: rec}
}

func (*ScenarioFailed) Kind() Kind { return KindScenarioFailed }

// AddExtraDetails attaches a line the host should print alongside the
// scenario's own failure report.
func (e *ScenarioFailed) AddExtraDetails(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.details = append(e.details, line)
}

// ExtraDetails returns the lines attached by listeners.
func (e *ScenarioFailed) ExtraDetails() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.details))
	copy(out, e.details)
	return out
}

// Handler receives an event.
type Handler func(event Event)

// Dispatcher delivers events to the handlers registered for their kind.
// It is safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[Kind][]Handler{}}
}

// Listen registers h for events of the given kind. It returns the
// dispatcher so registrations can be chained.
func (d *Dispatcher) Listen(kind Kind, h Handler) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], h)
	return d
}

// Fire calls every handler registered for the event's kind, synchronously
// and in registration order.
func (d *Dispatcher) Fire(event Event) {
	d.mu.Lock()
	handlers := make([]Handler, len(d.handlers[event.Kind()]))
	copy(handlers, d.handlers[event.Kind()])
	d.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Plugin is anything that subscribes itself to a dispatcher.
type Plugin interface {
	Subscribe(d *Dispatcher)
}
