// Package dispatch implements the observer-pattern event broker: a
// fixed, closed set of named simulation events, a registry of handler
// closures per event, and ordered notification.
package dispatch

import (
	"fmt"

	altar "github.com/inference-sim/altar"
)

// Event identifies one of the fixed set of simulation events. The set
// is closed; there is no dynamic event registration. Only the
// Controller fires events: simulationStart/Finish, betaStart/Finish,
// walkChainsStart/Finish and resampleStart/Finish. The remaining
// events can be subscribed to but nothing in this module fires them.
type Event string

const (
	SimulationStart  Event = "simulationStart"
	SimulationFinish Event = "simulationFinish"

	SamplePosteriorStart  Event = "samplePosteriorStart"
	SamplePosteriorFinish Event = "samplePosteriorFinish"

	PrepareSamplingPDFStart  Event = "prepareSamplingPDFStart"
	PrepareSamplingPDFFinish Event = "prepareSamplingPDFFinish"

	BetaStart  Event = "betaStart"
	BetaFinish Event = "betaFinish"

	WalkChainsStart  Event = "walkChainsStart"
	WalkChainsFinish Event = "walkChainsFinish"

	ChainAdvanceStart  Event = "chainAdvanceStart"
	ChainAdvanceFinish Event = "chainAdvanceFinish"

	VerifyStart  Event = "verifyStart"
	VerifyFinish Event = "verifyFinish"

	PriorStart  Event = "priorStart"
	PriorFinish Event = "priorFinish"

	DataStart  Event = "dataStart"
	DataFinish Event = "dataFinish"

	PosteriorStart  Event = "posteriorStart"
	PosteriorFinish Event = "posteriorFinish"

	AcceptStart  Event = "acceptStart"
	AcceptFinish Event = "acceptFinish"

	ResampleStart  Event = "resampleStart"
	ResampleFinish Event = "resampleFinish"
)

// allEvents enumerates the closed event set, used to validate
// registrations at startup so a typo in a monitor's subscription fails
// fast instead of silently never firing.
var allEvents = map[Event]bool{
	SimulationStart: true, SimulationFinish: true,
	SamplePosteriorStart: true, SamplePosteriorFinish: true,
	PrepareSamplingPDFStart: true, PrepareSamplingPDFFinish: true,
	BetaStart: true, BetaFinish: true,
	WalkChainsStart: true, WalkChainsFinish: true,
	ChainAdvanceStart: true, ChainAdvanceFinish: true,
	VerifyStart: true, VerifyFinish: true,
	PriorStart: true, PriorFinish: true,
	DataStart: true, DataFinish: true,
	PosteriorStart: true, PosteriorFinish: true,
	AcceptStart: true, AcceptFinish: true,
	ResampleStart: true, ResampleFinish: true,
}

// Context carries the state a handler needs to react to an event.
// Fields are populated on a best-effort basis depending on the event;
// handlers must not assume every field is set.
type Context struct {
	Event    Event
	Step     *altar.CoolingStep
	WorkerID int
	Tally    altar.Tally
	Err      error
}

// Handler reacts to a single event firing.
type Handler func(ctx Context)

// Monitor is anything that wants to subscribe handlers to events. It
// returns the subset of the closed event set it cares about; handler
// panics are recovered by the Dispatcher and passed to its onPanic
// callback, never propagated.
type Monitor interface {
	Name() string
	Subscriptions() map[Event]Handler
}

// Dispatcher holds the handler closures subscribed per event and
// notifies them in registration order.
type Dispatcher struct {
	handlers map[Event][]Handler
	onPanic  func(monitor string, event Event, r any)
}

// New creates an empty Dispatcher. onPanic, if non-nil, is invoked
// whenever a handler panics; handler panics are otherwise swallowed
// (monitors never originate errors; handler exceptions are logged and
// suppressed).
func New(onPanic func(monitor string, event Event, r any)) *Dispatcher {
	return &Dispatcher{handlers: make(map[Event][]Handler), onPanic: onPanic}
}

// Register subscribes every handler a monitor exposes. It returns an
// error if the monitor names an event outside the closed set.
func (d *Dispatcher) Register(m Monitor) error {
	for event, handler := range m.Subscriptions() {
		if !allEvents[event] {
			return fmt.Errorf("dispatch: monitor %q subscribed to unknown event %q", m.Name(), event)
		}
		d.handlers[event] = append(d.handlers[event], handler)
	}
	return nil
}

// Notify invokes every handler subscribed to event, in registration
// order, with the given context (Event is filled in automatically).
func (d *Dispatcher) Notify(event Event, ctx Context) {
	ctx.Event = event
	for _, h := range d.handlers[event] {
		d.safeInvoke(h, ctx)
	}
}

func (d *Dispatcher) safeInvoke(h Handler, ctx Context) {
	defer func() {
		if r := recover(); r != nil && d.onPanic != nil {
			d.onPanic("", ctx.Event, r)
		}
	}()
	h(ctx)
}
