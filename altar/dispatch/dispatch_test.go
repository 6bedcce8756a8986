package dispatch

import "testing"

type stubMonitor struct {
	name  string
	event Event
	calls *int
}

func (s stubMonitor) Name() string { return s.name }
func (s stubMonitor) Subscriptions() map[Event]Handler {
	return map[Event]Handler{
		s.event: func(ctx Context) { *s.calls++ },
	}
}

func TestDispatcher_NotifyInvokesSubscribedHandler(t *testing.T) {
	calls := 0
	d := New(nil)
	if err := d.Register(stubMonitor{name: "m", event: BetaStart, calls: &calls}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Notify(BetaStart, Context{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	d.Notify(BetaFinish, Context{})
	if calls != 1 {
		t.Errorf("unsubscribed event fired handler: calls = %d, want 1", calls)
	}
}

func TestDispatcher_RegisterRejectsUnknownEvent(t *testing.T) {
	d := New(nil)
	err := d.Register(stubMonitor{name: "m", event: Event("not-a-real-event"), calls: new(int)})
	if err == nil {
		t.Error("Register with unknown event: want error, got nil")
	}
}

func TestDispatcher_HandlerPanicIsRecovered(t *testing.T) {
	var panicked bool
	d := New(func(monitor string, event Event, r any) { panicked = true })
	d.handlers[BetaStart] = []Handler{func(ctx Context) { panic("boom") }}

	d.Notify(BetaStart, Context{})

	if !panicked {
		t.Error("handler panic was not routed to onPanic")
	}
}

func TestDispatcher_NotifyOrdersHandlersByRegistration(t *testing.T) {
	var order []string
	d := New(nil)
	d.handlers[BetaStart] = []Handler{
		func(ctx Context) { order = append(order, "first") },
		func(ctx Context) { order = append(order, "second") },
	}
	d.Notify(BetaStart, Context{})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("handler order = %v, want [first second]", order)
	}
}
