package controller

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/dispatch"
)

type stubWorker struct {
	step      *altar.CoolingStep
	betaSteps []float64
	coolCalls int
	walkCalls int
	finishErr error
}

func newStubWorker(betaSteps []float64) *stubWorker {
	step := altar.NewCoolingStep(2, 1)
	return &stubWorker{step: step, betaSteps: betaSteps}
}

func (w *stubWorker) Start(model altar.Model) error { return nil }
func (w *stubWorker) Top()                          {}
func (w *stubWorker) Cool() error {
	if w.coolCalls < len(w.betaSteps) {
		w.step.Beta = w.betaSteps[w.coolCalls]
	}
	w.coolCalls++
	return nil
}
func (w *stubWorker) Walk() (altar.Tally, error) {
	w.walkCalls++
	return altar.Tally{Accepted: 1}, nil
}
func (w *stubWorker) Resample(tally altar.Tally) {}
func (w *stubWorker) Bottom()                    {}
func (w *stubWorker) Finish() error               { return w.finishErr }
func (w *stubWorker) Step() *altar.CoolingStep     { return w.step }
func (w *stubWorker) Workers() int                 { return 1 }

// failingCoolWorker always fails on Cool, to exercise the
// error-propagation path.
type failingCoolWorker struct{ *stubWorker }

func (w *failingCoolWorker) Cool() error { return errors.New("cool failed") }

// fakeModel satisfies altar.Model with no-op methods; the annealer
// loop mechanics test never inspects its likelihoods.
type fakeModel struct{}

func (fakeModel) Initialize(rng *rand.Rand) error              { return nil }
func (fakeModel) ParameterSets() []*altar.ParameterSet         { return nil }
func (fakeModel) Parameters() int                              { return 1 }
func (fakeModel) InitializeSample(step *altar.CoolingStep)     {}
func (fakeModel) Verify(theta *mat.Dense, mask []float64)      {}
func (fakeModel) PriorLikelihood(theta *mat.Dense, llk []float64) {}
func (fakeModel) DataLikelihood(theta *mat.Dense, llk []float64)  {}
func (fakeModel) Top(step *altar.CoolingStep)                  {}
func (fakeModel) Bottom(step *altar.CoolingStep)                {}

type controllerMonitor struct {
	onFinish    func()
	onFinishErr func(err error)
}

func (m controllerMonitor) Name() string { return "controller-test-monitor" }
func (m controllerMonitor) Subscriptions() map[dispatch.Event]dispatch.Handler {
	return map[dispatch.Event]dispatch.Handler{
		dispatch.SimulationFinish: func(ctx dispatch.Context) {
			if ctx.Err != nil {
				if m.onFinishErr != nil {
					m.onFinishErr(ctx.Err)
				}
				return
			}
			if m.onFinish != nil {
				m.onFinish()
			}
		},
	}
}

func TestAnnealer_PosteriorLoopsUntilBetaWithinTolerance(t *testing.T) {
	w := newStubWorker([]float64{0.3, 0.6, 0.9, 1.0})
	d := dispatch.New(nil)

	var finishSeen bool
	if err := d.Register(controllerMonitor{onFinish: func() { finishSeen = true }}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	a := New(w, d, nil, nil, 1e-6)
	if err := a.Posterior(fakeModel{}); err != nil {
		t.Fatalf("Posterior: %v", err)
	}

	if w.coolCalls != 4 {
		t.Errorf("Cool called %d times, want 4 (stops once beta+tolerance >= 1)", w.coolCalls)
	}
	if w.walkCalls != 4 {
		t.Errorf("Walk called %d times, want 4", w.walkCalls)
	}
	if !finishSeen {
		t.Error("simulationFinish was never dispatched")
	}
}

func TestAnnealer_CoolErrorStopsLoopAndNotifiesFinish(t *testing.T) {
	w := newStubWorker(nil)
	failing := &failingCoolWorker{stubWorker: w}
	d := dispatch.New(nil)

	var finishErr error
	if err := d.Register(controllerMonitor{onFinishErr: func(err error) { finishErr = err }}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	a := New(failing, d, nil, nil, 1e-6)
	if err := a.Posterior(fakeModel{}); err == nil {
		t.Error("Posterior: want error from failing Cool, got nil")
	}
	if finishErr == nil {
		t.Error("simulationFinish handler never saw the Cool error")
	}
}
