package controller_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/archiver"
	"github.com/inference-sim/altar/controller"
	"github.com/inference-sim/altar/dispatch"
	"github.com/inference-sim/altar/distributions"
	"github.com/inference-sim/altar/models"
	"github.com/inference-sim/altar/rng"
	"github.com/inference-sim/altar/sampler"
	"github.com/inference-sim/altar/scheduler"
)

// betaStepCounter is a dispatch.Monitor that tallies every beta-step's
// accept/reject/unlikely counts, so a test can assert on the achieved
// acceptance ratio and step count without reaching into worker
// internals.
type betaStepCounter struct {
	steps   int
	tallies []altar.Tally
}

func (c *betaStepCounter) Name() string { return "beta-step-counter" }

func (c *betaStepCounter) Subscriptions() map[dispatch.Event]dispatch.Handler {
	return map[dispatch.Event]dispatch.Handler{
		dispatch.WalkChainsFinish: func(ctx dispatch.Context) {
			c.steps++
			c.tallies = append(c.tallies, ctx.Tally)
		},
	}
}

func failOnPanic(t *testing.T) func(monitor string, event dispatch.Event, r any) {
	return func(monitor string, event dispatch.Event, r any) {
		t.Fatalf("monitor %s panicked on %s: %v", monitor, event, r)
	}
}

// buildSequentialGaussian1D wires a real Sequential worker, a
// Metropolis sampler and a COV scheduler around a Gaussian1D model,
// the same construction controller.BuildWorker performs for a JobLayout
// with no mode, one host and one task.
func buildSequentialGaussian1D(t *testing.T, seed int64, samples, steps int, observed, sigma float64, dir string) (*controller.Annealer, altar.Model, *betaStepCounter) {
	t.Helper()

	prior, err := distributions.NewUniform(map[string]any{"low": -1.0, "high": 1.0})
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	model := models.NewGaussian1D(observed, sigma, prior)

	partitioned := rng.New(rng.NewSimulationKey(seed))

	sched := scheduler.New(1.0, 0.01, 1000)
	if err := sched.Initialize(partitioned.ForSubsystem(rng.SubsystemScheduler)); err != nil {
		t.Fatalf("scheduler.Initialize: %v", err)
	}

	newSampler := func() altar.Sampler { return sampler.New(steps) }
	w := controller.BuildWorker(samples, controller.JobLayout{Hosts: 1, Tasks: 1}, sched, newSampler, partitioned)

	counter := &betaStepCounter{}
	d := dispatch.New(failOnPanic(t))
	if err := d.Register(counter); err != nil {
		t.Fatalf("Register: %v", err)
	}

	arch := archiver.New(dir, false)
	a := controller.New(w, d, arch, partitioned.ForSubsystem("model"), 1e-3)
	return a, model, counter
}

// TestPosterior_Gaussian1DMatchesScenario2 drives the full
// worker/sampler/scheduler/model pipeline against a real Gaussian1D
// posterior and checks the concrete expectations: posterior mean and
// stdev close to the known analytic answer, at least 100 beta-steps,
// and an acceptance ratio that has stabilized near the 0.25 target by
// the end of the run.
func TestPosterior_Gaussian1DMatchesScenario2(t *testing.T) {
	dir := t.TempDir()
	a, model, counter := buildSequentialGaussian1D(t, 0, 1000, 20, 0, 0.01, dir)

	if err := a.Posterior(model); err != nil {
		t.Fatalf("Posterior: %v", err)
	}

	step := a.Worker.Step()
	if math.Abs(step.Beta-1) > 1e-3 {
		t.Errorf("final Beta = %v, want within tolerance of 1", step.Beta)
	}
	if counter.steps < 100 {
		t.Errorf("ran %d beta-steps, want at least 100", counter.steps)
	}

	samples := step.Samples()
	theta := make([]float64, samples)
	for i := 0; i < samples; i++ {
		theta[i] = step.Theta.At(i, 0)
	}
	mean, stdev := stat.MeanStdDev(theta, nil)

	if math.Abs(mean) > 0.005 {
		t.Errorf("posterior mean = %v, want within 0.005 of 0", mean)
	}
	if math.Abs(stdev-0.01) > 0.002 {
		t.Errorf("posterior stdev = %v, want within 0.002 of 0.01", stdev)
	}

	last := counter.tallies[len(counter.tallies)-1]
	if last.Total() == 0 {
		t.Fatal("final beta-step's tally has zero total attempts")
	}
	ratio := float64(last.Accepted) / float64(last.Total())
	if ratio < 0.1 || ratio > 0.45 {
		t.Errorf("final-step acceptance ratio = %v, want roughly stabilized near the 0.25 target", ratio)
	}
}

// TestPosterior_Determinism_SameSeedIdenticalTheta covers scenario 4:
// two runs built from identical seed and worker layout must agree on
// theta.txt to at least 12 decimal places. writeMatrix in the archiver
// formats with %.17g, so a byte-for-byte comparison is the strictest
// and simplest way to check that.
func TestPosterior_Determinism_SameSeedIdenticalTheta(t *testing.T) {
	dir1 := filepath.Join(t.TempDir(), "run1")
	dir2 := filepath.Join(t.TempDir(), "run2")

	a1, model1, _ := buildSequentialGaussian1D(t, 42, 1000, 20, 0, 0.01, dir1)
	if err := a1.Posterior(model1); err != nil {
		t.Fatalf("Posterior (run1): %v", err)
	}

	a2, model2, _ := buildSequentialGaussian1D(t, 42, 1000, 20, 0, 0.01, dir2)
	if err := a2.Posterior(model2); err != nil {
		t.Fatalf("Posterior (run2): %v", err)
	}

	theta1, err := os.ReadFile(filepath.Join(dir1, "theta.txt"))
	if err != nil {
		t.Fatalf("reading run1 theta.txt: %v", err)
	}
	theta2, err := os.ReadFile(filepath.Join(dir2, "theta.txt"))
	if err != nil {
		t.Fatalf("reading run2 theta.txt: %v", err)
	}

	if string(theta1) != string(theta2) {
		t.Error("theta.txt differs between two identical-seed runs")
	}
}

// TestPosterior_LinearConvergesToD covers scenario 3: an 8-parameter
// linear model Gθ=d with G the identity, a tight tridiagonal data
// covariance and a wide uniform prior converges to within 3e-2 of d
// component-wise.
func TestPosterior_LinearConvergesToD(t *testing.T) {
	d := []float64{-0.5, -0.3, -0.1, 0.1, 0.3, 0.5, 0.2, -0.2}
	n := len(d)

	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		g.Set(i, i, 1)
	}

	cd := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cd.SetSym(i, i, 1e-4)
		if i+1 < n {
			cd.SetSym(i, i+1, 1e-6)
		}
	}

	prior, err := distributions.NewUniform(map[string]any{"low": -1.0, "high": 1.0})
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	sets := []*altar.ParameterSet{{Name: "theta", Count: n, Prior: prior}}
	model, err := models.NewLinear(g, d, cd, sets)
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}

	dir := t.TempDir()
	partitioned := rng.New(rng.NewSimulationKey(1))

	sched := scheduler.New(1.0, 0.01, 1000)
	if err := sched.Initialize(partitioned.ForSubsystem(rng.SubsystemScheduler)); err != nil {
		t.Fatalf("scheduler.Initialize: %v", err)
	}
	newSampler := func() altar.Sampler { return sampler.New(20) }
	w := controller.BuildWorker(1024, controller.JobLayout{Hosts: 1, Tasks: 1}, sched, newSampler, partitioned)

	dsp := dispatch.New(failOnPanic(t))
	arch := archiver.New(dir, false)
	a := controller.New(w, dsp, arch, partitioned.ForSubsystem("model"), 1e-3)

	if err := a.Posterior(model); err != nil {
		t.Fatalf("Posterior: %v", err)
	}

	step := a.Worker.Step()
	samples := step.Samples()
	for p := 0; p < n; p++ {
		col := make([]float64, samples)
		for i := 0; i < samples; i++ {
			col[i] = step.Theta.At(i, p)
		}
		mean := stat.Mean(col, nil)
		if math.Abs(mean-d[p]) > 3e-2 {
			t.Errorf("theta[%d] posterior mean = %v, want within 3e-2 of d[%d]=%v", p, mean, p, d[p])
		}
	}
}
