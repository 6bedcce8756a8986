package worker

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/rng"
)

// countingModel is a minimal Model stub with a support-less Gaussian
// prior and a zero data likelihood, so every walk step is accepted
// with some nonzero probability and beta-stepping is trivial.
type countingModel struct{}

func (countingModel) Initialize(rng *rand.Rand) error             { return nil }
func (countingModel) ParameterSets() []*altar.ParameterSet        { return nil }
func (countingModel) Parameters() int                             { return 1 }
func (countingModel) InitializeSample(step *altar.CoolingStep) {
	rows, _ := step.Theta.Dims()
	for i := 0; i < rows; i++ {
		step.Theta.Set(i, 0, 0)
	}
}
func (countingModel) Verify(theta *mat.Dense, mask []float64) {}
func (countingModel) PriorLikelihood(theta *mat.Dense, llk []float64) {
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		v := theta.At(i, 0)
		llk[i] = -0.5 * v * v
	}
}
func (countingModel) DataLikelihood(theta *mat.Dense, llk []float64) {
	for i := range llk {
		llk[i] = 0
	}
}
func (countingModel) Top(step *altar.CoolingStep)    {}
func (countingModel) Bottom(step *altar.CoolingStep) {}

type stubSampler struct {
	scale float64
}

func (s *stubSampler) PrepareSamplingPDF(step *altar.CoolingStep) error { return nil }
func (s *stubSampler) WalkChains(step *altar.CoolingStep, model altar.Model, rng *rand.Rand, rowStart, rowCount int) (altar.Tally, error) {
	return altar.Tally{Accepted: rowCount}, nil
}
func (s *stubSampler) Resample(tally altar.Tally) {}
func (s *stubSampler) Scale() float64             { return s.scale }

type stubScheduler struct{ calls int }

func (s *stubScheduler) Update(step *altar.CoolingStep) (float64, bool, error) {
	s.calls++
	step.Beta = 1
	return 0, true, nil
}

func TestSequential_StartBindsBetaZeroPosterior(t *testing.T) {
	w := New(5, &stubSampler{}, &stubScheduler{}, rand.New(rand.NewSource(1)))
	if err := w.Start(countingModel{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	step := w.Step()
	for i := range step.Posterior {
		if step.Posterior[i] != step.Prior[i] {
			t.Errorf("sample %d: posterior %v != prior %v at beta=0", i, step.Posterior[i], step.Prior[i])
		}
	}
	if w.Workers() != 1 {
		t.Errorf("Workers() = %d, want 1", w.Workers())
	}
}

func TestSequential_CoolDelegatesToScheduler(t *testing.T) {
	sched := &stubScheduler{}
	w := New(3, &stubSampler{}, sched, rand.New(rand.NewSource(1)))
	if err := w.Start(countingModel{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Cool(); err != nil {
		t.Fatalf("Cool: %v", err)
	}
	if sched.calls != 1 {
		t.Errorf("scheduler.Update called %d times, want 1", sched.calls)
	}
	if w.Step().Beta != 1 {
		t.Errorf("Beta = %v, want 1", w.Step().Beta)
	}
}

func TestThreaded_WalkCombinesTalliesAcrossThreads(t *testing.T) {
	partitioned := rng.New(rng.NewSimulationKey(1))
	tw := NewThreaded(20, 4, &stubSampler{}, &stubScheduler{}, partitioned)
	if err := tw.Start(countingModel{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tally, err := tw.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if tally.Accepted != 20 {
		t.Errorf("combined tally.Accepted = %d, want 20 (sum of every thread's row count)", tally.Accepted)
	}
	if tw.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", tw.Workers())
	}
}

func TestBalancedPartition_RemainderGoesToLowestRanks(t *testing.T) {
	counts := balancedPartition(10, 3)
	want := []int{4, 3, 3}
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], w)
		}
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != 10 {
		t.Errorf("sum(counts) = %d, want 10", sum)
	}
}

func TestDistributed_CollectGathersAllRankRows(t *testing.T) {
	partitioned := rng.New(rng.NewSimulationKey(2))
	newRank := func(rank, n int) altar.Worker {
		return New(n, &stubSampler{}, &stubScheduler{}, partitioned.ForRank(rank))
	}
	dw := NewDistributed(3, 10, partitioned, newRank, &stubScheduler{})
	if err := dw.Start(countingModel{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := dw.Step().Samples(); got != 10 {
		t.Errorf("global step has %d rows, want 10", got)
	}
	if got := dw.Workers(); got != 3 {
		t.Errorf("Workers() = %d, want 3", got)
	}
}

func TestDistributed_WalkAllReducesTallyBySum(t *testing.T) {
	partitioned := rng.New(rng.NewSimulationKey(3))
	newRank := func(rank, n int) altar.Worker {
		return New(n, &stubSampler{}, &stubScheduler{}, partitioned.ForRank(rank))
	}
	dw := NewDistributed(2, 8, partitioned, newRank, &stubScheduler{})
	if err := dw.Start(countingModel{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tally, err := dw.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if tally.Accepted != 8 {
		t.Errorf("all-reduced tally.Accepted = %d, want 8", tally.Accepted)
	}
}
