package worker

import (
	"fmt"
	"math/rand"
	"sync"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/rng"
)

// Threaded fans walk out across Threads goroutines, each advancing a
// disjoint, contiguous row range of one shared CoolingStep. No locks
// guard the row ranges: the sampler only ever mutates the rows it
// owns, and Σ/the Cholesky factor it reads are fixed for the duration
// of the walk. Cool and resample stay single-threaded,
// since both need the whole ensemble at once.
type Threaded struct {
	Samples   int
	Threads   int
	Sampler   altar.Sampler
	Scheduler altar.Scheduler
	RNG       *rng.PartitionedRNG

	model   altar.Model
	step    *altar.CoolingStep
	counts  []int
	offsets []int
}

// NewThreaded builds a Threaded worker. Each thread's RNG stream is
// derived from a "thread_<i>" subsystem name, so results are
// reproducible independent of scheduling order or GOMAXPROCS.
func NewThreaded(samples, threads int, sampler altar.Sampler, scheduler altar.Scheduler, partitioned *rng.PartitionedRNG) *Threaded {
	return &Threaded{
		Samples:   samples,
		Threads:   threads,
		Sampler:   sampler,
		Scheduler: scheduler,
		RNG:       partitioned,
	}
}

// Start draws the shared beta=0 ensemble and partitions it by row
// count across Threads, the remainder going to the lowest-numbered
// threads.
func (t *Threaded) Start(model altar.Model) error {
	step := altar.NewCoolingStep(t.Samples, model.Parameters())
	model.InitializeSample(step)
	model.PriorLikelihood(step.Theta, step.Prior)
	model.DataLikelihood(step.Theta, step.Data)
	step.ApplyBeta()
	t.model = model
	t.step = step
	t.counts = balancedPartition(t.Samples, t.Threads)
	t.offsets = rowOffsets(t.counts)
	return nil
}

// Top invokes the model's top-of-step hook.
func (t *Threaded) Top() { t.model.Top(t.step) }

// Cool advances the shared step's temperature via the scheduler.
func (t *Threaded) Cool() error {
	_, _, err := t.Scheduler.Update(t.step)
	return err
}

// Walk prepares the shared proposal once, then advances every
// thread's row range concurrently and joins under a barrier before
// combining tallies.
func (t *Threaded) Walk() (altar.Tally, error) {
	if err := t.Sampler.PrepareSamplingPDF(t.step); err != nil {
		return altar.Tally{}, err
	}

	tallies := make([]altar.Tally, t.Threads)
	errs := make([]error, t.Threads)

	// Resolve every thread's RNG stream before forking: PartitionedRNG
	// caches by name in a plain map, so concurrent first-lookups would
	// race.
	threadRNGs := make([]*rand.Rand, t.Threads)
	for i := 0; i < t.Threads; i++ {
		threadRNGs[i] = t.RNG.ForSubsystem(fmt.Sprintf("thread_%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < t.Threads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tallies[i], errs[i] = t.Sampler.WalkChains(t.step, t.model, threadRNGs[i], t.offsets[i], t.counts[i])
		}(i)
	}
	wg.Wait()

	var total altar.Tally
	for i, err := range errs {
		if err != nil {
			return altar.Tally{}, err
		}
		total = total.Add(tallies[i])
	}
	return total, nil
}

// Resample adapts the shared sampler's proposal scale.
func (t *Threaded) Resample(tally altar.Tally) { t.Sampler.Resample(tally) }

// Bottom invokes the model's bottom-of-step hook.
func (t *Threaded) Bottom() { t.model.Bottom(t.step) }

// Finish is a no-op: Threaded owns no resources beyond the step.
func (t *Threaded) Finish() error { return nil }

// Step returns the shared CoolingStep.
func (t *Threaded) Step() *altar.CoolingStep { return t.step }

// Workers reports the configured thread count.
func (t *Threaded) Workers() int { return t.Threads }
