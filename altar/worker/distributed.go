package worker

import (
	"sync"

	altar "github.com/inference-sim/altar"
	"github.com/inference-sim/altar/rng"
)

// Distributed simulates an MPI-style rank topology with in-process
// goroutines joined by a sync.WaitGroup standing in for message
// passing, since no MPI binding is available to this module (see
// DESIGN.md). Rank 0 is the manager: only it runs the scheduler, after
// a collect gathers every rank's local rows into one global step and a
// partition scatters the new beta/Sigma/rows back out. Walk runs on
// every rank concurrently and tallies are all-reduced by summation.
type Distributed struct {
	Ranks   int
	Total   int
	RNG     *rng.PartitionedRNG
	NewRank func(rank, rankSamples int) altar.Worker
	Scheduler altar.Scheduler

	model  altar.Model
	ranks  []altar.Worker
	counts []int
	global *altar.CoolingStep
}

// NewDistributed builds a Distributed worker. newRank constructs the
// worker instance that owns one rank's local chains; it is called once
// per rank at Start with that rank's row count.
func NewDistributed(ranksN, total int, partitioned *rng.PartitionedRNG, newRank func(rank, rankSamples int) altar.Worker, scheduler altar.Scheduler) *Distributed {
	return &Distributed{Ranks: ranksN, Total: total, RNG: partitioned, NewRank: newRank, Scheduler: scheduler}
}

// Start builds every rank's local worker and its beta=0 local step,
// then collects them into the manager's global view.
func (d *Distributed) Start(model altar.Model) error {
	d.model = model
	d.counts = balancedPartition(d.Total, d.Ranks)
	d.ranks = make([]altar.Worker, d.Ranks)
	for r := 0; r < d.Ranks; r++ {
		w := d.NewRank(r, d.counts[r])
		if err := w.Start(model); err != nil {
			return err
		}
		d.ranks[r] = w
	}
	d.global = d.collect()
	return nil
}

// Top invokes the model hook against the manager's global step.
func (d *Distributed) Top() { d.model.Top(d.global) }

// Cool gathers every rank's local state, runs the scheduler once on
// the manager, and scatters the result back to every rank.
func (d *Distributed) Cool() error {
	d.global = d.collect()
	_, _, err := d.Scheduler.Update(d.global)
	if err != nil {
		return err
	}
	d.partition()
	return nil
}

// Walk advances every rank concurrently and all-reduces the tallies by
// summation.
func (d *Distributed) Walk() (altar.Tally, error) {
	tallies := make([]altar.Tally, d.Ranks)
	errs := make([]error, d.Ranks)

	var wg sync.WaitGroup
	for r := 0; r < d.Ranks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			tallies[r], errs[r] = d.ranks[r].Walk()
		}(r)
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

// Resample feeds the same all-reduced tally to every rank's own
// sampler. Each rank's scale adaptation is a pure function of the
// tally and its own prior scale, so starting from identical initial
// scales and always seeing identical tallies keeps every rank's
// sampler deterministically in sync without an explicit broadcast.
func (d *Distributed) Resample(tally altar.Tally) {
	for _, w := range d.ranks {
		w.Resample(tally)
	}
}

// Bottom re-gathers the final per-rank state and invokes the model
// hook against the manager's global step.
func (d *Distributed) Bottom() {
	d.global = d.collect()
	d.model.Bottom(d.global)
}

// Finish releases every rank's worker.
func (d *Distributed) Finish() error {
	for _, w := range d.ranks {
		if err := w.Finish(); err != nil {
			return err
		}
	}
	return nil
}

// Step returns the manager's global CoolingStep.
func (d *Distributed) Step() *altar.CoolingStep { return d.global }

// Workers sums every rank's reported chain-processor count.
func (d *Distributed) Workers() int {
	total := 0
	for _, w := range d.ranks {
		total += w.Workers()
	}
	return total
}

// collect gathers every rank's local rows into a fresh global step, by
// concatenating the per-rank slices in rank order.
func (d *Distributed) collect() *altar.CoolingStep {
	parameters := d.ranks[0].Step().Parameters()
	global := altar.NewCoolingStep(d.Total, parameters)
	global.Beta = d.ranks[0].Step().Beta
	global.Iteration = d.ranks[0].Step().Iteration
	global.Sigma.CopySym(d.ranks[0].Step().Sigma)

	offset := 0
	for _, w := range d.ranks {
		local := w.Step()
		rows := local.Samples()
		for i := 0; i < rows; i++ {
			copy(global.Theta.RawRowView(offset+i), local.Theta.RawRowView(i))
		}
		copy(global.Prior[offset:offset+rows], local.Prior)
		copy(global.Data[offset:offset+rows], local.Data)
		copy(global.Posterior[offset:offset+rows], local.Posterior)
		offset += rows
	}
	return global
}

// partition scatters the manager's global beta/Sigma and resampled
// rows back to each rank's local step, preserving the same row counts
// collect used.
func (d *Distributed) partition() {
	offsets := rowOffsets(d.counts)
	for r, w := range d.ranks {
		local := w.Step()
		local.Beta = d.global.Beta
		local.Iteration = d.global.Iteration
		local.Sigma.CopySym(d.global.Sigma)
		offset := offsets[r]
		rows := d.counts[r]
		for i := 0; i < rows; i++ {
			copy(local.Theta.RawRowView(i), d.global.Theta.RawRowView(offset+i))
		}
		copy(local.Prior, d.global.Prior[offset:offset+rows])
		copy(local.Data, d.global.Data[offset:offset+rows])
		copy(local.Posterior, d.global.Posterior[offset:offset+rows])
	}
}
