package worker

import (
	"math/rand"

	altar "github.com/inference-sim/altar"
)

// Sequential owns the global CoolingStep directly. All operations are
// local: cool, walk and resample run against the whole chain set in
// one goroutine. Workers() is always 1.
type Sequential struct {
	Samples   int
	Sampler   altar.Sampler
	Scheduler altar.Scheduler
	RNG       *rand.Rand

	model altar.Model
	step  *altar.CoolingStep
}

// New builds a Sequential worker for the given number of chains.
// scheduler may be nil for an inner worker wrapped by Distributed,
// which runs cooling through its own scheduler instead.
func New(samples int, sampler altar.Sampler, scheduler altar.Scheduler, rng *rand.Rand) *Sequential {
	return &Sequential{Samples: samples, Sampler: sampler, Scheduler: scheduler, RNG: rng}
}

// Start draws the beta=0 initial ensemble from model's parameter sets
// and evaluates prior/data likelihoods (posterior = prior at beta=0).
func (s *Sequential) Start(model altar.Model) error {
	step := altar.NewCoolingStep(s.Samples, model.Parameters())
	model.InitializeSample(step)
	model.PriorLikelihood(step.Theta, step.Prior)
	model.DataLikelihood(step.Theta, step.Data)
	step.ApplyBeta()
	s.model = model
	s.step = step
	return nil
}

// Top invokes the model's top-of-step hook.
func (s *Sequential) Top() { s.model.Top(s.step) }

// Cool advances the step's temperature via the scheduler.
func (s *Sequential) Cool() error {
	_, _, err := s.Scheduler.Update(s.step)
	return err
}

// Walk prepares the proposal and advances every chain.
func (s *Sequential) Walk() (altar.Tally, error) {
	if err := s.Sampler.PrepareSamplingPDF(s.step); err != nil {
		return altar.Tally{}, err
	}
	return s.Sampler.WalkChains(s.step, s.model, s.RNG, 0, s.Samples)
}

// Resample adapts the sampler's proposal scale.
func (s *Sequential) Resample(tally altar.Tally) { s.Sampler.Resample(tally) }

// Bottom invokes the model's bottom-of-step hook.
func (s *Sequential) Bottom() { s.model.Bottom(s.step) }

// Finish is a no-op for Sequential: it owns no external resources.
func (s *Sequential) Finish() error { return nil }

// Step returns the worker's CoolingStep.
func (s *Sequential) Step() *altar.CoolingStep { return s.step }

// Workers reports a single chain-processor.
func (s *Sequential) Workers() int { return 1 }
