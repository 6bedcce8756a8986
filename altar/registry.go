package altar

import (
	"fmt"
	"math/rand"
)

// Tally carries the accept/reject/unlikely counts produced by walking
// all chains for one beta-step.
type Tally struct {
	Accepted, Rejected, Unlikely int
}

// Add returns the element-wise sum of two tallies, used by the
// threaded and distributed workers to combine per-partition results.
func (t Tally) Add(o Tally) Tally {
	return Tally{
		Accepted: t.Accepted + o.Accepted,
		Rejected: t.Rejected + o.Rejected,
		Unlikely: t.Unlikely + o.Unlikely,
	}
}

// Total returns Accepted+Rejected+Unlikely, which must equal
// samples*steps after a full walk.
func (t Tally) Total() int { return t.Accepted + t.Rejected + t.Unlikely }

// Sampler is the component that advances all chains at fixed beta
type Sampler interface {
	// PrepareSamplingPDF computes the proposal covariance and its
	// Cholesky factor from step.Sigma and the current scale.
	PrepareSamplingPDF(step *CoolingStep) error
	// WalkChains advances rows [rowStart, rowStart+rowCount) of step
	// for the sampler's configured number of inner iterations,
	// mutating step.Theta and the three log-likelihood vectors
	// in place, and returns the accept/reject/unlikely tally for that
	// row range.
	WalkChains(step *CoolingStep, model Model, rng *rand.Rand, rowStart, rowCount int) (Tally, error)
	// Resample adapts the proposal scale from a combined tally.
	Resample(tally Tally)
	// Scale returns the current proposal scale (always in [0.1,1.0]).
	Scale() float64
}

// Scheduler selects the next beta increment and resamples
type Scheduler interface {
	// Update pushes step forward: solves for beta, computes the new
	// covariance, and ranks/resamples theta and the LLK vectors in
	// place. achievedCOV and converged report whether the root-finder
	// attained its target within maxiter.
	Update(step *CoolingStep) (achievedCOV float64, converged bool, err error)
}

// Archiver persists final and intermediate simulation state
type Archiver interface {
	PersistFinal(step *CoolingStep, model Model) error
	PersistCheckpoint(step *CoolingStep) error
}

// Worker is the shared contract every execution strategy implements
// sequential, threaded, distributed and CUDA-shaped
// variants compose as decorators over this single interface.
type Worker interface {
	// Start builds the initial CoolingStep (beta=0, posterior=prior)
	// from model and binds it as this worker's local step.
	Start(model Model) error
	// Top is the hook fired at the top of a beta-step.
	Top()
	// Cool advances the local step's temperature via the scheduler.
	// In the distributed worker only the manager rank performs real
	// work; other ranks receive the broadcast result.
	Cool() error
	// Walk runs the sampler across this worker's chains and returns
	// the combined tally.
	Walk() (Tally, error)
	// Resample lets the sampler adapt its proposal scale from tally.
	Resample(tally Tally)
	// Bottom is the hook fired at the bottom of a beta-step.
	Bottom()
	// Finish releases any resources held by the worker.
	Finish() error
	// Step returns the worker's current (local, or global for a
	// manager) CoolingStep.
	Step() *CoolingStep
	// Workers returns the total number of chain-processors this
	// worker (and any it wraps) represents.
	Workers() int
}

// DistributionFactory builds a Distribution from its recognized
// configuration options (support=(low,high); mean,sigma; {}, depending on kind).
type DistributionFactory func(opts map[string]any) (Distribution, error)

var distributionFactories = map[string]DistributionFactory{}

// RegisterDistribution adds a named Distribution factory to the
// registry. Sub-packages call this from an init() function, the same
// way a small per-kind registry wires concrete
// constructors into the owning package's factory variables.
func RegisterDistribution(name string, factory DistributionFactory) {
	distributionFactories[name] = factory
}

// NewDistribution looks up a registered Distribution factory by name
// and invokes it. It returns a Configuration error (by convention of
// the caller wrapping it) if name was never registered.
func NewDistribution(name string, opts map[string]any) (Distribution, error) {
	factory, ok := distributionFactories[name]
	if !ok {
		return nil, fmt.Errorf("altar: no distribution registered as %q", name)
	}
	return factory(opts)
}

// KnownDistributions lists every registered distribution name, mainly
// for configuration-error messages.
func KnownDistributions() []string {
	names := make([]string, 0, len(distributionFactories))
	for name := range distributionFactories {
		names = append(names, name)
	}
	return names
}

// SchedulerFactory builds a Scheduler from configuration options.
// Only the COV scheduler is registered, so the only factory
// registered by this repository is "cov"; the registry exists as the
// documented extension point a future Grid-style scheduler
// would hook into.
type SchedulerFactory func(opts map[string]any) (Scheduler, error)

var schedulerFactories = map[string]SchedulerFactory{}

// RegisterScheduler adds a named Scheduler factory to the registry.
func RegisterScheduler(name string, factory SchedulerFactory) {
	schedulerFactories[name] = factory
}

// NewScheduler looks up a registered Scheduler factory by name.
func NewScheduler(name string, opts map[string]any) (Scheduler, error) {
	factory, ok := schedulerFactories[name]
	if !ok {
		return nil, fmt.Errorf("altar: no scheduler registered as %q", name)
	}
	return factory(opts)
}

// SamplerFactory builds a Sampler from configuration options.
type SamplerFactory func(opts map[string]any) (Sampler, error)

var samplerFactories = map[string]SamplerFactory{}

// RegisterSampler adds a named Sampler factory to the registry.
func RegisterSampler(name string, factory SamplerFactory) {
	samplerFactories[name] = factory
}

// NewSampler looks up a registered Sampler factory by name.
func NewSampler(name string, opts map[string]any) (Sampler, error) {
	factory, ok := samplerFactories[name]
	if !ok {
		return nil, fmt.Errorf("altar: no sampler registered as %q", name)
	}
	return factory(opts)
}
