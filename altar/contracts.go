package altar

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Distribution is the capability set every prior family implements:
// initialize against an RNG, seed/evaluate/verify a column block of a
// sample matrix, and act as a standalone univariate distribution for
// a single draw or density evaluation.
//
// Column-block methods operate on theta[:, offset:offset+count] without
// copying; concrete implementations index with theta.At/theta.Set (or
// RawRowView where the whole row is touched) rather than slicing, so
// that ParameterSet.Offset never requires allocating a sub-matrix.
type Distribution interface {
	// Initialize binds the distribution to an RNG stream.
	Initialize(rng *rand.Rand) error

	// InitializeSample fills theta[:, offset:offset+count] with a
	// draw from the distribution's initializing family (for most
	// distributions this is the same as the prior itself).
	InitializeSample(theta *mat.Dense, offset, count int)

	// PriorLikelihood accumulates the log-density of
	// theta[:, offset:offset+count] into llk, one term per row.
	PriorLikelihood(theta *mat.Dense, offset, count int, llk []float64)

	// Verify accumulates into mask (one entry per row) a nonzero
	// value for every row whose block violates the distribution's
	// support.
	Verify(theta *mat.Dense, offset, count int, mask []float64)

	// Sample draws a single scalar from the distribution.
	Sample(rng *rand.Rand) float64

	// Density evaluates the distribution's density at x.
	Density(x float64) float64
}

// ParameterSet is a contiguous block of columns in theta governed by
// one prior distribution. Offset is assigned by the owning Model at
// initialization; once patched, a ParameterSet is immutable.
type ParameterSet struct {
	// Name identifies the set, e.g. for parameters.csv export.
	Name string
	// Count is the number of columns this set claims.
	Count int
	// Offset is the starting column, assigned by Model.Initialize.
	Offset int
	// Prior is the distribution governing the posterior support.
	Prior Distribution
	// Prep is used for InitializeSample; defaults to Prior when nil.
	Prep Distribution
}

func (p *ParameterSet) initializer() Distribution {
	if p.Prep != nil {
		return p.Prep
	}
	return p.Prior
}

// InitializeSample seeds this set's columns of theta.
func (p *ParameterSet) InitializeSample(theta *mat.Dense) {
	p.initializer().InitializeSample(theta, p.Offset, p.Count)
}

// PriorLikelihood accumulates this set's contribution to the prior
// log-likelihood vector.
func (p *ParameterSet) PriorLikelihood(theta *mat.Dense, llk []float64) {
	p.Prior.PriorLikelihood(theta, p.Offset, p.Count, llk)
}

// Verify accumulates this set's contribution to the invalid-sample mask.
func (p *ParameterSet) Verify(theta *mat.Dense, mask []float64) {
	p.Prior.Verify(theta, p.Offset, p.Count, mask)
}

// Model composes an ordered collection of ParameterSets and owns the
// domain data needed to evaluate data and posterior log-likelihoods.
// Concrete models (altar/models) embed a Base that implements offset
// assignment, verify-aggregation and the model-is-authoritative
// tempering rule, and supply DataLikelihood themselves.
type Model interface {
	// Initialize assigns cumulative offsets to the parameter sets,
	// verifies their counts sum to Parameters(), and binds the RNG.
	Initialize(rng *rand.Rand) error

	// ParameterSets returns the ordered parameter sets.
	ParameterSets() []*ParameterSet

	// Parameters returns P, the total column count of theta.
	Parameters() int

	// InitializeSample fills every row of step.Theta from the
	// parameter sets' initializing distributions.
	InitializeSample(step *CoolingStep)

	// Verify marks mask[i] nonzero for every sample that violates
	// any parameter set's prior support. A sample is invalid iff any
	// set marks it invalid (verify masks are aggregated by addition).
	Verify(theta *mat.Dense, mask []float64)

	// PriorLikelihood fills llk with the sum of every parameter
	// set's prior log-density for each row of theta.
	PriorLikelihood(theta *mat.Dense, llk []float64)

	// DataLikelihood fills llk with the model-specific data
	// log-likelihood for each row of theta. Model-specific.
	DataLikelihood(theta *mat.Dense, llk []float64)

	// Top and Bottom are hooks called once per beta-step, before and
	// after the cool/walk/resample sequence.
	Top(step *CoolingStep)
	Bottom(step *CoolingStep)
}
