// Package models provides concrete Model implementations: Null (a
// zero-cost smoke-test model), Gaussian1D (a single-parameter toy
// posterior), and Linear (a weighted-least-squares Gθ=d model). All
// three embed Base, which implements the offset assignment and
// verify/prior aggregation shared by every Model.
package models

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
)

// Base implements the parts of altar.Model that are identical across
// every concrete model: assigning cumulative column offsets to the
// parameter sets at Initialize, and aggregating Verify/PriorLikelihood
// calls across them. Concrete models embed Base and supply
// DataLikelihood (and Top/Bottom, if they need the hooks).
type Base struct {
	Sets []*altar.ParameterSet
	rng  *rand.Rand
}

// Initialize assigns cumulative offsets to the parameter sets and
// binds the RNG used for sample initialization.
func (b *Base) Initialize(rng *rand.Rand) error {
	if len(b.Sets) == 0 {
		return fmt.Errorf("models: a model needs at least one parameter set")
	}
	b.rng = rng
	offset := 0
	for _, set := range b.Sets {
		if set.Count <= 0 {
			return fmt.Errorf("models: parameter set %q has non-positive count %d", set.Name, set.Count)
		}
		set.Offset = offset
		offset += set.Count
		if err := set.Prior.Initialize(rng); err != nil {
			return err
		}
		if set.Prep != nil && set.Prep != set.Prior {
			if err := set.Prep.Initialize(rng); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParameterSets returns the ordered parameter sets.
func (b *Base) ParameterSets() []*altar.ParameterSet { return b.Sets }

// Parameters returns P, the sum of every parameter set's column count.
func (b *Base) Parameters() int {
	p := 0
	for _, set := range b.Sets {
		p += set.Count
	}
	return p
}

// InitializeSample fills every row of step.Theta from the parameter
// sets' initializing distributions.
func (b *Base) InitializeSample(step *altar.CoolingStep) {
	for _, set := range b.Sets {
		set.InitializeSample(step.Theta)
	}
}

// Verify marks mask[i] nonzero for every sample violating any
// parameter set's prior support; masks are aggregated by addition
// across parameter sets, so mask values may exceed 1 but the invalid test
// is always "nonzero".
func (b *Base) Verify(theta *mat.Dense, mask []float64) {
	for _, set := range b.Sets {
		set.Verify(theta, mask)
	}
}

// PriorLikelihood fills llk with the sum of every parameter set's
// prior log-density.
func (b *Base) PriorLikelihood(theta *mat.Dense, llk []float64) {
	for i := range llk {
		llk[i] = 0
	}
	for _, set := range b.Sets {
		set.PriorLikelihood(theta, llk)
	}
}

// Top and Bottom are no-op hooks by default; concrete models override
// them only if they need per-beta-step bookkeeping.
func (b *Base) Top(step *altar.CoolingStep)    {}
func (b *Base) Bottom(step *altar.CoolingStep) {}
