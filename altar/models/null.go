package models

import (
	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
)

// Null is a trivial model usable as a
// default smoke-test model: a single one-column parameter set (with a
// uniform(0,1) prior in the usual setup) whose data log-likelihood is
// identically zero, so posterior == prior and
// the COV scheduler's first step always attains its target (COV(w)=0
// for any Δβ when the data-LLK vector is constant).
type Null struct {
	Base
}

// NewNull builds a Null model with a single parameter governed by prior.
func NewNull(prior altar.Distribution) *Null {
	return &Null{Base: Base{Sets: []*altar.ParameterSet{
		{Name: "theta", Count: 1, Prior: prior},
	}}}
}

// DataLikelihood is identically zero for every sample.
func (n *Null) DataLikelihood(theta *mat.Dense, llk []float64) {
	for i := range llk {
		llk[i] = 0
	}
}
