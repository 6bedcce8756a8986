package models

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	altar "github.com/inference-sim/altar"
)

// Gaussian1D is a single-parameter toy posterior: a scalar theta
// observed through a Gaussian likelihood N(Observed, Sigma).
type Gaussian1D struct {
	Base
	Observed float64
	Sigma    float64
}

// NewGaussian1D builds a Gaussian1D model with the given observation
// and noise level, using prior as the single parameter's prior
// distribution.
func NewGaussian1D(observed, sigma float64, prior altar.Distribution) *Gaussian1D {
	return &Gaussian1D{
		Base:     Base{Sets: []*altar.ParameterSet{{Name: "theta", Count: 1, Prior: prior}}},
		Observed: observed,
		Sigma:    sigma,
	}
}

// DataLikelihood evaluates log N(Observed; theta_i, Sigma) for every
// sample's single parameter.
func (g *Gaussian1D) DataLikelihood(theta *mat.Dense, llk []float64) {
	offset := g.Sets[0].Offset
	for i := range llk {
		d := distuv.Normal{Mu: theta.At(i, offset), Sigma: g.Sigma}
		llk[i] = d.LogProb(g.Observed)
	}
}
