// Package sampler implements the Metropolis sampler:
// a covariance-guided proposal walked across all chains in lockstep,
// with verify/evaluate/accept-reject in the log domain and
// acceptance-weighted scale adaptation.
package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
)

// Metropolis is the covariance-guided random-walk Metropolis sampler.
type Metropolis struct {
	Steps             int
	AcceptanceWeight  float64 // w_a, default 8
	RejectionWeight   float64 // w_r, default 1
	MinScale, MaxScale float64 // clamp bounds, default 0.1, 1.0

	scale float64
	chol  mat.Cholesky
}

// New builds a Metropolis sampler. steps is the number of inner
// iterations per beta-step (NewFromOptions defaults it to 20); the
// initial scale is 0.1.
func New(steps int) *Metropolis {
	return &Metropolis{
		Steps:            steps,
		AcceptanceWeight: 8,
		RejectionWeight:  1,
		MinScale:         0.1,
		MaxScale:         1.0,
		scale:            0.1,
	}
}

// NewFromOptions builds a Metropolis sampler from configuration
// options, for use with the altar.SamplerFactory registry.
func NewFromOptions(opts map[string]any) (altar.Sampler, error) {
	steps := 20
	if v, ok := opts["steps"].(int); ok {
		steps = v
	}
	m := New(steps)
	if v, ok := opts["scaling"].(float64); ok {
		m.scale = v
	}
	if v, ok := opts["acceptanceWeight"].(float64); ok {
		m.AcceptanceWeight = v
	}
	if v, ok := opts["rejectionWeight"].(float64); ok {
		m.RejectionWeight = v
	}
	return m, nil
}

func init() {
	altar.RegisterSampler("metropolis", NewFromOptions)
}

// Scale returns the current proposal scale.
func (m *Metropolis) Scale() float64 { return m.scale }

// PrepareSamplingPDF computes Σ_prop = scale² · Σ and its lower
// Cholesky factor, used by every WalkChains call for this beta-step.
// A non-SPD Σ_prop is a fatal numerical-conditioning error
// the caller is expected to abort the simulation.
func (m *Metropolis) PrepareSamplingPDF(step *altar.CoolingStep) error {
	parameters := step.Parameters()
	scaled := mat.NewSymDense(parameters, nil)
	for i := 0; i < parameters; i++ {
		for j := i; j < parameters; j++ {
			scaled.SetSym(i, j, m.scale*m.scale*step.Sigma.At(i, j))
		}
	}
	if ok := m.chol.Factorize(scaled); !ok {
		return fmt.Errorf("sampler: proposal covariance is not symmetric positive-definite")
	}
	return nil
}

// WalkChains advances rows [rowStart, rowStart+rowCount) of step for
// m.Steps inner iterations: draw a Cholesky-shaped Gaussian step,
// verify, evaluate prior/data/posterior, and accept/reject in the log
// domain. It mutates step's arrays in place for that row range and
// returns the row range's tally.
func (m *Metropolis) WalkChains(step *altar.CoolingStep, model altar.Model, rng *rand.Rand, rowStart, rowCount int) (altar.Tally, error) {
	parameters := step.Parameters()
	var L mat.TriDense
	m.chol.LTo(&L)

	var tally altar.Tally

	candidate := mat.NewDense(rowCount, parameters, nil)
	candidatePrior := make([]float64, rowCount)
	candidateData := make([]float64, rowCount)
	candidatePosterior := make([]float64, rowCount)
	mask := make([]float64, rowCount)

	for iter := 0; iter < m.Steps; iter++ {
		// Draw the proposal: delta = L * z, z ~ N(0, I_P), one column
		// per chain, then transpose into row-major S x P and add to
		// theta.
		for i := 0; i < rowCount; i++ {
			z := mat.NewVecDense(parameters, nil)
			for p := 0; p < parameters; p++ {
				z.SetVec(p, rng.NormFloat64())
			}
			delta := mat.NewVecDense(parameters, nil)
			delta.MulVec(&L, z)
			oldRow := step.Theta.RawRowView(rowStart + i)
			newRow := candidate.RawRowView(i)
			for p := 0; p < parameters; p++ {
				newRow[p] = oldRow[p] + delta.AtVec(p)
			}
			mask[i] = 0
		}

		model.Verify(candidate, mask)
		// Copy-back policy: invalid
		// candidates revert to the current row before likelihood
		// evaluation, so the batch passed downstream is always legal.
		for i := 0; i < rowCount; i++ {
			if mask[i] != 0 {
				copy(candidate.RawRowView(i), step.Theta.RawRowView(rowStart+i))
			}
		}

		model.PriorLikelihood(candidate, candidatePrior)
		model.DataLikelihood(candidate, candidateData)
		for i := 0; i < rowCount; i++ {
			candidatePosterior[i] = candidatePrior[i] + step.Beta*candidateData[i]
		}

		for i := 0; i < rowCount; i++ {
			row := rowStart + i
			if mask[i] != 0 {
				tally.Rejected++
				continue
			}
			u := rng.Float64()
			logAlpha := candidatePosterior[i] - step.Posterior[row]
			if math.Log(u) <= logAlpha {
				copy(step.Theta.RawRowView(row), candidate.RawRowView(i))
				step.Prior[row] = candidatePrior[i]
				step.Data[row] = candidateData[i]
				step.Posterior[row] = candidatePosterior[i]
				tally.Accepted++
			} else {
				tally.Unlikely++
			}
		}
	}

	return tally, nil
}

// Resample adapts the proposal scale from the combined tally:
//
//	α = accepted / (accepted+rejected+unlikely)
//	scale' = clamp((w_a*α + w_r) / (w_a+w_r), MinScale, MaxScale)
//
// If the tally is empty the scale is left unchanged.
func (m *Metropolis) Resample(tally altar.Tally) {
	total := tally.Total()
	if total == 0 {
		return
	}
	alpha := float64(tally.Accepted) / float64(total)
	next := (m.AcceptanceWeight*alpha + m.RejectionWeight) / (m.AcceptanceWeight + m.RejectionWeight)
	if next < m.MinScale {
		next = m.MinScale
	}
	if next > m.MaxScale {
		next = m.MaxScale
	}
	m.scale = next
}
