package altar

import "gonum.org/v1/gonum/mat"

// CoolingStep is the full state of the annealing schedule at one
// inverse temperature beta. It is mutated in place by the Scheduler
// during cool and by the Sampler during walk, and replaced wholesale
// (theta and the three log-likelihood vectors) at resample.
type CoolingStep struct {
	// Beta is the inverse temperature in [0,1]. Beta=0 samples the
	// prior, Beta=1 samples the posterior.
	Beta float64

	// Theta holds the chain states, one row per sample: S x P.
	Theta *mat.Dense

	// Prior, Data and Posterior are the S-vectors of log-likelihoods
	// corresponding to the rows of Theta.
	Prior, Data, Posterior []float64

	// Sigma is the P x P symmetric parameter covariance.
	Sigma *mat.SymDense

	// Iteration is a monotonically increasing step counter.
	Iteration int
}

// Samples returns S, the number of chains (rows of Theta).
func (s *CoolingStep) Samples() int {
	r, _ := s.Theta.Dims()
	return r
}

// Parameters returns P, the dimension of theta (columns of Theta).
func (s *CoolingStep) Parameters() int {
	_, c := s.Theta.Dims()
	return c
}

// NewCoolingStep allocates a CoolingStep for S samples of P parameters.
func NewCoolingStep(samples, parameters int) *CoolingStep {
	return &CoolingStep{
		Theta:     mat.NewDense(samples, parameters, nil),
		Prior:     make([]float64, samples),
		Data:      make([]float64, samples),
		Posterior: make([]float64, samples),
		Sigma:     mat.NewSymDense(parameters, nil),
	}
}

// ApplyBeta recomputes Posterior = Prior + Beta*Data for every sample.
// Worker start and the scheduler call it; the Metropolis sampler applies
// the same formula to its candidate rows before accept/reject.
func (s *CoolingStep) ApplyBeta() {
	for i := range s.Posterior {
		s.Posterior[i] = s.Prior[i] + s.Beta*s.Data[i]
	}
}

// Clone returns a deep copy of the step; writes to the copy never reach
// the original.
func (s *CoolingStep) Clone() *CoolingStep {
	samples, parameters := s.Theta.Dims()
	out := NewCoolingStep(samples, parameters)
	out.Theta.Copy(s.Theta)
	copy(out.Prior, s.Prior)
	copy(out.Data, s.Data)
	copy(out.Posterior, s.Posterior)
	out.Sigma.CopySym(s.Sigma)
	out.Beta = s.Beta
	out.Iteration = s.Iteration
	return out
}
