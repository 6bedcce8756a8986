// Package scheduler implements the COV annealing scheduler (Ching &
// Chen 2007): it solves for the largest temperature increment Δβ
// that keeps the reweighted data-likelihood vector's coefficient of
// variation at a target value, then resamples.
package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	altar "github.com/inference-sim/altar"
)

// COV is the coefficient-of-variation annealing scheduler (Ching &
// Chen 2007).
type COV struct {
	Target    float64
	Tolerance float64
	MaxIter   int

	rng *rand.Rand
	w   []float64 // normalized resampling weights from the last Update
	cov float64   // achieved COV from the last Update
}

// New builds a COV scheduler with the given target, fractional
// tolerance and maximum bisection iterations (defaults:
// target=1.0, tolerance=0.01, maxiter=1000).
func New(target, tolerance float64, maxIter int) *COV {
	return &COV{Target: target, Tolerance: tolerance, MaxIter: maxIter}
}

// NewFromOptions builds a COV scheduler from configuration options,
// for use with the altar.SchedulerFactory registry.
func NewFromOptions(opts map[string]any) (altar.Scheduler, error) {
	c := New(1.0, 0.01, 1000)
	if v, ok := opts["target"].(float64); ok {
		c.Target = v
	}
	if v, ok := opts["tolerance"].(float64); ok {
		c.Tolerance = v
	}
	if v, ok := opts["maxiter"].(int); ok {
		c.MaxIter = v
	}
	return c, nil
}

func init() {
	altar.RegisterScheduler("cov", NewFromOptions)
}

// Initialize binds the scheduler to an RNG stream.
func (c *COV) Initialize(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("scheduler: nil rng")
	}
	c.rng = rng
	return nil
}

// Achieved returns the COV value attained by the last Update call.
func (c *COV) Achieved() float64 { return c.cov }

// Update advances step to its next temperature, recomputes the
// parameter covariance from the pre-resample sample set, and then
// ranks/resamples theta and the three log-likelihood vectors in
// place.
func (c *COV) Update(step *altar.CoolingStep) (float64, bool, error) {
	upper := 1 - step.Beta
	if upper <= 0 {
		step.Beta = 1
		return 0, true, nil
	}
	samples := step.Samples()

	var dBeta, cov float64
	var converged bool
	if samples <= 1 {
		// COV is undefined for a single chain; treat the single weight
		// as the fixed Δβ step.
		dBeta, cov, converged = upper, 0, true
	} else {
		dBeta, cov, converged = c.solve(step.Data, upper)
	}
	c.cov = cov

	w := reweight(step.Data, dBeta)
	c.w = w

	sigma := computeCovariance(step.Theta, w)

	resample(step, w, c.rng)

	step.Beta = math.Min(step.Beta+dBeta, 1)
	step.Sigma = sigma
	step.ApplyBeta()
	step.Iteration++

	return cov, converged, nil
}

// solve finds Δβ in (0, upper] such that |COV(w(Δβ)) - target| is
// within tolerance*target, first by a coarse grid scan to bracket the
// crossing point (COV(0)=0 is assumed <= target; COV increases with
// Δβ), then refining the bracket by bisection. It returns the best
// Δβ found and whether it met the tolerance within MaxIter bisection
// steps.
func (c *COV) solve(data []float64, upper float64) (float64, float64, bool) {
	median := medianOf(data)
	covAt := func(dBeta float64) float64 {
		return covOf(reweight2(data, median, dBeta))
	}

	if covAt(upper) <= c.Target*(1+c.Tolerance) {
		return upper, covAt(upper), true
	}

	const gridPoints = 64
	lo, hi := 0.0, upper
	for k := 1; k <= gridPoints; k++ {
		db := upper * float64(k) / float64(gridPoints)
		if covAt(db) >= c.Target {
			hi = db
			break
		}
		lo = db
	}

	var mid, covMid float64
	for iter := 0; iter < c.MaxIter; iter++ {
		mid = (lo + hi) / 2
		covMid = covAt(mid)
		if math.Abs(covMid-c.Target) <= c.Tolerance*c.Target {
			return mid, covMid, true
		}
		if covMid < c.Target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return mid, covMid, false
}

// reweight computes the normalized resampling weights for Δβ, using
// the data-LLK median as a numerical stabilizer, always applied
// rather than treated as optional.
func reweight(data []float64, dBeta float64) []float64 {
	return reweight2(data, medianOf(data), dBeta)
}

func reweight2(data []float64, median, dBeta float64) []float64 {
	w := make([]float64, len(data))
	for i, l := range data {
		w[i] = math.Exp(dBeta * (l - median))
	}
	if sum := floats.Sum(w); sum > 0 {
		floats.Scale(1/sum, w)
	}
	return w
}

// covOf returns the coefficient of variation (stdev/mean) of a
// normalized (or unnormalized) weight vector.
func covOf(w []float64) float64 {
	mean, std := stat.MeanStdDev(w, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

func medianOf(data []float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computeCovariance implements
//
//	θ̄ = Σ_i w_i θ_i
//	Σ  = Σ_i w_i θ_i θ_i^T - θ̄ θ̄^T
//
// via symmetric rank-1 accumulation, mirroring COV.py's use of
// altar.blas.dsyr.
func computeCovariance(theta *mat.Dense, w []float64) *mat.SymDense {
	samples, parameters := theta.Dims()
	sigma := mat.NewSymDense(parameters, nil)
	thetaBar := mat.NewVecDense(parameters, nil)
	for j := 0; j < parameters; j++ {
		sum := 0.0
		for i := 0; i < samples; i++ {
			sum += w[i] * theta.At(i, j)
		}
		thetaBar.SetVec(j, sum)
	}
	for i := 0; i < samples; i++ {
		row := mat.NewVecDense(parameters, append([]float64(nil), theta.RawRowView(i)...))
		sigma.SymRankOne(sigma, w[i], row)
	}
	sigma.SymRankOne(sigma, -1, thetaBar)
	return sigma
}

// resample draws S uniform variates, bins them against the cumulative
// weight edges to build a multiplicity histogram, and rebuilds
// step.Theta/Prior/Data/Posterior as m_i copies of row i sorted by
// descending multiplicity (ties broken by original index), per
// the systematic-resampling rule.
func resample(step *altar.CoolingStep, w []float64, rng *rand.Rand) {
	samples := step.Samples()
	edges := make([]float64, samples+1)
	cum := 0.0
	for i, wi := range w {
		edges[i] = cum
		cum += wi
	}
	edges[samples] = 1.0

	mult := make([]int, samples)
	for k := 0; k < samples; k++ {
		u := rng.Float64()
		bin := sort.Search(samples, func(i int) bool { return edges[i+1] > u || i == samples-1 })
		mult[bin]++
	}

	idx := make([]int, samples)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return mult[idx[a]] > mult[idx[b]] })

	_, parameters := step.Theta.Dims()
	newTheta := mat.NewDense(samples, parameters, nil)
	newPrior := make([]float64, samples)
	newData := make([]float64, samples)
	newPosterior := make([]float64, samples)

	done := 0
	for _, old := range idx {
		count := mult[old]
		if count == 0 {
			break
		}
		for d := 0; d < count; d++ {
			copy(newTheta.RawRowView(done), step.Theta.RawRowView(old))
			newPrior[done] = step.Prior[old]
			newData[done] = step.Data[old]
			newPosterior[done] = step.Posterior[old]
			done++
		}
	}

	step.Theta = newTheta
	step.Prior = newPrior
	step.Data = newData
	step.Posterior = newPosterior
}
