package distributions

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	altar "github.com/inference-sim/altar"
)

// UnitGaussian is the parameterless standard-normal family: {}.
type UnitGaussian struct {
	base
}

// NewUnitGaussian builds a UnitGaussian; it takes no configuration
// options.
func NewUnitGaussian(opts map[string]any) (altar.Distribution, error) {
	return &UnitGaussian{}, nil
}

func (u *UnitGaussian) InitializeSample(theta *mat.Dense, offset, count int) {
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		for j := offset; j < offset+count; j++ {
			theta.Set(i, j, u.rng.NormFloat64())
		}
	}
}

func (u *UnitGaussian) PriorLikelihood(theta *mat.Dense, offset, count int, llk []float64) {
	d := distuv.Normal{Mu: 0, Sigma: 1}
	forEachCell(theta, offset, count, func(row, _ int, v float64) {
		llk[row] += d.LogProb(v)
	})
}

func (u *UnitGaussian) Verify(theta *mat.Dense, offset, count int, mask []float64) {
	// Unbounded support: nothing to reject.
}

func (u *UnitGaussian) Sample(rng *rand.Rand) float64 {
	return rng.NormFloat64()
}

func (u *UnitGaussian) Density(x float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: 1}.Prob(x)
}

func init() {
	altar.RegisterDistribution("unit-gaussian", NewUnitGaussian)
}
