package distributions

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	altar "github.com/inference-sim/altar"
)

// Gaussian is the {mean,sigma}-configured prior family. It places no
// constraint on support: Verify never marks a sample invalid.
type Gaussian struct {
	base
	Mean, Sigma float64
}

// NewGaussian builds a Gaussian from its recognized configuration
// options. Missing sigma defaults to 1, mean to 0.
func NewGaussian(opts map[string]any) (altar.Distribution, error) {
	return &Gaussian{Mean: floatOpt(opts, "mean", 0), Sigma: floatOpt(opts, "sigma", 1)}, nil
}

func (g *Gaussian) dist() distuv.Normal {
	return distuv.Normal{Mu: g.Mean, Sigma: g.Sigma, Src: g.rng}
}

func (g *Gaussian) InitializeSample(theta *mat.Dense, offset, count int) {
	d := g.dist()
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		for j := offset; j < offset+count; j++ {
			theta.Set(i, j, d.Rand())
		}
	}
}

func (g *Gaussian) PriorLikelihood(theta *mat.Dense, offset, count int, llk []float64) {
	d := distuv.Normal{Mu: g.Mean, Sigma: g.Sigma}
	forEachCell(theta, offset, count, func(row, _ int, v float64) {
		llk[row] += d.LogProb(v)
	})
}

func (g *Gaussian) Verify(theta *mat.Dense, offset, count int, mask []float64) {
	// Unbounded support: nothing to reject.
}

func (g *Gaussian) Sample(rng *rand.Rand) float64 {
	return distuv.Normal{Mu: g.Mean, Sigma: g.Sigma, Src: rng}.Rand()
}

func (g *Gaussian) Density(x float64) float64 {
	return distuv.Normal{Mu: g.Mean, Sigma: g.Sigma}.Prob(x)
}

func init() {
	altar.RegisterDistribution("gaussian", NewGaussian)
}
