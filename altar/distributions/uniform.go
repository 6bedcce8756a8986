package distributions

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	altar "github.com/inference-sim/altar"
)

// Uniform is the bounded prior family, configured with
// {support=(low,high)}.
type Uniform struct {
	base
	Low, High float64
}

// NewUniform builds a Uniform from its recognized configuration
// options. Missing bounds default to (0,1).
func NewUniform(opts map[string]any) (altar.Distribution, error) {
	return &Uniform{Low: floatOpt(opts, "low", 0), High: floatOpt(opts, "high", 1)}, nil
}

func (u *Uniform) dist() distuv.Uniform {
	return distuv.Uniform{Min: u.Low, Max: u.High, Src: u.rng}
}

func (u *Uniform) InitializeSample(theta *mat.Dense, offset, count int) {
	d := u.dist()
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		for j := offset; j < offset+count; j++ {
			theta.Set(i, j, d.Rand())
		}
	}
}

func (u *Uniform) PriorLikelihood(theta *mat.Dense, offset, count int, llk []float64) {
	logDensity := -math.Log(u.High - u.Low)
	rows, _ := theta.Dims()
	for i := 0; i < rows; i++ {
		llk[i] += float64(count) * logDensity
	}
}

func (u *Uniform) Verify(theta *mat.Dense, offset, count int, mask []float64) {
	forEachCell(theta, offset, count, func(row, _ int, v float64) {
		if v < u.Low || v > u.High {
			mask[row]++
		}
	})
}

func (u *Uniform) Sample(rng *rand.Rand) float64 {
	return distuv.Uniform{Min: u.Low, Max: u.High, Src: rng}.Rand()
}

func (u *Uniform) Density(x float64) float64 {
	if x < u.Low || x > u.High {
		return 0
	}
	return 1 / (u.High - u.Low)
}

func init() {
	altar.RegisterDistribution("uniform", NewUniform)
}
