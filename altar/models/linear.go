package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	altar "github.com/inference-sim/altar"
)

// Linear is the weighted-least-squares model: residuals r = Gθ - d,
// data log-likelihood
//
//	data_LLK_i = Z - 0.5 * r_i^T Cd^-1 r_i
//	Z = -0.5 * (Nobs*log(2π) + logdet(Cd))
//
// The quadratic form is evaluated by solving Cd x = r through Cd's
// Cholesky factorization rather than forming Cd^-1 explicitly.
type Linear struct {
	Base
	G  *mat.Dense   // Nobs x P Green's function / design matrix
	D  *mat.VecDense // Nobs observation vector
	Cd *mat.Cholesky // Cholesky factorization of the data covariance

	nObs int
	z    float64 // log-normalization constant
}

// NewLinear builds a Linear model. cd is the Nobs x Nobs data
// covariance matrix; it is Cholesky-factorized once at construction
// and a failed factorization (non-SPD Cd) surfaces immediately as an
// error from NewLinear rather than mid-run; cmd's buildModel wraps
// that error as a Numerical apperror.
func NewLinear(g *mat.Dense, d []float64, cd *mat.SymDense, sets []*altar.ParameterSet) (*Linear, error) {
	nObs, _ := g.Dims()
	if len(d) != nObs {
		return nil, fmt.Errorf("models: G has %d rows but d has %d entries", nObs, len(d))
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cd); !ok {
		return nil, fmt.Errorf("models: data covariance is not symmetric positive-definite")
	}
	z := -0.5 * (float64(nObs)*math.Log(2*math.Pi) + chol.LogDet())
	return &Linear{
		Base: Base{Sets: sets},
		G:    g,
		D:    mat.NewVecDense(nObs, append([]float64(nil), d...)),
		Cd:   &chol,
		nObs: nObs,
		z:    z,
	}, nil
}

// DataLikelihood evaluates the weighted-least-squares log-likelihood
// for every row of theta.
func (m *Linear) DataLikelihood(theta *mat.Dense, llk []float64) {
	rows, p := theta.Dims()
	gTheta := mat.NewVecDense(m.nObs, nil)
	residual := mat.NewVecDense(m.nObs, nil)
	x := mat.NewVecDense(m.nObs, nil)
	for i := 0; i < rows; i++ {
		thetaRow := mat.NewVecDense(p, append([]float64(nil), theta.RawRowView(i)...))
		gTheta.MulVec(m.G, thetaRow)
		residual.SubVec(gTheta, m.D)
		if err := m.Cd.SolveVecTo(x, residual); err != nil {
			// Non-SPD Cd would already have failed at construction;
			// a solve failure here means the factorization degraded,
			// which is itself a numerical-conditioning fault.
			llk[i] = math.Inf(-1)
			continue
		}
		quad := mat.Dot(residual, x)
		llk[i] = m.z - 0.5*quad
	}
}
