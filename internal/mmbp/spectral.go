package mmbp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// SpectralRadius evaluates spec(θ) = max|eig(Diag(M(θ)) · T)|. The hand-solved
// two-state closed form is used when there are exactly two states; otherwise
// the eigenvalues of the general n×n matrix are computed with gonum. A
// non-finite per-state MGF value makes the whole result +Inf.
func (a *Arrival) SpectralRadius(theta float64) float64 {
	n := len(a.StateMGFs)
	if n == 0 {
		return 0
	}

	m := make([]float64, n)
	for k, f := range a.StateMGFs {
		v := f.CalcMGF(theta)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return math.Inf(1)
		}
		m[k] = v
	}

	if n == 2 {
		return spectralRadius2(m, a.Transition)
	}
	return spectralRadiusN(m, a.Transition)
}

// spectralRadius2 hand-solves the eigenvalues of the 2x2 matrix
// Diag(m) * T via the quadratic formula on its characteristic polynomial.
func spectralRadius2(m []float64, t [][]float64) float64 {
	a00 := m[0] * t[0][0]
	a01 := m[0] * t[0][1]
	a10 := m[1] * t[1][0]
	a11 := m[1] * t[1][1]

	trace := a00 + a11
	det := a00*a11 - a01*a10
	disc := trace*trace - 4*det

	if disc >= 0 {
		sq := math.Sqrt(disc)
		l1 := (trace + sq) / 2
		l2 := (trace - sq) / 2
		return math.Max(math.Abs(l1), math.Abs(l2))
	}
	// complex conjugate pair; modulus is sqrt(det) for a 2x2 real matrix.
	return math.Sqrt(math.Abs(det))
}

// spectralRadiusN computes eigenvalues of the general n×n real matrix
// Diag(m) * T via gonum and returns the largest eigenvalue modulus.
func spectralRadiusN(m []float64, t [][]float64) float64 {
	n := len(m)
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = m[i] * t[i][j]
		}
	}
	dense := mat.NewDense(n, n, data)

	var eig mat.Eigen
	if ok := eig.Factorize(dense, mat.EigenRight); !ok {
		return math.Inf(1)
	}
	values := eig.Values(nil)

	radius := 0.0
	for _, v := range values {
		mag := cmplx.Abs(v)
		if mag > radius {
			radius = mag
		}
	}
	return radius
}
