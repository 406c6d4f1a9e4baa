package gonudg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vandermonde2D evaluates the orthonormal basis of total degree N on the
// reference triangle at (R,S). Columns are ordered by (i,j) with i+j <= N.
func Vandermonde2D(N int, R, S []float64) *mat.Dense {
	Np := (N + 1) * (N + 2) / 2
	Nr := len(R)

	V2D := mat.NewDense(Nr, Np, nil)
	sk := 0
	for i := 0; i <= N; i++ {
		for j := 0; j <= (N - i); j++ {
			V2D.SetCol(sk, Simplex2DP(R, S, i, j))
			sk++
		}
	}
	return V2D
}

// Simplex2DP evaluates the 2D orthonormal polynomial of order (i,j) on the
// simplex at (R,S)
func Simplex2DP(R, S []float64, i, j int) []float64 {
	a, b := RStoAB(R, S)

	h1 := JacobiP(a, 0, 0, i)
	h2 := JacobiP(b, float64(2*i+1), 0, j)

	P := make([]float64, len(R))
	for ii := range h1 {
		P[ii] = math.Sqrt2 * h1[ii] * h2[ii] * pow(1-b[ii], i)
	}
	return P
}

// RStoAB maps triangle coordinates (r,s) to the collapsed square (a,b)
func RStoAB(R, S []float64) (a, b []float64) {
	Np := len(R)
	a = make([]float64, Np)
	b = make([]float64, Np)
	for n := 0; n < Np; n++ {
		if S[n] != 1 {
			a[n] = 2*(1+R[n])/(1-S[n]) - 1
		} else {
			a[n] = -1
		}
		b[n] = S[n]
	}
	return
}

// ABtoRS is the inverse of RStoAB
func ABtoRS(a, b []float64) (R, S []float64) {
	R = make([]float64, len(a))
	S = make([]float64, len(a))
	for n := range a {
		R[n] = (1+a[n])*(1-b[n])/2 - 1
		S[n] = b[n]
	}
	return
}

func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
