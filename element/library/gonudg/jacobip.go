package gonudg

import (
	"math"
)

// JacobiP evaluates the orthonormal Jacobi polynomial of type (alpha,beta)
// and order n at points x, normalized to unity on [-1,1].
func JacobiP(x []float64, alpha, beta float64, n int) []float64 {
	Np := len(x)
	Pm1 := make([]float64, Np)

	gamma0 := Gamma0(alpha, beta)
	for i := range Pm1 {
		Pm1[i] = 1.0 / math.Sqrt(gamma0)
	}
	if n == 0 {
		return Pm1
	}

	gamma1 := Gamma1(alpha, beta)
	P := make([]float64, Np)
	for i := range P {
		P[i] = ((alpha+beta+2)*x[i]/2 + (alpha-beta)/2) / math.Sqrt(gamma1)
	}
	if n == 1 {
		return P
	}

	// Three term recurrence, P_{i+1} from P_i and P_{i-1}
	aold := 2.0 / (2.0 + alpha + beta) * math.Sqrt((alpha+1)*(beta+1)/(alpha+beta+3))
	Pnew := make([]float64, Np)
	for i := 1; i < n; i++ {
		fi := float64(i)
		h1 := 2*fi + alpha + beta
		anew := 2.0 / (h1 + 2) * math.Sqrt((fi+1)*(fi+1+alpha+beta)*
			(fi+1+alpha)*(fi+1+beta)/(h1+1)/(h1+3))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2)
		for j := range P {
			Pnew[j] = (-aold*Pm1[j] + (x[j]-bnew)*P[j]) / anew
		}
		Pm1, P, Pnew = P, Pnew, Pm1
		aold = anew
	}
	return P
}
