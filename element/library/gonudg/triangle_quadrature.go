package gonudg

// TriangleCollapsedGauss returns an n*n point quadrature rule on the
// reference triangle {r,s >= -1, r+s <= 0}. The rule is the tensor product
// of Gauss-Legendre points in the collapsed coordinate a and Gauss-Jacobi(1,0)
// points in b, exact for total degree 2n-1. Weights sum to the area, 2.
// Points are ordered with a varying fastest.
func TriangleCollapsedGauss(n int) (R, S, W []float64) {
	if n < 1 {
		panic("gonudg: triangle quadrature needs at least one point per direction")
	}
	xa, wa := JacobiGQ(0, 0, n-1)
	xb, wb := JacobiGQ(1, 0, n-1)

	a := make([]float64, 0, n*n)
	b := make([]float64, 0, n*n)
	W = make([]float64, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a = append(a, xa[i])
			b = append(b, xb[j])
			// dr ds = (1-b)/2 da db, the (1-b) factor lives in wb
			W = append(W, wa[i]*wb[j]/2)
		}
	}
	R, S = ABtoRS(a, b)
	return R, S, W
}
