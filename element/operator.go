package element

import (
	"gonum.org/v1/gonum/mat"
)

// ResampleOperator projects a padded per-point field onto polynomials of
// degree Order-1 on the face and evaluates the projection back at the
// quadrature points. Padded rows and columns are zero.
type ResampleOperator struct {
	*mat.Dense
	n int
}

// NewResampleOperator builds P = V * V^T * diag(W) from an orthonormal
// basis V evaluated at the quadrature points, zero padded to nPadded.
func NewResampleOperator(V mat.Matrix, W []float64, nPadded int) *ResampleOperator {
	nq, nm := V.Dims()
	if len(W) != nq {
		panic("element: quadrature weights do not match Vandermonde rows")
	}
	if nPadded < nq {
		panic("element: padded size smaller than quadrature size")
	}
	P := mat.NewDense(nPadded, nPadded, nil)
	for i := 0; i < nq; i++ {
		for j := 0; j < nq; j++ {
			var sum float64
			for m := 0; m < nm; m++ {
				sum += V.At(i, m) * V.At(j, m)
			}
			P.Set(i, j, sum*W[j])
		}
	}
	return &ResampleOperator{Dense: P, n: nPadded}
}

// Apply computes out = P * in. in and out must not alias.
func (op *ResampleOperator) Apply(in, out []float64) {
	raw := op.RawMatrix()
	for i := 0; i < op.n; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+op.n]
		var sum float64
		for j, p := range row {
			sum += p * in[j]
		}
		out[i] = sum
	}
}

// GetRefMatrices returns the face operators by the names used for static
// embedding in device kernels
func GetRefMatrices(el ReferenceElement) (refMats map[string]mat.Matrix) {
	var (
		props = el.GetProperties()
		sn    = props.ShortName
	)
	refMats = map[string]mat.Matrix{
		"V_" + sn:        el.GetNodalModal().V,
		"Resample_" + sn: el.GetReferenceOperators().Resample.Dense,
	}
	return
}
