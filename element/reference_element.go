package element

import (
	"gonum.org/v1/gonum/mat"
)

// VectorWidth is the number of reals per-point arrays are padded to
const VectorWidth = 8

// PaddedPoints rounds n up to the next multiple of VectorWidth
func PaddedPoints(n int) int {
	return ((n + VectorWidth - 1) / VectorWidth) * VectorWidth
}

// ElementProperties contains metadata describing a fault face element
type ElementProperties struct {
	Name      string // Full descriptive name (e.g., "Fault Triangle Order 3")
	ShortName string // Abbreviated name used in generated kernel symbols
	Order     int    // Convergence order of the volume scheme
	// Number of quadrature points on the face
	NumBoundaryGaussPoints int
	// Quadrature points rounded up to the vector width, tail is zero
	NumPaddedPoints int
	// Number of modes of the reduced basis used for resampling
	NumModes int
}

// FaceQuadrature holds quadrature points and weights in reference space
type FaceQuadrature struct {
	R, S []float64 // Length NumBoundaryGaussPoints each
	W    []float64 // Weights, sum to the reference face area
}

// NodalModalMatrices contains transformation matrices between point values
// and the reduced modal basis
type NodalModalMatrices struct {
	V mat.Matrix // Reduced Vandermonde at quadrature points [NumBoundaryGaussPoints × NumModes]
}

// ReferenceOperators contains the operators applied on padded point arrays
type ReferenceOperators struct {
	// Projection onto the reduced basis, evaluated back at the quadrature
	// points [NumPaddedPoints × NumPaddedPoints]
	Resample *ResampleOperator
}

// ReferenceElement defines face properties and operators in reference space
type ReferenceElement interface {
	GetProperties() ElementProperties
	GetQuadrature() FaceQuadrature
	GetNodalModal() NodalModalMatrices
	GetReferenceOperators() ReferenceOperators
}
