package fault

import (
	"fmt"

	"github.com/notargets/DGRupture/element"
)

// QuantityLayout locates the traction and velocity quantities inside the
// interpolated degrees of freedom of one side of a fault face. Tractions
// are ordered normal, shear 1, shear 2 and, for poroelastic media, fluid
// pressure; velocities follow the same order.
type QuantityLayout struct {
	Name            string
	NumQuantities   int
	TractionIndices []int
	VelocityIndices []int
}

var (
	Elastic = QuantityLayout{
		Name:            "elastic",
		NumQuantities:   9,
		TractionIndices: []int{0, 3, 5},
		VelocityIndices: []int{6, 7, 8},
	}
	Poroelastic = QuantityLayout{
		Name:            "poroelastic",
		NumQuantities:   13,
		TractionIndices: []int{0, 3, 5, 9},
		VelocityIndices: []int{6, 7, 8, 10},
	}
)

// NumTractions is the dimension of theta, 3 for elastic and 4 for poroelastic
func (q QuantityLayout) NumTractions() int { return len(q.TractionIndices) }

func (q QuantityLayout) IsPoroelastic() bool { return q.NumTractions() == 4 }

// Initial stress components in fault coordinates
const (
	StressXX = iota
	StressYY
	StressZZ
	StressXY
	StressYZ
	StressXZ
	NumStressComponents
)

// Layout fixes the per-face array extents for the lifetime of a solver
type Layout struct {
	ConvergenceOrder       int
	NumBoundaryGaussPoints int
	NumPaddedPoints        int
	Quantities             QuantityLayout
}

// NewLayout derives the extents from the reference fault face
func NewLayout(face element.ReferenceElement, q QuantityLayout) (Layout, error) {
	props := face.GetProperties()
	l := Layout{
		ConvergenceOrder:       props.Order,
		NumBoundaryGaussPoints: props.NumBoundaryGaussPoints,
		NumPaddedPoints:        props.NumPaddedPoints,
		Quantities:             q,
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks the extents are consistent
func (l Layout) Validate() error {
	switch {
	case l.ConvergenceOrder < 1:
		return fmt.Errorf("convergence order must be positive, got %d", l.ConvergenceOrder)
	case l.NumBoundaryGaussPoints < 1:
		return fmt.Errorf("no boundary gauss points")
	case l.NumPaddedPoints < l.NumBoundaryGaussPoints:
		return fmt.Errorf("padded points %d < boundary points %d",
			l.NumPaddedPoints, l.NumBoundaryGaussPoints)
	case l.NumPaddedPoints%element.VectorWidth != 0:
		return fmt.Errorf("padded points %d not a multiple of %d",
			l.NumPaddedPoints, element.VectorWidth)
	case l.Quantities.NumQuantities == 0 ||
		len(l.Quantities.TractionIndices) != len(l.Quantities.VelocityIndices):
		return fmt.Errorf("invalid quantity layout %q", l.Quantities.Name)
	}
	return nil
}

// QSize is the length of one side's interpolated DOFs for one sub-interval
func (l Layout) QSize() int { return l.Quantities.NumQuantities * l.NumPaddedPoints }
