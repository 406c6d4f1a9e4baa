package element

import (
	"fmt"

	"github.com/notargets/DGRupture/element/library/gonudg"
)

// FaultTriangle is the reference triangle of a fault face carrying a
// collapsed Gauss rule with Order+1 points per direction.
type FaultTriangle struct {
	props     ElementProperties
	quad      FaceQuadrature
	nodal     NodalModalMatrices
	operators ReferenceOperators
}

// NewFaultTriangle constructs the reference fault face for a convergence
// order in [1,8]
func NewFaultTriangle(order int) (*FaultTriangle, error) {
	if order < 1 || order > 8 {
		return nil, fmt.Errorf("convergence order %d outside [1,8]", order)
	}
	R, S, W := gonudg.TriangleCollapsedGauss(order + 1)
	nq := len(W)
	np := PaddedPoints(nq)

	// Resampling keeps modes of degree < order
	V := gonudg.Vandermonde2D(order-1, R, S)
	_, nm := V.Dims()

	ft := &FaultTriangle{
		props: ElementProperties{
			Name:                   fmt.Sprintf("Fault Triangle Order %d", order),
			ShortName:              fmt.Sprintf("FTri%d", order),
			Order:                  order,
			NumBoundaryGaussPoints: nq,
			NumPaddedPoints:        np,
			NumModes:               nm,
		},
		quad:      FaceQuadrature{R: R, S: S, W: W},
		nodal:     NodalModalMatrices{V: V},
		operators: ReferenceOperators{Resample: NewResampleOperator(V, W, np)},
	}
	return ft, nil
}

func (ft *FaultTriangle) GetProperties() ElementProperties { return ft.props }

func (ft *FaultTriangle) GetQuadrature() FaceQuadrature { return ft.quad }

func (ft *FaultTriangle) GetNodalModal() NodalModalMatrices { return ft.nodal }

func (ft *FaultTriangle) GetReferenceOperators() ReferenceOperators { return ft.operators }
