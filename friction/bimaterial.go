package friction

import (
	"fmt"
	"math"

	"github.com/notargets/DGRupture/fault"
)

// BiMaterialFault evolves the Prakash-Clifton regularised strength used on
// faces separating different materials.
//
// The regularised strength is updated and stored every sub-interval but the
// strength handed back to the law is the unregularised input; callers can
// read the regularised value from the layer.
type BiMaterialFault struct {
	PrakashLength float64
	VStar         float64

	layer *fault.Layer
}

// Setup initialises the regularised strength from the static friction and
// the initial normal stress
func (bm *BiMaterialFault) Setup(layer *fault.Layer) error {
	if bm.PrakashLength <= 0 {
		return fmt.Errorf("prakash length must be positive, got %g", bm.PrakashLength)
	}
	bm.layer = layer
	for face := 0; face < layer.NumFaces; face++ {
		reg := layer.Face(layer.RegularisedStrength, face)
		muS := layer.Face(layer.MuS, face)
		sigma := layer.InitialStress(face, fault.StressXX)
		for i := 0; i < layer.Layout.NumBoundaryGaussPoints; i++ {
			reg[i] = -muS[i] * math.Min(sigma[i], 0)
		}
	}
	return nil
}

func (bm *BiMaterialFault) AdjustStrength(strength, slipRate, sigma, mu, dt float64, face, point int) float64 {
	reg := bm.layer.Face(bm.layer.RegularisedStrength, face)
	reg[point] = bm.prakashClifton(reg[point], slipRate, sigma, mu, dt)
	return strength
}

func (*BiMaterialFault) AdjustStateVariable([]float64, float64, int) {}

func (bm *BiMaterialFault) prakashClifton(reg, slipRate, sigma, mu, dt float64) float64 {
	expterm := math.Exp(-(math.Abs(slipRate) + bm.VStar) * dt / bm.PrakashLength)
	return reg*expterm - math.Max(0, -mu*sigma)*(expterm-1)
}
