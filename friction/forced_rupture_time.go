package friction

import (
	"fmt"
	"math"

	"github.com/notargets/DGRupture/fault"
)

// ForcedRuptureTime nucleates rupture by raising the state variable to one
// over T0 seconds from each point's forced rupture time
type ForcedRuptureTime struct {
	T0 float64

	layer *fault.Layer
}

func (frt *ForcedRuptureTime) Setup(layer *fault.Layer) error {
	if frt.T0 < 0 {
		return fmt.Errorf("forced rupture ramp time must be non-negative, got %g", frt.T0)
	}
	frt.layer = layer
	return nil
}

func (*ForcedRuptureTime) AdjustStrength(strength, _, _, _, _ float64, _, _ int) float64 {
	return strength
}

func (frt *ForcedRuptureTime) AdjustStateVariable(stateVariable []float64, time float64, face int) {
	forced := frt.layer.Face(frt.layer.ForcedRuptureTime, face)
	for i := 0; i < frt.layer.Layout.NumBoundaryGaussPoints; i++ {
		stateVariable[i] = math.Max(stateVariable[i], frt.forcing(time, forced[i]))
	}
}

func (frt *ForcedRuptureTime) forcing(time, forced float64) float64 {
	if frt.T0 == 0 {
		if time >= forced {
			return 1
		}
		return 0
	}
	return math.Min(math.Max((time-forced)/frt.T0, 0), 1)
}
