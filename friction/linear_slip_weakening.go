// Package friction implements the linear slip weakening friction law on
// dynamic rupture faces, its specializations and the per-step solver.
package friction

import (
	"fmt"
	"math"

	"github.com/notargets/DGRupture/element"
	"github.com/notargets/DGRupture/fault"
)

const (
	// U0 is the slip rate below which instantaneous healing resets a point
	U0 = 10e-14
	// RuptureFrontThreshold is the slip rate marking rupture arrival
	RuptureFrontThreshold = 0.001
)

// LinearSlipWeakeningLaw evaluates the four stages of the law for one face
// and sub-interval. After CopyToLocal the law is read-only and may be used
// for different faces concurrently.
type LinearSlipWeakeningLaw struct {
	layout         fault.Layout
	resample       *element.ResampleOperator
	specialization Specialization

	layer          *fault.Layer
	fullUpdateTime float64
	deltaT         []float64
	hookTimes      []float64
}

func NewLinearSlipWeakeningLaw(face element.ReferenceElement, layout fault.Layout,
	spec Specialization) (*LinearSlipWeakeningLaw, error) {
	props := face.GetProperties()
	if props.NumPaddedPoints != layout.NumPaddedPoints ||
		props.NumBoundaryGaussPoints != layout.NumBoundaryGaussPoints {
		return nil, fmt.Errorf("face %s does not match layout with %d points",
			props.Name, layout.NumBoundaryGaussPoints)
	}
	if spec == nil {
		spec = new(NoSpecialization)
	}
	return &LinearSlipWeakeningLaw{
		layout:         layout,
		resample:       face.GetReferenceOperators().Resample,
		specialization: spec,
		deltaT:         make([]float64, layout.ConvergenceOrder),
		hookTimes:      make([]float64, layout.ConvergenceOrder),
	}, nil
}

// Attach binds the law to a layer and sets up the specialization
func (lsw *LinearSlipWeakeningLaw) Attach(layer *fault.Layer) error {
	if layer.Layout.NumPaddedPoints != lsw.layout.NumPaddedPoints ||
		layer.Layout.ConvergenceOrder != lsw.layout.ConvergenceOrder {
		return fmt.Errorf("layer layout does not match the law")
	}
	if err := lsw.specialization.Setup(layer); err != nil {
		return fmt.Errorf("specialization setup: %w", err)
	}
	lsw.layer = layer
	return nil
}

// CopyToLocal fixes the step time and sub-interval increments. The
// state-variable hook of sub-interval o sees fullUpdateTime + deltaT[o].
func (lsw *LinearSlipWeakeningLaw) CopyToLocal(fullUpdateTime float64, deltaT []float64) error {
	if len(deltaT) != lsw.layout.ConvergenceOrder {
		return fmt.Errorf("got %d sub-interval increments, want %d",
			len(deltaT), lsw.layout.ConvergenceOrder)
	}
	lsw.fullUpdateTime = fullUpdateTime
	for o, dt := range deltaT {
		lsw.deltaT[o] = dt
		lsw.hookTimes[o] = fullUpdateTime + dt
	}
	return nil
}

// UpdateFrictionAndSlip runs the four stages for sub-interval timeIndex.
// stateVariable and strength are scratch buffers of NumPaddedPoints.
func (lsw *LinearSlipWeakeningLaw) UpdateFrictionAndSlip(fs *fault.FaultStresses, tr *fault.TractionResults,
	stateVariable, strength []float64, face, timeIndex int) {
	lsw.CalcStrength(fs, strength, face, timeIndex)
	lsw.CalcSlipRateAndTraction(fs, tr, strength, face, timeIndex)
	lsw.CalcStateVariable(stateVariable, face, timeIndex)
	lsw.FrictionFunction(stateVariable, face)
}

// CalcStrength computes the Coulomb strength, clamping tensile normal
// stress to zero
func (lsw *LinearSlipWeakeningLaw) CalcStrength(fs *fault.FaultStresses, strength []float64, face, timeIndex int) {
	var (
		ly       = lsw.layer
		sigma0   = ly.InitialStress(face, fault.StressXX)
		cohesion = ly.Face(ly.Cohesion, face)
		mu       = ly.Face(ly.Mu, face)
		slipRate = ly.Face(ly.SlipRateMagnitude, face)
		sigma    = fs.NormalStress[timeIndex]
		dt       = lsw.deltaT[timeIndex]
	)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		totalNormalStress := sigma0[i] + sigma[i]
		strength[i] = -cohesion[i] - mu[i]*math.Min(totalNormalStress, 0)
		strength[i] = lsw.specialization.AdjustStrength(strength[i], slipRate[i],
			totalNormalStress, mu[i], dt, face, i)
	}
}

// CalcSlipRateAndTraction limits the shear traction by the strength, the
// excess drives slip along the traction direction
func (lsw *LinearSlipWeakeningLaw) CalcSlipRateAndTraction(fs *fault.FaultStresses, tr *fault.TractionResults,
	strength []float64, face, timeIndex int) {
	var (
		ly        = lsw.layer
		ie        = ly.Impedances[face]
		tau1Init  = ly.InitialStress(face, fault.StressXY)
		tau2Init  = ly.InitialStress(face, fault.StressXZ)
		slipRate  = ly.Face(ly.SlipRateMagnitude, face)
		slipRate1 = ly.Face(ly.SlipRate1, face)
		slipRate2 = ly.Face(ly.SlipRate2, face)
		slip1     = ly.Face(ly.Slip1, face)
		slip2     = ly.Face(ly.Slip2, face)
		traction1 = ly.Face(ly.Traction1, face)
		traction2 = ly.Face(ly.Traction2, face)
		t1        = fs.Traction1[timeIndex]
		t2        = fs.Traction2[timeIndex]
		dt        = lsw.deltaT[timeIndex]
	)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		totalTraction1 := tau1Init[i] + t1[i]
		totalTraction2 := tau2Init[i] + t2[i]
		absoluteTraction := math.Hypot(totalTraction1, totalTraction2)

		slipRate[i] = math.Max(0, (absoluteTraction-strength[i])*ie.InvEtaS)

		divisor := strength[i] + ie.EtaS*slipRate[i]
		checkDivisor(divisor, face, i)
		slipRate1[i] = slipRate[i] * totalTraction1 / divisor
		slipRate2[i] = slipRate[i] * totalTraction2 / divisor

		tr.Traction1[timeIndex][i] = t1[i] - ie.EtaS*slipRate1[i]
		tr.Traction2[timeIndex][i] = t2[i] - ie.EtaS*slipRate2[i]
		traction1[i] = tr.Traction1[timeIndex][i]
		traction2[i] = tr.Traction2[timeIndex][i]

		slip1[i] += slipRate1[i] * dt
		slip2[i] += slipRate2[i] * dt
	}
}

// CalcStateVariable integrates the resampled slip rate into the
// accumulated slip and normalises it by dC. stateVariable holds the
// resampled slip rate until it is overwritten.
func (lsw *LinearSlipWeakeningLaw) CalcStateVariable(stateVariable []float64, face, timeIndex int) {
	var (
		ly       = lsw.layer
		slipRate = ly.Face(ly.SlipRateMagnitude, face)
		accSlip  = ly.Face(ly.AccumulatedSlipMagnitude, face)
		dC       = ly.Face(ly.DC, face)
		dt       = lsw.deltaT[timeIndex]
	)
	lsw.resample.Apply(slipRate, stateVariable)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		accSlip[i] += stateVariable[i] * dt
		stateVariable[i] = math.Min(math.Abs(accSlip[i])/dC[i], 1)
	}
	lsw.specialization.AdjustStateVariable(stateVariable, lsw.hookTimes[timeIndex], face)
}

// FrictionFunction weakens mu linearly from muS to muD
func (lsw *LinearSlipWeakeningLaw) FrictionFunction(stateVariable []float64, face int) {
	var (
		ly  = lsw.layer
		mu  = ly.Face(ly.Mu, face)
		muS = ly.Face(ly.MuS, face)
		muD = ly.Face(ly.MuD, face)
	)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		mu[i] = muS[i] - (muS[i]-muD[i])*stateVariable[i]
	}
}

// InstantaneousHealing resets mu and the accumulated slip where the fault
// has locked again
func (lsw *LinearSlipWeakeningLaw) InstantaneousHealing(face int) {
	var (
		ly       = lsw.layer
		slipRate = ly.Face(ly.SlipRateMagnitude, face)
		mu       = ly.Face(ly.Mu, face)
		muS      = ly.Face(ly.MuS, face)
		accSlip  = ly.Face(ly.AccumulatedSlipMagnitude, face)
	)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		if slipRate[i] < U0 {
			mu[i] = muS[i]
			accSlip[i] = 0
		}
	}
}

// SaveDynamicStressOutput records when the accumulated slip first reaches dC
func (lsw *LinearSlipWeakeningLaw) SaveDynamicStressOutput(face int) {
	var (
		ly      = lsw.layer
		pending = ly.Pending(ly.DynStressTimePending, face)
		dsTime  = ly.Face(ly.DynStressTime, face)
		accSlip = ly.Face(ly.AccumulatedSlipMagnitude, face)
		dC      = ly.Face(ly.DC, face)
	)
	for i := 0; i < lsw.layout.NumBoundaryGaussPoints; i++ {
		if pending[i] && math.Abs(accSlip[i]) >= dC[i] {
			dsTime[i] = lsw.fullUpdateTime
			pending[i] = false
		}
	}
}
