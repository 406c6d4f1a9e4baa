package friction

import (
	"math"
	"testing"

	"github.com/notargets/DGRupture/config"
	"github.com/notargets/DGRupture/element"
	"github.com/notargets/DGRupture/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testMuS    = 0.6
	testMuD    = 0.1
	testDC     = 0.4
	testSigma0 = -100.0
	testTau0   = 55.0
)

// newTestLayer builds an elastic layer whose faces all start at rest under
// sigma0 and tau0, with strength muS*|sigma0| = 60
func newTestLayer(t testing.TB, order, numFaces int) (*element.FaultTriangle, *fault.Layer) {
	t.Helper()
	face, err := element.NewFaultTriangle(order)
	require.NoError(t, err)
	layout, err := fault.NewLayout(face, fault.Elastic)
	require.NoError(t, err)
	ly, err := fault.NewLayer(layout, numFaces)
	require.NoError(t, err)
	for f := 0; f < numFaces; f++ {
		ly.SetMaterial(f,
			fault.Material{Rho: 2.67, Cp: 6, Cs: 3.464},
			fault.Material{Rho: 2.2, Cp: 5, Cs: 2.9})
		ly.FillParameter(ly.MuS, f, testMuS)
		ly.FillParameter(ly.MuD, f, testMuD)
		ly.FillParameter(ly.Mu, f, testMuS)
		ly.FillParameter(ly.DC, f, testDC)
		sigma, tau := ly.InitialStress(f, fault.StressXX), ly.InitialStress(f, fault.StressXY)
		for i := 0; i < layout.NumBoundaryGaussPoints; i++ {
			sigma[i], tau[i] = testSigma0, testTau0
		}
	}
	return face, ly
}

func newTestLaw(t testing.TB, face element.ReferenceElement, ly *fault.Layer, spec Specialization,
	fullUpdateTime, dt float64) *LinearSlipWeakeningLaw {
	t.Helper()
	law, err := NewLinearSlipWeakeningLaw(face, ly.Layout, spec)
	require.NoError(t, err)
	require.NoError(t, law.Attach(ly))
	_, _, deltaT, err := fault.TimeQuadrature(ly.Layout.ConvergenceOrder, dt)
	require.NoError(t, err)
	require.NoError(t, law.CopyToLocal(fullUpdateTime, deltaT))
	return law
}

func TestCalcSlipRateAndTractionClipsToStrength(t *testing.T) {
	face, ly := newTestLayer(t, 3, 1)
	law := newTestLaw(t, face, ly, nil, 0, 0.01)
	n, np := ly.Layout.NumBoundaryGaussPoints, ly.Layout.NumPaddedPoints

	fs := fault.NewFaultStresses(ly.Layout)
	tr := fault.NewTractionResults(ly.Layout)
	strength := make([]float64, np)
	for i := 0; i < n; i++ {
		strength[i] = 5
	}
	tau1, tau2 := ly.InitialStress(0, fault.StressXY), ly.InitialStress(0, fault.StressXZ)
	for i := 0; i < n; i++ {
		tau1[i], tau2[i] = 8, 0
	}

	law.CalcSlipRateAndTraction(fs, tr, strength, 0, 0)

	ie := ly.Impedances[0]
	slipRate := ly.Face(ly.SlipRateMagnitude, 0)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 3*ie.InvEtaS, slipRate[i], 1e-12)
		total1, total2 := tau1[i]+tr.Traction1[0][i], tau2[i]+tr.Traction2[0][i]
		assert.InDelta(t, 5, math.Hypot(total1, total2), 1e-12)
		assert.InDelta(t, 0, total2, 1e-12)
		assert.Positive(t, total1)
		assert.Equal(t, tr.Traction1[0][i], ly.Face(ly.Traction1, 0)[i])
	}
	for i := n; i < np; i++ {
		assert.Zero(t, slipRate[i], "padded point %d", i)
	}
}

func TestBelowStrengthNoSlip(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	law := newTestLaw(t, face, ly, nil, 0, 0.01)
	n := ly.Layout.NumBoundaryGaussPoints

	fs := fault.NewFaultStresses(ly.Layout)
	tr := fault.NewTractionResults(ly.Layout)
	for o := 0; o < ly.Layout.ConvergenceOrder; o++ {
		for i := 0; i < n; i++ {
			fs.Traction1[o][i] = 2
			fs.Traction2[o][i] = -1
		}
	}
	sv := make([]float64, ly.Layout.NumPaddedPoints)
	strength := make([]float64, ly.Layout.NumPaddedPoints)
	for o := 0; o < ly.Layout.ConvergenceOrder; o++ {
		law.UpdateFrictionAndSlip(fs, tr, sv, strength, 0, o)
		for i := 0; i < n; i++ {
			assert.InDelta(t, -testMuS*testSigma0, strength[i], 1e-12)
			assert.Zero(t, ly.Face(ly.SlipRateMagnitude, 0)[i])
			assert.Equal(t, fs.Traction1[o][i], tr.Traction1[o][i])
			assert.Equal(t, fs.Traction2[o][i], tr.Traction2[o][i])
			assert.Zero(t, sv[i])
			assert.Equal(t, testMuS, ly.Face(ly.Mu, 0)[i])
		}
	}
	assert.Equal(t, make([]float64, len(ly.Slip1)), ly.Slip1)
}

func TestCalcStrengthClampsTension(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	law := newTestLaw(t, face, ly, nil, 0, 0.01)
	ly.FillParameter(ly.Cohesion, 0, -2)

	fs := fault.NewFaultStresses(ly.Layout)
	for i := 0; i < ly.Layout.NumBoundaryGaussPoints; i++ {
		fs.NormalStress[0][i] = 150 // net tension
	}
	strength := make([]float64, ly.Layout.NumPaddedPoints)
	law.CalcStrength(fs, strength, 0, 0)
	for i := 0; i < ly.Layout.NumBoundaryGaussPoints; i++ {
		assert.Equal(t, 2.0, strength[i])
	}
}

func TestFrictionFunctionBounds(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	law := newTestLaw(t, face, ly, nil, 0, 0.01)
	n := ly.Layout.NumBoundaryGaussPoints

	sv := make([]float64, ly.Layout.NumPaddedPoints)
	for i := 0; i < n; i++ {
		sv[i] = float64(i) / float64(n-1)
	}
	law.FrictionFunction(sv, 0)
	mu := ly.Face(ly.Mu, 0)
	assert.InDelta(t, testMuS, mu[0], 1e-15)
	assert.InDelta(t, testMuD, mu[n-1], 1e-15)
	for i := 0; i < n; i++ {
		assert.GreaterOrEqual(t, mu[i], testMuD-1e-15)
		assert.LessOrEqual(t, mu[i], testMuS+1e-15)
	}
}

func TestCalcStateVariableSaturates(t *testing.T) {
	face, ly := newTestLayer(t, 3, 1)
	law := newTestLaw(t, face, ly, nil, 0, 1)
	n := ly.Layout.NumBoundaryGaussPoints

	ly.FillParameter(ly.SlipRateMagnitude, 0, 0.5)
	sv := make([]float64, ly.Layout.NumPaddedPoints)
	prev := 0.0
	for o := 0; o < ly.Layout.ConvergenceOrder; o++ {
		law.CalcStateVariable(sv, 0, o)
		acc := ly.Face(ly.AccumulatedSlipMagnitude, 0)
		for i := 0; i < n; i++ {
			assert.GreaterOrEqual(t, sv[i], 0.0)
			assert.LessOrEqual(t, sv[i], 1.0)
		}
		assert.GreaterOrEqual(t, acc[0], prev)
		prev = acc[0]
	}
	// 0.5 over a unit step is past dC
	assert.InDelta(t, 0.5, ly.Face(ly.AccumulatedSlipMagnitude, 0)[0], 1e-12)
	assert.Equal(t, 1.0, sv[0])
}

func TestForcedRuptureTime(t *testing.T) {
	tests := []struct {
		name           string
		t0             float64
		fullUpdateTime float64
	}{
		{"instantaneous", 0, 1},
		{"ramp", 0.25, 0},
		{"ramp complete", 0.25, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const dt = 0.1
			face, ly := newTestLayer(t, 2, 1)
			forced := ly.Face(ly.ForcedRuptureTime, 0)
			n := ly.Layout.NumBoundaryGaussPoints
			for i := 1; i < n; i++ {
				forced[i] = 1e9
			}
			law := newTestLaw(t, face, ly, &ForcedRuptureTime{T0: tc.t0}, tc.fullUpdateTime, dt)
			_, _, deltaT, err := fault.TimeQuadrature(2, dt)
			require.NoError(t, err)

			sv := make([]float64, ly.Layout.NumPaddedPoints)
			want := 0.0
			for o := range deltaT {
				law.CalcStateVariable(sv, 0, o)
				want = 1.0
				if tc.t0 > 0 {
					want = math.Min((tc.fullUpdateTime+deltaT[o])/tc.t0, 1)
				}
				assert.InDelta(t, want, sv[0], 1e-12)
				for i := 1; i < n; i++ {
					assert.Zero(t, sv[i])
				}
			}
			// no slip was needed to weaken point 0
			assert.Zero(t, ly.Face(ly.AccumulatedSlipMagnitude, 0)[0])
			law.FrictionFunction(sv, 0)
			assert.InDelta(t, testMuS-(testMuS-testMuD)*want, ly.Face(ly.Mu, 0)[0], 1e-12)
		})
	}
}

func TestForcedRuptureTimeHookSeesIncrement(t *testing.T) {
	const (
		order          = 3
		dt             = 0.1
		fullUpdateTime = 2.0
	)
	face, ly := newTestLayer(t, order, 1)
	_, _, deltaT, err := fault.TimeQuadrature(order, dt)
	require.NoError(t, err)
	// deltaT = {0.0113, 0.0387, 0.05}: the threshold lies past deltaT[1]
	// but short of deltaT[0]+deltaT[1]
	threshold := fullUpdateTime + deltaT[0] + deltaT[1] - 1e-6
	require.Greater(t, threshold, fullUpdateTime+deltaT[1])
	require.GreaterOrEqual(t, fullUpdateTime+deltaT[2], threshold)
	ly.FillParameter(ly.ForcedRuptureTime, 0, threshold)
	law := newTestLaw(t, face, ly, &ForcedRuptureTime{}, fullUpdateTime, dt)

	sv := make([]float64, ly.Layout.NumPaddedPoints)
	for o, want := range []float64{0, 0, 1} {
		law.CalcStateVariable(sv, 0, o)
		for i := 0; i < ly.Layout.NumBoundaryGaussPoints; i++ {
			assert.Equal(t, want, sv[i], "sub-interval %d point %d", o, i)
		}
	}
}

func TestForcedRuptureTimeBeforeThreshold(t *testing.T) {
	frt := &ForcedRuptureTime{T0: 0.5}
	assert.Zero(t, frt.forcing(1, 2))
	assert.InDelta(t, 0.5, frt.forcing(2.25, 2), 1e-15)
	assert.Equal(t, 1.0, frt.forcing(10, 2))
	assert.Error(t, (&ForcedRuptureTime{T0: -1}).Setup(nil))
}

func TestBiMaterialKeepsStrength(t *testing.T) {
	const dt = 0.01
	face, plain := newTestLayer(t, 2, 1)
	_, bimat := newTestLayer(t, 2, 1)
	bm := &BiMaterialFault{PrakashLength: 0.5, VStar: 0.2}
	lawPlain := newTestLaw(t, face, plain, nil, 0, dt)
	lawBm := newTestLaw(t, face, bimat, bm, 0, dt)
	n := plain.Layout.NumBoundaryGaussPoints

	reg := bimat.Face(bimat.RegularisedStrength, 0)
	for i := 0; i < n; i++ {
		assert.InDelta(t, -testMuS*testSigma0, reg[i], 1e-12)
	}

	fs := fault.NewFaultStresses(plain.Layout)
	for i := 0; i < n; i++ {
		fs.NormalStress[0][i] = -10
	}
	bimat.FillParameter(bimat.SlipRateMagnitude, 0, 1)
	plain.FillParameter(plain.SlipRateMagnitude, 0, 1)

	s1 := make([]float64, plain.Layout.NumPaddedPoints)
	s2 := make([]float64, plain.Layout.NumPaddedPoints)
	lawPlain.CalcStrength(fs, s1, 0, 0)
	lawBm.CalcStrength(fs, s2, 0, 0)
	assert.Equal(t, s1, s2)

	_, _, deltaT, err := fault.TimeQuadrature(2, dt)
	require.NoError(t, err)
	expterm := math.Exp(-(1 + bm.VStar) * deltaT[0] / bm.PrakashLength)
	want := -testMuS*testSigma0*expterm - testMuS*110*(expterm-1)
	for i := 0; i < n; i++ {
		assert.InDelta(t, want, reg[i], 1e-9)
	}
	assert.Zero(t, reg[n])

	assert.Error(t, (&BiMaterialFault{}).Setup(bimat))
}

func TestInstantaneousHealing(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	law := newTestLaw(t, face, ly, nil, 0, 0.01)
	ly.FillParameter(ly.Mu, 0, testMuD)
	ly.FillParameter(ly.AccumulatedSlipMagnitude, 0, 1)
	ly.Face(ly.SlipRateMagnitude, 0)[0] = 1

	law.InstantaneousHealing(0)
	mu, acc := ly.Face(ly.Mu, 0), ly.Face(ly.AccumulatedSlipMagnitude, 0)
	assert.Equal(t, testMuD, mu[0])
	assert.Equal(t, 1.0, acc[0])
	for i := 1; i < ly.Layout.NumBoundaryGaussPoints; i++ {
		assert.Equal(t, testMuS, mu[i])
		assert.Zero(t, acc[i])
	}
}

func TestSaveDynamicStressOutput(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	law := newTestLaw(t, face, ly, nil, 3, 0.01)
	ly.Face(ly.AccumulatedSlipMagnitude, 0)[0] = testDC
	ly.Face(ly.AccumulatedSlipMagnitude, 0)[1] = testDC / 2

	law.SaveDynamicStressOutput(0)
	pending, ds := ly.Pending(ly.DynStressTimePending, 0), ly.Face(ly.DynStressTime, 0)
	assert.False(t, pending[0])
	assert.Equal(t, 3.0, ds[0])
	assert.True(t, pending[1])

	require.NoError(t, law.CopyToLocal(4, []float64{0.005, 0.005}))
	law.SaveDynamicStressOutput(0)
	assert.Equal(t, 3.0, ds[0])
}

func TestPeakSlipRate(t *testing.T) {
	peak := make([]float64, 1)
	for _, v := range []float64{0.2, 0.5, 0.1} {
		SavePeakSlipRateOutput(peak, []float64{v}, 1)
	}
	assert.Equal(t, 0.5, peak[0])
}

func TestAverageSlip(t *testing.T) {
	averaged := 2.5
	SaveAverageSlipOutput([]float64{0.5, 1.5, 1, 1, 99, 99, 99, 99}, 4, &averaged)
	assert.InDelta(t, 3.5, averaged, 1e-15)
}

func TestRuptureFrontWriteOnce(t *testing.T) {
	pending := []bool{true, true}
	rt := make([]float64, 2)
	SaveRuptureFrontOutput(pending, rt, []float64{0.01, RuptureFrontThreshold}, 2, 1)
	assert.Equal(t, []bool{false, true}, pending)
	assert.Equal(t, []float64{1, 0}, rt)

	SaveRuptureFrontOutput(pending, rt, []float64{0.5, 0.5}, 2, 2)
	assert.Equal(t, []bool{false, false}, pending)
	assert.Equal(t, []float64{1, 2}, rt)
}

func TestNewSpecialization(t *testing.T) {
	for _, name := range Specializations() {
		p := config.Default()
		p.Specialization = name
		p.PrakashLength = 1
		spec, err := NewSpecialization(&p)
		require.NoError(t, err, name)
		assert.NotNil(t, spec)
	}
	assert.Equal(t, []string{config.BiMaterial, config.ForcedRuptureTime, config.NoSpecialization},
		Specializations())

	p := config.Default()
	p.Specialization = "rate-and-state"
	_, err := NewSpecialization(&p)
	assert.ErrorContains(t, err, "rate-and-state")
}

func TestLawRejectsMismatch(t *testing.T) {
	face, ly := newTestLayer(t, 2, 1)
	other, err := element.NewFaultTriangle(3)
	require.NoError(t, err)
	_, err = NewLinearSlipWeakeningLaw(other, ly.Layout, nil)
	assert.Error(t, err)

	law, err := NewLinearSlipWeakeningLaw(face, ly.Layout, nil)
	require.NoError(t, err)
	assert.Error(t, law.CopyToLocal(0, []float64{0.1}))
}
