package kernels

import (
	"math/rand"
	"testing"

	"github.com/notargets/DGRupture/element"
	"github.com/notargets/DGRupture/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type testFace struct {
	l           fault.Layout
	im          *fault.ImpedanceMatrices
	qPlus       []float64
	qMinus      []float64
	timeWeights []float64
}

func newTestFace(t *testing.T, order int, q fault.QuantityLayout, seed int64, continuous bool) *testFace {
	t.Helper()
	face, err := element.NewFaultTriangle(order)
	require.NoError(t, err)
	l, err := fault.NewLayout(face, q)
	require.NoError(t, err)

	var im *fault.ImpedanceMatrices
	if q.IsPoroelastic() {
		zp := mat.NewDense(4, 4, []float64{
			12, 0, 0, 1,
			0, 7, 0, 0,
			0, 0, 7, 0,
			1, 0, 0, 3,
		})
		zm := mat.NewDense(4, 4, []float64{
			10, 0, 0, 0.5,
			0, 6, 0, 0,
			0, 0, 6, 0,
			0.5, 0, 0, 2,
		})
		im, err = fault.NewImpedanceMatrices(zp, zm)
		require.NoError(t, err)
	} else {
		im = fault.NewImpedancesAndEta(
			fault.Material{Rho: 2.67, Cp: 6, Cs: 3.464},
			fault.Material{Rho: 2.2, Cp: 5, Cs: 2.9},
		).Matrices()
	}

	rng := rand.New(rand.NewSource(seed))
	n := order * l.QSize()
	tf := &testFace{
		l:      l,
		im:     im,
		qPlus:  make([]float64, n),
		qMinus: make([]float64, n),
	}
	_, tf.timeWeights, _, err = fault.TimeQuadrature(order, 0.1)
	require.NoError(t, err)
	for o := 0; o < order; o++ {
		for qi := 0; qi < q.NumQuantities; qi++ {
			for i := 0; i < l.NumBoundaryGaussPoints; i++ {
				idx := o*l.QSize() + qi*l.NumPaddedPoints + i
				tf.qPlus[idx] = rng.Float64()*2 - 1
				if continuous {
					tf.qMinus[idx] = tf.qPlus[idx]
				} else {
					tf.qMinus[idx] = rng.Float64()*2 - 1
				}
			}
		}
	}
	return tf
}

func (tf *testFace) at(q []float64, o, quantity, point int) float64 {
	return q[o*tf.l.QSize()+quantity*tf.l.NumPaddedPoints+point]
}

func TestPrecomputeStressIsDeterministic(t *testing.T) {
	tf := newTestFace(t, 4, fault.Elastic, 1, false)
	a := fault.NewFaultStresses(tf.l)
	b := fault.NewFaultStresses(tf.l)
	PrecomputeStressFromQInterpolated(a, tf.im, tf.l, tf.qPlus, tf.qMinus)
	PrecomputeStressFromQInterpolated(b, tf.im, tf.l, tf.qPlus, tf.qMinus)
	assert.Equal(t, a, b)
}

func TestPrecomputeStressContinuousState(t *testing.T) {
	for _, q := range []fault.QuantityLayout{fault.Elastic, fault.Poroelastic} {
		t.Run(q.Name, func(t *testing.T) {
			tf := newTestFace(t, 3, q, 2, true)
			fs := fault.NewFaultStresses(tf.l)
			PrecomputeStressFromQInterpolated(fs, tf.im, tf.l, tf.qPlus, tf.qMinus)
			for o := 0; o < tf.l.ConvergenceOrder; o++ {
				for i := 0; i < tf.l.NumPaddedPoints; i++ {
					for k, qi := range q.TractionIndices {
						assert.InDelta(t, tf.at(tf.qPlus, o, qi, i), fs.Theta(k, o)[i], 1e-12)
					}
				}
			}
		})
	}
}

func TestPrecomputeStressElasticFormula(t *testing.T) {
	tf := newTestFace(t, 2, fault.Elastic, 3, false)
	ie := fault.NewImpedancesAndEta(
		fault.Material{Rho: 2.67, Cp: 6, Cs: 3.464},
		fault.Material{Rho: 2.2, Cp: 5, Cs: 2.9},
	)
	fs := fault.NewFaultStresses(tf.l)
	PrecomputeStressFromQInterpolated(fs, tf.im, tf.l, tf.qPlus, tf.qMinus)
	for o := 0; o < 2; o++ {
		for i := 0; i < tf.l.NumBoundaryGaussPoints; i++ {
			v := func(q []float64, k int) float64 { return tf.at(q, o, k, i) }
			normal := ie.EtaP * (v(tf.qPlus, 6) - v(tf.qMinus, 6) +
				v(tf.qPlus, 0)*ie.InvZp + v(tf.qMinus, 0)*ie.InvZpNeig)
			shear1 := ie.EtaS * (v(tf.qPlus, 7) - v(tf.qMinus, 7) +
				v(tf.qPlus, 3)*ie.InvZs + v(tf.qMinus, 3)*ie.InvZsNeig)
			shear2 := ie.EtaS * (v(tf.qPlus, 8) - v(tf.qMinus, 8) +
				v(tf.qPlus, 5)*ie.InvZs + v(tf.qMinus, 5)*ie.InvZsNeig)
			assert.InDelta(t, normal, fs.NormalStress[o][i], 1e-12)
			assert.InDelta(t, shear1, fs.Traction1[o][i], 1e-12)
			assert.InDelta(t, shear2, fs.Traction2[o][i], 1e-12)
		}
	}
	assert.Nil(t, fs.FluidPressure)
}

func TestImposedStateWithoutSlip(t *testing.T) {
	for _, q := range []fault.QuantityLayout{fault.Elastic, fault.Poroelastic} {
		t.Run(q.Name, func(t *testing.T) {
			tf := newTestFace(t, 3, q, 4, false)
			l := tf.l
			fs := fault.NewFaultStresses(l)
			PrecomputeStressFromQInterpolated(fs, tf.im, l, tf.qPlus, tf.qMinus)

			// No friction: traction results are theta itself
			tr := fault.NewTractionResults(l)
			for o := range tr.Traction1 {
				copy(tr.Traction1[o], fs.Traction1[o])
				copy(tr.Traction2[o], fs.Traction2[o])
			}
			plus := make([]float64, l.QSize())
			minus := make([]float64, l.QSize())
			for i := range plus {
				plus[i], minus[i] = 99, 99
			}
			PostcomputeImposedStateFromNewStress(fs, tr, tf.im, l, tf.timeWeights,
				tf.qPlus, tf.qMinus, plus, minus)

			for i := 0; i < l.NumPaddedPoints; i++ {
				for k := range q.TractionIndices {
					vi := q.VelocityIndices[k]*l.NumPaddedPoints + i
					ti := q.TractionIndices[k]*l.NumPaddedPoints + i
					assert.InDelta(t, plus[vi], minus[vi], 1e-12, "velocity jump at point %d", i)
					assert.Equal(t, plus[ti], minus[ti])
				}
			}
			// untouched quantities are cleared
			assert.Equal(t, 0.0, plus[1*l.NumPaddedPoints])
			assert.Equal(t, 0.0, minus[2*l.NumPaddedPoints])
		})
	}
}

func TestImposedStateContinuousIsWeightedInput(t *testing.T) {
	tf := newTestFace(t, 2, fault.Elastic, 5, true)
	l := tf.l
	fs := fault.NewFaultStresses(l)
	PrecomputeStressFromQInterpolated(fs, tf.im, l, tf.qPlus, tf.qMinus)
	tr := fault.NewTractionResults(l)
	for o := range tr.Traction1 {
		copy(tr.Traction1[o], fs.Traction1[o])
		copy(tr.Traction2[o], fs.Traction2[o])
	}
	plus := make([]float64, l.QSize())
	minus := make([]float64, l.QSize())
	PostcomputeImposedStateFromNewStress(fs, tr, tf.im, l, tf.timeWeights,
		tf.qPlus, tf.qMinus, plus, minus)

	for _, qi := range append(append([]int{}, fault.Elastic.TractionIndices...), fault.Elastic.VelocityIndices...) {
		for i := 0; i < l.NumBoundaryGaussPoints; i++ {
			expected := 0.0
			for o, w := range tf.timeWeights {
				expected += w * tf.at(tf.qPlus, o, qi, i)
			}
			assert.InDelta(t, expected, plus[qi*l.NumPaddedPoints+i], 1e-12)
			assert.InDelta(t, expected, minus[qi*l.NumPaddedPoints+i], 1e-12)
		}
	}
}

func TestImposedStateSlipOpensVelocityJump(t *testing.T) {
	tf := newTestFace(t, 1, fault.Elastic, 6, true)
	l := tf.l
	ie := fault.NewImpedancesAndEta(
		fault.Material{Rho: 2.67, Cp: 6, Cs: 3.464},
		fault.Material{Rho: 2.2, Cp: 5, Cs: 2.9},
	)
	fs := fault.NewFaultStresses(l)
	PrecomputeStressFromQInterpolated(fs, tf.im, l, tf.qPlus, tf.qMinus)

	// Reduce traction 1 by etaS * s: the sides must separate at rate s
	const s = 0.25
	tr := fault.NewTractionResults(l)
	for i := range tr.Traction1[0] {
		tr.Traction1[0][i] = fs.Traction1[0][i] - ie.EtaS*s
		tr.Traction2[0][i] = fs.Traction2[0][i]
	}
	plus := make([]float64, l.QSize())
	minus := make([]float64, l.QSize())
	PostcomputeImposedStateFromNewStress(fs, tr, tf.im, l, []float64{1}, tf.qPlus, tf.qMinus, plus, minus)
	for i := 0; i < l.NumBoundaryGaussPoints; i++ {
		jump := plus[7*l.NumPaddedPoints+i] - minus[7*l.NumPaddedPoints+i]
		assert.InDelta(t, s, jump, 1e-12)
	}
}
