package fault

import (
	"fmt"
	"math"

	"github.com/notargets/DGRupture/element/library/gonudg"
)

// StepData carries the per-step exchange with the volume solver. The
// interpolated DOFs are laid out [face][order][quantity][point] and the
// imposed states [face][quantity][point].
type StepData struct {
	Layout             Layout
	NumFaces           int
	QInterpolatedPlus  []float64
	QInterpolatedMinus []float64
	ImposedStatePlus   []float64
	ImposedStateMinus  []float64
}

func NewStepData(l Layout, numFaces int) *StepData {
	nq := numFaces * l.ConvergenceOrder * l.QSize()
	ni := numFaces * l.QSize()
	return &StepData{
		Layout:             l,
		NumFaces:           numFaces,
		QInterpolatedPlus:  make([]float64, nq),
		QInterpolatedMinus: make([]float64, nq),
		ImposedStatePlus:   make([]float64, ni),
		ImposedStateMinus:  make([]float64, ni),
	}
}

// QPlus returns all sub-intervals of the plus side DOFs of a face
func (sd *StepData) QPlus(face int) []float64 { return sd.qView(sd.QInterpolatedPlus, face) }

func (sd *StepData) QMinus(face int) []float64 { return sd.qView(sd.QInterpolatedMinus, face) }

func (sd *StepData) ImposedPlus(face int) []float64 {
	return sd.imposedView(sd.ImposedStatePlus, face)
}

func (sd *StepData) ImposedMinus(face int) []float64 {
	return sd.imposedView(sd.ImposedStateMinus, face)
}

// Set writes a quantity value at a point of one sub-interval
func (sd *StepData) Set(q []float64, o, quantity, point int, value float64) {
	q[o*sd.Layout.QSize()+quantity*sd.Layout.NumPaddedPoints+point] = value
}

func (sd *StepData) qView(field []float64, face int) []float64 {
	n := sd.Layout.ConvergenceOrder * sd.Layout.QSize()
	return field[face*n : (face+1)*n : (face+1)*n]
}

func (sd *StepData) imposedView(field []float64, face int) []float64 {
	n := sd.Layout.QSize()
	return field[face*n : (face+1)*n : (face+1)*n]
}

// TimeQuadrature returns the Gauss-Legendre time points in [0,dt], their
// weights and the increments between consecutive points. The remainder
// dt-points[n-1] is folded into the last increment so that the increments
// sum to dt.
func TimeQuadrature(order int, dt float64) (points, weights, deltaT []float64, err error) {
	if order < 1 {
		return nil, nil, nil, fmt.Errorf("time quadrature order must be positive, got %d", order)
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, nil, nil, fmt.Errorf("time step must be positive and finite, got %g", dt)
	}
	x, w := gonudg.JacobiGQ(0, 0, order-1)
	points = make([]float64, order)
	weights = make([]float64, order)
	deltaT = make([]float64, order)
	for i := range x {
		points[i] = 0.5 * dt * (x[i] + 1)
		weights[i] = 0.5 * dt * w[i]
	}
	deltaT[0] = points[0]
	for i := 1; i < order; i++ {
		deltaT[i] = points[i] - points[i-1]
	}
	deltaT[order-1] += dt - points[order-1]
	return points, weights, deltaT, nil
}
