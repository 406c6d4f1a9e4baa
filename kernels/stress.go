// Package kernels holds the per-face linear algebra that converts between
// the interpolated volume state and the fault stresses.
package kernels

import (
	"github.com/notargets/DGRupture/fault"
)

// PrecomputeStressFromQInterpolated computes theta, the traction that
// would act on the fault without slip, for every sub-interval and point:
//
//	theta = eta * (v+ - v- + Z+^-1 t+ + Z-^-1 t-)
//
// qPlus and qMinus hold all sub-intervals of one face, laid out
// [order][quantity][point].
func PrecomputeStressFromQInterpolated(fs *fault.FaultStresses, im *fault.ImpedanceMatrices,
	l fault.Layout, qPlus, qMinus []float64) {
	var (
		np     = l.NumPaddedPoints
		qs     = l.QSize()
		tIdx   = l.Quantities.TractionIndices
		vIdx   = l.Quantities.VelocityIndices
		nt     = len(tIdx)
		eta    = im.Eta.RawMatrix()
		invZ   = im.InvImpedance.RawMatrix()
		invZn  = im.InvImpedanceNeig.RawMatrix()
		rhs    [4]float64
		thetaK float64
	)
	for o := 0; o < l.ConvergenceOrder; o++ {
		qp := qPlus[o*qs : (o+1)*qs]
		qm := qMinus[o*qs : (o+1)*qs]
		for i := 0; i < np; i++ {
			for k := 0; k < nt; k++ {
				r := qp[vIdx[k]*np+i] - qm[vIdx[k]*np+i]
				for j := 0; j < nt; j++ {
					r += invZ.Data[k*invZ.Stride+j]*qp[tIdx[j]*np+i] +
						invZn.Data[k*invZn.Stride+j]*qm[tIdx[j]*np+i]
				}
				rhs[k] = r
			}
			for k := 0; k < nt; k++ {
				thetaK = 0
				for j := 0; j < nt; j++ {
					thetaK += eta.Data[k*eta.Stride+j] * rhs[j]
				}
				fs.Theta(k, o)[i] = thetaK
			}
		}
	}
}
