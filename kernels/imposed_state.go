package kernels

import (
	"github.com/notargets/DGRupture/fault"
)

// PostcomputeImposedStateFromNewStress integrates the state imposed on both
// sides of the face over the sub-intervals. With theta the traction after
// friction, each side's tractions become theta and its velocities follow
// from the outgoing characteristic:
//
//	v-* = v- + Z-^-1 (theta - t-)
//	v+* = v+ - Z+^-1 (theta - t+)
//
// The imposed buffers are overwritten.
func PostcomputeImposedStateFromNewStress(fs *fault.FaultStresses, tr *fault.TractionResults,
	im *fault.ImpedanceMatrices, l fault.Layout, timeWeights []float64,
	qPlus, qMinus, imposedPlus, imposedMinus []float64) {
	var (
		np    = l.NumPaddedPoints
		qs    = l.QSize()
		tIdx  = l.Quantities.TractionIndices
		vIdx  = l.Quantities.VelocityIndices
		nt    = len(tIdx)
		invZ  = im.InvImpedance.RawMatrix()
		invZn = im.InvImpedanceNeig.RawMatrix()
		theta [4]float64
	)
	for i := range imposedPlus[:qs] {
		imposedPlus[i] = 0
		imposedMinus[i] = 0
	}

	for o := 0; o < l.ConvergenceOrder; o++ {
		w := timeWeights[o]
		qp := qPlus[o*qs : (o+1)*qs]
		qm := qMinus[o*qs : (o+1)*qs]
		for i := 0; i < np; i++ {
			theta[0] = fs.NormalStress[o][i]
			theta[1] = tr.Traction1[o][i]
			theta[2] = tr.Traction2[o][i]
			if nt == 4 {
				theta[3] = fs.FluidPressure[o][i]
			}
			for k := 0; k < nt; k++ {
				imposedMinus[tIdx[k]*np+i] += w * theta[k]
				imposedPlus[tIdx[k]*np+i] += w * theta[k]

				vm, vp := qm[vIdx[k]*np+i], qp[vIdx[k]*np+i]
				for j := 0; j < nt; j++ {
					vm += invZn.Data[k*invZn.Stride+j] * (theta[j] - qm[tIdx[j]*np+i])
					vp -= invZ.Data[k*invZ.Stride+j] * (theta[j] - qp[tIdx[j]*np+i])
				}
				imposedMinus[vIdx[k]*np+i] += w * vm
				imposedPlus[vIdx[k]*np+i] += w * vp
			}
		}
	}
}
