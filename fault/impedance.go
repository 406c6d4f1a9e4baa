package fault

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Material holds the elastic properties of one side of a fault
type Material struct {
	Rho float64 // density
	Cp  float64 // p-wave speed
	Cs  float64 // s-wave speed
}

func (m Material) Zp() float64 { return m.Rho * m.Cp }

func (m Material) Zs() float64 { return m.Rho * m.Cs }

// ImpedancesAndEta are the scalar impedances of the plus side and of its
// neighbor (minus side), with eta the harmonic combination of both. The
// Neig fields are the minus side, as in ImpedanceMatrices.
type ImpedancesAndEta struct {
	Zp, Zs, ZpNeig, ZsNeig             float64
	InvZp, InvZs, InvZpNeig, InvZsNeig float64
	EtaP, EtaS, InvEtaS                float64
}

func NewImpedancesAndEta(plus, minus Material) ImpedancesAndEta {
	return impedancesAndEta(plus.Zp(), plus.Zs(), minus.Zp(), minus.Zs())
}

func impedancesAndEta(zp, zs, zpNeig, zsNeig float64) ImpedancesAndEta {
	ie := ImpedancesAndEta{Zp: zp, Zs: zs, ZpNeig: zpNeig, ZsNeig: zsNeig}
	ie.InvZp, ie.InvZs = 1/ie.Zp, 1/ie.Zs
	ie.InvZpNeig, ie.InvZsNeig = 1/ie.ZpNeig, 1/ie.ZsNeig
	ie.EtaP = ie.Zp * ie.ZpNeig / (ie.Zp + ie.ZpNeig)
	ie.EtaS = ie.Zs * ie.ZsNeig / (ie.Zs + ie.ZsNeig)
	ie.InvEtaS = 1 / ie.EtaS
	return ie
}

// ImpedanceMatrices are the impedance operators of both sides and eta =
// (Z^-1 + Zneig^-1)^-1. Impedance belongs to the plus side and
// ImpedanceNeig to the minus side. Data that stores the minus side as the
// primary impedance (Zminus = impedance, Zplus = impedanceNeig) must be
// swapped before it is installed.
type ImpedanceMatrices struct {
	Impedance        *mat.Dense
	ImpedanceNeig    *mat.Dense
	InvImpedance     *mat.Dense
	InvImpedanceNeig *mat.Dense
	Eta              *mat.Dense
}

// NewImpedanceMatrices inverts both impedances and forms eta
func NewImpedanceMatrices(z, zNeig mat.Matrix) (*ImpedanceMatrices, error) {
	r, c := z.Dims()
	rn, cn := zNeig.Dims()
	if r != c || rn != cn || r != rn {
		return nil, fmt.Errorf("impedance dimensions %dx%d and %dx%d do not match", r, c, rn, cn)
	}
	im := &ImpedanceMatrices{
		Impedance:     mat.DenseCopyOf(z),
		ImpedanceNeig: mat.DenseCopyOf(zNeig),
	}
	im.InvImpedance = new(mat.Dense)
	if err := im.InvImpedance.Inverse(z); err != nil {
		return nil, fmt.Errorf("plus side impedance: %w", err)
	}
	im.InvImpedanceNeig = new(mat.Dense)
	if err := im.InvImpedanceNeig.Inverse(zNeig); err != nil {
		return nil, fmt.Errorf("minus side impedance: %w", err)
	}
	var sum mat.Dense
	sum.Add(im.InvImpedance, im.InvImpedanceNeig)
	im.Eta = new(mat.Dense)
	if err := im.Eta.Inverse(&sum); err != nil {
		return nil, fmt.Errorf("eta: %w", err)
	}
	return im, nil
}

// Matrices returns the diagonal elastic impedance operators
func (ie ImpedancesAndEta) Matrices() *ImpedanceMatrices {
	im, err := NewImpedanceMatrices(
		mat.NewDiagDense(3, []float64{ie.Zp, ie.Zs, ie.Zs}),
		mat.NewDiagDense(3, []float64{ie.ZpNeig, ie.ZsNeig, ie.ZsNeig}),
	)
	if err != nil {
		panic(fmt.Sprintf("fault: non-positive impedance: %v", err))
	}
	return im
}
