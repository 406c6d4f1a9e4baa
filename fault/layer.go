package fault

import (
	"fmt"
)

// Layer is the persistent per-face storage of a set of fault faces. Every
// per-point field is a flat array of NumFaces*NumPaddedPoints reals; Face
// and friends return the view of one face. Padded tail entries stay zero.
type Layer struct {
	Layout   Layout
	NumFaces int

	Impedances        []ImpedancesAndEta
	ImpedanceMatrices []*ImpedanceMatrices

	// [face][component][point], components StressXX..StressXZ
	InitialStressInFaultCS []float64

	// Friction parameters
	MuS, MuD, Cohesion, DC []float64

	// Friction state
	Mu                       []float64
	AccumulatedSlipMagnitude []float64
	Slip1, Slip2             []float64
	SlipRateMagnitude        []float64
	SlipRate1, SlipRate2     []float64
	Traction1, Traction2     []float64

	// Diagnostics
	RuptureTimePending   []bool
	RuptureTime          []float64
	DynStressTimePending []bool
	DynStressTime        []float64
	PeakSlipRate         []float64
	AveragedSlip         []float64 // [face]

	// Variant private state
	ForcedRuptureTime   []float64
	RegularisedStrength []float64
}

func NewLayer(l Layout, numFaces int) (*Layer, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if numFaces < 1 {
		return nil, fmt.Errorf("layer needs at least one face, got %d", numFaces)
	}
	n := numFaces * l.NumPaddedPoints
	alloc := func() []float64 { return make([]float64, n) }
	ly := &Layer{
		Layout:                   l,
		NumFaces:                 numFaces,
		Impedances:               make([]ImpedancesAndEta, numFaces),
		ImpedanceMatrices:        make([]*ImpedanceMatrices, numFaces),
		InitialStressInFaultCS:   make([]float64, n*NumStressComponents),
		MuS:                      alloc(),
		MuD:                      alloc(),
		Cohesion:                 alloc(),
		DC:                       alloc(),
		Mu:                       alloc(),
		AccumulatedSlipMagnitude: alloc(),
		Slip1:                    alloc(),
		Slip2:                    alloc(),
		SlipRateMagnitude:        alloc(),
		SlipRate1:                alloc(),
		SlipRate2:                alloc(),
		Traction1:                alloc(),
		Traction2:                alloc(),
		RuptureTimePending:       make([]bool, n),
		RuptureTime:              alloc(),
		DynStressTimePending:     make([]bool, n),
		DynStressTime:            alloc(),
		PeakSlipRate:             alloc(),
		AveragedSlip:             make([]float64, numFaces),
		ForcedRuptureTime:        alloc(),
		RegularisedStrength:      alloc(),
	}
	for face := 0; face < numFaces; face++ {
		rt, ds := ly.Pending(ly.RuptureTimePending, face), ly.Pending(ly.DynStressTimePending, face)
		for i := 0; i < l.NumBoundaryGaussPoints; i++ {
			rt[i], ds[i] = true, true
		}
	}
	return ly, nil
}

// Face returns the per-point view of field for one face
func (ly *Layer) Face(field []float64, face int) []float64 {
	np := ly.Layout.NumPaddedPoints
	return field[face*np : (face+1)*np : (face+1)*np]
}

func (ly *Layer) Pending(field []bool, face int) []bool {
	np := ly.Layout.NumPaddedPoints
	return field[face*np : (face+1)*np : (face+1)*np]
}

// InitialStress returns one component of the initial fault stress of a face
func (ly *Layer) InitialStress(face, component int) []float64 {
	np := ly.Layout.NumPaddedPoints
	off := (face*NumStressComponents + component) * np
	return ly.InitialStressInFaultCS[off : off+np : off+np]
}

// SetMaterial assigns elastic materials to both sides of a face
func (ly *Layer) SetMaterial(face int, plus, minus Material) {
	ly.Impedances[face] = NewImpedancesAndEta(plus, minus)
	ly.ImpedanceMatrices[face] = ly.Impedances[face].Matrices()
}

// SetImpedanceMatrices installs general (e.g. poroelastic) impedance
// operators; the scalar shear values used by friction are taken from them.
func (ly *Layer) SetImpedanceMatrices(face int, im *ImpedanceMatrices) error {
	nt := ly.Layout.Quantities.NumTractions()
	if r, _ := im.Eta.Dims(); r != nt {
		return fmt.Errorf("face %d: impedance dimension %d, want %d", face, r, nt)
	}
	ly.Impedances[face] = impedancesAndEta(
		im.Impedance.At(0, 0), im.Impedance.At(1, 1),
		im.ImpedanceNeig.At(0, 0), im.ImpedanceNeig.At(1, 1),
	)
	ly.ImpedanceMatrices[face] = im
	return nil
}

// FillParameter sets a per-point parameter on every physical point of a face
func (ly *Layer) FillParameter(field []float64, face int, value float64) {
	view := ly.Face(field, face)
	for i := 0; i < ly.Layout.NumBoundaryGaussPoints; i++ {
		view[i] = value
	}
}

// Validate checks the layer is ready for evaluation
func (ly *Layer) Validate() error {
	for face := 0; face < ly.NumFaces; face++ {
		if ly.ImpedanceMatrices[face] == nil {
			return fmt.Errorf("face %d has no impedance", face)
		}
		if r, _ := ly.ImpedanceMatrices[face].Eta.Dims(); r != ly.Layout.Quantities.NumTractions() {
			return fmt.Errorf("face %d: impedance dimension %d does not match %s layout",
				face, r, ly.Layout.Quantities.Name)
		}
		dc := ly.Face(ly.DC, face)
		for i := 0; i < ly.Layout.NumBoundaryGaussPoints; i++ {
			if dc[i] <= 0 {
				return fmt.Errorf("face %d point %d: dC must be positive, got %g", face, i, dc[i])
			}
		}
	}
	return nil
}
