package fault

// FaultStresses holds theta for every sub-interval, indexed [order][point]
type FaultStresses struct {
	NormalStress  [][]float64
	Traction1     [][]float64
	Traction2     [][]float64
	FluidPressure [][]float64 // nil for elastic media
}

// TractionResults holds the shear tractions after friction, [order][point]
type TractionResults struct {
	Traction1 [][]float64
	Traction2 [][]float64
}

func NewFaultStresses(l Layout) *FaultStresses {
	fs := &FaultStresses{
		NormalStress: newBlock(l),
		Traction1:    newBlock(l),
		Traction2:    newBlock(l),
	}
	if l.Quantities.IsPoroelastic() {
		fs.FluidPressure = newBlock(l)
	}
	return fs
}

func NewTractionResults(l Layout) *TractionResults {
	return &TractionResults{
		Traction1: newBlock(l),
		Traction2: newBlock(l),
	}
}

// Theta returns the slice for theta component k at sub-interval o
func (fs *FaultStresses) Theta(k, o int) []float64 {
	switch k {
	case 0:
		return fs.NormalStress[o]
	case 1:
		return fs.Traction1[o]
	case 2:
		return fs.Traction2[o]
	default:
		return fs.FluidPressure[o]
	}
}

func newBlock(l Layout) [][]float64 {
	data := make([]float64, l.ConvergenceOrder*l.NumPaddedPoints)
	block := make([][]float64, l.ConvergenceOrder)
	for o := range block {
		block[o] = data[o*l.NumPaddedPoints : (o+1)*l.NumPaddedPoints]
	}
	return block
}
