// Package device runs the linear slip weakening friction step as a single
// OCCA kernel over partitions of fault faces. The layer lives on the device
// between Sync calls.
package device

import (
	"fmt"
	"time"

	"github.com/notargets/DGRupture/config"
	"github.com/notargets/DGRupture/element"
	"github.com/notargets/DGRupture/fault"
	"github.com/notargets/DGRupture/friction"
	"github.com/notargets/DGRupture/monitoring"
	"github.com/notargets/DGRupture/partitions"
	"github.com/notargets/DGRupture/runner"
	"github.com/notargets/DGRupture/runner/builder"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Specialization codes used by the kernel preprocessor
const (
	specNone = iota
	specForced
	specBiMaterial
)

// Per-face impedance record: eta, Z+^-1 and Z-^-1 row-major, then the
// scalar shear eta and its inverse
const (
	impEta     = 0
	impInvZ    = 9
	impInvZn   = 18
	impEtaS    = 27
	impInvEtaS = 28
	numImp     = 32
)

// paramRows are the per-point constants packed after the six initial stress
// components
var paramRows = []struct {
	define string
	field  func(ly *fault.Layer) []float64
}{
	{"P_MU_S", func(ly *fault.Layer) []float64 { return ly.MuS }},
	{"P_MU_D", func(ly *fault.Layer) []float64 { return ly.MuD }},
	{"P_COHESION", func(ly *fault.Layer) []float64 { return ly.Cohesion }},
	{"P_DC", func(ly *fault.Layer) []float64 { return ly.DC }},
	{"P_FORCED_RT", func(ly *fault.Layer) []float64 { return ly.ForcedRuptureTime }},
}

// stateRows are the per-point fields the kernel updates. Pending flags are
// carried as 0/1 reals.
var stateRows = []struct {
	define string
	field  func(ly *fault.Layer) []float64
	flag   func(ly *fault.Layer) []bool
}{
	{define: "S_MU", field: func(ly *fault.Layer) []float64 { return ly.Mu }},
	{define: "S_ACC_SLIP", field: func(ly *fault.Layer) []float64 { return ly.AccumulatedSlipMagnitude }},
	{define: "S_SLIP1", field: func(ly *fault.Layer) []float64 { return ly.Slip1 }},
	{define: "S_SLIP2", field: func(ly *fault.Layer) []float64 { return ly.Slip2 }},
	{define: "S_SLIP_RATE", field: func(ly *fault.Layer) []float64 { return ly.SlipRateMagnitude }},
	{define: "S_SLIP_RATE1", field: func(ly *fault.Layer) []float64 { return ly.SlipRate1 }},
	{define: "S_SLIP_RATE2", field: func(ly *fault.Layer) []float64 { return ly.SlipRate2 }},
	{define: "S_TRACTION1", field: func(ly *fault.Layer) []float64 { return ly.Traction1 }},
	{define: "S_TRACTION2", field: func(ly *fault.Layer) []float64 { return ly.Traction2 }},
	{define: "S_RT_PENDING", flag: func(ly *fault.Layer) []bool { return ly.RuptureTimePending }},
	{define: "S_RUPTURE_TIME", field: func(ly *fault.Layer) []float64 { return ly.RuptureTime }},
	{define: "S_DS_PENDING", flag: func(ly *fault.Layer) []bool { return ly.DynStressTimePending }},
	{define: "S_DS_TIME", field: func(ly *fault.Layer) []float64 { return ly.DynStressTime }},
	{define: "S_PEAK_SLIP_RATE", field: func(ly *fault.Layer) []float64 { return ly.PeakSlipRate }},
	{define: "S_REG_STRENGTH", field: func(ly *fault.Layer) []float64 { return ly.RegularisedStrength }},
}

// Solver is the device counterpart of friction.Solver for elastic faces.
// Evaluate leaves the layer state on the device; Sync brings it back.
type Solver struct {
	params config.DRParameters
	layout fault.Layout
	layer  *fault.Layer
	parts  *partitions.FaceLayout
	runner *runner.Runner
	logger *zap.Logger
	stats  *monitoring.LoopStatistics
	region int

	timeData  *mat.Dense
	paramData []float64 // [face][param][point]
	state     []float64 // [face][state][point]
	faceImp   []float64 // [face][numImp]

	// Partition views rebound to the caller's step data on every Evaluate
	qPlus, qMinus             [][]float64
	imposedPlus, imposedMinus [][]float64
}

type Option func(*Solver)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) { s.logger = logger }
}

// WithLoopStatistics records a "friction_device" sample per step
func WithLoopStatistics(ls *monitoring.LoopStatistics) Option {
	return func(s *Solver) { s.stats = ls }
}

// NewSolver sets up the specialization on the host, uploads the layer and
// compiles the step kernel for dev
func NewSolver(dev *gocca.OCCADevice, params config.DRParameters, face element.ReferenceElement,
	layer *fault.Layer, opts ...Option) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	layout := layer.Layout
	if layout.Quantities.IsPoroelastic() || params.Poroelastic {
		return nil, fmt.Errorf("device friction supports elastic faces only")
	}
	if layout.ConvergenceOrder != params.ConvergenceOrder {
		return nil, fmt.Errorf("layer order %d does not match configured order %d",
			layout.ConvergenceOrder, params.ConvergenceOrder)
	}
	if err := layer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layer: %w", err)
	}
	spec, err := friction.NewSpecialization(&params)
	if err != nil {
		return nil, err
	}
	if err = spec.Setup(layer); err != nil {
		return nil, fmt.Errorf("specialization setup: %w", err)
	}

	// The kernel addresses a partition as one contiguous run of faces
	parts, err := partitions.BuildFacePartitions(layer.NumFaces, params.FacesPerPartition,
		partitions.BlockPartition)
	if err != nil {
		return nil, err
	}
	if !parts.IsContiguous() {
		return nil, fmt.Errorf("device partitions must hold consecutive faces")
	}

	s := &Solver{
		params:    params,
		layout:    layout,
		layer:     layer,
		parts:     parts,
		logger:    zap.NewNop(),
		timeData:  mat.NewDense(layout.ConvergenceOrder, 2, nil),
		paramData: make([]float64, layer.NumFaces*(fault.NumStressComponents+len(paramRows))*layout.NumPaddedPoints),
		state:     make([]float64, layer.NumFaces*len(stateRows)*layout.NumPaddedPoints),
		faceImp:   make([]float64, layer.NumFaces*numImp),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats != nil {
		s.region = s.stats.AddRegion("friction_device", true)
	}
	if params.PartitionStrategy != config.BlockPartition {
		s.logger.Warn("device friction always uses block partitions",
			zap.String("configured", params.PartitionStrategy))
	}
	s.packParams()
	s.packState()
	s.packImpedances()

	s.runner = runner.NewRunner(dev, builder.Config{K: parts.K(), FloatType: builder.Float64, IntType: builder.INT64})
	if err = s.build(face, spec); err != nil {
		s.runner.Free()
		return nil, err
	}

	s.logger.Info("device friction solver ready",
		zap.String("mode", dev.Mode()),
		zap.String("specialization", params.Specialization),
		zap.Int("order", layout.ConvergenceOrder),
		zap.Int("faces", layer.NumFaces),
		zap.Int("partitions", parts.NumPartitions),
	)
	return s, nil
}

func (s *Solver) build(face element.ReferenceElement, spec friction.Specialization) error {
	var (
		kr       = s.runner
		np       = s.layout.NumPaddedPoints
		qs       = s.layout.QSize()
		order    = s.layout.ConvergenceOrder
		nParam   = fault.NumStressComponents + len(paramRows)
		resample = "Resample_" + face.GetProperties().ShortName
	)
	// Step data views are bound to zeroed placeholders until Evaluate
	placeholder := fault.NewStepData(s.layout, s.layer.NumFaces)
	s.qPlus = s.views(placeholder.QInterpolatedPlus, order*qs)
	s.qMinus = s.views(placeholder.QInterpolatedMinus, order*qs)
	s.imposedPlus = s.views(placeholder.ImposedStatePlus, qs)
	s.imposedMinus = s.views(placeholder.ImposedStateMinus, qs)

	err := kr.DefineBindings(
		builder.Input("QPlus").Bind(s.qPlus),
		builder.Input("QMinus").Bind(s.qMinus),
		builder.Output("ImposedPlus").Bind(s.imposedPlus),
		builder.Output("ImposedMinus").Bind(s.imposedMinus),
		builder.Input("Params").Bind(s.views(s.paramData, nParam*np)),
		builder.Input("FaceImp").Bind(s.views(s.faceImp, numImp)),
		builder.InOut("State").Bind(s.views(s.state, len(stateRows)*np)),
		builder.InOut("AveragedSlip").Bind(s.views(s.layer.AveragedSlip, 1)),
		builder.Input("TimeData").Bind(s.timeData).ToMatrix(),
		builder.Input(resample).Bind(element.GetRefMatrices(face)[resample]).ToMatrix().Static(),
		builder.Scalar("fullUpdateTime").Type(builder.Float64),
	)
	if err != nil {
		return err
	}
	if err = kr.AllocateDevice(); err != nil {
		return err
	}
	for _, name := range []string{"Params", "FaceImp", "State", "AveragedSlip"} {
		if err = kr.CopyToDevice(name); err != nil {
			return err
		}
	}
	s.addDefines(spec)
	kr.AddDefine("RESAMPLE(IN, OUT)", "MATVEC_"+resample+"(IN, OUT)")

	_, err = kr.ConfigureKernel(kernelName,
		kr.Param("QPlus").CopyTo(),
		kr.Param("QMinus").CopyTo(),
		kr.Param("ImposedPlus").CopyBack(),
		kr.Param("ImposedMinus").CopyBack(),
		kr.Param("Params"),
		kr.Param("FaceImp"),
		kr.Param("State"),
		kr.Param("AveragedSlip"),
		kr.Param("TimeData").CopyTo(),
		kr.Param("fullUpdateTime"),
	)
	if err != nil {
		return err
	}
	signature, err := kr.GetKernelSignatureForConfig(kernelName)
	if err != nil {
		return err
	}
	_, err = kr.BuildKernel(fmt.Sprintf(lswKernelSource, signature), kernelName)
	return err
}

func (s *Solver) addDefines(spec friction.Specialization) {
	var (
		kr = s.runner
		q  = s.layout.Quantities
		p  = s.params
	)
	kr.AddDefine("NP", s.layout.NumPaddedPoints)
	kr.AddDefine("NB", s.layout.NumBoundaryGaussPoints)
	kr.AddDefine("NORDER", s.layout.ConvergenceOrder)
	kr.AddDefine("QSIZE", s.layout.QSize())
	kr.AddDefine("TRAC(k)", indexMacro(q.TractionIndices))
	kr.AddDefine("VEL(k)", indexMacro(q.VelocityIndices))

	kr.AddDefine("NPARAM", fault.NumStressComponents+len(paramRows))
	kr.AddDefine("P_STRESS_XX", fault.StressXX)
	kr.AddDefine("P_STRESS_XY", fault.StressXY)
	kr.AddDefine("P_STRESS_XZ", fault.StressXZ)
	for r, row := range paramRows {
		kr.AddDefine(row.define, fault.NumStressComponents+r)
	}
	kr.AddDefine("NSTATE", len(stateRows))
	for r, row := range stateRows {
		kr.AddDefine(row.define, r)
	}
	kr.AddDefine("NIMP", numImp)
	kr.AddDefine("IMP_ETA", impEta)
	kr.AddDefine("IMP_INVZ", impInvZ)
	kr.AddDefine("IMP_INVZN", impInvZn)
	kr.AddDefine("IMP_ETAS", impEtaS)
	kr.AddDefine("IMP_INVETAS", impInvEtaS)

	kr.AddDefine("U0", friction.U0)
	kr.AddDefine("RF_THRESHOLD", friction.RuptureFrontThreshold)
	kr.AddDefine("INSTANTANEOUS_HEALING", p.InstantaneousHealing)
	kr.AddDefine("RF_OUTPUT", p.IsRfOutputOn)
	kr.AddDefine("DS_OUTPUT", p.IsDsOutputOn)
	kr.AddDefine("MAGNITUDE_OUTPUT", p.IsMagnitudeOutputOn)

	kr.AddDefine("SPEC_NONE", specNone)
	kr.AddDefine("SPEC_FORCED", specForced)
	kr.AddDefine("SPEC_BIMATERIAL", specBiMaterial)
	code := specNone
	switch sp := spec.(type) {
	case *friction.ForcedRuptureTime:
		code = specForced
		kr.AddDefine("T0", sp.T0)
	case *friction.BiMaterialFault:
		code = specBiMaterial
		kr.AddDefine("PRAKASH_LENGTH", sp.PrakashLength)
		kr.AddDefine("V_STAR", sp.VStar)
	}
	kr.AddDefine("SPECIALIZATION", code)
}

// views slices a face-major array into per partition runs of faces
func (s *Solver) views(flat []float64, perFace int) [][]float64 {
	v := make([][]float64, s.parts.NumPartitions)
	start := 0
	for i, p := range s.parts.Partitions {
		end := start + p.NumFaces*perFace
		v[i] = flat[start:end:end]
		start = end
	}
	return v
}

func (s *Solver) rebind(dst [][]float64, flat []float64, perFace int) {
	copy(dst, s.views(flat, perFace))
}

func (s *Solver) packParams() {
	var (
		ly     = s.layer
		np     = s.layout.NumPaddedPoints
		nParam = fault.NumStressComponents + len(paramRows)
	)
	for face := 0; face < ly.NumFaces; face++ {
		base := face * nParam * np
		for c := 0; c < fault.NumStressComponents; c++ {
			copy(s.paramData[base+c*np:base+(c+1)*np], ly.InitialStress(face, c))
		}
		for r, row := range paramRows {
			off := base + (fault.NumStressComponents+r)*np
			copy(s.paramData[off:off+np], ly.Face(row.field(ly), face))
		}
	}
}

func (s *Solver) packState() {
	var (
		ly = s.layer
		np = s.layout.NumPaddedPoints
	)
	for face := 0; face < ly.NumFaces; face++ {
		for r, row := range stateRows {
			dst := s.state[(face*len(stateRows)+r)*np : (face*len(stateRows)+r+1)*np]
			if row.flag != nil {
				for i, pending := range ly.Pending(row.flag(ly), face) {
					dst[i] = 0
					if pending {
						dst[i] = 1
					}
				}
				continue
			}
			copy(dst, ly.Face(row.field(ly), face))
		}
	}
}

func (s *Solver) unpackState() {
	var (
		ly = s.layer
		np = s.layout.NumPaddedPoints
	)
	for face := 0; face < ly.NumFaces; face++ {
		for r, row := range stateRows {
			src := s.state[(face*len(stateRows)+r)*np : (face*len(stateRows)+r+1)*np]
			if row.flag != nil {
				flags := ly.Pending(row.flag(ly), face)
				for i, v := range src {
					flags[i] = v != 0
				}
				continue
			}
			copy(ly.Face(row.field(ly), face), src)
		}
	}
}

func (s *Solver) packImpedances() {
	for face, im := range s.layer.ImpedanceMatrices {
		rec := s.faceImp[face*numImp : (face+1)*numImp]
		for k := 0; k < 3; k++ {
			for j := 0; j < 3; j++ {
				rec[impEta+3*k+j] = im.Eta.At(k, j)
				rec[impInvZ+3*k+j] = im.InvImpedance.At(k, j)
				rec[impInvZn+3*k+j] = im.InvImpedanceNeig.At(k, j)
			}
		}
		rec[impEtaS] = s.layer.Impedances[face].EtaS
		rec[impInvEtaS] = s.layer.Impedances[face].InvEtaS
	}
}

func (s *Solver) Layer() *fault.Layer { return s.layer }

func (s *Solver) Partitions() *partitions.FaceLayout { return s.parts }

// Evaluate advances every face by one time step on the device. The
// arguments are those of friction.Solver.Evaluate; the imposed states of
// sd are overwritten on return.
func (s *Solver) Evaluate(sd *fault.StepData, fullUpdateTime float64, timeWeights, deltaT []float64) error {
	order := s.layout.ConvergenceOrder
	if sd.NumFaces != s.layer.NumFaces || sd.Layout.QSize() != s.layout.QSize() ||
		sd.Layout.ConvergenceOrder != order {
		return fmt.Errorf("step data for %d faces does not match the layer", sd.NumFaces)
	}
	if len(timeWeights) != order || len(deltaT) != order {
		return fmt.Errorf("got %d time weights and %d increments, want %d",
			len(timeWeights), len(deltaT), order)
	}
	qs := s.layout.QSize()
	s.rebind(s.qPlus, sd.QInterpolatedPlus, order*qs)
	s.rebind(s.qMinus, sd.QInterpolatedMinus, order*qs)
	s.rebind(s.imposedPlus, sd.ImposedStatePlus, qs)
	s.rebind(s.imposedMinus, sd.ImposedStateMinus, qs)
	for o := 0; o < order; o++ {
		s.timeData.Set(o, 0, deltaT[o])
		s.timeData.Set(o, 1, timeWeights[o])
	}

	if s.stats != nil {
		s.stats.Begin(s.region)
	}
	start := time.Now()
	if err := s.runner.ExecuteKernel(kernelName, fullUpdateTime); err != nil {
		return fmt.Errorf("friction step at t=%g: %w", fullUpdateTime, err)
	}
	if s.stats != nil {
		s.stats.End(s.region, s.layer.NumFaces, -1)
	}
	s.logger.Debug("device friction step",
		zap.Float64("time", fullUpdateTime),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Sync copies the friction state and diagnostics back into the layer
func (s *Solver) Sync() error {
	if err := s.runner.CopyFromDevice("State"); err != nil {
		return err
	}
	if err := s.runner.CopyFromDevice("AveragedSlip"); err != nil {
		return err
	}
	s.unpackState()
	return nil
}

// Upload pushes host side edits of the layer state to the device
func (s *Solver) Upload() error {
	s.packState()
	if err := s.runner.CopyToDevice("State"); err != nil {
		return err
	}
	return s.runner.CopyToDevice("AveragedSlip")
}

func (s *Solver) Free() {
	s.runner.Free()
}
