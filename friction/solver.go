package friction

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/notargets/DGRupture/config"
	"github.com/notargets/DGRupture/element"
	"github.com/notargets/DGRupture/fault"
	"github.com/notargets/DGRupture/kernels"
	"github.com/notargets/DGRupture/monitoring"
	"github.com/notargets/DGRupture/partitions"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Solver evaluates one time step of the friction law on every face of a
// layer. Partitions of faces run concurrently; the faces of a partition
// run in order.
type Solver struct {
	params  config.DRParameters
	layout  fault.Layout
	law     *LinearSlipWeakeningLaw
	layer   *fault.Layer
	parts   *partitions.FaceLayout
	logger  *zap.Logger
	stats   *monitoring.LoopStatistics
	region  int
	partRgn int
	limit   int
	scratch sync.Pool
}

type Option func(*Solver)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) { s.logger = logger }
}

// WithLoopStatistics records a "friction" sample per step and a
// "friction_partition" sample per partition and step
func WithLoopStatistics(ls *monitoring.LoopStatistics) Option {
	return func(s *Solver) { s.stats = ls }
}

// workspace is the per-goroutine scratch of a face evaluation
type workspace struct {
	faultStresses   *fault.FaultStresses
	tractionResults *fault.TractionResults
	stateVariable   []float64
	strength        []float64
	tmpSlip         []float64
}

func NewSolver(params config.DRParameters, face element.ReferenceElement, layer *fault.Layer,
	opts ...Option) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	layout := layer.Layout
	if layout.ConvergenceOrder != params.ConvergenceOrder {
		return nil, fmt.Errorf("layer order %d does not match configured order %d",
			layout.ConvergenceOrder, params.ConvergenceOrder)
	}
	if layout.Quantities.IsPoroelastic() != params.Poroelastic {
		return nil, fmt.Errorf("layer quantities %q do not match poroelastic=%v",
			layout.Quantities.Name, params.Poroelastic)
	}
	if err := layer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layer: %w", err)
	}

	spec, err := NewSpecialization(&params)
	if err != nil {
		return nil, err
	}
	law, err := NewLinearSlipWeakeningLaw(face, layout, spec)
	if err != nil {
		return nil, err
	}
	if err = law.Attach(layer); err != nil {
		return nil, err
	}

	strategy, err := partitions.ParseStrategy(params.PartitionStrategy)
	if err != nil {
		return nil, err
	}
	parts, err := partitions.BuildFacePartitions(layer.NumFaces, params.FacesPerPartition, strategy)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		params: params,
		layout: layout,
		law:    law,
		layer:  layer,
		parts:  parts,
		logger: zap.NewNop(),
		limit:  params.MaxConcurrency,
	}
	if s.limit == 0 {
		s.limit = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats != nil {
		s.region = s.stats.AddRegion("friction", true)
		s.partRgn = s.stats.AddRegion("friction_partition", false)
	}
	s.scratch.New = func() any {
		return &workspace{
			faultStresses:   fault.NewFaultStresses(layout),
			tractionResults: fault.NewTractionResults(layout),
			stateVariable:   make([]float64, layout.NumPaddedPoints),
			strength:        make([]float64, layout.NumPaddedPoints),
			tmpSlip:         make([]float64, layout.NumPaddedPoints),
		}
	}

	s.logger.Info("friction solver ready",
		zap.String("specialization", params.Specialization),
		zap.String("quantities", layout.Quantities.Name),
		zap.Int("order", layout.ConvergenceOrder),
		zap.Int("faces", layer.NumFaces),
		zap.Int("partitions", parts.NumPartitions),
		zap.Float64("imbalance", parts.PartitionStatistics().Imbalance),
		zap.Int("concurrency", s.limit),
	)
	return s, nil
}

func (s *Solver) Layer() *fault.Layer { return s.layer }

func (s *Solver) Law() *LinearSlipWeakeningLaw { return s.law }

func (s *Solver) Partitions() *partitions.FaceLayout { return s.parts }

// Evaluate advances every face by one time step starting at
// fullUpdateTime. timeWeights integrate over the step and deltaT are the
// sub-interval increments, both of length ConvergenceOrder. The imposed
// states of sd are overwritten.
func (s *Solver) Evaluate(sd *fault.StepData, fullUpdateTime float64, timeWeights, deltaT []float64) error {
	if sd.NumFaces != s.layer.NumFaces || sd.Layout.QSize() != s.layout.QSize() ||
		sd.Layout.ConvergenceOrder != s.layout.ConvergenceOrder {
		return fmt.Errorf("step data for %d faces does not match the layer", sd.NumFaces)
	}
	if len(timeWeights) != s.layout.ConvergenceOrder {
		return fmt.Errorf("got %d time weights, want %d", len(timeWeights), s.layout.ConvergenceOrder)
	}
	if err := s.law.CopyToLocal(fullUpdateTime, deltaT); err != nil {
		return err
	}

	if s.stats != nil {
		s.stats.Begin(s.region)
	}
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(s.limit)
	for _, part := range s.parts.Partitions {
		g.Go(func() error {
			begin := time.Now()
			ws := s.scratch.Get().(*workspace)
			defer s.scratch.Put(ws)
			for _, face := range part.Faces {
				s.evaluateFace(ws, sd, face, fullUpdateTime, timeWeights, deltaT)
			}
			if s.stats != nil {
				s.stats.AddSample(s.partRgn, part.NumFaces, part.ID, begin, time.Now())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("friction step at t=%g: %w", fullUpdateTime, err)
	}

	if s.stats != nil {
		s.stats.End(s.region, s.layer.NumFaces, -1)
	}
	s.logger.Debug("friction step",
		zap.Float64("time", fullUpdateTime),
		zap.Int("faces", s.layer.NumFaces),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *Solver) evaluateFace(ws *workspace, sd *fault.StepData, face int,
	fullUpdateTime float64, timeWeights, deltaT []float64) {
	var (
		ly       = s.layer
		n        = s.layout.NumBoundaryGaussPoints
		im       = ly.ImpedanceMatrices[face]
		qPlus    = sd.QPlus(face)
		qMinus   = sd.QMinus(face)
		slipRate = ly.Face(ly.SlipRateMagnitude, face)
	)
	kernels.PrecomputeStressFromQInterpolated(ws.faultStresses, im, s.layout, qPlus, qMinus)

	clear(ws.tmpSlip)
	for o := 0; o < s.layout.ConvergenceOrder; o++ {
		s.law.UpdateFrictionAndSlip(ws.faultStresses, ws.tractionResults,
			ws.stateVariable, ws.strength, face, o)
		for i := 0; i < n; i++ {
			ws.tmpSlip[i] += slipRate[i] * deltaT[o]
		}
	}

	if s.params.InstantaneousHealing {
		s.law.InstantaneousHealing(face)
	}
	if s.params.IsRfOutputOn {
		SaveRuptureFrontOutput(ly.Pending(ly.RuptureTimePending, face),
			ly.Face(ly.RuptureTime, face), slipRate, n, fullUpdateTime)
	}
	if s.params.IsDsOutputOn {
		s.law.SaveDynamicStressOutput(face)
	}
	SavePeakSlipRateOutput(ly.Face(ly.PeakSlipRate, face), slipRate, n)
	if s.params.IsMagnitudeOutputOn {
		SaveAverageSlipOutput(ws.tmpSlip, n, &ly.AveragedSlip[face])
	}

	kernels.PostcomputeImposedStateFromNewStress(ws.faultStresses, ws.tractionResults, im,
		s.layout, timeWeights, qPlus, qMinus, sd.ImposedPlus(face), sd.ImposedMinus(face))
}
