// Package monitoring records timing samples of named solver regions.
package monitoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Sample is one timed pass through a region
type Sample struct {
	Begin, End    time.Time
	NumIterations int
	SubRegion     int
}

func (s Sample) Duration() time.Duration { return s.End.Sub(s.Begin) }

type region struct {
	name             string
	includeInSummary bool
	begin            time.Time
	samples          []Sample
}

// LoopStatistics keeps the samples of every region in memory and mirrors
// them to Prometheus collectors
type LoopStatistics struct {
	mu      sync.Mutex
	regions []region

	duration   *prometheus.HistogramVec
	iterations *prometheus.CounterVec
}

// NewLoopStatistics registers its collectors on reg; a nil reg keeps the
// collectors unregistered
func NewLoopStatistics(reg prometheus.Registerer) *LoopStatistics {
	factory := promauto.With(reg)
	return &LoopStatistics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dgrupture_region_duration_seconds",
			Help:    "Duration of timed solver regions in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12), // 1us to ~4s
		}, []string{"region"}),
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dgrupture_region_iterations_total",
			Help: "Loop iterations executed inside timed solver regions",
		}, []string{"region"}),
	}
}

// AddRegion declares a region and returns its id
func (ls *LoopStatistics) AddRegion(name string, includeInSummary bool) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.regions = append(ls.regions, region{name: name, includeInSummary: includeInSummary})
	return len(ls.regions) - 1
}

// GetRegion returns the id of a region by name
func (ls *LoopStatistics) GetRegion(name string) (int, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for id, r := range ls.regions {
		if r.name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("region %q not defined", name)
}

func (ls *LoopStatistics) Begin(id int) {
	ls.mu.Lock()
	ls.regions[id].begin = time.Now()
	ls.mu.Unlock()
}

// End closes the sample opened by the last Begin of the region
func (ls *LoopStatistics) End(id, numIterations, subRegion int) {
	end := time.Now()
	ls.mu.Lock()
	begin := ls.regions[id].begin
	ls.mu.Unlock()
	ls.AddSample(id, numIterations, subRegion, begin, end)
}

func (ls *LoopStatistics) AddSample(id, numIterations, subRegion int, begin, end time.Time) {
	s := Sample{Begin: begin, End: end, NumIterations: numIterations, SubRegion: subRegion}
	ls.mu.Lock()
	ls.regions[id].samples = append(ls.regions[id].samples, s)
	name := ls.regions[id].name
	ls.mu.Unlock()

	ls.duration.WithLabelValues(name).Observe(s.Duration().Seconds())
	ls.iterations.WithLabelValues(name).Add(float64(numIterations))
}

// Samples returns a copy of the samples of a region
func (ls *LoopStatistics) Samples(id int) []Sample {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]Sample(nil), ls.regions[id].samples...)
}

// RegionSummary aggregates the samples of one region
type RegionSummary struct {
	Name          string
	NumSamples    int
	NumIterations int
	Total         time.Duration
}

// TimePerIteration is zero when no iterations were recorded
func (rs RegionSummary) TimePerIteration() time.Duration {
	if rs.NumIterations == 0 {
		return 0
	}
	return rs.Total / time.Duration(rs.NumIterations)
}

// Summary aggregates every region flagged for the summary
func (ls *LoopStatistics) Summary() []RegionSummary {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	var out []RegionSummary
	for _, r := range ls.regions {
		if !r.includeInSummary {
			continue
		}
		rs := RegionSummary{Name: r.name, NumSamples: len(r.samples)}
		for _, s := range r.samples {
			rs.NumIterations += s.NumIterations
			rs.Total += s.Duration()
		}
		out = append(out, rs)
	}
	return out
}

func (ls *LoopStatistics) LogSummary(logger *zap.Logger) {
	for _, rs := range ls.Summary() {
		logger.Info("loop statistics",
			zap.String("region", rs.Name),
			zap.Int("samples", rs.NumSamples),
			zap.Int("iterations", rs.NumIterations),
			zap.Duration("total", rs.Total),
			zap.Duration("per_iteration", rs.TimePerIteration()),
		)
	}
}

// WriteSamples writes every sample as CSV: region, sub region, iterations,
// begin and end in nanoseconds since the epoch
func (ls *LoopStatistics) WriteSamples(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"region", "subregion", "iterations", "begin_ns", "end_ns"}); err != nil {
		return fmt.Errorf("writing sample header: %w", err)
	}
	ls.mu.Lock()
	for _, r := range ls.regions {
		for _, s := range r.samples {
			rec := []string{
				r.name,
				strconv.Itoa(s.SubRegion),
				strconv.Itoa(s.NumIterations),
				strconv.FormatInt(s.Begin.UnixNano(), 10),
				strconv.FormatInt(s.End.UnixNano(), 10),
			}
			if err := cw.Write(rec); err != nil {
				ls.mu.Unlock()
				return fmt.Errorf("writing samples of %s: %w", r.name, err)
			}
		}
	}
	ls.mu.Unlock()
	cw.Flush()
	return cw.Error()
}
