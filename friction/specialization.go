package friction

import (
	"fmt"
	"sort"

	"github.com/notargets/DGRupture/config"
	"github.com/notargets/DGRupture/fault"
)

// Specialization adjusts the linear slip weakening law. Setup runs once
// when a layer is attached; the hooks run inside the strength and state
// variable stages for every face and sub-interval. Hooks only touch
// per-face data of the face they are called for.
type Specialization interface {
	Setup(layer *fault.Layer) error
	AdjustStrength(strength, slipRate, sigma, mu, dt float64, face, point int) float64
	AdjustStateVariable(stateVariable []float64, time float64, face int)
}

// allocators holds all available specializations
var allocators = make(map[string]func(p *config.DRParameters) Specialization)

func init() {
	allocators[config.NoSpecialization] = func(*config.DRParameters) Specialization {
		return new(NoSpecialization)
	}
	allocators[config.ForcedRuptureTime] = func(p *config.DRParameters) Specialization {
		return &ForcedRuptureTime{T0: p.T0}
	}
	allocators[config.BiMaterial] = func(p *config.DRParameters) Specialization {
		return &BiMaterialFault{PrakashLength: p.PrakashLength, VStar: p.VStar}
	}
}

// NewSpecialization allocates the variant named by p.Specialization
func NewSpecialization(p *config.DRParameters) (Specialization, error) {
	allocator, ok := allocators[p.Specialization]
	if !ok {
		return nil, fmt.Errorf("unregistered specialization %q, available: %v",
			p.Specialization, Specializations())
	}
	return allocator(p), nil
}

// Specializations lists the registered names
func Specializations() []string {
	names := make([]string, 0, len(allocators))
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NoSpecialization leaves the law unchanged
type NoSpecialization struct{}

func (*NoSpecialization) Setup(*fault.Layer) error { return nil }

func (*NoSpecialization) AdjustStrength(strength, _, _, _, _ float64, _, _ int) float64 {
	return strength
}

func (*NoSpecialization) AdjustStateVariable([]float64, float64, int) {}
