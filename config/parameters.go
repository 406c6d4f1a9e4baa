// Package config holds the dynamic rupture parameters and their loading
// from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Specialization names, see friction.NewSpecialization
const (
	NoSpecialization  = "none"
	ForcedRuptureTime = "forced-rupture-time"
	BiMaterial        = "bimaterial"
)

// Partition strategy names, see partitions.BuildFacePartitions
const (
	BlockPartition      = "block"
	RoundRobinPartition = "round-robin"
)

// DRParameters configures the linear slip weakening friction solver
type DRParameters struct {
	ConvergenceOrder int    `json:"convergence_order" yaml:"convergence_order" validate:"gte=1,lte=8"`
	Specialization   string `json:"specialization" yaml:"specialization" validate:"oneof=none forced-rupture-time bimaterial"`

	// Ramp time of the forced rupture, 0 means an instantaneous jump
	T0 float64 `json:"t0" yaml:"t0" validate:"gte=0"`
	// Prakash-Clifton regularisation length and reference slip rate
	PrakashLength float64 `json:"prakash_length" yaml:"prakash_length" validate:"required_if=Specialization bimaterial,gte=0"`
	VStar         float64 `json:"v_star" yaml:"v_star" validate:"gte=0"`

	IsRfOutputOn         bool `json:"is_rf_output_on" yaml:"is_rf_output_on"`
	IsDsOutputOn         bool `json:"is_ds_output_on" yaml:"is_ds_output_on"`
	IsMagnitudeOutputOn  bool `json:"is_magnitude_output_on" yaml:"is_magnitude_output_on"`
	InstantaneousHealing bool `json:"instantaneous_healing" yaml:"instantaneous_healing"`
	Poroelastic          bool `json:"poroelastic" yaml:"poroelastic"`

	// 0 uses GOMAXPROCS
	MaxConcurrency    int    `json:"max_concurrency" yaml:"max_concurrency" validate:"gte=0"`
	FacesPerPartition int    `json:"faces_per_partition" yaml:"faces_per_partition" validate:"gte=1"`
	PartitionStrategy string `json:"partition_strategy" yaml:"partition_strategy" validate:"oneof=block round-robin"`

	// OCCA device properties, empty runs on the host
	Device string `json:"device" yaml:"device"`
}

// Default returns parameters for a plain linear slip weakening fault with
// all diagnostics enabled
func Default() DRParameters {
	return DRParameters{
		ConvergenceOrder:    4,
		Specialization:      NoSpecialization,
		IsRfOutputOn:        true,
		IsDsOutputOn:        true,
		IsMagnitudeOutputOn: true,
		FacesPerPartition:   64,
		PartitionStrategy:   BlockPartition,
	}
}

var validate = validator.New()

// Validate checks field constraints and returns the first violations joined
func (p *DRParameters) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		if p.Poroelastic && p.Device != "" {
			return fmt.Errorf("poroelastic faces are only supported on the host")
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating parameters: %w", err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid parameters: %w", errors.Join(errs...))
}

// Parse decodes YAML on top of Default and validates the result
func Parse(data []byte) (DRParameters, error) {
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DRParameters{}, fmt.Errorf("failed to parse parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return DRParameters{}, err
	}
	return p, nil
}

// Load reads and validates a YAML parameter file
func Load(path string) (DRParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DRParameters{}, fmt.Errorf("failed to read the parameter file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return DRParameters{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
