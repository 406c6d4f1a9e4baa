package runner

import (
	"fmt"
	"sort"

	"github.com/notargets/DGRupture/runner/builder"
	"gonum.org/v1/gonum/mat"
)

// ActionFlags represents the memory operations to perform for a parameter
type ActionFlags int

const (
	NoAction ActionFlags = 0
	// Copy from host to device before kernel execution
	CopyTo ActionFlags = 1 << iota
	// Copy from device to host after kernel execution
	CopyBack
)

// DeviceBinding represents a host↔device data binding
type DeviceBinding struct {
	Name string

	// []float64, [][]float64 (one slice per partition), mat.Matrix or scalar
	HostBinding interface{}
	DataType    builder.DataType
	Size        int64 // Total number of elements

	IsMatrix      bool
	IsStatic      bool // Matrix embedded as static const in kernel
	IsPartitioned bool
	IsScalar      bool
	IsTemp        bool // Device-only temporary array
	IsOutput      bool // Whether parameter can be written to in kernel

	MatrixRows int
	MatrixCols int

	Alignment builder.AlignmentType
}

// ParameterUsage represents how a binding is used in a specific kernel
type ParameterUsage struct {
	Binding *DeviceBinding
	Actions ActionFlags
}

// HasAction checks if a specific action is set
func (pu *ParameterUsage) HasAction(action ActionFlags) bool {
	return pu.Actions&action != 0
}

// DefineBindings establishes host↔device data relationships. Bindings are
// defined once, before AllocateDevice.
func (kr *Runner) DefineBindings(params ...*builder.ParamBuilder) error {
	if kr.IsAllocated {
		return fmt.Errorf("bindings cannot be defined after AllocateDevice has been called")
	}
	for i, p := range params {
		spec := p.Spec
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		binding, err := kr.createBinding(&spec)
		if err != nil {
			return fmt.Errorf("failed to create binding for %s: %w", spec.Name, err)
		}
		kr.Bindings[spec.Name] = binding
	}
	return nil
}

func (kr *Runner) createBinding(spec *builder.ParamSpec) (*DeviceBinding, error) {
	binding := &DeviceBinding{
		Name:          spec.Name,
		HostBinding:   spec.HostBinding,
		DataType:      spec.DataType,
		Size:          spec.Size,
		IsMatrix:      spec.IsMatrix,
		IsStatic:      spec.IsStatic,
		IsPartitioned: spec.IsPartitioned,
		IsScalar:      spec.Direction == builder.DirectionScalar,
		IsTemp:        spec.Direction == builder.DirectionTemp,
		IsOutput:      !spec.IsConst(),
		MatrixRows:    spec.MatrixRows,
		MatrixCols:    spec.MatrixCols,
		Alignment:     spec.Alignment,
	}
	switch {
	case binding.IsScalar, binding.IsMatrix:
		return binding, nil
	case binding.IsTemp:
		if binding.DataType == 0 {
			binding.DataType = kr.FloatType
		}
	}
	if !isReal(binding.DataType) {
		return nil, fmt.Errorf("array %s must hold reals, got type %d", spec.Name, binding.DataType)
	}

	total := int64(kr.GetTotalElements())
	if binding.Size%total != 0 {
		return nil, fmt.Errorf("array %s of %d values does not divide into %d elements",
			spec.Name, binding.Size, total)
	}
	valuesPerElement := binding.Size / total
	if binding.IsPartitioned {
		parts, ok := spec.HostBinding.([][]float64)
		if !ok {
			return nil, fmt.Errorf("partitioned array %s must be [][]float64, got %T", spec.Name, spec.HostBinding)
		}
		if len(parts) != kr.NumPartitions {
			return nil, fmt.Errorf("partition count mismatch for %s: expected %d, got %d",
				spec.Name, kr.NumPartitions, len(parts))
		}
		for i, part := range parts {
			if int64(len(part)) != int64(kr.K[i])*valuesPerElement {
				return nil, fmt.Errorf("partition %d of %s holds %d values, want %d",
					i, spec.Name, len(part), int64(kr.K[i])*valuesPerElement)
			}
		}
	} else if kr.NumPartitions > 1 && !binding.IsTemp {
		return nil, fmt.Errorf("non-partitioned array %s provided to partitioned kernel", spec.Name)
	}
	return binding, nil
}

// GetBinding returns a binding by name
func (kr *Runner) GetBinding(name string) *DeviceBinding {
	return kr.Bindings[name]
}

// AllocateDevice allocates device memory for all defined bindings. Device
// matrices are filled here; arrays are filled by CopyTo actions.
func (kr *Runner) AllocateDevice() error {
	if kr.IsAllocated {
		return fmt.Errorf("device memory already allocated")
	}
	if len(kr.Bindings) == 0 {
		return fmt.Errorf("no bindings defined - call DefineBindings first")
	}
	names := make([]string, 0, len(kr.Bindings))
	for name := range kr.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		binding := kr.Bindings[name]
		var err error
		switch {
		case binding.IsScalar:
			continue
		case binding.IsMatrix && binding.IsStatic:
			kr.AddStaticMatrix(name, binding.HostBinding.(mat.Matrix))
		case binding.IsMatrix:
			err = kr.allocateDeviceMatrix(binding)
		default:
			err = kr.allocateArray(binding)
		}
		if err != nil {
			return fmt.Errorf("failed to allocate %s: %w", name, err)
		}
	}
	kr.IsAllocated = true
	return nil
}
