package builder

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// Direction indicates parameter data flow
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionInOut
	DirectionTemp
	DirectionScalar
)

// ParamBuilder provides a fluent interface for building kernel parameters
type ParamBuilder struct {
	Spec ParamSpec
}

// ParamSpec holds the complete specification for a kernel parameter
type ParamSpec struct {
	Name        string
	Direction   Direction
	HostBinding interface{}

	// Type and size, inferred from the binding or explicit
	DataType DataType
	Size     int64

	DoCopyTo   bool
	DoCopyBack bool

	Alignment AlignmentType

	IsMatrix   bool
	IsStatic   bool
	MatrixRows int
	MatrixCols int

	// [][]T bindings hold one slice per partition
	IsPartitioned  bool
	PartitionCount int
}

// Input creates a parameter specification for a const input
func Input(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInput}}
}

// Output creates a parameter specification for a non-const output
func Output(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionOutput}}
}

// InOut creates a parameter specification for a non-const input/output
func InOut(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionInOut}}
}

// Scalar creates a parameter specification for a scalar value
func Scalar(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionScalar}}
}

// Temp creates a parameter specification for a device-only temporary array
func Temp(deviceName string) *ParamBuilder {
	return &ParamBuilder{Spec: ParamSpec{Name: deviceName, Direction: DirectionTemp}}
}

// Bind associates a host variable with this parameter
func (p *ParamBuilder) Bind(hostVar interface{}) *ParamBuilder {
	p.Spec.HostBinding = hostVar
	p.inferFromBinding()
	return p
}

// CopyTo sets host→device copy before kernel execution
func (p *ParamBuilder) CopyTo() *ParamBuilder {
	p.Spec.DoCopyTo = true
	return p
}

// CopyBack sets device→host copy after kernel execution
func (p *ParamBuilder) CopyBack() *ParamBuilder {
	p.Spec.DoCopyBack = true
	return p
}

// Type sets explicit type, temp arrays default to real_t
func (p *ParamBuilder) Type(dataType DataType) *ParamBuilder {
	p.Spec.DataType = dataType
	return p
}

// Size sets explicit size in elements (mainly for Temp arrays)
func (p *ParamBuilder) Size(elements int) *ParamBuilder {
	p.Spec.Size = int64(elements)
	return p
}

// ToMatrix marks this parameter as a matrix, enabling MATVEC macro generation
func (p *ParamBuilder) ToMatrix() *ParamBuilder {
	p.Spec.IsMatrix = true
	if m, ok := p.Spec.HostBinding.(mat.Matrix); ok {
		p.Spec.MatrixRows, p.Spec.MatrixCols = m.Dims()
	}
	return p
}

// Static marks a matrix for static embedding (const array in kernel)
func (p *ParamBuilder) Static() *ParamBuilder {
	p.Spec.IsStatic = true
	return p
}

func (p *ParamBuilder) Align(alignment AlignmentType) *ParamBuilder {
	p.Spec.Alignment = alignment
	return p
}

func (p *ParamBuilder) inferFromBinding() {
	if p.Spec.HostBinding == nil {
		return
	}
	if m, ok := p.Spec.HostBinding.(mat.Matrix); ok {
		rows, cols := m.Dims()
		p.Spec.Size = int64(rows * cols)
		p.Spec.DataType = Float64
		p.Spec.MatrixRows, p.Spec.MatrixCols = rows, cols
		return
	}

	v := reflect.ValueOf(p.Spec.HostBinding)
	t := v.Type()
	switch {
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Slice:
		p.Spec.IsPartitioned = true
		p.Spec.PartitionCount = v.Len()
		p.Spec.Size = 0
		for i := 0; i < v.Len(); i++ {
			p.Spec.Size += int64(v.Index(i).Len())
		}
		p.Spec.DataType = dataTypeOf(t.Elem().Elem().Kind())
	case t.Kind() == reflect.Slice:
		p.Spec.Size = int64(v.Len())
		p.Spec.DataType = dataTypeOf(t.Elem().Kind())
	default:
		p.Spec.Size = 1
		p.Spec.DataType = dataTypeOf(t.Kind())
	}
}

func dataTypeOf(kind reflect.Kind) DataType {
	switch kind {
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Int32:
		return INT32
	case reflect.Int, reflect.Int64:
		return INT64
	}
	return 0
}

// Validate checks if the parameter specification is complete and valid
func (p *ParamSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if p.Direction == DirectionScalar {
		if p.DataType == 0 && p.HostBinding == nil {
			return fmt.Errorf("scalar %s needs type or binding", p.Name)
		}
		if p.IsMatrix {
			return fmt.Errorf("scalars cannot be matrices")
		}
		return nil
	}
	if p.Size == 0 {
		return fmt.Errorf("array %s needs size", p.Name)
	}
	if p.DataType == 0 && p.Direction != DirectionTemp {
		return fmt.Errorf("array %s needs type", p.Name)
	}
	if p.IsMatrix {
		if _, ok := p.HostBinding.(mat.Matrix); !ok {
			return fmt.Errorf("matrix %s must be bound to a mat.Matrix", p.Name)
		}
	}
	if p.Direction == DirectionTemp {
		if p.HostBinding != nil {
			return fmt.Errorf("temp array %s cannot have host binding", p.Name)
		}
		if p.DoCopyTo || p.DoCopyBack {
			return fmt.Errorf("temp array %s cannot have copy operations", p.Name)
		}
	}
	return nil
}

// IsConst returns whether this parameter should be const in the kernel signature
func (p *ParamSpec) IsConst() bool {
	return p.Direction == DirectionInput || p.Direction == DirectionScalar
}
