// Package runner compiles and executes partition-parallel OCCA kernels
// over host data bound once with DefineBindings.
package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/DGRupture/runner/builder"
	"github.com/notargets/gocca"
	"gonum.org/v1/gonum/mat"
)

// Runner orchestrates kernel compilation and execution with flexible parameter handling
type Runner struct {
	*builder.Builder
	Device        *gocca.OCCADevice
	Kernels       map[string]*gocca.OCCAKernel
	PooledMemory  map[string]*gocca.OCCAMemory
	Bindings      map[string]*DeviceBinding
	KernelConfigs map[string]*KernelConfig
	IsAllocated   bool

	hostOffsets map[string][]int64
}

func NewRunner(device *gocca.OCCADevice, cfg builder.Config) *Runner {
	bld := builder.NewBuilder(cfg)
	if bld.KpartMax > 1048576 { // 2^20 elements
		panic(fmt.Sprintf("KpartMax exceeds 2^20 (1048576), usually caused by unbalanced workloads.\n"+
			"Found KpartMax=%d, K values: %v", bld.KpartMax, bld.K))
	}
	kr := &Runner{
		Builder:       bld,
		Device:        device,
		Kernels:       make(map[string]*gocca.OCCAKernel),
		PooledMemory:  make(map[string]*gocca.OCCAMemory),
		Bindings:      make(map[string]*DeviceBinding),
		KernelConfigs: make(map[string]*KernelConfig),
		hostOffsets:   make(map[string][]int64),
	}
	k := make([]int64, len(bld.K))
	for i, v := range bld.K {
		k[i] = int64(v)
	}
	kr.PooledMemory["K"] = kr.mallocInts(k)
	return kr
}

// BuildKernel compiles kernelSource behind the generated preamble and
// registers it under kernelName
func (kr *Runner) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	fullSource := kr.GeneratePreamble() + "\n" + kernelSource

	var (
		kernel *gocca.OCCAKernel
		err    error
	)
	if kr.Device.Mode() == "OpenMP" {
		// OpenMP does not get -O3 by default
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kernelName, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}
	kr.Kernels[kernelName] = kernel
	return kernel, nil
}

// GetMemory returns the device memory for a named array or device matrix
func (kr *Runner) GetMemory(name string) *gocca.OCCAMemory {
	if mem, exists := kr.PooledMemory[name+"_global"]; exists {
		return mem
	}
	return kr.PooledMemory[name]
}

// GetOffsets returns the host copy of the partition offsets of an array
func (kr *Runner) GetOffsets(name string) []int64 {
	return kr.hostOffsets[name]
}

// Free releases all kernels and device memory
func (kr *Runner) Free() {
	for _, kernel := range kr.Kernels {
		kernel.Free()
	}
	for _, mem := range kr.PooledMemory {
		mem.Free()
	}
	kr.Kernels = make(map[string]*gocca.OCCAKernel)
	kr.PooledMemory = make(map[string]*gocca.OCCAMemory)
}

func (kr *Runner) allocateArray(binding *DeviceBinding) error {
	spec := builder.ArraySpec{
		Name:      binding.Name,
		Size:      binding.Size * SizeOfType(kr.FloatType),
		DataType:  kr.FloatType,
		Alignment: binding.Alignment,
		IsOutput:  binding.IsOutput,
	}
	offsets, totalSize := kr.CalculateAlignedOffsetsAndSize(spec)
	if totalSize == 0 {
		return fmt.Errorf("array %s has zero size", binding.Name)
	}
	kr.PooledMemory[spec.Name+"_global"] = kr.Device.Malloc(totalSize, nil, nil)
	kr.PooledMemory[spec.Name+"_offsets"] = kr.mallocInts(offsets)
	kr.hostOffsets[spec.Name] = offsets
	kr.AllocatedArrays = append(kr.AllocatedArrays, spec.Name)
	return nil
}

func (kr *Runner) allocateDeviceMatrix(binding *DeviceBinding) error {
	m := binding.HostBinding.(mat.Matrix)
	kr.AddDeviceMatrix(binding.Name, m)
	rows, cols := m.Dims()
	kr.PooledMemory[binding.Name] = kr.Device.Malloc(int64(rows*cols)*SizeOfType(kr.FloatType), nil, nil)
	return kr.writeReals(kr.PooledMemory[binding.Name], columnMajor(m), 0)
}

// mallocInts allocates and fills an int_t array
func (kr *Runner) mallocInts(values []int64) *gocca.OCCAMemory {
	if kr.IntType == builder.INT32 {
		v32 := make([]int32, len(values))
		for i, v := range values {
			v32[i] = int32(v)
		}
		return kr.Device.Malloc(int64(len(v32)*4), unsafe.Pointer(&v32[0]), nil)
	}
	return kr.Device.Malloc(int64(len(values)*8), unsafe.Pointer(&values[0]), nil)
}

func columnMajor(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	data := make([]float64, rows*cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			data[j*rows+i] = m.At(i, j)
		}
	}
	return data
}
