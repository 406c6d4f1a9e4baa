package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/DGRupture/runner/builder"
	"github.com/notargets/gocca"
)

// executeCopyActions performs the given direction for every usage that
// requests it
func (kr *Runner) executeCopyActions(usages []ParameterUsage, direction ActionFlags) error {
	for _, usage := range usages {
		if !usage.HasAction(direction) {
			continue
		}
		var err error
		if direction == CopyTo {
			err = kr.copyToDevice(usage.Binding)
		} else {
			err = kr.copyFromDevice(usage.Binding)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CopyToDevice copies a single binding from host to device
func (kr *Runner) CopyToDevice(name string) error {
	binding := kr.GetBinding(name)
	if binding == nil {
		return fmt.Errorf("binding %s not found", name)
	}
	return kr.copyToDevice(binding)
}

// CopyFromDevice copies a single binding from device to host
func (kr *Runner) CopyFromDevice(name string) error {
	binding := kr.GetBinding(name)
	if binding == nil {
		return fmt.Errorf("binding %s not found", name)
	}
	return kr.copyFromDevice(binding)
}

func (kr *Runner) copyToDevice(binding *DeviceBinding) error {
	if binding.IsScalar || binding.IsTemp || binding.IsStatic {
		return nil
	}
	mem := kr.GetMemory(binding.Name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", binding.Name)
	}
	if binding.IsMatrix {
		return kr.writeReals(mem, columnMajor(kr.DeviceMatrices[binding.Name]), 0)
	}
	offsets := kr.hostOffsets[binding.Name]
	switch data := binding.HostBinding.(type) {
	case [][]float64:
		for i, part := range data {
			if err := kr.writeReals(mem, part, offsets[i]); err != nil {
				return fmt.Errorf("%s partition %d: %w", binding.Name, i, err)
			}
		}
	case []float64:
		return kr.writeReals(mem, data, offsets[0])
	default:
		return fmt.Errorf("unsupported host type %T for %s", data, binding.Name)
	}
	return nil
}

func (kr *Runner) copyFromDevice(binding *DeviceBinding) error {
	if binding.IsScalar || binding.IsTemp || binding.IsStatic {
		return nil
	}
	if binding.IsMatrix {
		return fmt.Errorf("device matrix %s is read-only", binding.Name)
	}
	mem := kr.GetMemory(binding.Name)
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", binding.Name)
	}
	offsets := kr.hostOffsets[binding.Name]
	switch data := binding.HostBinding.(type) {
	case [][]float64:
		for i, part := range data {
			kr.readReals(mem, part, offsets[i])
		}
	case []float64:
		kr.readReals(mem, data, offsets[0])
	default:
		return fmt.Errorf("unsupported host type %T for %s", data, binding.Name)
	}
	return nil
}

// writeReals stores data at valueOffset in the device real_t type
func (kr *Runner) writeReals(mem *gocca.OCCAMemory, data []float64, valueOffset int64) error {
	if len(data) == 0 {
		return nil
	}
	switch kr.FloatType {
	case builder.Float32:
		conv := make([]float32, len(data))
		for i, v := range data {
			conv[i] = float32(v)
		}
		mem.CopyFromWithOffset(unsafe.Pointer(&conv[0]), int64(len(conv)*4), valueOffset*4)
	case builder.Float64:
		mem.CopyFromWithOffset(unsafe.Pointer(&data[0]), int64(len(data)*8), valueOffset*8)
	default:
		return fmt.Errorf("unsupported real type %d", kr.FloatType)
	}
	return nil
}

func (kr *Runner) readReals(mem *gocca.OCCAMemory, data []float64, valueOffset int64) {
	if len(data) == 0 {
		return
	}
	if kr.FloatType == builder.Float32 {
		conv := make([]float32, len(data))
		mem.CopyToWithOffset(unsafe.Pointer(&conv[0]), int64(len(conv)*4), valueOffset*4)
		for i, v := range conv {
			data[i] = float64(v)
		}
		return
	}
	mem.CopyToWithOffset(unsafe.Pointer(&data[0]), int64(len(data)*8), valueOffset*8)
}
