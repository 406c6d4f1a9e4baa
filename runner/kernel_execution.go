package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/DGRupture/runner/builder"
)

// KernelArgument represents a single kernel argument with metadata
type KernelArgument struct {
	Name      string
	Type      string // "int_t*", "real_t*", "real_t", "int_t"
	MemoryKey string // Key in PooledMemory, empty for scalars
	IsConst   bool
	Category  string // "system", "matrix", "array_data", "array_offset", "scalar"
}

// ExecuteKernel copies CopyTo parameters to the device, runs the kernel and
// copies CopyBack parameters to the host. scalarValues fill the unbound
// scalars in configuration order.
func (kr *Runner) ExecuteKernel(name string, scalarValues ...interface{}) error {
	config, exists := kr.KernelConfigs[name]
	if !exists {
		return fmt.Errorf("kernel %s not configured - use ConfigureKernel first", name)
	}
	kernel, exists := kr.Kernels[name]
	if !exists {
		return fmt.Errorf("kernel %s not compiled - use BuildKernel first", name)
	}

	if err := kr.executeCopyActions(config.Parameters, CopyTo); err != nil {
		return fmt.Errorf("pre-kernel copy failed: %w", err)
	}
	args, err := kr.buildKernelArguments(config, scalarValues)
	if err != nil {
		return fmt.Errorf("failed to build arguments: %w", err)
	}
	if err = kernel.RunWithArgs(args...); err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}
	kr.Device.Finish()

	if err = kr.executeCopyActions(config.Parameters, CopyBack); err != nil {
		return fmt.Errorf("post-kernel copy failed: %w", err)
	}
	return nil
}

func (kr *Runner) buildKernelArguments(config *KernelConfig, scalarValues []interface{}) ([]interface{}, error) {
	kernelArgs := kr.GetKernelArgumentsForConfig(config)
	args := make([]interface{}, 0, len(kernelArgs))
	next := 0
	for _, karg := range kernelArgs {
		if karg.Category != "scalar" {
			mem, exists := kr.PooledMemory[karg.MemoryKey]
			if !exists {
				return nil, fmt.Errorf("memory for %s not found", karg.MemoryKey)
			}
			args = append(args, mem)
			continue
		}
		binding := kr.Bindings[karg.Name]
		value := binding.HostBinding
		if value == nil {
			if next >= len(scalarValues) {
				return nil, fmt.Errorf("scalar %s not provided", karg.Name)
			}
			value = scalarValues[next]
			next++
		}
		v, err := kr.scalarArgument(karg.Name, value)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if next != len(scalarValues) {
		return nil, fmt.Errorf("kernel %s takes %d runtime scalars, got %d",
			config.Name, next, len(scalarValues))
	}
	return args, nil
}

// scalarArgument converts a scalar to the device real_t or int_t
func (kr *Runner) scalarArgument(name string, value interface{}) (interface{}, error) {
	var (
		f     float64
		i     int64
		isInt bool
	)
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		i, isInt = int64(v), true
	case int32:
		i, isInt = int64(v), true
	case int64:
		i, isInt = v, true
	default:
		return nil, fmt.Errorf("scalar %s has unsupported type %T", name, value)
	}
	switch {
	case isInt && kr.IntType == builder.INT32:
		return int32(i), nil
	case isInt:
		return i, nil
	case kr.FloatType == builder.Float32:
		return float32(f), nil
	}
	return f, nil
}

// GetKernelArgumentsForConfig returns kernel arguments in call order: K,
// device matrices sorted by name, array pointer and offset pairs, scalars
func (kr *Runner) GetKernelArgumentsForConfig(config *KernelConfig) []KernelArgument {
	args := []KernelArgument{{
		Name: "K", Type: "int_t*", MemoryKey: "K", IsConst: true, Category: "system",
	}}

	var matrices []string
	for _, usage := range config.Parameters {
		if usage.Binding.IsMatrix && !usage.Binding.IsStatic {
			matrices = append(matrices, usage.Binding.Name)
		}
	}
	sort.Strings(matrices)
	for _, name := range matrices {
		args = append(args, KernelArgument{
			Name: name, Type: "real_t*", MemoryKey: name, IsConst: true, Category: "matrix",
		})
	}

	for _, usage := range config.Parameters {
		b := usage.Binding
		if b.IsScalar || b.IsMatrix {
			continue
		}
		args = append(args,
			KernelArgument{
				Name: b.Name + "_global", Type: "real_t*", MemoryKey: b.Name + "_global",
				IsConst: !b.IsOutput, Category: "array_data",
			},
			KernelArgument{
				Name: b.Name + "_offsets", Type: "int_t*", MemoryKey: b.Name + "_offsets",
				IsConst: true, Category: "array_offset",
			})
	}

	for _, usage := range config.Parameters {
		b := usage.Binding
		if !b.IsScalar {
			continue
		}
		typeStr := "real_t"
		if !isReal(b.DataType) {
			typeStr = "int_t"
		}
		args = append(args, KernelArgument{Name: b.Name, Type: typeStr, IsConst: true, Category: "scalar"})
	}
	return args
}

// GetKernelSignatureForConfig generates the parameter list of a configured kernel
func (kr *Runner) GetKernelSignatureForConfig(kernelName string) (string, error) {
	config, exists := kr.KernelConfigs[kernelName]
	if !exists {
		return "", fmt.Errorf("kernel %s not configured", kernelName)
	}
	args := kr.GetKernelArgumentsForConfig(config)
	params := make([]string, len(args))
	for i, karg := range args {
		constStr := ""
		if karg.IsConst {
			constStr = "const "
		}
		params[i] = fmt.Sprintf("%s%s %s", constStr, karg.Type, karg.Name)
	}
	return strings.Join(params, ",\n\t"), nil
}
