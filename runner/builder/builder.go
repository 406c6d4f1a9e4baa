// Package builder generates the OCCA preamble shared by partition-parallel
// kernels: type definitions, defines, embedded matrices and partition
// access macros.
package builder

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

// AlignmentType specifies memory alignment requirements
type AlignmentType int

const (
	NoAlignment    AlignmentType = 1
	CacheLineAlign AlignmentType = 64
	WarpAlign      AlignmentType = 128
	PageAlign      AlignmentType = 4096
)

// ArraySpec defines user requirements for array allocation
type ArraySpec struct {
	Name      string
	Size      int64 // bytes
	Alignment AlignmentType
	DataType  DataType
	IsOutput  bool
}

// Builder manages code generation for partition-parallel kernels
type Builder struct {
	// Partition configuration
	NumPartitions int
	K             []int
	KpartMax      int // Maximum K value across all partitions

	// Type configuration
	FloatType DataType
	IntType   DataType

	// Static data to embed
	StaticMatrices map[string]mat.Matrix

	// Matrices allocated in device global memory
	DeviceMatrices map[string]mat.Matrix

	// Compile time constants, emitted as #define
	Defines map[string]string

	// Array tracking for macro generation
	AllocatedArrays []string

	// Generated code
	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	K         []int
	FloatType DataType
	IntType   DataType
}

func NewBuilder(cfg Config) *Builder {
	if len(cfg.K) == 0 {
		panic("K array cannot be empty")
	}
	kpartMax := 0
	for _, k := range cfg.K {
		kpartMax = max(kpartMax, k)
	}
	floatType := cfg.FloatType
	if floatType == 0 {
		floatType = Float64
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	kb := &Builder{
		NumPartitions:  len(cfg.K),
		K:              make([]int, len(cfg.K)),
		KpartMax:       kpartMax,
		FloatType:      floatType,
		IntType:        intType,
		StaticMatrices: make(map[string]mat.Matrix),
		DeviceMatrices: make(map[string]mat.Matrix),
		Defines:        make(map[string]string),
	}
	copy(kb.K, cfg.K)
	return kb
}

// AddStaticMatrix adds a matrix to be embedded as static const in kernels
func (kb *Builder) AddStaticMatrix(name string, m mat.Matrix) {
	kb.StaticMatrices[name] = m
}

// AddDeviceMatrix adds a matrix to be allocated in device global memory
func (kb *Builder) AddDeviceMatrix(name string, m mat.Matrix) {
	kb.DeviceMatrices[name] = m
}

// AddDefine adds a preprocessor constant to the preamble
func (kb *Builder) AddDefine(name string, value any) {
	switch v := value.(type) {
	case float64:
		kb.Defines[name] = kb.formatReal(v)
	case bool:
		if v {
			kb.Defines[name] = "1"
		} else {
			kb.Defines[name] = "0"
		}
	default:
		kb.Defines[name] = fmt.Sprint(v)
	}
}

// GetTotalElements returns sum of all K values
func (kb *Builder) GetTotalElements() int {
	total := 0
	for _, k := range kb.K {
		total += k
	}
	return total
}

// GetIntSize returns the size of the integer type in bytes
func (kb *Builder) GetIntSize() int {
	if kb.IntType == INT32 {
		return 4
	}
	return 8
}

// CalculateAlignedOffsetsAndSize computes partition offsets with alignment.
// Offsets are in values so that ptr + offset addresses a partition.
func (kb *Builder) CalculateAlignedOffsetsAndSize(spec ArraySpec) ([]int64, int64) {
	offsets := make([]int64, kb.NumPartitions+1)
	valueSize := int64(8)
	if spec.DataType == Float32 || spec.DataType == INT32 {
		valueSize = 4
	}
	valuesPerElement := spec.Size / int64(kb.GetTotalElements()) / valueSize

	alignment := int64(spec.Alignment)
	if alignment == 0 {
		alignment = int64(NoAlignment)
	}
	align := func(b int64) int64 { return ((b + alignment - 1) / alignment) * alignment }

	currentByteOffset := int64(0)
	for i := 0; i < kb.NumPartitions; i++ {
		currentByteOffset = align(currentByteOffset)
		offsets[i] = currentByteOffset / valueSize
		currentByteOffset += int64(kb.K[i]) * valuesPerElement * valueSize
	}
	offsets[kb.NumPartitions] = align(currentByteOffset) / valueSize
	return offsets, offsets[kb.NumPartitions] * valueSize
}

// GeneratePreamble generates the kernel preamble with static data and utilities
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder
	sb.WriteString(kb.generateTypeDefinitions())
	sb.WriteString(kb.generateDefines())
	sb.WriteString(kb.generateStaticMatrices())
	sb.WriteString(kb.generatePartitionMacros())
	sb.WriteString(kb.generateMatrixMacros())
	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder
	floatTypeStr, floatSuffix := "double", ""
	if kb.FloatType == Float32 {
		floatTypeStr, floatSuffix = "float", "f"
	}
	intTypeStr := "long"
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}
	fmt.Fprintf(&sb, "typedef %s real_t;\n", floatTypeStr)
	fmt.Fprintf(&sb, "typedef %s int_t;\n", intTypeStr)
	fmt.Fprintf(&sb, "#define REAL_ZERO 0.0%s\n", floatSuffix)
	fmt.Fprintf(&sb, "#define REAL_ONE 1.0%s\n\n", floatSuffix)
	fmt.Fprintf(&sb, "#define NPART %d\n", kb.NumPartitions)
	fmt.Fprintf(&sb, "#define KpartMax %d\n\n", kb.KpartMax)
	return sb.String()
}

func (kb *Builder) generateDefines() string {
	if len(kb.Defines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, name := range sortedKeys(kb.Defines) {
		fmt.Fprintf(&sb, "#define %s %s\n", name, kb.Defines[name])
	}
	sb.WriteString("\n")
	return sb.String()
}

func (kb *Builder) generateStaticMatrices() string {
	if len(kb.StaticMatrices) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("// Static matrices\n")
	for _, name := range sortedKeys(kb.StaticMatrices) {
		if _, isDevice := kb.DeviceMatrices[name]; !isDevice {
			sb.WriteString(kb.formatStaticMatrix(name, kb.StaticMatrices[name]))
		}
	}
	return sb.String()
}

// formatStaticMatrix writes m transposed, as [cols][rows], so the first C
// index walks down a column
func (kb *Builder) formatStaticMatrix(name string, m mat.Matrix) string {
	rows, cols := m.Dims()
	var sb strings.Builder
	typeStr := "double"
	if kb.FloatType == Float32 {
		typeStr = "float"
	}
	fmt.Fprintf(&sb, "// Matrix %s stored in column-major format\n", name)
	fmt.Fprintf(&sb, "const %s %s[%d][%d] = {\n", typeStr, name, cols, rows)
	for j := 0; j < cols; j++ {
		sb.WriteString("    {")
		for i := 0; i < rows; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(kb.formatReal(m.At(i, j)))
		}
		sb.WriteString("}")
		if j < cols-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n\n")
	return sb.String()
}

func (kb *Builder) formatReal(v float64) string {
	if kb.FloatType == Float32 {
		return fmt.Sprintf("%.7ef", v)
	}
	return fmt.Sprintf("%.15e", v)
}

func (kb *Builder) generatePartitionMacros() string {
	if len(kb.AllocatedArrays) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("// Partition access macros\n")
	for _, arrayName := range kb.AllocatedArrays {
		fmt.Fprintf(&sb, "#define %s_PART(part) (%s_global + %s_offsets[part])\n",
			arrayName, arrayName, arrayName)
	}
	sb.WriteString("\n")
	return sb.String()
}

// generateMatrixMacros emits MATVEC_<name>(IN, OUT), a sequential
// matrix-vector product usable inside an @inner loop
func (kb *Builder) generateMatrixMacros() string {
	var sb strings.Builder
	for _, name := range sortedKeys(kb.StaticMatrices) {
		if _, isDevice := kb.DeviceMatrices[name]; isDevice {
			continue
		}
		rows, cols := kb.StaticMatrices[name].Dims()
		sb.WriteString(matvecMacro(name, rows, cols, "%s[j][i]"))
	}
	for _, name := range sortedKeys(kb.DeviceMatrices) {
		rows, cols := kb.DeviceMatrices[name].Dims()
		sb.WriteString(matvecMacro(name, rows, cols, fmt.Sprintf("%%s[j * %d + i]", rows)))
	}
	return sb.String()
}

func matvecMacro(name string, rows, cols int, access string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// MATVEC macro for %s (column-major storage)\n", name)
	fmt.Fprintf(&sb, "#define MATVEC_%s(IN, OUT) \\\n", name)
	sb.WriteString("    do { \\\n")
	fmt.Fprintf(&sb, "        for (int i = 0; i < %d; ++i) { \\\n", rows)
	sb.WriteString("            real_t sum = REAL_ZERO; \\\n")
	fmt.Fprintf(&sb, "            for (int j = 0; j < %d; ++j) { \\\n", cols)
	fmt.Fprintf(&sb, "                sum += "+access+" * (IN)[j]; \\\n", name)
	sb.WriteString("            } \\\n")
	sb.WriteString("            (OUT)[i] = sum; \\\n")
	sb.WriteString("        } \\\n")
	sb.WriteString("    } while(0)\n\n")
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
