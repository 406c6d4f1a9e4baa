package builder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewBuilder(t *testing.T) {
	kb := NewBuilder(Config{K: []int{3, 5, 2}})
	assert.Equal(t, 3, kb.NumPartitions)
	assert.Equal(t, 5, kb.KpartMax)
	assert.Equal(t, 10, kb.GetTotalElements())
	assert.Equal(t, Float64, kb.FloatType)
	assert.Equal(t, 8, kb.GetIntSize())
	assert.Panics(t, func() { NewBuilder(Config{}) })
}

func TestCalculateAlignedOffsetsAndSize(t *testing.T) {
	kb := NewBuilder(Config{K: []int{3, 5}})
	tests := []struct {
		name      string
		alignment AlignmentType
		offsets   []int64
		size      int64
	}{
		{"unaligned", NoAlignment, []int64{0, 6, 16}, 128},
		{"cache line", CacheLineAlign, []int64{0, 8, 24}, 192},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// two values per element
			offsets, size := kb.CalculateAlignedOffsetsAndSize(ArraySpec{
				Name: "U", Size: 16 * 8, DataType: Float64, Alignment: tc.alignment,
			})
			assert.Equal(t, tc.offsets, offsets)
			assert.Equal(t, tc.size, size)
		})
	}
}

func TestGeneratePreamble(t *testing.T) {
	kb := NewBuilder(Config{K: []int{4, 4}, IntType: INT32})
	kb.AddStaticMatrix("P", mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	kb.AddDeviceMatrix("D", mat.NewDense(2, 2, nil))
	kb.AddDefine("NP", 8)
	kb.AddDefine("HEALING", false)
	kb.AddDefine("U0", 1e-13)
	kb.AllocatedArrays = []string{"Mu"}

	pre := kb.GeneratePreamble()
	for _, want := range []string{
		"typedef double real_t;",
		"typedef int int_t;",
		"#define NPART 2",
		"#define KpartMax 4",
		"#define NP 8",
		"#define HEALING 0",
		"#define U0 1.000000000000000e-13",
		"const double P[3][2] = {",
		"{1.000000000000000e+00, 4.000000000000000e+00}",
		"#define Mu_PART(part) (Mu_global + Mu_offsets[part])",
		"#define MATVEC_P(IN, OUT)",
		"sum += P[j][i] * (IN)[j];",
		"#define MATVEC_D(IN, OUT)",
		"sum += D[j * 2 + i] * (IN)[j];",
	} {
		assert.Contains(t, pre, want)
	}
	assert.Less(t, strings.Index(pre, "#define HEALING"), strings.Index(pre, "#define NP "))
}

func TestParamSpec(t *testing.T) {
	p := Input("Q").Bind([][]float64{{1, 2}, {3}}).CopyTo()
	require.NoError(t, p.Spec.Validate())
	assert.True(t, p.Spec.IsPartitioned)
	assert.Equal(t, 2, p.Spec.PartitionCount)
	assert.EqualValues(t, 3, p.Spec.Size)
	assert.Equal(t, Float64, p.Spec.DataType)
	assert.True(t, p.Spec.IsConst())

	m := Input("M").Bind(mat.NewDense(2, 3, nil)).ToMatrix().Static()
	require.NoError(t, m.Spec.Validate())
	assert.Equal(t, 2, m.Spec.MatrixRows)
	assert.Equal(t, 3, m.Spec.MatrixCols)

	s := Scalar("dt").Type(Float64)
	require.NoError(t, s.Spec.Validate())

	assert.Error(t, Temp("T").Bind([]float64{1}).Spec.Validate())
	assert.Error(t, Temp("T").Size(4).Type(Float64).CopyTo().Spec.Validate())
	assert.Error(t, Output("").Spec.Validate())
	assert.Error(t, Input("X").Bind([]float64{1}).ToMatrix().Spec.Validate())
	assert.False(t, InOut("Y").Spec.IsConst())
}
