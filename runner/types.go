package runner

import (
	"github.com/notargets/DGRupture/runner/builder"
)

// SizeOfType returns the size in bytes of a data type
func SizeOfType(dt builder.DataType) int64 {
	switch dt {
	case builder.Float32, builder.INT32:
		return 4
	default:
		return 8
	}
}

func isReal(dt builder.DataType) bool {
	return dt == builder.Float32 || dt == builder.Float64
}
