package partitions

import (
	"fmt"
)

// Partition is a group of fault faces evaluated together, by one goroutine
// on the host or one @outer iteration on a device
type Partition struct {
	ID int

	Faces    []int // Global face indices in this partition
	NumFaces int   // Actual number of faces
	MaxFaces int   // Padded size for OCCA @inner loop uniformity
}

// FaceLayout is the decomposition of a fault into partitions
type FaceLayout struct {
	Partitions []Partition

	KpartMax      int // max(NumFaces) across all partitions for OCCA
	TotalFaces    int
	NumPartitions int

	// Face to partition mapping: face f belongs to partition FToP[f]
	FToP []int
}

// K returns the number of faces of every partition
func (layout *FaceLayout) K() []int {
	k := make([]int, layout.NumPartitions)
	for i, p := range layout.Partitions {
		k[i] = p.NumFaces
	}
	return k
}

// IsContiguous reports whether every partition holds a consecutive run of
// faces in partition order, which lets per-face arrays be split in place
func (layout *FaceLayout) IsContiguous() bool {
	next := 0
	for _, p := range layout.Partitions {
		for _, f := range p.Faces {
			if f != next {
				return false
			}
			next++
		}
	}
	return true
}

// ValidateLayout checks that every face appears in exactly one partition
func (layout *FaceLayout) ValidateLayout() error {
	if layout.NumPartitions != len(layout.Partitions) {
		return fmt.Errorf("NumPartitions %d != len(Partitions) %d",
			layout.NumPartitions, len(layout.Partitions))
	}
	seen := make([]bool, layout.TotalFaces)
	total := 0
	for _, p := range layout.Partitions {
		if p.NumFaces != len(p.Faces) {
			return fmt.Errorf("partition %d: NumFaces %d != len(Faces) %d",
				p.ID, p.NumFaces, len(p.Faces))
		}
		if p.NumFaces > layout.KpartMax {
			return fmt.Errorf("partition %d exceeds KpartMax %d", p.ID, layout.KpartMax)
		}
		for _, f := range p.Faces {
			if f < 0 || f >= layout.TotalFaces {
				return fmt.Errorf("partition %d: face %d out of range", p.ID, f)
			}
			if seen[f] {
				return fmt.Errorf("face %d assigned twice", f)
			}
			if layout.FToP[f] != p.ID {
				return fmt.Errorf("face %d: FToP %d but found in partition %d", f, layout.FToP[f], p.ID)
			}
			seen[f] = true
		}
		total += p.NumFaces
	}
	if total != layout.TotalFaces {
		return fmt.Errorf("partitions hold %d faces, want %d", total, layout.TotalFaces)
	}
	return nil
}
