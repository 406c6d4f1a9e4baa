package partitions

import (
	"fmt"
	"math"
)

// PartitionStrategy defines how faces are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive faces
	RoundRobin                              // Distribute cyclically
)

// ParseStrategy maps a configuration name to a strategy
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch name {
	case "block", "":
		return BlockPartition, nil
	case "round-robin":
		return RoundRobin, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

func (s PartitionStrategy) String() string {
	if s == RoundRobin {
		return "round-robin"
	}
	return "block"
}

// BuildFacePartitions splits numFaces faces into partitions of about
// targetSize faces
func BuildFacePartitions(numFaces, targetSize int, strategy PartitionStrategy) (*FaceLayout, error) {
	if numFaces < 1 {
		return nil, fmt.Errorf("cannot partition %d faces", numFaces)
	}
	if targetSize < 1 {
		return nil, fmt.Errorf("target partition size must be positive, got %d", targetSize)
	}
	numPartitions := int(math.Ceil(float64(numFaces) / float64(targetSize)))

	fToP := make([]int, numFaces)
	switch strategy {
	case RoundRobin:
		for f := range fToP {
			fToP[f] = f % numPartitions
		}
	default:
		facesPerPartition := int(math.Ceil(float64(numFaces) / float64(numPartitions)))
		for f := range fToP {
			fToP[f] = min(f/facesPerPartition, numPartitions-1)
		}
	}

	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i].ID = i
	}
	for f, p := range fToP {
		partitions[p].Faces = append(partitions[p].Faces, f)
		partitions[p].NumFaces++
	}
	kpartMax := 0
	for _, p := range partitions {
		kpartMax = max(kpartMax, p.NumFaces)
	}
	for i := range partitions {
		partitions[i].MaxFaces = kpartMax
	}

	layout := &FaceLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalFaces:    numFaces,
		NumPartitions: numPartitions,
		FToP:          fToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// PartitionStatistics computes load balance metrics
func (layout *FaceLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: layout.NumPartitions,
		MinFaces:      math.MaxInt32,
		AvgFaces:      float64(layout.TotalFaces) / float64(layout.NumPartitions),
	}
	for _, p := range layout.Partitions {
		stats.MinFaces = min(stats.MinFaces, p.NumFaces)
		stats.MaxFaces = max(stats.MaxFaces, p.NumFaces)
	}
	stats.Imbalance = float64(stats.MaxFaces) / stats.AvgFaces
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinFaces      int
	MaxFaces      int
	AvgFaces      float64
	Imbalance     float64 // MaxFaces / AvgFaces
}
