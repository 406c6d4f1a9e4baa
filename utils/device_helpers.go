package utils

import (
	"fmt"

	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// TestBackends are tried in order by CreateTestDevice
var TestBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// NewDevice creates a device from OCCA JSON properties
func NewDevice(props string, logger *zap.Logger) (*gocca.OCCADevice, error) {
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("creating device %s: %w", props, err)
	}
	if logger != nil {
		logger.Info("created device", zap.String("mode", device.Mode()))
	}
	return device, nil
}

// CreateTestDevice creates a Device for testing, preferring parallel backends
func CreateTestDevice() *gocca.OCCADevice {
	for _, props := range TestBackends {
		if device, err := NewDevice(props, nil); err == nil {
			return device
		}
	}
	panic("Failed to create any Device")
}
