package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, NoSpecialization, p.Specialization)
	assert.False(t, p.InstantaneousHealing)
}

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "tpv_bimaterial.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.ConvergenceOrder)
	assert.Equal(t, BiMaterial, p.Specialization)
	assert.Equal(t, 0.1, p.PrakashLength)
	assert.Equal(t, 1.0, p.VStar)
	assert.False(t, p.IsDsOutputOn)
	// defaults survive for unset keys
	assert.True(t, p.IsRfOutputOn)
	assert.Equal(t, RoundRobinPartition, p.PartitionStrategy)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown specialization", "specialization: rate-and-state\n"},
		{"order too high", "convergence_order: 9\n"},
		{"order zero", "convergence_order: 0\n"},
		{"negative t0", "t0: -1\n"},
		{"bimaterial without length", "specialization: bimaterial\n"},
		{"zero partition size", "faces_per_partition: 0\n"},
		{"unknown strategy", "partition_strategy: metis\n"},
		{"poroelastic on device", "poroelastic: true\ndevice: '{\"mode\": \"Serial\"}'\n"},
		{"malformed", "convergence_order: [1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseForcedRuptureTime(t *testing.T) {
	p, err := Parse([]byte("specialization: forced-rupture-time\nt0: 0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, ForcedRuptureTime, p.Specialization)
	assert.Equal(t, 0.5, p.T0)
}

func TestLoadFromTempDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("convergence_order: 2\nmax_concurrency: 2\n"), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ConvergenceOrder)
	assert.Equal(t, 2, p.MaxConcurrency)
}
