package sysinfo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	c := NewCollector()
	snap := c.Collect(context.Background())

	hostname, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, hostname, snap.Hostname)
	assert.NotEmpty(t, snap.Platform)
	assert.False(t, snap.CollectedAt.IsZero())
	assert.GreaterOrEqual(t, snap.MemPercent, 0.0)
	assert.LessOrEqual(t, snap.MemPercent, 100.0)
	assert.GreaterOrEqual(t, snap.DiskPercent, 0.0)
}

func TestReadThermalZone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte("42817\n"), 0o644))

	v, ok := readThermalZone(path)
	assert.True(t, ok)
	assert.Equal(t, 42.8, v)
}

func TestReadThermalZoneMissing(t *testing.T) {
	_, ok := readThermalZone(filepath.Join(t.TempDir(), "absent"))
	assert.False(t, ok)
}

func TestReadThermalZoneGarbled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte("not a number"), 0o644))

	_, ok := readThermalZone(path)
	assert.False(t, ok)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 42.8, round1(42.8171))
	assert.Equal(t, 0.0, round1(0))
	assert.Equal(t, 100.0, round1(99.96))
}
