package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAveragerMean(t *testing.T) {
	src := NewFakeSource(20, 22, 24, 26)
	a := NewAverager(src, 4)

	v, err := a.Average()
	require.NoError(t, err)
	assert.InDelta(t, 23.0, v, 1e-9)
	assert.Equal(t, 4, src.Reads)
}

func TestAveragerDefaultSamples(t *testing.T) {
	a := NewAverager(NewFakeSource(1), 0)
	assert.Equal(t, DefaultSamples, a.Samples())
}

func TestAveragerFailsOnReadError(t *testing.T) {
	src := NewFakeSource(20)
	src.ReadError = errors.New("adc busy")
	a := NewAverager(src, 3)

	_, err := a.Average()
	require.Error(t, err)
	assert.ErrorIs(t, err, src.ReadError)
	assert.Equal(t, 1, src.Reads, "stops at the first failed read")
}

func TestAveragerNoSource(t *testing.T) {
	_, err := NewAverager(nil, 2).Average()
	assert.Error(t, err)
}

func TestFakeSourceRepeatsLast(t *testing.T) {
	src := NewFakeSource(1, 2)
	for _, want := range []float64{1, 2, 2, 2} {
		v, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	src.Reset()
	v, _ := src.Read()
	assert.Equal(t, 1.0, v)
}

func TestFakeSourceNoValues(t *testing.T) {
	_, err := NewFakeSource().Read()
	assert.Error(t, err)
}

func TestFakeSampler(t *testing.T) {
	s := NewFakeSampler(0.8, 1.0)
	v, err := s.Average()
	require.NoError(t, err)
	assert.Equal(t, 0.8, v)
	v, _ = s.Average()
	assert.Equal(t, 1.0, v)
}

func TestSimulatedFollowsSine(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s := NewSimulated(25, 2, 4*time.Second, 0, func() time.Time { return now })

	v, err := s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v, 1e-9)

	now = start.Add(time.Second) // quarter period: peak
	v, _ = s.Read()
	assert.InDelta(t, 27.0, v, 1e-9)

	now = start.Add(3 * time.Second) // three quarters: trough
	v, _ = s.Read()
	assert.InDelta(t, 23.0, v, 1e-9)
}

func TestSimulatedNoiseBounded(t *testing.T) {
	s := NewSimulated(25, 0, time.Minute, 0.5, nil)
	for i := 0; i < 100; i++ {
		v, err := s.Read()
		require.NoError(t, err)
		assert.InDelta(t, 25.0, v, 0.5)
	}
}

func TestThermalZone(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("thermal zones require Linux")
	}
	path := filepath.Join(t.TempDir(), "temp")
	require.NoError(t, os.WriteFile(path, []byte("48312\n"), 0o644))

	tz, err := NewThermalZone(path)
	require.NoError(t, err)
	v, err := tz.Read()
	require.NoError(t, err)
	assert.InDelta(t, 48.312, v, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = tz.Read()
	assert.Error(t, err)
}

func TestThermalZoneMissing(t *testing.T) {
	_, err := NewThermalZone(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
