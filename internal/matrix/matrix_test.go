package matrix

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tempcycle/internal/trend"
)

func uniform(n int, c color.RGBA) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	m, err := New(&FakeWriter{}, 0)
	require.NoError(t, err)
	assert.Len(t, m.Frame(), DefaultPixels)

	_, err = New(nil, 4)
	assert.Error(t, err)
}

func TestDrawingIsBufferedUntilCommit(t *testing.T) {
	w := &FakeWriter{}
	m, err := New(w, 4)
	require.NoError(t, err)

	m.SetAll(trend.ColorAlert)
	assert.Empty(t, w.Frames)

	require.NoError(t, m.Commit())
	assert.Equal(t, uniform(4, trend.ColorAlert), w.Last())

	m.Clear()
	require.NoError(t, m.Commit())
	assert.Equal(t, uniform(4, color.RGBA{}), w.Last())
	assert.Len(t, w.Frames, 2)
}

func TestApplyTrend(t *testing.T) {
	w := &FakeWriter{}
	m, _ := New(w, 3)
	for _, tr := range []trend.Trend{trend.Rising, trend.Falling, trend.Stable, trend.Unknown} {
		m.ApplyTrend(tr)
		require.NoError(t, m.Commit())
		assert.Equal(t, uniform(3, trend.Color(tr)), w.Last(), tr.String())
	}
}

func TestSetPixel(t *testing.T) {
	m, _ := New(&FakeWriter{}, 2)
	red := color.RGBA{R: 255, A: 255}
	require.NoError(t, m.Set(1, red))
	assert.Equal(t, []color.RGBA{{}, red}, m.Frame())
	assert.Error(t, m.Set(2, red))
	assert.Error(t, m.Set(-1, red))
}

func TestCommitError(t *testing.T) {
	w := &FakeWriter{WriteError: errors.New("bus stuck")}
	m, _ := New(w, 1)
	err := m.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, w.WriteError)
}

func TestFrameIsCopy(t *testing.T) {
	m, _ := New(&FakeWriter{}, 1)
	f := m.Frame()
	f[0] = trend.ColorAlert
	assert.Equal(t, color.RGBA{}, m.Frame()[0])
}
