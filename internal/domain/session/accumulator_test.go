package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
)

// halfSecond builds a 0.5s mono frame at 16kHz starting at ts.
func halfSecond(ts float64) audio.Frame {
	return audio.Frame{Timestamp: ts, PCM: make([]byte, 16000), SampleRate: 16000}
}

func TestAccumulator_FlushOnlyWhenWindowElapsedAndNonEmpty(t *testing.T) {
	acc := NewAccumulator(5.0)

	// Empty buffer never flushes, however much time passed.
	assert.False(t, acc.ShouldFlush(100.0))

	for ts := 0.0; ts < 5.0; ts += 0.5 {
		acc.Add(halfSecond(ts))
		assert.False(t, acc.ShouldFlush(ts), "no flush due at %.1f", ts)
	}

	acc.Add(halfSecond(5.0))
	assert.True(t, acc.ShouldFlush(5.0))
}

func TestAccumulator_DrainAdvancesWatermarkAndClears(t *testing.T) {
	acc := NewAccumulator(5.0)
	for ts := 0.0; ts < 5.5; ts += 0.5 {
		acc.Add(halfSecond(ts))
	}

	batch, ok := acc.Drain()
	require.True(t, ok)
	assert.Equal(t, 0.0, batch.Start)
	assert.Equal(t, 5.5, batch.End)
	assert.Equal(t, 16000, batch.SampleRate)
	assert.Len(t, batch.PCM, 11*16000)

	// Watermark sits at the end of the drained audio, not at the
	// chunk boundary, so the next window starts where this one ended.
	assert.Equal(t, 5.5, acc.Watermark())
	assert.Equal(t, 0, acc.Pending())

	_, ok = acc.Drain()
	assert.False(t, ok)
}

func TestAccumulator_NextWindowMeasuredFromWatermark(t *testing.T) {
	acc := NewAccumulator(5.0)
	for ts := 0.0; ts < 5.5; ts += 0.5 {
		acc.Add(halfSecond(ts))
	}
	_, ok := acc.Drain()
	require.True(t, ok)

	acc.Add(halfSecond(5.5))
	assert.False(t, acc.ShouldFlush(5.5))
	assert.False(t, acc.ShouldFlush(10.0))
	acc.Add(halfSecond(10.5))
	assert.True(t, acc.ShouldFlush(10.5))
}

func TestAccumulator_BatchDurationTracksSamples(t *testing.T) {
	acc := NewAccumulator(2.0)
	acc.Add(audio.Frame{Timestamp: 0, PCM: make([]byte, 6400), SampleRate: 16000})
	acc.Add(audio.Frame{Timestamp: 0.2, PCM: make([]byte, 6400), SampleRate: 16000})

	batch, ok := acc.Drain()
	require.True(t, ok)
	assert.InDelta(t, 0.4, batch.Duration(), 1e-9)
	assert.InDelta(t, 0.4, acc.Watermark(), 1e-9)
}
