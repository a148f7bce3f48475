package session

import (
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
)

// Accumulator buffers frames in arrival order and owns the flush
// watermark. Draining advances the watermark and clears the buffer
// unconditionally, so a failing transcription backend can never cause
// unbounded buffer growth or a retry against the same window.
// Not safe for concurrent use; each session's consumer owns one.
type Accumulator struct {
	frames        []audio.Frame
	lastFlushTime float64
	chunkDuration float64
}

// NewAccumulator creates an accumulator flushing every chunkDuration
// seconds of stream time.
func NewAccumulator(chunkDuration float64) *Accumulator {
	return &Accumulator{chunkDuration: chunkDuration}
}

// Add appends a frame. Frames are assumed temporally contiguous and
// non-decreasing; the accumulator never re-sorts.
func (a *Accumulator) Add(frame audio.Frame) {
	a.frames = append(a.frames, frame)
}

// ShouldFlush reports whether a flush is due at now (the newest
// frame's timestamp): elapsed stream time since the last flush has
// reached the chunk duration and there is buffered audio.
func (a *Accumulator) ShouldFlush(now float64) bool {
	return now-a.lastFlushTime >= a.chunkDuration && len(a.frames) > 0
}

// Drain concatenates the buffered frames into one batch, advances the
// watermark to the end of the last frame, and clears the buffer. The
// second return is false when there was nothing to drain.
func (a *Accumulator) Drain() (asr.Batch, bool) {
	if len(a.frames) == 0 {
		return asr.Batch{}, false
	}

	total := 0
	for _, f := range a.frames {
		total += len(f.PCM)
	}
	pcm := make([]byte, 0, total)
	for _, f := range a.frames {
		pcm = append(pcm, f.PCM...)
	}

	first := a.frames[0]
	last := a.frames[len(a.frames)-1]
	batch := asr.Batch{
		PCM:        pcm,
		SampleRate: first.SampleRate,
		Channels:   1,
		Start:      first.Timestamp,
		End:        last.End(),
	}

	a.lastFlushTime = batch.End
	a.frames = nil
	return batch, true
}

// Watermark returns the session-relative time of the last flush.
func (a *Accumulator) Watermark() float64 {
	return a.lastFlushTime
}

// Pending returns the number of buffered frames.
func (a *Accumulator) Pending() int {
	return len(a.frames)
}
