package audio

// Frame is a timestamped span of PCM audio within a session stream.
// Timestamps are session-relative seconds. PCM holds 16-bit little-endian
// mono samples.
type Frame struct {
	Timestamp  float64
	PCM        []byte
	SampleRate int
}

// Samples returns the number of 16-bit samples in the frame.
func (f Frame) Samples() int {
	return len(f.PCM) / 2
}

// Duration returns the frame length in seconds.
func (f Frame) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(f.Samples()) / float64(f.SampleRate)
}

// End returns the session-relative end timestamp of the frame.
func (f Frame) End() float64 {
	return f.Timestamp + f.Duration()
}

// Framer slices a continuous PCM stream into fixed-duration frames,
// keeping a running clock so every emitted frame carries the timestamp
// of its first sample.
type Framer struct {
	sampleRate int
	frameBytes int
	buf        []byte
	clock      float64
}

// NewFramer returns a framer that cuts frames of frameMs milliseconds
// from pushed PCM data.
func NewFramer(sampleRate, frameMs int) *Framer {
	return &Framer{
		sampleRate: sampleRate,
		frameBytes: sampleRate * frameMs / 1000 * 2,
	}
}

// Push appends PCM bytes to the framer and returns every complete frame
// now available. Partial data is retained for the next call.
func (fr *Framer) Push(pcm []byte) []Frame {
	fr.buf = append(fr.buf, pcm...)

	var frames []Frame
	for len(fr.buf) >= fr.frameBytes {
		chunk := make([]byte, fr.frameBytes)
		copy(chunk, fr.buf[:fr.frameBytes])
		fr.buf = fr.buf[fr.frameBytes:]

		frame := Frame{Timestamp: fr.clock, PCM: chunk, SampleRate: fr.sampleRate}
		fr.clock = frame.End()
		frames = append(frames, frame)
	}
	return frames
}

// Flush returns the trailing partial frame, if any, and resets the buffer.
func (fr *Framer) Flush() (Frame, bool) {
	if len(fr.buf) == 0 {
		return Frame{}, false
	}
	chunk := make([]byte, len(fr.buf))
	copy(chunk, fr.buf)
	fr.buf = fr.buf[:0]

	frame := Frame{Timestamp: fr.clock, PCM: chunk, SampleRate: fr.sampleRate}
	fr.clock = frame.End()
	return frame, true
}

// Clock returns the running stream position in seconds.
func (fr *Framer) Clock() float64 {
	return fr.clock
}
