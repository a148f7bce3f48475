package vad

import (
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// Gate decides whether a frame is worth transcribing. It slices the
// frame into fixed sub-windows and accepts the whole frame as soon as
// any window is classified as speech, which biases toward false accepts
// so partial utterances are never lost to an aggressive filter.
type Gate struct {
	detector    Detector
	windowBytes int
	logger      *logging.Logger
}

// NewGate wraps detector for frames at the given sample rate. A nil
// detector produces a gate that accepts everything.
func NewGate(detector Detector, sampleRate, windowMs int, logger *logging.Logger) *Gate {
	return &Gate{
		detector:    detector,
		windowBytes: sampleRate * windowMs / 1000 * 2,
		logger:      logger,
	}
}

// Accept reports whether the frame should reach the accumulator.
// Trailing audio shorter than one window is not scored. A classifier
// error passes the frame through rather than dropping audio.
func (g *Gate) Accept(frame audio.Frame) bool {
	if g.detector == nil {
		return true
	}

	pcm := frame.PCM
	for i := 0; i+g.windowBytes <= len(pcm); i += g.windowBytes {
		speech, err := g.detector.IsSpeech(pcm[i : i+g.windowBytes])
		if err != nil {
			g.logger.WarnTag("VAD", "classifier error, passing frame through: %v", err)
			return true
		}
		if speech {
			return true
		}
	}
	return false
}

// Close releases the underlying detector, if any.
func (g *Gate) Close() error {
	if g.detector != nil {
		return g.detector.Close()
	}
	return nil
}
