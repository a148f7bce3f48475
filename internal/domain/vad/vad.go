// Package vad provides the optional voice activity gate that sits
// between frame ingestion and chunk accumulation.
package vad

import (
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/vad/webrtc_vad"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// Detector classifies one fixed-size window of PCM16 audio as speech or
// non-speech. Implementations are not required to be safe for
// concurrent use; each session pipeline owns its own detector.
type Detector interface {
	IsSpeech(window []byte) (bool, error)
	Close() error
}

// Config selects and tunes the detector.
type Config struct {
	Enabled        bool
	Aggressiveness int
	WindowMs       int
}

// New builds the configured detector. When gating is disabled this
// returns a nil detector, which Gate treats as pass-through; the
// decision is made here at construction time, never per frame.
func New(cfg Config, sampleRate int, logger *logging.Logger) (Detector, error) {
	if !cfg.Enabled {
		logger.InfoTag("VAD", "activity gate disabled, all audio passes through")
		return nil, nil
	}

	det, err := webrtc_vad.New(sampleRate, cfg.Aggressiveness)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "vad.New", "create webrtc detector", err)
	}
	logger.InfoTag("VAD", "webrtc detector ready, aggressiveness=%d window=%dms",
		cfg.Aggressiveness, cfg.WindowMs)
	return det, nil
}
