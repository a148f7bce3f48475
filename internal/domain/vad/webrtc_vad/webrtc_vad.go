// Package webrtc_vad wraps the WebRTC voice activity detection engine.
package webrtc_vad

import (
	"fmt"
	"sync"

	"github.com/baabaaox/go-webrtcvad"
)

// Detector scores fixed-size PCM16 windows with the WebRTC VAD engine.
// The engine instance is not reentrant, so calls are serialized.
type Detector struct {
	inst       webrtcvad.VadInst
	sampleRate int
	mode       int
	mu         sync.Mutex
	closed     bool
}

// New creates a detector at the given sample rate and aggressiveness
// mode (0 least aggressive filtering, 3 most). The engine supports
// 8000, 16000, 32000 and 48000 Hz.
func New(sampleRate, mode int) (*Detector, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("unsupported sample rate %d, want 8000/16000/32000/48000", sampleRate)
	}
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("invalid aggressiveness %d, want 0-3", mode)
	}

	inst := webrtcvad.Create()
	if inst == nil {
		return nil, fmt.Errorf("create webrtc vad instance")
	}
	if err := webrtcvad.Init(inst); err != nil {
		webrtcvad.Free(inst)
		return nil, fmt.Errorf("init webrtc vad: %w", err)
	}
	if err := webrtcvad.SetMode(inst, mode); err != nil {
		webrtcvad.Free(inst)
		return nil, fmt.Errorf("set webrtc vad mode: %w", err)
	}

	return &Detector{inst: inst, sampleRate: sampleRate, mode: mode}, nil
}

// IsSpeech reports whether the window contains speech. The window must
// hold exactly 10, 20 or 30 ms of PCM16 at the detector's sample rate;
// other lengths are rejected by the engine.
func (d *Detector) IsSpeech(window []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, fmt.Errorf("detector closed")
	}
	active, err := webrtcvad.Process(d.inst, d.sampleRate, window, len(window)/2)
	if err != nil {
		return false, fmt.Errorf("webrtc vad process: %w", err)
	}
	return active, nil
}

// Close frees the engine instance. Safe to call more than once.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed && d.inst != nil {
		webrtcvad.Free(d.inst)
		d.closed = true
	}
	return nil
}
