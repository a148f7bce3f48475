package vad

import (
	"errors"
	"testing"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
)

// scriptedDetector returns canned answers per window, in order.
type scriptedDetector struct {
	answers []bool
	err     error
	calls   int
}

func (d *scriptedDetector) IsSpeech(window []byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.calls >= len(d.answers) {
		return false, nil
	}
	answer := d.answers[d.calls]
	d.calls++
	return answer, nil
}

func (d *scriptedDetector) Close() error { return nil }

// frameOfWindows builds a 16kHz frame spanning n windows of windowMs.
func frameOfWindows(n, windowMs int) audio.Frame {
	return audio.Frame{
		PCM:        make([]byte, n*16000*windowMs/1000*2),
		SampleRate: 16000,
	}
}

func TestGate_NilDetectorPassesEverything(t *testing.T) {
	gate := NewGate(nil, 16000, 30, nil)

	accepted := 0
	for i := 0; i < 10; i++ {
		if gate.Accept(frameOfWindows(1, 30)) {
			accepted++
		}
	}
	if accepted != 10 {
		t.Errorf("pass-through gate accepted %d of 10 frames", accepted)
	}
}

func TestGate_AcceptsOnAnySpeechWindow(t *testing.T) {
	det := &scriptedDetector{answers: []bool{false, false, true}}
	gate := NewGate(det, 16000, 30, nil)

	if !gate.Accept(frameOfWindows(3, 30)) {
		t.Error("frame with one speech window should be accepted")
	}
	if det.calls != 3 {
		t.Errorf("expected 3 windows scored, got %d", det.calls)
	}
}

func TestGate_ShortCircuitsOnFirstSpeech(t *testing.T) {
	det := &scriptedDetector{answers: []bool{true, false, false}}
	gate := NewGate(det, 16000, 30, nil)

	if !gate.Accept(frameOfWindows(3, 30)) {
		t.Fatal("expected accept")
	}
	if det.calls != 1 {
		t.Errorf("expected early return after first speech window, scored %d", det.calls)
	}
}

func TestGate_RejectsAllSilence(t *testing.T) {
	det := &scriptedDetector{answers: []bool{false, false, false, false}}
	gate := NewGate(det, 16000, 30, nil)

	if gate.Accept(frameOfWindows(4, 30)) {
		t.Error("all-silence frame should be rejected")
	}
}

func TestGate_SkipsTrailingPartialWindow(t *testing.T) {
	det := &scriptedDetector{answers: []bool{false, false}}
	gate := NewGate(det, 16000, 30, nil)

	// Two full windows plus half a window of trailing audio.
	frame := audio.Frame{PCM: make([]byte, 2*960+480), SampleRate: 16000}
	gate.Accept(frame)
	if det.calls != 2 {
		t.Errorf("expected 2 complete windows scored, got %d", det.calls)
	}
}

func TestGate_ClassifierErrorPassesThrough(t *testing.T) {
	det := &scriptedDetector{err: errors.New("engine fault")}
	gate := NewGate(det, 16000, 30, nil)

	if !gate.Accept(frameOfWindows(2, 30)) {
		t.Error("classifier error should not drop audio")
	}
}
