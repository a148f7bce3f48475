package audio

import (
	"math"
	"testing"
)

func TestFrame_Duration(t *testing.T) {
	// 320ms at 16kHz mono: 5120 samples, 10240 bytes.
	frame := Frame{Timestamp: 1.5, PCM: make([]byte, 10240), SampleRate: 16000}

	if got := frame.Samples(); got != 5120 {
		t.Errorf("Samples() = %d, want 5120", got)
	}
	if got := frame.Duration(); math.Abs(got-0.32) > 1e-9 {
		t.Errorf("Duration() = %v, want 0.32", got)
	}
	if got := frame.End(); math.Abs(got-1.82) > 1e-9 {
		t.Errorf("End() = %v, want 1.82", got)
	}
}

func TestFrame_ZeroRate(t *testing.T) {
	frame := Frame{PCM: make([]byte, 100)}
	if frame.Duration() != 0 {
		t.Errorf("expected zero duration for zero sample rate")
	}
}

func TestFramer_Push(t *testing.T) {
	fr := NewFramer(16000, 20) // 320 samples, 640 bytes per frame

	frames := fr.Push(make([]byte, 1000))
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame from 1000 bytes, got %d", len(frames))
	}
	if frames[0].Timestamp != 0 {
		t.Errorf("first frame timestamp = %v, want 0", frames[0].Timestamp)
	}
	if len(frames[0].PCM) != 640 {
		t.Errorf("frame size = %d, want 640", len(frames[0].PCM))
	}

	// 360 bytes buffered; another 1000 gives 1360 -> 2 more frames.
	frames = fr.Push(make([]byte, 1000))
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if math.Abs(frames[0].Timestamp-0.02) > 1e-9 {
		t.Errorf("second frame timestamp = %v, want 0.02", frames[0].Timestamp)
	}
	if math.Abs(frames[1].Timestamp-0.04) > 1e-9 {
		t.Errorf("third frame timestamp = %v, want 0.04", frames[1].Timestamp)
	}
}

func TestFramer_Flush(t *testing.T) {
	fr := NewFramer(16000, 20)

	fr.Push(make([]byte, 100))
	frame, ok := fr.Flush()
	if !ok {
		t.Fatal("expected trailing partial frame")
	}
	if len(frame.PCM) != 100 {
		t.Errorf("partial frame size = %d, want 100", len(frame.PCM))
	}

	if _, ok := fr.Flush(); ok {
		t.Error("second flush should report no data")
	}
}

func TestFramer_ClockAdvances(t *testing.T) {
	fr := NewFramer(16000, 20)
	fr.Push(make([]byte, 640*3))
	if got := fr.Clock(); math.Abs(got-0.06) > 1e-9 {
		t.Errorf("Clock() = %v, want 0.06", got)
	}
}
