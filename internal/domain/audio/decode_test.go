package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDownmix(t *testing.T) {
	// Two stereo frames: (100, 200) and (-50, 50).
	stereo := samplesToBytes([]int16{100, 200, -50, 50})
	mono := bytesToSamples(Downmix(stereo, 2))

	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(mono))
	}
	if mono[0] != 150 {
		t.Errorf("sample 0 = %d, want 150", mono[0])
	}
	if mono[1] != 0 {
		t.Errorf("sample 1 = %d, want 0", mono[1])
	}
}

func TestDownmix_MonoPassthrough(t *testing.T) {
	pcm := samplesToBytes([]int16{1, 2, 3})
	if !bytes.Equal(Downmix(pcm, 1), pcm) {
		t.Error("mono input should pass through unchanged")
	}
}

func TestResample_Halves(t *testing.T) {
	src := make([]int16, 320) // 10ms at 32kHz
	for i := range src {
		src[i] = int16(i)
	}
	out := bytesToSamples(Resample(samplesToBytes(src), 32000, 16000))

	if len(out) != 160 {
		t.Fatalf("expected 160 samples after halving, got %d", len(out))
	}
	// Every output sample lands on an even input index.
	if out[10] != 20 {
		t.Errorf("out[10] = %d, want 20", out[10])
	}
}

func TestResample_SameRatePassthrough(t *testing.T) {
	pcm := samplesToBytes([]int16{5, 6, 7})
	if !bytes.Equal(Resample(pcm, 16000, 16000), pcm) {
		t.Error("same-rate input should pass through unchanged")
	}
}

func TestDecode_WAVStream(t *testing.T) {
	// Stereo 32kHz source should come out mono 16kHz.
	stereo := make([]int16, 3200*2)
	for i := range stereo {
		stereo[i] = int16(i % 100)
	}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, samplesToBytes(stereo), 32000, 2); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	pcm, err := Decode(&buf, 16000)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(pcm)/2 != 1600 {
		t.Errorf("expected 1600 mono samples, got %d", len(pcm)/2)
	}
}

func TestDecode_RejectsShortInput(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte{1, 2}), 16000); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestSampleConversionRoundTrip(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	got := bytesToSamples(samplesToBytes(samples))
	for i, s := range samples {
		if got[i] != s {
			t.Errorf("sample %d = %d, want %d", i, got[i], s)
		}
	}

	raw := samplesToBytes([]int16{-2})
	if binary.LittleEndian.Uint16(raw) != 0xFFFE {
		t.Errorf("little-endian encoding wrong: % x", raw)
	}
}
