package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Decode reads a WAV or MP3 stream and converts it to mono PCM16 at
// targetRate. The format is sniffed from the leading bytes, so the
// caller does not need to trust file extensions.
func Decode(r io.Reader, targetRate int) ([]byte, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read audio header: %w", err)
	}

	if string(magic) == "RIFF" {
		pcm, info, err := DecodeWAV(br)
		if err != nil {
			return nil, err
		}
		pcm = Downmix(pcm, info.Channels)
		return Resample(pcm, info.SampleRate, targetRate), nil
	}

	return decodeMP3(br, targetRate)
}

// DecodeFile opens path and decodes it via Decode.
func DecodeFile(path string, targetRate int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()
	return Decode(f, targetRate)
}

func decodeMP3(r io.Reader, targetRate int) ([]byte, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 samples: %w", err)
	}
	// go-mp3 always outputs 16-bit stereo.
	pcm := Downmix(raw, 2)
	return Resample(pcm, dec.SampleRate(), targetRate), nil
}

// Downmix averages interleaved channels into a single mono stream.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	src := bytesToSamples(pcm)
	frames := len(src) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(src[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return samplesToBytes(out)
}

// Resample converts PCM16 between sample rates using linear
// interpolation, which is adequate for speech sent to transcription.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return pcm
	}
	src := bytesToSamples(pcm)
	if len(src) == 0 {
		return nil
	}

	outLen := int(float64(len(src)) * float64(toRate) / float64(fromRate))
	out := make([]int16, outLen)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(src[idx])*(1-frac) + float64(src[idx+1])*frac)
	}
	return samplesToBytes(out)
}

func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples
}

func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
