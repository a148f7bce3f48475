// Package capture reads microphone audio through PortAudio and emits
// timestamped frames for the live transcription pipeline.
package capture

import (
	"context"
	"encoding/binary"

	"github.com/gordonklaus/portaudio"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// Config controls how the microphone stream is opened.
type Config struct {
	SampleRate      int
	FramesPerBuffer int
}

// DefaultConfig returns capture settings matching the transcription
// pipeline's expected input: 16kHz mono in 320-sample buffers (20ms).
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FramesPerBuffer: 320,
	}
}

// Microphone captures PCM16 audio from the default input device.
type Microphone struct {
	stream *portaudio.Stream
	buffer []int16
	config Config
	logger *logging.Logger
	clock  float64
}

// NewMicrophone returns an unopened microphone source.
func NewMicrophone(config Config, logger *logging.Logger) *Microphone {
	return &Microphone{
		config: config,
		buffer: make([]int16, config.FramesPerBuffer),
		logger: logger,
	}
}

// Open initializes PortAudio and opens the default input stream.
func (m *Microphone) Open() error {
	if err := portaudio.Initialize(); err != nil {
		return platformerrors.Wrap(platformerrors.KindDevice, "capture.Open", "initialize portaudio", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.config.SampleRate), m.config.FramesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return platformerrors.Wrap(platformerrors.KindDevice, "capture.Open", "open input stream", err)
	}
	m.stream = stream
	m.logger.InfoTag("AUDIO", "microphone opened at %dHz, %d samples per buffer",
		m.config.SampleRate, m.config.FramesPerBuffer)
	return nil
}

// Close releases the stream and shuts PortAudio down.
func (m *Microphone) Close() error {
	var err error
	if m.stream != nil {
		err = m.stream.Close()
		m.stream = nil
	}
	portaudio.Terminate()
	return err
}

// Stream reads audio until ctx is cancelled, sending each buffer as a
// frame on out. When the consumer falls behind, frames are dropped
// rather than blocking the device; the clock still advances so
// timestamps stay aligned with wall time at the device.
func (m *Microphone) Stream(ctx context.Context, out chan<- audio.Frame) error {
	if m.stream == nil {
		return platformerrors.New(platformerrors.KindDevice, "capture.Stream", "stream not opened")
	}

	if err := m.stream.Start(); err != nil {
		return platformerrors.Wrap(platformerrors.KindDevice, "capture.Stream", "start stream", err)
	}
	defer m.stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			m.logger.WarnTag("AUDIO", "read error: %v", err)
			continue
		}

		frame := audio.Frame{
			Timestamp:  m.clock,
			PCM:        m.samplesToBytes(),
			SampleRate: m.config.SampleRate,
		}
		m.clock = frame.End()

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		default:
			m.logger.WarnTag("AUDIO", "consumer behind, dropping %dms of audio",
				m.config.FramesPerBuffer*1000/m.config.SampleRate)
		}
	}
}

func (m *Microphone) samplesToBytes() []byte {
	out := make([]byte, len(m.buffer)*2)
	for i, sample := range m.buffer {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
