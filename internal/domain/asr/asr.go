// Package asr defines the transcription provider contract: a finalized
// audio batch goes in, a strictly tagged result comes out. Downstream
// code switches on the result kind and never inspects ad hoc shapes.
package asr

import (
	"context"
	"fmt"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// ResultKind tags the shape of a transcription result.
type ResultKind int

const (
	// KindWords means word-level output with per-word speaker tags.
	KindWords ResultKind = iota
	// KindText means a full-text fallback without word timing.
	KindText
)

// Word is one transcribed word, timed relative to the batch start.
type Word struct {
	SpeakerTag string
	Text       string
	Start      float64
	End        float64
}

// Batch is a finalized audio window handed to a provider. Start and End
// are session-relative seconds covering the buffered frames.
type Batch struct {
	PCM         []byte
	SampleRate  int
	Channels    int
	Start       float64
	End         float64
	MaxSpeakers int
}

// Duration returns the batch length in seconds derived from the PCM
// payload.
func (b Batch) Duration() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	return float64(len(b.PCM)/2/b.Channels) / float64(b.SampleRate)
}

// Result is the tagged outcome of a successful transcription call.
// Kind selects which field is meaningful: Words for KindWords, Text for
// KindText.
type Result struct {
	Kind  ResultKind
	Words []Word
	Text  string
}

// Provider converts audio batches into transcription results. A failed
// call returns an error tagged with a transport or backend kind; the
// caller treats both the same way and never retries.
type Provider interface {
	Transcribe(ctx context.Context, batch Batch) (Result, error)
	Name() string
	Close() error
}

// Config carries provider settings resolved from the application
// configuration.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	NumSpeakers    int
	TimeoutSeconds int
	VoiceIsolation bool
}

// Factory builds a provider from its config.
type Factory func(config Config, logger *logging.Logger) (Provider, error)

var factories = make(map[string]Factory)

// Register makes a provider factory available under name. Called from
// provider package init functions.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create instantiates the named provider.
func Create(name string, config Config, logger *logging.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown transcription provider: %s", name)
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create transcription provider %s: %w", name, err)
	}
	return provider, nil
}
