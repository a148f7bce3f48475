package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
)

// stubProvider answers every batch with the scripted words.
type stubProvider struct {
	mu     sync.Mutex
	words  []asr.Word
	calls  int
	closed bool
}

func (p *stubProvider) Transcribe(_ context.Context, _ asr.Batch) (asr.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return asr.Result{Kind: asr.KindWords, Words: p.words}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) wasClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// stubSource streams a fixed amount of silence and then ends, the way
// a microphone ends when the run is canceled.
type stubSource struct {
	frames     int
	frameBytes int
	opened     bool
	closed     bool
}

func (s *stubSource) Open() error {
	s.opened = true
	return nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func (s *stubSource) Stream(ctx context.Context, out chan<- audio.Frame) error {
	clock := 0.0
	for i := 0; i < s.frames; i++ {
		frame := audio.Frame{Timestamp: clock, PCM: make([]byte, s.frameBytes), SampleRate: 16000}
		clock += frame.Duration()
		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func TestNewLive_RequiresWiring(t *testing.T) {
	_, err := NewLive(LiveConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider factory")
}

func TestLive_RunCaptionsAndSummarizes(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Recording.Dir = dir
	cfg.Session.ChunkDuration = 1.0

	provider := &stubProvider{words: []asr.Word{
		{SpeakerTag: "speaker_0", Text: "morning", Start: 0.0, End: 0.4},
		{SpeakerTag: "speaker_0", Text: "Dana,", Start: 0.4, End: 0.8},
	}}
	out := &bytes.Buffer{}

	live, err := NewLive(LiveConfig{
		Config:      cfg,
		NewProvider: func(string) (asr.Provider, error) { return provider, nil },
		Source:      &stubSource{frames: 8, frameBytes: 16000}, // 4s of audio
		Out:         out,
		UserName:    "Dana",
		Record:      true,
	})
	require.NoError(t, err)
	require.NoError(t, live.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Deafine live transcription: session")
	assert.Contains(t, text, "Haptic alerts armed for name: Dana")
	assert.Contains(t, text, "Microphone open, listening...")
	assert.Contains(t, text, "morning")
	assert.Contains(t, text, "Dana mentioned by S1")
	assert.Contains(t, text, "SESSION SUMMARY")

	assert.GreaterOrEqual(t, provider.callCount(), 1)
	assert.True(t, provider.wasClosed(), "session close releases the provider")

	wavs, err := filepath.Glob(filepath.Join(dir, "session_*.wav"))
	require.NoError(t, err)
	assert.Len(t, wavs, 1)

	summaries, err := filepath.Glob(filepath.Join(dir, "session_*_summary.md"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Contains(t, text, "Summary saved to "+summaries[0])
}

func TestLive_RunWithoutAudioStaysQuiet(t *testing.T) {
	cfg := config.DefaultConfig()
	provider := &stubProvider{}
	out := &bytes.Buffer{}

	live, err := NewLive(LiveConfig{
		Config:      cfg,
		NewProvider: func(string) (asr.Provider, error) { return provider, nil },
		Source:      &stubSource{},
		Out:         out,
	})
	require.NoError(t, err)
	require.NoError(t, live.Run(context.Background()))

	assert.Equal(t, 0, provider.callCount())
	assert.NotContains(t, out.String(), "SESSION SUMMARY")
	assert.True(t, provider.wasClosed())
}

func TestWriteSummaryFile_Markdown(t *testing.T) {
	dir := t.TempDir()
	stats := summary.Stats{
		TotalSpeakers: 1,
		TotalSegments: 3,
		Speakers: map[string]summary.SpeakerStats{
			"S1": {Segments: 3, Words: 12, DurationSeconds: 7.5},
		},
	}

	path, err := writeSummaryFile(dir, "20250101_120000_abcd1234",
		map[string]string{"overall": "Quick sync about the demo.", "S1": "Walked through the agenda."},
		stats)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "# Session Summary: 20250101_120000_abcd1234")
	assert.Contains(t, content, "## Overall Conversation\n\nQuick sync about the demo.")
	assert.Contains(t, content, "### S1\n\nWalked through the agenda.")
	assert.Contains(t, content, "- **Words spoken:** 12")
	assert.Contains(t, content, "- **Speaking time:** 7.5s")
	assert.Contains(t, content, "- **Total Speakers:** 1")
}
