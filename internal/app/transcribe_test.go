package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
)

// writeInput drops a silent WAV of the given length into dir.
func writeInput(t *testing.T, dir string, secs float64) string {
	t.Helper()
	path := filepath.Join(dir, "input.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	pcm := make([]byte, int(secs*16000)*2)
	require.NoError(t, audio.EncodeWAV(f, pcm, 16000, 1))
	return path
}

func TestFileTranscriber_RunRendersTranscript(t *testing.T) {
	input := writeInput(t, t.TempDir(), 3.0)
	provider := &stubProvider{words: []asr.Word{
		{SpeakerTag: "speaker_0", Text: "welcome", Start: 0.2, End: 0.8},
		{SpeakerTag: "speaker_1", Text: "thanks", Start: 1.1, End: 1.6},
	}}

	var capturedKey string
	out := &bytes.Buffer{}
	tr, err := NewFileTranscriber(FileConfig{
		Config: config.DefaultConfig(),
		NewProvider: func(apiKey string) (asr.Provider, error) {
			capturedKey = apiKey
			return provider, nil
		},
		Out: out,
	})
	require.NoError(t, err)
	defer tr.Close(context.Background())

	record, err := tr.Run(context.Background(), input, batch.Options{
		APIKey:          "job-key",
		GenerateSummary: true,
	})
	require.NoError(t, err)

	assert.Equal(t, archive.StatusCompleted, record.Status)
	assert.Equal(t, "job-key", capturedKey)
	assert.Len(t, record.Segments, 2)
	assert.Equal(t, []string{"S1", "S2"}, record.Speakers)
	// Duration tracks transcribed speech, not file length.
	assert.InDelta(t, 1.6, record.Duration, 1e-9)

	text := out.String()
	assert.Contains(t, text, "Deafine transcription: session")
	assert.Contains(t, text, "welcome")
	assert.Contains(t, text, "thanks")
	assert.Contains(t, text, "SESSION SUMMARY")

	// The input is untouched; only the staged copy was consumed.
	_, err = os.Stat(input)
	assert.NoError(t, err)
	assert.True(t, provider.wasClosed())
}

func TestFileTranscriber_RunMissingInput(t *testing.T) {
	tr, err := NewFileTranscriber(FileConfig{
		Config:      config.DefaultConfig(),
		NewProvider: func(string) (asr.Provider, error) { return &stubProvider{}, nil },
		Out:         &bytes.Buffer{},
	})
	require.NoError(t, err)
	defer tr.Close(context.Background())

	_, err = tr.Run(context.Background(), filepath.Join(t.TempDir(), "absent.wav"), batch.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func TestSplitSummary_RoundTrip(t *testing.T) {
	stats := summary.Stats{TotalSpeakers: 2, TotalSegments: 5}
	composed := summary.Compose(map[string]string{"overall": "short chat", "S1": "greeted"}, stats)

	summaries, gotStats := splitSummary(composed)
	assert.Equal(t, "short chat", summaries["overall"])
	assert.Equal(t, "greeted", summaries["S1"])
	assert.Equal(t, stats, gotStats)
}
