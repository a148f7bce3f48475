package elevenlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
)

func testBatch() asr.Batch {
	return asr.Batch{
		PCM:         make([]byte, 16000*2), // 1s of 16kHz mono
		SampleRate:  16000,
		Channels:    1,
		Start:       5.0,
		End:         6.0,
		MaxSpeakers: 2,
	}
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := NewProvider(asr.Config{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		NumSpeakers: 2,
	}, nil)
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewProvider(asr.Config{}, nil)
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))
}

func TestTranscribe_WordLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, transcribePath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))
		assert.Equal(t, "true", r.FormValue("diarize"))
		assert.Equal(t, "2", r.FormValue("num_speakers"))
		assert.Equal(t, "word", r.FormValue("timestamps_granularity"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)

		magic := make([]byte, 4)
		file.Read(magic)
		assert.Equal(t, "RIFF", string(magic), "upload should be WAV-encoded")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello there",
			"words": [
				{"text": "hello", "start": 0.1, "end": 0.5, "speaker_id": "speaker_0"},
				{"text": "there", "start": 0.6, "end": 1.0, "speaker_id": "speaker_1"},
				{"text": "again", "start": 1.1, "end": 1.4}
			]
		}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	result, err := p.Transcribe(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, asr.KindWords, result.Kind)
	require.Len(t, result.Words, 3)
	assert.Equal(t, "speaker_0", result.Words[0].SpeakerTag)
	assert.Equal(t, "hello", result.Words[0].Text)
	assert.Equal(t, 0.1, result.Words[0].Start)
	assert.Equal(t, "speaker_1", result.Words[1].SpeakerTag)
	// Missing speaker tags default rather than vanish.
	assert.Equal(t, "speaker_0", result.Words[2].SpeakerTag)
}

func TestTranscribe_FullTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "full transcript without timing"}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	result, err := p.Transcribe(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, asr.KindText, result.Kind)
	assert.Equal(t, "full transcript without timing", result.Text)
	assert.Empty(t, result.Words)
}

func TestTranscribe_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	result, err := p.Transcribe(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, asr.KindText, result.Kind)
	assert.Empty(t, result.Text)
}

func TestTranscribe_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "invalid audio"}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL)
	_, err := p.Transcribe(context.Background(), testBatch())
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindBackend))
	assert.Contains(t, err.Error(), "422")
}

func TestTranscribe_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	p := newTestProvider(t, server.URL)
	_, err := p.Transcribe(context.Background(), testBatch())
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindTransport))
	assert.True(t, platformerrors.Recoverable(err))
}

func TestTranscribe_VoiceIsolation(t *testing.T) {
	var isolationCalled, sawCleanedAudio bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case isolationPath:
			isolationCalled = true
			w.Write([]byte("cleaned-audio-bytes"))
		case transcribePath:
			require.NoError(t, r.ParseMultipartForm(10<<20))
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			buf := make([]byte, 32)
			n, _ := file.Read(buf)
			sawCleanedAudio = strings.Contains(string(buf[:n]), "cleaned-audio-bytes")
			w.Write([]byte(`{"text": "ok"}`))
		}
	}))
	defer server.Close()

	p, err := NewProvider(asr.Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		VoiceIsolation: true,
	}, nil)
	require.NoError(t, err)

	_, err = p.Transcribe(context.Background(), testBatch())
	require.NoError(t, err)
	assert.True(t, isolationCalled, "isolation endpoint should be called first")
	assert.True(t, sawCleanedAudio, "transcription should receive isolated audio")
}

func TestTranscribe_IsolationFailureFallsBack(t *testing.T) {
	var transcribed bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case isolationPath:
			w.WriteHeader(http.StatusBadGateway)
		case transcribePath:
			transcribed = true
			w.Write([]byte(`{"text": "ok"}`))
		}
	}))
	defer server.Close()

	p, err := NewProvider(asr.Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		VoiceIsolation: true,
	}, nil)
	require.NoError(t, err)

	result, err := p.Transcribe(context.Background(), testBatch())
	require.NoError(t, err)
	assert.True(t, transcribed, "isolation failure must not block transcription")
	assert.Equal(t, "ok", result.Text)
}

func TestRegisteredWithFactory(t *testing.T) {
	p, err := asr.Create("elevenlabs", asr.Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", p.Name())
}
