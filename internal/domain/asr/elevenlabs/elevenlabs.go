// Package elevenlabs implements transcription through the ElevenLabs
// Scribe speech-to-text API with speaker diarization.
package elevenlabs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	transcribePath = "/v1/speech-to-text"
	isolationPath  = "/v1/audio-isolation"
	defaultModelID = "scribe_v1"
	defaultTimeout = 60 * time.Second
)

// Ensure the provider satisfies the contract.
var _ asr.Provider = (*Provider)(nil)

// Provider calls the ElevenLabs speech-to-text endpoint. One HTTP call
// per batch, no retries; the client timeout is the hard upper bound on
// a single transcription.
type Provider struct {
	apiKey         string
	baseURL        string
	modelID        string
	numSpeakers    int
	voiceIsolation bool
	httpClient     *http.Client
	logger         *logging.Logger
}

// NewProvider builds a provider from config. The API key is required;
// everything else falls back to sensible defaults.
func NewProvider(config asr.Config, logger *logging.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "elevenlabs.NewProvider", "missing API key")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}
	timeout := defaultTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}

	return &Provider{
		apiKey:         config.APIKey,
		baseURL:        baseURL,
		modelID:        modelID,
		numSpeakers:    config.NumSpeakers,
		voiceIsolation: config.VoiceIsolation,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "elevenlabs" }

// Close releases provider resources.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

type wordResponse struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id"`
}

type transcribeResponse struct {
	Text  string         `json:"text"`
	Words []wordResponse `json:"words"`
}

// Transcribe uploads the batch as a WAV file and parses the diarized
// response. Word timings in the result stay relative to the batch
// start; the pipeline shifts them to session time.
func (p *Provider) Transcribe(ctx context.Context, batch asr.Batch) (asr.Result, error) {
	var wav bytes.Buffer
	if err := audio.EncodeWAV(&wav, batch.PCM, batch.SampleRate, batch.Channels); err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindUnknown, "elevenlabs.Transcribe", "encode wav", err)
	}
	upload := wav.Bytes()

	if p.voiceIsolation {
		cleaned, err := p.isolate(ctx, upload)
		if err != nil {
			p.logger.WarnTag("ASR", "voice isolation failed, using original audio: %v", err)
		} else {
			upload = cleaned
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindUnknown, "elevenlabs.Transcribe", "build multipart", err)
	}
	if _, err := fw.Write(upload); err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindUnknown, "elevenlabs.Transcribe", "write audio part", err)
	}
	numSpeakers := batch.MaxSpeakers
	if numSpeakers <= 0 {
		numSpeakers = p.numSpeakers
	}
	mw.WriteField("model_id", p.modelID)
	mw.WriteField("diarize", "true")
	mw.WriteField("num_speakers", strconv.Itoa(numSpeakers))
	mw.WriteField("timestamps_granularity", "word")
	if err := mw.Close(); err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindUnknown, "elevenlabs.Transcribe", "finish multipart", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+transcribePath, &body)
	if err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindUnknown, "elevenlabs.Transcribe", "build request", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	p.logger.DebugTag("ASR", "sending %d bytes (%.1fs of audio)", len(upload), batch.Duration())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindTransport, "elevenlabs.Transcribe", "speech-to-text request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return asr.Result{}, platformerrors.New(platformerrors.KindBackend, "elevenlabs.Transcribe",
			fmt.Sprintf("speech-to-text returned %d: %s", resp.StatusCode, detail))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindTransport, "elevenlabs.Transcribe", "read response", err)
	}
	var parsed transcribeResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return asr.Result{}, platformerrors.Wrap(platformerrors.KindBackend, "elevenlabs.Transcribe", "decode response", err)
	}

	if len(parsed.Words) > 0 {
		words := make([]asr.Word, 0, len(parsed.Words))
		for _, w := range parsed.Words {
			tag := w.SpeakerID
			if tag == "" {
				tag = "speaker_0"
			}
			words = append(words, asr.Word{
				SpeakerTag: tag,
				Text:       w.Text,
				Start:      w.Start,
				End:        w.End,
			})
		}
		return asr.Result{Kind: asr.KindWords, Words: words}, nil
	}

	// No word-level data; fall back to full text, which may be empty
	// for silent audio.
	return asr.Result{Kind: asr.KindText, Text: parsed.Text}, nil
}

// isolate runs the batch through the voice isolation endpoint and
// returns the cleaned audio as delivered by the API.
func (p *Provider) isolate(ctx context.Context, wavBytes []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(wavBytes); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+isolationPath, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("audio isolation returned %d: %s", resp.StatusCode, detail)
	}
	return io.ReadAll(resp.Body)
}

func init() {
	asr.Register("elevenlabs", func(config asr.Config, logger *logging.Logger) (asr.Provider, error) {
		return NewProvider(config, logger)
	})
}
