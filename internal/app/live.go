// Package app holds the terminal-facing application flows: live
// microphone captioning and one-shot file transcription. Both reuse
// the session pipeline the websocket transport runs, with the console
// board as the sink.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio/capture"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/recorder"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/vad"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/transport/console"
)

const (
	// frameBuffer decouples the capture callback from session intake.
	frameBuffer = 32

	// drainTimeout bounds the final tail transcription and summary
	// after capture stops.
	drainTimeout = 15 * time.Second
)

// Source yields timestamped PCM frames until its context ends. The
// portaudio microphone is the production implementation; tests swap in
// finite sources.
type Source interface {
	Open() error
	Close() error
	Stream(ctx context.Context, out chan<- audio.Frame) error
}

// LiveConfig assembles a live captioning run.
type LiveConfig struct {
	Config      *config.Config
	Logger      *logging.Logger
	NewProvider batch.ProviderFactory
	NewGate     func() (*vad.Gate, error) // optional
	Engine      summary.Engine            // nil selects the extractive engine
	Source      Source                    // optional, defaults to the microphone
	Out         io.Writer                 // optional, defaults to os.Stdout
	UserName    string                    // optional haptic watch name
	Record      bool
}

// Live captions audio from a source to the terminal until the context
// is canceled or the source ends, then prints the session summary.
type Live struct {
	config LiveConfig
	out    io.Writer
}

// NewLive validates the wiring and returns a runnable live session.
func NewLive(config LiveConfig) (*Live, error) {
	if config.Config == nil || config.NewProvider == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "app.NewLive",
			"configuration and provider factory are required")
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	return &Live{config: config, out: out}, nil
}

// Run captures audio until ctx is canceled or the source is
// exhausted, streaming captions as chunks are transcribed. On the way
// out it transcribes the buffered tail, prints the session summary
// and, when recording, saves it next to the WAV.
func (l *Live) Run(ctx context.Context) error {
	cfg := l.config.Config
	logger := l.config.Logger

	provider, err := l.config.NewProvider("")
	if err != nil {
		return err
	}

	var gate *vad.Gate
	if l.config.NewGate != nil {
		if gate, err = l.config.NewGate(); err != nil {
			_ = provider.Close()
			return err
		}
	}

	id := session.NewSessionID()

	var (
		rec *recorder.Recorder
		tap session.Tap
	)
	if l.config.Record {
		// Recording is best-effort; the session runs without it.
		rec = recorder.NewRecorder(cfg.Recording.Dir, logger)
		if err := rec.Start(); err != nil {
			logger.WarnTag("RECORD", "recording unavailable: %v", err)
			rec = nil
		} else if sr, recErr := rec.Open(id, cfg.Audio.SampleRate); recErr != nil {
			logger.WarnTag("RECORD", "session %s recording unavailable: %v", id, recErr)
		} else {
			tap = sr
		}
	}
	defer func() {
		if rec != nil {
			rec.Stop()
		}
	}()

	board := console.NewBoard(l.out)
	sess := session.NewSession(context.Background(), session.Config{
		ID:         id,
		Kind:       "live",
		SampleRate: cfg.Audio.SampleRate,
		QueueSize:  cfg.Session.QueueSize,
		Pipeline: session.NewPipeline(session.PipelineConfig{
			SessionID:     id,
			Gate:          gate,
			Provider:      provider,
			ChunkDuration: cfg.Session.ChunkDuration,
			MaxSpeakers:   cfg.ASR.ElevenLabs.NumSpeakers,
			Logger:        logger,
		}),
		Summarizer: summary.NewSummarizer(l.config.Engine, logger),
		Sink:       board,
		Tap:        tap,
		Logger:     logger,
	})

	board.Header(id, cfg.Audio.SampleRate)
	if name := strings.TrimSpace(l.config.UserName); name != "" {
		sess.SetName(name)
		board.OnStatus(fmt.Sprintf("Haptic alerts armed for name: %s", name), 0)
	}
	sess.Start()

	source := l.config.Source
	if source == nil {
		micConfig := capture.DefaultConfig()
		micConfig.SampleRate = cfg.Audio.SampleRate
		micConfig.FramesPerBuffer = micConfig.SampleRate / 50 // 20ms buffers
		source = capture.NewMicrophone(micConfig, logger)
	}
	if err := source.Open(); err != nil {
		sess.Close()
		return err
	}
	board.OnStatus("Microphone open, listening...", 0)

	frames := make(chan audio.Frame, frameBuffer)
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		err := source.Stream(groupCtx, frames)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for frame := range frames {
			sess.Ingest(frame.PCM)
		}
		return nil
	})

	streamErr := g.Wait()
	if err := source.Close(); err != nil && streamErr == nil {
		streamErr = err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	sess.Shutdown(drainCtx)

	summaries, stats := sess.Summary(drainCtx)
	if stats.TotalSegments > 0 {
		board.Summary(summaries, stats)
	}
	if tap != nil && stats.TotalSegments > 0 {
		if path, err := writeSummaryFile(cfg.Recording.Dir, id, summaries, stats); err != nil {
			logger.WarnTag("RECORD", "session %s summary file: %v", id, err)
		} else {
			board.OnStatus("Summary saved to "+path, sess.Clock())
		}
	}

	return streamErr
}

// writeSummaryFile renders the session summary as markdown alongside
// the recording and returns the path written.
func writeSummaryFile(dir, sessionID string, summaries map[string]string, stats summary.Stats) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session Summary: %s\n\n", sessionID)

	b.WriteString("## Overall Conversation\n\n")
	overall := summaries["overall"]
	if overall == "" {
		overall = "No summary available."
	}
	b.WriteString(overall + "\n\n")

	b.WriteString("## Speaker Summaries\n\n")
	speakers := make([]string, 0, len(summaries))
	for speakerID := range summaries {
		if speakerID != "overall" {
			speakers = append(speakers, speakerID)
		}
	}
	sort.Strings(speakers)
	for _, speakerID := range speakers {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", speakerID, summaries[speakerID])
		if speakerStats, ok := stats.Speakers[speakerID]; ok {
			fmt.Fprintf(&b, "- **Words spoken:** %d\n", speakerStats.Words)
			fmt.Fprintf(&b, "- **Speaking time:** %.1fs\n", speakerStats.DurationSeconds)
			fmt.Fprintf(&b, "- **Segments:** %d\n\n", speakerStats.Segments)
		}
	}

	b.WriteString("## Session Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Speakers:** %d\n", stats.TotalSpeakers)
	fmt.Fprintf(&b, "- **Total Segments:** %d\n", stats.TotalSegments)

	path := filepath.Join(dir, fmt.Sprintf("session_%s_summary.md", sessionID))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", platformerrors.Wrap(platformerrors.KindStorage, "app.writeSummaryFile",
			"write summary", err)
	}
	return path, nil
}
