package app

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/batch"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/config"
	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/transport/console"
)

// FileConfig assembles a one-shot file transcription.
type FileConfig struct {
	Config      *config.Config
	Logger      *logging.Logger
	NewProvider batch.ProviderFactory
	Engine      summary.Engine // nil selects the extractive engine
	Out         io.Writer      // optional, defaults to os.Stdout
}

// FileTranscriber transcribes one audio file synchronously and renders
// the transcript like a finished live session. Records land in a
// private in-memory archive that lives as long as the transcriber.
type FileTranscriber struct {
	config    FileConfig
	out       io.Writer
	store     archive.Store
	processor *batch.Processor
}

// NewFileTranscriber validates the wiring and returns a ready
// transcriber. Close releases its archive.
func NewFileTranscriber(config FileConfig) (*FileTranscriber, error) {
	if config.Config == nil || config.NewProvider == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "app.NewFileTranscriber",
			"configuration and provider factory are required")
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}

	cfg := config.Config
	store := archive.NewMemory(archive.Config{})
	processor := batch.NewProcessor(batch.Config{
		SampleRate:    cfg.Audio.SampleRate,
		FrameMs:       cfg.Audio.ChunkMs,
		ChunkDuration: cfg.Session.ChunkDuration,
		NumSpeakers:   cfg.ASR.ElevenLabs.NumSpeakers,
	}, store, config.NewProvider, config.Engine, config.Logger)

	return &FileTranscriber{
		config:    config,
		out:       out,
		store:     store,
		processor: processor,
	}, nil
}

// Run transcribes the file at path and renders the result. The input
// stays in place; processing consumes a staged copy, the same way an
// uploaded file would be consumed.
func (t *FileTranscriber) Run(ctx context.Context, path string, options batch.Options) (archive.Record, error) {
	staged, err := t.stage(path)
	if err != nil {
		return archive.Record{}, err
	}

	record, err := t.processor.Process(ctx, batch.Job{
		SessionID:  session.NewSessionID(),
		UploadPath: staged,
		Options:    options,
	})
	if err != nil {
		return record, err
	}

	t.render(record)
	return record, nil
}

// Close releases the transcriber's archive.
func (t *FileTranscriber) Close(ctx context.Context) error {
	return t.store.Close(ctx)
}

// stage copies the input to a temporary upload path. Processing
// deletes its upload when done, so the original must never be handed
// over directly.
func (t *FileTranscriber) stage(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindStorage, "app.stage", "open input", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "deafine-upload-*"+filepath.Ext(path))
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindStorage, "app.stage", "create staging file", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", platformerrors.Wrap(platformerrors.KindStorage, "app.stage", "copy input", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", platformerrors.Wrap(platformerrors.KindStorage, "app.stage", "close staging file", err)
	}
	return dst.Name(), nil
}

func (t *FileTranscriber) render(record archive.Record) {
	board := console.NewBoard(t.out)
	board.FileHeader(record.SessionID, record.Duration, record.SpeakersDetected)
	for _, seg := range record.Segments {
		board.OnSegment(seg, false)
	}

	summaries, stats := splitSummary(record.Summary)
	if stats.TotalSegments > 0 {
		board.Summary(summaries, stats)
	}
}

// splitSummary undoes summary.Compose for records that never left the
// process, where the stats value is still typed.
func splitSummary(composed map[string]any) (map[string]string, summary.Stats) {
	summaries := make(map[string]string, len(composed))
	var stats summary.Stats
	for key, value := range composed {
		switch v := value.(type) {
		case string:
			summaries[key] = v
		case summary.Stats:
			stats = v
		}
	}
	return summaries, stats
}
