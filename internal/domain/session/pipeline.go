package session

import (
	"context"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/speaker"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/vad"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/observability"
)

// PipelineConfig assembles a pipeline's collaborators.
type PipelineConfig struct {
	SessionID     string
	Gate          *vad.Gate
	Provider      asr.Provider
	ChunkDuration float64
	MaxSpeakers   int
	Logger        *logging.Logger
}

// FlushOutcome describes one completed flush. Err carries the
// transcription failure, if any; the watermark has advanced either
// way, so a failed flush simply produced zero segments.
type FlushOutcome struct {
	Segments   []segment.Segment
	BatchStart float64
	BatchEnd   float64
	Err        error
}

// Pipeline runs one session's audio through gate, accumulation,
// transcription, speaker mapping and segment assembly. It is driven by
// a single consumer goroutine; flushes for the session are therefore
// strictly sequential, while different sessions' pipelines run fully
// in parallel.
type Pipeline struct {
	sessionID   string
	gate        *vad.Gate
	provider    asr.Provider
	mapper      *speaker.Mapper
	accumulator *Accumulator
	maxSpeakers int
	logger      *logging.Logger
}

// NewPipeline wires a pipeline from config.
func NewPipeline(config PipelineConfig) *Pipeline {
	return &Pipeline{
		sessionID:   config.SessionID,
		gate:        config.Gate,
		provider:    config.Provider,
		mapper:      speaker.NewMapper(),
		accumulator: NewAccumulator(config.ChunkDuration),
		maxSpeakers: config.MaxSpeakers,
		logger:      config.Logger,
	}
}

// Push runs one frame through the gate into the accumulator and
// reports whether a flush is now due. Rejected frames never make a
// flush due.
func (p *Pipeline) Push(frame audio.Frame) bool {
	if p.gate != nil && !p.gate.Accept(frame) {
		return false
	}

	p.accumulator.Add(frame)
	return p.accumulator.ShouldFlush(frame.Timestamp)
}

// Feed combines Push and Flush: it absorbs the frame and flushes when
// the frame's timestamp says the chunk window is full. Returns nil
// when no flush was triggered.
func (p *Pipeline) Feed(ctx context.Context, frame audio.Frame) *FlushOutcome {
	if !p.Push(frame) {
		return nil
	}
	return p.Flush(ctx)
}

// Flush transcribes whatever is buffered, regardless of elapsed time.
// Returns nil when the buffer is empty.
func (p *Pipeline) Flush(ctx context.Context) *FlushOutcome {
	batch, ok := p.accumulator.Drain()
	if !ok {
		return nil
	}
	batch.MaxSpeakers = p.maxSpeakers

	outcome := &FlushOutcome{BatchStart: batch.Start, BatchEnd: batch.End}

	p.logger.DebugTag("ASR", "session %s flushing %.1fs of audio [%.1f, %.1f]",
		p.sessionID, batch.Duration(), batch.Start, batch.End)

	spanCtx, end := observability.StartSpan(ctx, "asr", "flush")
	result, err := p.provider.Transcribe(spanCtx, batch)
	end(err)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Segments = segment.Assemble(result, batch.Start, batch.End, p.mapper)
	observability.RecordMetric(ctx, observability.MetricSegmentsEmitted,
		float64(len(outcome.Segments)), map[string]string{"session": p.sessionID})
	return outcome
}

// Watermark exposes the accumulator's last flush time.
func (p *Pipeline) Watermark() float64 {
	return p.accumulator.Watermark()
}

// Pending exposes the number of buffered frames.
func (p *Pipeline) Pending() int {
	return p.accumulator.Pending()
}

// SpeakerCount returns how many distinct speakers have been labeled.
func (p *Pipeline) SpeakerCount() int {
	return p.mapper.Count()
}

// Speakers returns the assigned labels in first-seen order.
func (p *Pipeline) Speakers() []string {
	return p.mapper.Labels()
}

// Close releases the gate's detector and the provider's connections.
// The pipeline owns both once constructed; closing them again
// elsewhere is harmless.
func (p *Pipeline) Close() error {
	var err error
	if p.gate != nil {
		err = p.gate.Close()
	}
	if p.provider != nil {
		if closeErr := p.provider.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
