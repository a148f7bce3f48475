// Package batch transcribes uploaded recordings through the same
// pipeline the live path uses: decode, frame, accumulate, transcribe,
// assemble. Jobs run either inline (the synchronous endpoint) or on a
// small worker pool, and every job's lifecycle is written to the
// archive so status and transcript queries outlive the request.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/archive"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/observability"
)

// ErrQueueFull reports that the async job queue is at capacity.
// Handlers map it to 503.
var ErrQueueFull = errors.New("job queue full")

// ProviderFactory builds a transcription provider, optionally with a
// per-job API key. An empty key selects the configured one.
type ProviderFactory func(apiKey string) (asr.Provider, error)

// Config tunes the processor.
type Config struct {
	Workers       int
	QueueSize     int
	SampleRate    int
	FrameMs       int
	ChunkDuration float64
	NumSpeakers   int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.FrameMs <= 0 {
		c.FrameMs = 320
	}
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = 5.0
	}
	if c.NumSpeakers <= 0 {
		c.NumSpeakers = 5
	}
	return c
}

// Processor runs transcription jobs and archives their results.
type Processor struct {
	config      Config
	store       archive.Store
	newProvider ProviderFactory
	engine      summary.Engine
	logger      *logging.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewProcessor wires a processor. The engine may be nil; summaries
// then degrade to extractive output.
func NewProcessor(config Config, store archive.Store, newProvider ProviderFactory,
	engine summary.Engine, logger *logging.Logger) *Processor {
	config = config.withDefaults()
	return &Processor{
		config:      config,
		store:       store,
		newProvider: newProvider,
		engine:      engine,
		logger:      logger,
		jobs:        make(chan Job, config.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled
// or Stop closes the queue.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.InfoTag("BATCH", "processor started with %d workers", p.config.Workers)
}

// Stop rejects further submissions and waits for in-flight jobs.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	p.logger.InfoTag("BATCH", "processor stopped")
}

// Submit enqueues a job for background processing without blocking.
func (p *Processor) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return fmt.Errorf("processor stopped")
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.safeProcess(ctx, job)
		}
	}
}

// safeProcess shields the worker from a panicking job.
func (p *Processor) safeProcess(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorTag("BATCH", "job %s panicked: %v", job.SessionID, r)
			p.fail(ctx, archive.Record{
				SessionID: job.SessionID,
				Kind:      "batch",
				CreatedAt: time.Now(),
			}, fmt.Errorf("internal error: %v", r))
		}
	}()
	_, _ = p.Process(ctx, job)
}

// Process runs one job to completion: processing record up front, the
// full decode/transcribe pass, then a completed or failed record. The
// uploaded file is removed on both paths. The returned record is the
// final archived state.
func (p *Processor) Process(ctx context.Context, job Job) (archive.Record, error) {
	record := archive.NewProcessingRecord(job.SessionID, "batch")
	started := record.CreatedAt
	if err := p.store.Put(ctx, record); err != nil {
		return record, err
	}
	eventbus.PublishAsync(eventbus.EventSessionCreated, eventbus.SessionEventData{
		SessionID: job.SessionID,
		Kind:      "batch",
	})
	defer p.removeUpload(job)

	segments, speakers, err := p.transcribeFile(ctx, job)
	if err != nil {
		return p.fail(ctx, record, err)
	}

	duration := 0.0
	for _, seg := range segments {
		if seg.EndTime > duration {
			duration = seg.EndTime
		}
	}

	record.Status = archive.StatusCompleted
	now := time.Now()
	record.CompletedAt = &now
	record.Duration = duration
	record.Segments = segments
	record.Speakers = speakers
	record.SpeakersDetected = len(speakers)
	if job.Options.GenerateSummary && len(segments) > 0 {
		record.Summary = p.summarize(ctx, segments)
	}

	if err := p.store.Put(ctx, record); err != nil {
		return record, err
	}
	observability.RecordMetric(ctx, observability.MetricBatchJobs, 1,
		map[string]string{"status": string(archive.StatusCompleted)})
	eventbus.PublishAsync(eventbus.EventSessionClosed, eventbus.SessionEventData{
		SessionID: job.SessionID,
		Kind:      "batch",
	})
	p.logger.InfoTag("BATCH", "job %s completed: %d segments, %d speakers, %.1fs audio in %s",
		job.SessionID, len(segments), len(speakers), duration, time.Since(started).Round(time.Millisecond))
	return record, nil
}

// transcribeFile decodes the upload and drives it through a fresh
// pipeline. A failing transcription window contributes zero segments
// and the pass keeps going; only setup errors abort the job.
func (p *Processor) transcribeFile(ctx context.Context, job Job) ([]segment.Segment, []string, error) {
	provider, err := p.newProvider(job.Options.APIKey)
	if err != nil {
		return nil, nil, err
	}
	defer provider.Close()

	pcm, err := audio.DecodeFile(job.UploadPath, p.config.SampleRate)
	if err != nil {
		return nil, nil, err
	}

	chunk := job.Options.ChunkDuration
	if chunk <= 0 {
		chunk = p.config.ChunkDuration
	}
	speakers := job.Options.NumSpeakers
	if speakers <= 0 {
		speakers = p.config.NumSpeakers
	}

	pipeline := session.NewPipeline(session.PipelineConfig{
		SessionID:     job.SessionID,
		Provider:      provider,
		ChunkDuration: chunk,
		MaxSpeakers:   speakers,
		Logger:        p.logger,
	})
	defer pipeline.Close()

	var segments []segment.Segment
	collect := func(outcome *session.FlushOutcome) {
		if outcome == nil {
			return
		}
		if outcome.Err != nil {
			p.logger.WarnTag("BATCH", "job %s window [%.1f, %.1f] failed: %v",
				job.SessionID, outcome.BatchStart, outcome.BatchEnd, outcome.Err)
			return
		}
		segments = append(segments, outcome.Segments...)
	}

	framer := audio.NewFramer(p.config.SampleRate, p.config.FrameMs)
	for _, frame := range framer.Push(pcm) {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		collect(pipeline.Feed(ctx, frame))
	}
	if tail, ok := framer.Flush(); ok {
		pipeline.Push(tail)
	}
	collect(pipeline.Flush(ctx))

	return segments, pipeline.Speakers(), nil
}

func (p *Processor) summarize(ctx context.Context, segments []segment.Segment) map[string]any {
	summarizer := summary.NewSummarizer(p.engine, p.logger)
	for _, seg := range segments {
		summarizer.Add(seg)
	}
	return summary.Compose(summarizer.Summary(ctx), summarizer.Stats())
}

func (p *Processor) fail(ctx context.Context, record archive.Record, cause error) (archive.Record, error) {
	p.logger.ErrorTag("BATCH", "job %s failed: %v", record.SessionID, cause)
	record.Status = archive.StatusFailed
	record.Error = cause.Error()
	if record.Speakers == nil {
		record.Speakers = []string{}
	}
	if record.Segments == nil {
		record.Segments = []segment.Segment{}
	}
	if err := p.store.Put(ctx, record); err != nil {
		p.logger.ErrorTag("BATCH", "job %s could not record failure: %v", record.SessionID, err)
	}
	observability.RecordMetric(ctx, observability.MetricBatchJobs, 1,
		map[string]string{"status": string(archive.StatusFailed)})
	eventbus.PublishAsync(eventbus.EventSessionClosed, eventbus.SessionEventData{
		SessionID: record.SessionID,
		Kind:      "batch",
	})
	return record, cause
}

func (p *Processor) removeUpload(job Job) {
	if job.UploadPath == "" {
		return
	}
	if err := os.Remove(job.UploadPath); err != nil && !os.IsNotExist(err) {
		p.logger.WarnTag("BATCH", "job %s upload cleanup: %v", job.SessionID, err)
	}
}
