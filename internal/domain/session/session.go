package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/overlap"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/observability"
)

const (
	// frameQueueSize bounds the intake channel. When the consumer
	// falls behind (a slow transcription backend), the newest frames
	// are dropped rather than blocking the reader or growing memory.
	frameQueueSize = 256

	// closeTimeout caps how long Close waits for the consumer to
	// finish an in-flight flush.
	closeTimeout = 5 * time.Second
)

// State tracks a session through its lifecycle. Transitions are
// strictly forward: Connecting -> Streaming -> Closing -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink receives a session's live output, in the consumer goroutine's
// order. Implementations must not block; the websocket transport
// forwards these straight to its client.
type Sink interface {
	OnStatus(message string, timestamp float64)
	OnSegment(seg segment.Segment, haptic bool)
	OnHaptic(event eventbus.HapticEventData)
	OnOverlap(event eventbus.OverlapEventData)
}

type noopSink struct{}

func (noopSink) OnStatus(string, float64)            {}
func (noopSink) OnSegment(segment.Segment, bool)     {}
func (noopSink) OnHaptic(eventbus.HapticEventData)   {}
func (noopSink) OnOverlap(eventbus.OverlapEventData) {}

// Tap receives every frame the consumer processes, gated or not; the
// recorder uses it to keep the raw session audio. Called from the
// consumer goroutine only.
type Tap interface {
	WriteFrame(frame audio.Frame)
	Close() error
}

// Config assembles a session.
type Config struct {
	ID         string
	Kind       string // live or batch
	SampleRate int
	QueueSize  int // optional, defaults to frameQueueSize
	Pipeline   *Pipeline
	Summarizer *summary.Summarizer
	Sink       Sink // optional
	Tap        Tap  // optional
	Logger     *logging.Logger
}

// Session owns one client's streaming lifecycle: a bounded intake
// queue, a single consumer goroutine driving the pipeline, overlap
// tracking and the running summary. All public methods are safe for
// concurrent use.
type Session struct {
	id        string
	kind      string
	createdAt time.Time

	pipeline   *Pipeline
	summarizer *summary.Summarizer
	overlap    *overlap.Detector
	sink       Sink
	tap        Tap
	logger     *logging.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	frames chan audio.Frame
	done   chan struct{}

	state   atomic.Int32
	started atomic.Bool
	dropped atomic.Int64

	mu         sync.Mutex
	userName   string
	clock      float64
	sampleRate int

	// consumer goroutine only
	overlapping bool
}

// NewSession builds a session; Start launches its consumer.
func NewSession(parent context.Context, config Config) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	sink := config.Sink
	if sink == nil {
		sink = noopSink{}
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = frameQueueSize
	}
	return &Session{
		id:         config.ID,
		kind:       config.Kind,
		createdAt:  time.Now(),
		pipeline:   config.Pipeline,
		summarizer: config.Summarizer,
		overlap:    overlap.NewDetector(),
		sink:       sink,
		tap:        config.Tap,
		logger:     config.Logger,
		ctx:        ctx,
		cancel:     cancel,
		frames:     make(chan audio.Frame, queueSize),
		done:       make(chan struct{}),
		sampleRate: config.SampleRate,
	}
}

// Start launches the consumer goroutine and announces the session.
// Calling Start twice is a no-op.
func (s *Session) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.logger.InfoTag("SESSION", "session %s started (%s)", s.id, s.kind)
	eventbus.PublishAsync(eventbus.EventSessionCreated, eventbus.SessionEventData{
		SessionID: s.id,
		Kind:      s.kind,
	})
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Kind returns "live" or "batch".
func (s *Session) Kind() string { return s.kind }

// CreatedAt returns the wall-clock creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Context is canceled when the session closes; in-flight
// transcriptions observe it.
func (s *Session) Context() context.Context { return s.ctx }

// Clock returns the stream-relative time in seconds: total audio
// received so far.
func (s *Session) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Dropped returns how many frames the bounded queue discarded.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// SetName configures the watched name for haptic triggers. An empty
// name disables the trigger. Counts as client activity, so it also
// promotes a connecting session to streaming.
func (s *Session) SetName(name string) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	s.userName = name
	s.mu.Unlock()
	s.markStreaming()
	s.logger.InfoTag("SESSION", "session %s watching name %q", s.id, name)
}

// UserName returns the currently watched name.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

// Ingest stamps raw PCM with the session clock and queues it for the
// consumer. When the queue is full the frame is dropped and counted;
// the clock still advances so stream time keeps tracking received
// audio. Frames arriving after Close starts are discarded.
func (s *Session) Ingest(pcm []byte) {
	if len(pcm) == 0 || s.State() >= StateClosing {
		return
	}
	s.markStreaming()

	s.mu.Lock()
	frame := audio.Frame{Timestamp: s.clock, PCM: pcm, SampleRate: s.sampleRate}
	s.clock += frame.Duration()
	s.mu.Unlock()

	select {
	case s.frames <- frame:
	default:
		n := s.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			s.logger.WarnTag("SESSION", "session %s consumer behind, dropped %d frames", s.id, n)
		}
		observability.RecordMetric(s.ctx, observability.MetricFramesDropped, 1,
			map[string]string{"session": s.id})
	}
}

// Summary synthesizes the current summary and speaker stats. Safe to
// call at any point in the lifecycle, including after Close.
func (s *Session) Summary(ctx context.Context) (map[string]string, summary.Stats) {
	return s.summarizer.Summary(ctx), s.summarizer.Stats()
}

// SpeakerCount returns the distinct speakers labeled so far.
func (s *Session) SpeakerCount() int { return s.pipeline.SpeakerCount() }

// Speakers returns the assigned labels in first-seen order.
func (s *Session) Speakers() []string { return s.pipeline.Speakers() }

// Close stops intake, cancels any in-flight transcription, waits
// briefly for the consumer, and releases pipeline resources. Buffered
// audio below one chunk is discarded; Shutdown is the orderly variant
// that transcribes it first. It is idempotent; only the first call
// does the work.
func (s *Session) Close() {
	if !s.stopConsumer() {
		return
	}
	s.teardown()
}

// Shutdown closes the session like Close, but first pushes whatever
// the intake queue still holds through the pipeline and transcribes
// the buffered tail, so the transcript and summary cover audio
// captured right up to the stop. ctx bounds the tail transcription.
func (s *Session) Shutdown(ctx context.Context) {
	if !s.stopConsumer() {
		return
	}
	s.drainTail(ctx)
	s.teardown()
}

// stopConsumer moves the session to Closing and waits for the
// consumer goroutine to exit. Reports false when another close got
// there first.
func (s *Session) stopConsumer() bool {
	if !s.advance(StateClosing) {
		return false
	}

	s.cancel(context.Canceled)

	if s.started.Load() {
		select {
		case <-s.done:
		case <-time.After(closeTimeout):
			s.logger.WarnTag("SESSION", "session %s consumer did not stop within %s", s.id, closeTimeout)
		}
	}
	return true
}

// drainTail runs after the consumer has stopped, so the pipeline is
// exclusively ours. Frames a racing Ingest managed to queue are
// absorbed first, then the partial chunk is flushed.
func (s *Session) drainTail(ctx context.Context) {
	for {
		select {
		case frame := <-s.frames:
			if s.tap != nil {
				s.tap.WriteFrame(frame)
			}
			if s.pipeline.Push(frame) {
				s.handleOutcome(s.pipeline.Flush(ctx))
			}
		default:
			if s.pipeline.Pending() > 0 {
				s.sink.OnStatus("Processing remaining audio...", s.Clock())
				s.handleOutcome(s.pipeline.Flush(ctx))
			}
			return
		}
	}
}

func (s *Session) teardown() {
	if err := s.pipeline.Close(); err != nil {
		s.logger.WarnTag("SESSION", "session %s pipeline close: %v", s.id, err)
	}
	if s.tap != nil {
		if err := s.tap.Close(); err != nil {
			s.logger.WarnTag("SESSION", "session %s recorder close: %v", s.id, err)
		}
	}

	s.state.Store(int32(StateClosed))
	s.logger.InfoTag("SESSION", "session %s closed after %.1fs of audio", s.id, s.Clock())
	eventbus.PublishAsync(eventbus.EventSessionClosed, eventbus.SessionEventData{
		SessionID: s.id,
		Kind:      s.kind,
	})
}

// markStreaming promotes Connecting to Streaming on first activity.
func (s *Session) markStreaming() {
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateStreaming))
}

// advance moves to target if the session has not passed it yet.
func (s *Session) advance(target State) bool {
	for {
		current := s.state.Load()
		if current >= int32(target) {
			return false
		}
		if s.state.CompareAndSwap(current, int32(target)) {
			return true
		}
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case frame := <-s.frames:
			s.consume(frame)
		}
	}
}

// consume drives one frame through the pipeline and publishes
// whatever it produced. Runs only on the consumer goroutine.
func (s *Session) consume(frame audio.Frame) {
	if s.tap != nil {
		s.tap.WriteFrame(frame)
	}
	if s.pipeline.Push(frame) {
		s.sink.OnStatus("Processing audio...", frame.Timestamp)
		s.handleOutcome(s.pipeline.Flush(s.ctx))
	}
	s.tickOverlap(frame.End())
}

func (s *Session) handleOutcome(outcome *FlushOutcome) {
	if outcome == nil {
		return
	}

	eventbus.PublishAsync(eventbus.EventFlushCompleted, eventbus.FlushEventData{
		SessionID:    s.id,
		BatchStart:   outcome.BatchStart,
		BatchEnd:     outcome.BatchEnd,
		SegmentCount: len(outcome.Segments),
		Failed:       outcome.Err != nil,
	})

	if outcome.Err != nil {
		// The watermark already advanced; this window is simply lost.
		s.logger.ErrorTag("SESSION", "session %s flush [%.1f, %.1f] failed: %v",
			s.id, outcome.BatchStart, outcome.BatchEnd, outcome.Err)
		return
	}

	watched := s.UserName()
	for _, seg := range outcome.Segments {
		s.summarizer.Add(seg)
		s.overlap.Observe(seg.SpeakerID, seg.EndTime)

		haptic := watched != "" && containsFold(seg.Text, watched)
		s.sink.OnSegment(seg, haptic)
		eventbus.PublishAsync(eventbus.EventTranscriptSegment, eventbus.SegmentEventData{
			SessionID: s.id,
			Segment:   seg,
		})

		if haptic {
			event := eventbus.HapticEventData{
				SessionID: s.id,
				Reason:    "name_mentioned",
				Text:      seg.Text,
				SpeakerID: seg.SpeakerID,
				UserName:  watched,
			}
			s.logger.InfoTag("HAPTIC", "session %s: %s mentioned by %s", s.id, watched, seg.SpeakerID)
			s.sink.OnHaptic(event)
			eventbus.PublishAsync(eventbus.EventHapticTriggered, event)
		}
	}
}

// tickOverlap re-evaluates the overlap window at the frame boundary
// and reports transitions only.
func (s *Session) tickOverlap(now float64) {
	overlapping := s.overlap.Overlapping(now)
	if overlapping == s.overlapping {
		return
	}
	s.overlapping = overlapping

	event := eventbus.OverlapEventData{
		SessionID:      s.id,
		Overlapping:    overlapping,
		ActiveSpeakers: s.overlap.ActiveSpeakers(now),
		Timestamp:      now,
	}
	s.logger.DebugTag("SESSION", "session %s overlap=%v speakers=%v at %.1fs",
		s.id, overlapping, event.ActiveSpeakers, now)
	s.sink.OnOverlap(event)
	eventbus.PublishAsync(eventbus.EventOverlapChanged, event)
	observability.RecordMetric(s.ctx, observability.MetricOverlapChanges, 1,
		map[string]string{"session": s.id})
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
