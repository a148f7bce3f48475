// Package recorder keeps an on-disk trace of live sessions: the raw
// received audio as a WAV file and the transcript events as one JSON
// line per event. Audio arrives through the session tap; transcript
// events arrive over the event bus, so the recorder never touches the
// pipeline itself.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/audio"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// Event is one line of the session event log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
}

// Recorder manages per-session recording files under one directory.
type Recorder struct {
	dir    string
	logger *logging.Logger

	mu     sync.Mutex
	active map[string]*SessionRecorder

	onSegment func(eventbus.SegmentEventData)
	onHaptic  func(eventbus.HapticEventData)
	onOverlap func(eventbus.OverlapEventData)
	onClosed  func(eventbus.SessionEventData)
}

// NewRecorder builds a recorder writing under dir.
func NewRecorder(dir string, logger *logging.Logger) *Recorder {
	return &Recorder{
		dir:    dir,
		logger: logger,
		active: make(map[string]*SessionRecorder),
	}
}

// Start creates the recording directory and subscribes to the
// transcript topics.
func (r *Recorder) Start() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create recording directory: %w", err)
	}

	r.onSegment = func(data eventbus.SegmentEventData) {
		r.append(data.SessionID, "segment", data.Segment)
	}
	r.onHaptic = func(data eventbus.HapticEventData) {
		r.append(data.SessionID, "haptic", data)
	}
	r.onOverlap = func(data eventbus.OverlapEventData) {
		r.append(data.SessionID, "overlap", data)
	}
	r.onClosed = func(data eventbus.SessionEventData) {
		r.release(data.SessionID)
	}

	eventbus.Subscribe(eventbus.EventTranscriptSegment, r.onSegment)
	eventbus.Subscribe(eventbus.EventHapticTriggered, r.onHaptic)
	eventbus.Subscribe(eventbus.EventOverlapChanged, r.onOverlap)
	eventbus.Subscribe(eventbus.EventSessionClosed, r.onClosed)

	r.logger.InfoTag("RECORD", "recording sessions under %s", r.dir)
	return nil
}

// Stop unsubscribes and finalizes everything still open.
func (r *Recorder) Stop() {
	if r.onSegment != nil {
		eventbus.Unsubscribe(eventbus.EventTranscriptSegment, r.onSegment)
		eventbus.Unsubscribe(eventbus.EventHapticTriggered, r.onHaptic)
		eventbus.Unsubscribe(eventbus.EventOverlapChanged, r.onOverlap)
		eventbus.Unsubscribe(eventbus.EventSessionClosed, r.onClosed)
	}

	r.mu.Lock()
	open := make([]*SessionRecorder, 0, len(r.active))
	for _, sr := range r.active {
		open = append(open, sr)
	}
	r.active = make(map[string]*SessionRecorder)
	r.mu.Unlock()

	for _, sr := range open {
		if err := sr.Close(); err != nil {
			r.logger.WarnTag("RECORD", "finalize %s: %v", sr.sessionID, err)
		}
	}
}

// Open starts recording for one session. The returned recorder is the
// session's audio tap; the event log fills in from the bus.
func (r *Recorder) Open(sessionID string, sampleRate int) (*SessionRecorder, error) {
	wavPath := filepath.Join(r.dir, "session_"+sessionID+".wav")
	wav, err := os.Create(wavPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", wavPath, err)
	}
	// Placeholder header; Close rewrites it with the real sizes.
	if err := audio.WriteWAVHeader(wav, sampleRate, 1, 0); err != nil {
		wav.Close()
		return nil, err
	}

	eventsPath := filepath.Join(r.dir, "session_"+sessionID+"_transcript.jsonl")
	events, err := os.Create(eventsPath)
	if err != nil {
		wav.Close()
		return nil, fmt.Errorf("create %s: %w", eventsPath, err)
	}

	sr := &SessionRecorder{
		sessionID:  sessionID,
		sampleRate: sampleRate,
		wav:        wav,
		events:     events,
		logger:     r.logger,
	}

	r.mu.Lock()
	r.active[sessionID] = sr
	r.mu.Unlock()

	r.logger.DebugTag("RECORD", "session %s recording to %s", sessionID, wavPath)
	return sr, nil
}

func (r *Recorder) lookup(sessionID string) *SessionRecorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[sessionID]
}

func (r *Recorder) append(sessionID, eventType string, data any) {
	if sr := r.lookup(sessionID); sr != nil {
		sr.writeEvent(eventType, data)
	}
}

// release finalizes and forgets a session's files. Closing twice is
// harmless, so the session tap and the bus event may race freely.
func (r *Recorder) release(sessionID string) {
	r.mu.Lock()
	sr := r.active[sessionID]
	delete(r.active, sessionID)
	r.mu.Unlock()

	if sr != nil {
		if err := sr.Close(); err != nil {
			r.logger.WarnTag("RECORD", "finalize %s: %v", sessionID, err)
		}
	}
}

// SessionRecorder writes one session's audio and event log.
type SessionRecorder struct {
	sessionID  string
	sampleRate int
	logger     *logging.Logger

	mu        sync.Mutex
	wav       *os.File
	events    *os.File
	dataBytes int
	failed    bool
	closed    bool
}

// WriteFrame appends the frame's PCM to the WAV body.
func (s *SessionRecorder) WriteFrame(frame audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed {
		return
	}
	if _, err := s.wav.Write(frame.PCM); err != nil {
		// Disk trouble; give up on this session but keep the stream alive.
		s.failed = true
		s.logger.WarnTag("RECORD", "session %s audio write: %v", s.sessionID, err)
		return
	}
	s.dataBytes += len(frame.PCM)
}

func (s *SessionRecorder) writeEvent(eventType string, data any) {
	line, err := sonic.Marshal(Event{Timestamp: time.Now(), Type: eventType, Data: data})
	if err != nil {
		s.logger.WarnTag("RECORD", "session %s encode %s event: %v", s.sessionID, eventType, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := s.events.Write(append(line, '\n')); err != nil {
		s.logger.WarnTag("RECORD", "session %s event write: %v", s.sessionID, err)
	}
}

// Close patches the WAV header with the final data size and closes
// both files. Safe to call more than once.
func (s *SessionRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if _, err := s.wav.Seek(0, 0); err == nil {
		if err := audio.WriteWAVHeader(s.wav, s.sampleRate, 1, s.dataBytes); err != nil && firstErr == nil {
			firstErr = err
		}
	} else if firstErr == nil {
		firstErr = err
	}
	if err := s.wav.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.events.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
