package eventbus

import "github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"

// Topics published by the transcription pipeline.
const (
	// Session lifecycle.
	EventSessionCreated = "session:created"
	EventSessionClosed  = "session:closed"

	// Pipeline output.
	EventTranscriptSegment = "transcript:segment"
	EventFlushCompleted    = "asr:flush"
	EventOverlapChanged    = "overlap:changed"
	EventHapticTriggered   = "haptic:triggered"

	// System events.
	EventSystemError = "system:error"
)

// SessionEventData accompanies session lifecycle events.
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind,omitempty"` // live or batch
}

// SegmentEventData carries one assembled transcript segment.
type SegmentEventData struct {
	SessionID string          `json:"session_id"`
	Segment   segment.Segment `json:"segment"`
}

// FlushEventData reports the outcome of one transcription flush.
type FlushEventData struct {
	SessionID    string  `json:"session_id"`
	BatchStart   float64 `json:"batch_start"`
	BatchEnd     float64 `json:"batch_end"`
	SegmentCount int     `json:"segment_count"`
	Failed       bool    `json:"failed"`
}

// OverlapEventData is published on overlap state transitions only,
// never on every frame tick.
type OverlapEventData struct {
	SessionID      string   `json:"session_id"`
	Overlapping    bool     `json:"overlapping"`
	ActiveSpeakers []string `json:"active_speakers"`
	Timestamp      float64  `json:"timestamp"`
}

// HapticEventData fires when a watched name is spoken.
type HapticEventData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id"`
	UserName  string `json:"user_name"`
}

// SystemEventData carries out-of-band errors and notices.
type SystemEventData struct {
	Level   string      `json:"level"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
