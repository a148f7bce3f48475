package webapi

import (
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
)

// TranscriptResponse is the synchronous transcription result.
type TranscriptResponse struct {
	SessionID        string            `json:"session_id"`
	Segments         []segment.Segment `json:"segments"`
	Summary          map[string]any    `json:"summary,omitempty"`
	Duration         float64           `json:"duration"`
	SpeakersDetected int               `json:"speakers_detected"`
}

// StreamAccepted acknowledges an asynchronous submission and tells the
// caller where to poll for progress.
type StreamAccepted struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	CheckStatus   string `json:"check_status"`
	GetTranscript string `json:"get_transcript"`
}

// SessionInfo is the status view of an archived session.
type SessionInfo struct {
	SessionID     string   `json:"session_id"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at"`
	SegmentsCount int      `json:"segments_count"`
	Speakers      []string `json:"speakers"`
}

// SessionTranscript is the full transcript of a session that has left
// the processing state.
type SessionTranscript struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	Segments  []segment.Segment `json:"segments"`
	Speakers  []string          `json:"speakers"`
	Error     string            `json:"error,omitempty"`
}

// SessionList enumerates archived sessions.
type SessionList struct {
	Total    int               `json:"total"`
	Sessions []SessionListItem `json:"sessions"`
}

// SessionListItem is one row of SessionList.
type SessionListItem struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	SegmentsCount int    `json:"segments_count"`
}

// LiveSessionList enumerates currently connected websocket sessions.
type LiveSessionList struct {
	Total    int            `json:"total"`
	Sessions []session.Info `json:"sessions"`
}

// HealthResponse reports readiness of the configured backends.
type HealthResponse struct {
	Status     string `json:"status"`
	ElevenLabs bool   `json:"elevenlabs"`
	OpenAI     bool   `json:"openai"`
	Version    string `json:"version"`
}
