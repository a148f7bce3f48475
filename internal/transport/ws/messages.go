package ws

import (
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
)

// Wire protocol. After the upgrade the client streams binary PCM16
// frames (16 kHz mono) and sends JSON control messages; the server
// answers with typed JSON events. Commands arrive under "command";
// "type" is accepted as an alias for clients following the older
// message layout.
type controlMessage struct {
	Command  string `json:"command"`
	Type     string `json:"type"`
	UserName string `json:"user_name"`
}

// name resolves the effective command, mapping the legacy
// {"type": "config"} spelling onto set_name.
func (m controlMessage) name() string {
	name := m.Command
	if name == "" {
		name = m.Type
	}
	if name == "config" {
		name = "set_name"
	}
	return name
}

type connectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type statusMessage struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

type transcriptMessage struct {
	Type    string            `json:"type"`
	Segment transcriptSegment `json:"segment"`
}

// transcriptSegment mirrors segment.Segment plus the per-segment haptic
// flag, which exists only on the wire.
type transcriptSegment struct {
	SpeakerID string  `json:"speaker_id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Haptic    bool    `json:"haptic"`
}

func newTranscriptMessage(seg segment.Segment, haptic bool) transcriptMessage {
	return transcriptMessage{
		Type: "transcript",
		Segment: transcriptSegment{
			SpeakerID: seg.SpeakerID,
			Text:      seg.Text,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Haptic:    haptic,
		},
	}
}

type hapticMessage struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id"`
	UserName  string `json:"user_name"`
}

type pongMessage struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

type configConfirmedMessage struct {
	Type     string `json:"type"`
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

type summaryMessage struct {
	Type string         `json:"type"`
	Data summaryPayload `json:"data"`
}

type summaryPayload struct {
	Summary map[string]string `json:"summary"`
	Stats   summary.Stats     `json:"stats"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
