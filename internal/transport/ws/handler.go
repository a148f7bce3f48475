package ws

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/eventbus"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/recorder"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/summary"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/vad"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// finalSummaryTimeout bounds the pre-disconnect summary so a slow
// engine cannot hold the connection teardown past the close watchdog.
const finalSummaryTimeout = 3 * time.Second

// Deps carries the application services every live connection shares.
// The per-connection pieces (provider, gate, recorder files) are built
// fresh in NewHandler.
type Deps struct {
	SampleRate    int
	ChunkDuration float64
	MaxSpeakers   int
	QueueSize     int
	NewProvider   func(apiKey string) (asr.Provider, error)
	NewGate       func() (*vad.Gate, error) // nil when gating is disabled
	Engine        summary.Engine            // nil for extractive-only summaries
	Registry      *session.Registry
	Recorder      *recorder.Recorder // nil disables recording
	Logger        *logging.Logger
}

// Handler drives one live transcription connection: binary frames feed
// the session, JSON control messages are answered inline, and the
// session's sink callbacks stream results back over the socket.
type Handler struct {
	conn   *Connection
	deps   Deps
	sess   *session.Session
	logger *logging.Logger

	closeOnce sync.Once
}

// NewHandler builds the per-connection pipeline, registers the session
// and confirms the connection to the client. A provider that cannot be
// constructed (a missing API key, typically) is reported in-band before
// the connection is failed.
func NewHandler(conn *Connection, deps Deps) (*Handler, error) {
	id := session.NewSessionID()

	provider, err := deps.NewProvider("")
	if err != nil {
		_ = conn.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
		return nil, err
	}

	var gate *vad.Gate
	if deps.NewGate != nil {
		gate, err = deps.NewGate()
		if err != nil {
			_ = conn.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
			_ = provider.Close()
			return nil, err
		}
	}

	var tap session.Tap
	if deps.Recorder != nil {
		sr, recErr := deps.Recorder.Open(id, deps.SampleRate)
		if recErr != nil {
			// Recording is best-effort; the session still runs.
			deps.Logger.WarnTag("WS", "session %s recording unavailable: %v", id, recErr)
		} else {
			tap = sr
		}
	}

	h := &Handler{
		conn:   conn,
		deps:   deps,
		logger: deps.Logger,
	}
	h.sess = session.NewSession(context.Background(), session.Config{
		ID:         id,
		Kind:       "live",
		SampleRate: deps.SampleRate,
		QueueSize:  deps.QueueSize,
		Pipeline: session.NewPipeline(session.PipelineConfig{
			SessionID:     id,
			Gate:          gate,
			Provider:      provider,
			ChunkDuration: deps.ChunkDuration,
			MaxSpeakers:   deps.MaxSpeakers,
			Logger:        deps.Logger,
		}),
		Summarizer: summary.NewSummarizer(deps.Engine, deps.Logger),
		Sink:       h,
		Tap:        tap,
		Logger:     deps.Logger,
	})

	deps.Registry.Add(h.sess)
	h.sess.Start()

	if err := conn.WriteJSON(connectedMessage{
		Type:      "connected",
		SessionID: id,
		Message:   "WebSocket connected. Send PCM audio data (16-bit, 16kHz, mono)",
	}); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// GetSessionID implements SessionHandler.
func (h *Handler) GetSessionID() string {
	return h.sess.ID()
}

// Handle runs the read loop until the client disconnects or asks to.
func (h *Handler) Handle() {
	for {
		messageType, payload, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugTag("WS", "session %s read: %v", h.sess.ID(), err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			h.sess.Ingest(payload)
		case websocket.TextMessage:
			if h.handleControl(payload) {
				return
			}
		}
	}
}

// handleControl answers one control message and reports whether the
// client requested a disconnect. Malformed input is answered with an
// in-band error; the session keeps streaming.
func (h *Handler) handleControl(payload []byte) bool {
	var control controlMessage
	if err := sonic.Unmarshal(payload, &control); err != nil {
		h.send(errorMessage{Type: "error", Message: "invalid control message: " + err.Error()})
		return false
	}

	switch control.name() {
	case "ping":
		h.send(pongMessage{Type: "pong", Timestamp: h.sess.Clock()})
	case "set_name":
		name := strings.TrimSpace(control.UserName)
		h.sess.SetName(name)
		h.send(configConfirmedMessage{
			Type:     "config_confirmed",
			UserName: name,
			Message:  fmt.Sprintf("Haptic feedback enabled for name: %s", name),
		})
	case "get_summary":
		h.sendSummary(context.Background())
	case "disconnect":
		return true
	default:
		h.send(errorMessage{Type: "error", Message: fmt.Sprintf("unknown command: %q", control.name())})
	}
	return false
}

// Close sends a best-effort final summary when anything was
// transcribed, closes the session and drops it from the registry.
// Trailing unflushed audio is discarded: a disconnect cancels rather
// than drains. Idempotent; the read loop exit and the server shutdown
// may both call it.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), finalSummaryTimeout)
		defer cancel()
		summaries, stats := h.sess.Summary(ctx)
		if stats.TotalSegments > 0 {
			h.send(summaryMessage{
				Type: "summary",
				Data: summaryPayload{Summary: summaries, Stats: stats},
			})
		}

		h.sess.Close()
		h.deps.Registry.Remove(h.sess.ID())
	})
}

func (h *Handler) sendSummary(ctx context.Context) {
	summaries, stats := h.sess.Summary(ctx)
	h.send(summaryMessage{
		Type: "summary",
		Data: summaryPayload{Summary: summaries, Stats: stats},
	})
}

func (h *Handler) send(v any) {
	if err := h.conn.WriteJSON(v); err != nil {
		h.logger.DebugTag("WS", "session %s write: %v", h.sess.ID(), err)
	}
}

// OnStatus implements session.Sink.
func (h *Handler) OnStatus(message string, timestamp float64) {
	h.send(statusMessage{Type: "status", Message: message, Timestamp: timestamp})
}

// OnSegment implements session.Sink.
func (h *Handler) OnSegment(seg segment.Segment, haptic bool) {
	h.send(newTranscriptMessage(seg, haptic))
}

// OnHaptic implements session.Sink.
func (h *Handler) OnHaptic(event eventbus.HapticEventData) {
	h.send(hapticMessage{
		Type:      "haptic",
		Reason:    event.Reason,
		Text:      event.Text,
		SpeakerID: event.SpeakerID,
		UserName:  event.UserName,
	})
}

// OnOverlap implements session.Sink. Overlap transitions ride the
// status channel so existing clients render them without new message
// handling.
func (h *Handler) OnOverlap(event eventbus.OverlapEventData) {
	message := "overlap cleared"
	if event.Overlapping {
		message = "overlap: " + strings.Join(event.ActiveSpeakers, ", ")
	}
	h.send(statusMessage{Type: "status", Message: message, Timestamp: event.Timestamp})
}
