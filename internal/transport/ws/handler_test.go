package ws

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/asr"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/session"
)

// scriptedProvider returns one prepared result per flush, empty word
// lists once the script runs out.
type scriptedProvider struct {
	mu      sync.Mutex
	calls   int
	results []asr.Result
}

func (p *scriptedProvider) Transcribe(ctx context.Context, batch asr.Batch) (asr.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := p.calls
	p.calls++
	if call >= len(p.results) {
		return asr.Result{Kind: asr.KindWords}, nil
	}
	return p.results[call], nil
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Close() error { return nil }

func newTestServer(t *testing.T, newProvider func(string) (asr.Provider, error)) (*httptest.Server, *session.Registry) {
	t.Helper()

	registry := session.NewRegistry(nil)
	hub := NewHub()
	router := NewRouter(hub, nil, RouterOptions{})
	deps := Deps{
		SampleRate:    16000,
		ChunkDuration: 1.0,
		MaxSpeakers:   5,
		NewProvider:   newProvider,
		Registry:      registry,
	}
	router.SetHandlerBuilder(func(conn *Connection, req *http.Request) (SessionHandler, error) {
		return NewHandler(conn, deps)
	})

	srv := httptest.NewServer(http.HandlerFunc(router.Handle))
	t.Cleanup(func() {
		hub.CloseAll(nil)
		srv.Close()
	})
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, sonic.Unmarshal(payload, &envelope))
	return envelope
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	payload, err := sonic.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// halfSecondPCM is 0.5s of silence at 16kHz mono PCM16.
func halfSecondPCM() []byte {
	return bytes.Repeat([]byte{0}, 16000)
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestLiveProtocolRoundTrip(t *testing.T) {
	provider := &scriptedProvider{results: []asr.Result{
		{Kind: asr.KindWords, Words: []asr.Word{
			{SpeakerTag: "spk_a", Text: "Hello", Start: 0.1, End: 0.5},
			{SpeakerTag: "spk_a", Text: "John.", Start: 0.6, End: 0.9},
		}},
	}}
	srv, registry := newTestServer(t, func(string) (asr.Provider, error) { return provider, nil })
	conn := dial(t, srv)

	connected := readEnvelope(t, conn)
	require.Equal(t, "connected", connected["type"])
	sessionID, _ := connected["session_id"].(string)
	require.NotEmpty(t, sessionID)
	_, found := registry.Get(sessionID)
	assert.True(t, found)

	sendJSON(t, conn, map[string]any{"command": "set_name", "user_name": "John"})
	confirmed := readEnvelope(t, conn)
	assert.Equal(t, "config_confirmed", confirmed["type"])
	assert.Equal(t, "John", confirmed["user_name"])
	assert.Contains(t, confirmed["message"], "John")

	sendJSON(t, conn, map[string]any{"command": "ping"})
	pong := readEnvelope(t, conn)
	assert.Equal(t, "pong", pong["type"])
	assert.InDelta(t, 0.0, pong["timestamp"], 1e-9)

	// Three half-second frames; the third makes the 1s window due.
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, halfSecondPCM()))
	}

	status := readEnvelope(t, conn)
	assert.Equal(t, "status", status["type"])
	assert.Equal(t, "Processing audio...", status["message"])

	transcript := readEnvelope(t, conn)
	require.Equal(t, "transcript", transcript["type"])
	seg := transcript["segment"].(map[string]any)
	assert.Equal(t, "S1", seg["speaker_id"])
	assert.Equal(t, "Hello John.", seg["text"])
	assert.Equal(t, true, seg["haptic"])

	haptic := readEnvelope(t, conn)
	assert.Equal(t, "haptic", haptic["type"])
	assert.Equal(t, "name_mentioned", haptic["reason"])
	assert.Equal(t, "S1", haptic["speaker_id"])
	assert.Equal(t, "John", haptic["user_name"])

	// The clock tracks received audio.
	sendJSON(t, conn, map[string]any{"command": "ping"})
	pong = readEnvelope(t, conn)
	assert.InDelta(t, 1.5, pong["timestamp"], 1e-9)

	sendJSON(t, conn, map[string]any{"command": "get_summary"})
	summary := readEnvelope(t, conn)
	require.Equal(t, "summary", summary["type"])
	data := summary["data"].(map[string]any)
	stats := data["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["total_segments"])
	assert.Contains(t, data["summary"].(map[string]any), "overall")

	// Client-requested disconnect: a final summary precedes the close.
	sendJSON(t, conn, map[string]any{"command": "disconnect"})
	final := readEnvelope(t, conn)
	assert.Equal(t, "summary", final["type"])

	waitFor(t, func() bool { return registry.Len() == 0 }, "session not removed from registry")
}

func TestMalformedControlKeepsStreaming(t *testing.T) {
	srv, registry := newTestServer(t, func(string) (asr.Provider, error) {
		return &scriptedProvider{}, nil
	})
	conn := dial(t, srv)
	readEnvelope(t, conn) // connected

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this is not json{{")))
	errMsg := readEnvelope(t, conn)
	assert.Equal(t, "error", errMsg["type"])
	assert.Contains(t, errMsg["message"], "invalid control message")

	// The session survived the bad message.
	sendJSON(t, conn, map[string]any{"command": "ping"})
	pong := readEnvelope(t, conn)
	assert.Equal(t, "pong", pong["type"])
	assert.Equal(t, 1, registry.Len())
}

func TestUnknownCommandAnsweredInBand(t *testing.T) {
	srv, _ := newTestServer(t, func(string) (asr.Provider, error) {
		return &scriptedProvider{}, nil
	})
	conn := dial(t, srv)
	readEnvelope(t, conn) // connected

	sendJSON(t, conn, map[string]any{"command": "rewind"})
	errMsg := readEnvelope(t, conn)
	assert.Equal(t, "error", errMsg["type"])
	assert.Contains(t, errMsg["message"], "rewind")
}

func TestConfigTypeAliasSetsName(t *testing.T) {
	srv, _ := newTestServer(t, func(string) (asr.Provider, error) {
		return &scriptedProvider{}, nil
	})
	conn := dial(t, srv)
	readEnvelope(t, conn) // connected

	sendJSON(t, conn, map[string]any{"type": "config", "user_name": "Ada"})
	confirmed := readEnvelope(t, conn)
	assert.Equal(t, "config_confirmed", confirmed["type"])
	assert.Equal(t, "Ada", confirmed["user_name"])
}

func TestProviderFailureReportedBeforeClose(t *testing.T) {
	srv, registry := newTestServer(t, func(string) (asr.Provider, error) {
		return nil, errors.New("ELEVEN_API_KEY not configured on server")
	})
	conn := dial(t, srv)

	errMsg := readEnvelope(t, conn)
	assert.Equal(t, "error", errMsg["type"])
	assert.Contains(t, errMsg["message"], "ELEVEN_API_KEY")

	// The server closes the connection after the in-band error.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, registry.Len())
}

func TestSilentDisconnectCleansUp(t *testing.T) {
	srv, registry := newTestServer(t, func(string) (asr.Provider, error) {
		return &scriptedProvider{}, nil
	})
	conn := dial(t, srv)
	readEnvelope(t, conn) // connected
	require.Equal(t, 1, registry.Len())

	require.NoError(t, conn.Close())

	waitFor(t, func() bool { return registry.Len() == 0 }, "session not removed after disconnect")
}
