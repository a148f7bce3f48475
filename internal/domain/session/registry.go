package session

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// NewSessionID returns a sortable identifier: a wall-clock prefix plus
// a short random suffix, e.g. 20260825_143015_a1b2c3d4.
func NewSessionID() string {
	id := uuid.New()
	return time.Now().Format("20060102_150405") + "_" + hex.EncodeToString(id[:4])
}

// Info is the registry's listing view of one session.
type Info struct {
	SessionID   string  `json:"session_id"`
	ConnectedAt string  `json:"connected_at"`
	Duration    float64 `json:"duration"`
	State       string  `json:"state"`
}

// Registry tracks live sessions. It is injected wherever sessions are
// created or looked up; nothing in the module reaches for a package
// global.
type Registry struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{logger: logger}
}

// Add stores the session under its ID.
func (r *Registry) Add(s *Session) {
	if s == nil {
		return
	}
	r.sessions.Store(s.ID(), s)
	r.logger.DebugTag("SESSION", "registry added %s (%d active)", s.ID(), r.Len())
}

// Get looks up a session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	value, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// Remove drops the session from the registry. The session itself is
// not closed; callers close first, then remove.
func (r *Registry) Remove(id string) {
	if id == "" {
		return
	}
	r.sessions.Delete(id)
	r.logger.DebugTag("SESSION", "registry removed %s (%d active)", id, r.Len())
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// List returns a snapshot of all sessions, oldest first. The ID's
// timestamp prefix makes lexical order chronological. The result is
// never nil; listings serialize as [] when no session is connected.
func (r *Registry) List() []Info {
	infos := make([]Info, 0)
	r.sessions.Range(func(_, value any) bool {
		s := value.(*Session)
		infos = append(infos, Info{
			SessionID:   s.ID(),
			ConnectedAt: s.CreatedAt().Format(time.RFC3339),
			Duration:    s.Clock(),
			State:       s.State().String(),
		})
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SessionID < infos[j].SessionID
	})
	return infos
}

// CloseAll closes every session and empties the registry. Used at
// server shutdown.
func (r *Registry) CloseAll() {
	r.sessions.Range(func(key, value any) bool {
		if s, ok := value.(*Session); ok {
			s.Close()
		}
		r.sessions.Delete(key)
		return true
	})
}
