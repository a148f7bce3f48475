// Package archive persists finished and in-flight batch transcription
// jobs so their transcripts survive beyond the request that produced
// them. Three drivers share one contract: memory for single-node
// defaults, sqlite for durable local storage, redis for shared
// deployments.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
)

// ErrNotFound reports a session ID the store has never seen or has
// already expired. Handlers map it to 404.
var ErrNotFound = errors.New("session not found")

// Status tracks a job through its lifetime.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is one archived session: its job metadata plus, once
// completed, the full transcript and summary.
type Record struct {
	SessionID        string            `json:"session_id"`
	Kind             string            `json:"kind"`
	Status           Status            `json:"status"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Duration         float64           `json:"duration"`
	SpeakersDetected int               `json:"speakers_detected"`
	Speakers         []string          `json:"speakers"`
	Segments         []segment.Segment `json:"segments"`
	Summary          map[string]any    `json:"summary,omitempty"`
}

// NewProcessingRecord is the archived form of a job that has been
// accepted but not yet transcribed. Slices start empty, not nil, so
// status queries see [] rather than null.
func NewProcessingRecord(sessionID, kind string) Record {
	return Record{
		SessionID: sessionID,
		Kind:      kind,
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
		Speakers:  []string{},
		Segments:  []segment.Segment{},
	}
}

// Store is the behaviour the transcription API needs from an archive.
// Put is an upsert keyed on SessionID; the same record is written once
// as processing and again with its final state.
type Store interface {
	Put(ctx context.Context, record Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]Record, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config selects and tunes a driver.
type Config struct {
	Driver string
	TTL    time.Duration
	Memory *MemoryConfig
	SQLite *SQLiteConfig
	Redis  *RedisConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database location when no shared handle is
// injected.
type SQLiteConfig struct {
	Path string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
