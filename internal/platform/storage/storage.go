package storage

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	platformerrors "github.com/AnjaneyaBhardwaj/Deafine/internal/platform/errors"
)

// Open opens the SQLite database at path, creating the directory and
// migrating the schema as needed. Callers own the returned handle and
// pass it to the stores that need it; there is no package-level
// instance.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
				"create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"open database", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"migrate schema", err)
	}
	return db, nil
}

// SessionRecord is the GORM model for archived transcription sessions.
// Segments, Speakers and Summary hold the JSON-encoded result so the
// transcript endpoint can replay a completed job without recomputing
// anything.
type SessionRecord struct {
	ID               uint           `gorm:"primaryKey"`
	SessionID        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	Kind             string         `gorm:"type:varchar(16)"                      json:"kind"`
	Status           string         `gorm:"type:varchar(16);index"                json:"status"`
	Error            string         `gorm:"type:text"                             json:"error,omitempty"`
	CreatedAt        time.Time      `                                             json:"created_at"`
	CompletedAt      *time.Time     `                                             json:"completed_at,omitempty"`
	ExpiresAt        *time.Time     `gorm:"index"                                 json:"expires_at,omitempty"`
	DurationSeconds  float64        `                                             json:"duration"`
	SpeakersDetected int            `                                             json:"speakers_detected"`
	Speakers         datatypes.JSON `                                             json:"speakers,omitempty"`
	Segments         datatypes.JSON `                                             json:"segments,omitempty"`
	Summary          datatypes.JSON `                                             json:"summary,omitempty"`
}

// TableName pins the table name independent of GORM pluralization.
func (SessionRecord) TableName() string {
	return "session_records"
}
