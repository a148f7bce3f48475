package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/domain/segment"
	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed archive over an already migrated
// database handle.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite archive requires database handle")
	}
	return &sqliteStore{db: db, ttl: cfg.TTL}, nil
}

func (s *sqliteStore) Put(ctx context.Context, record Record) error {
	if record.SessionID == "" {
		return fmt.Errorf("session id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	row := storage.SessionRecord{
		SessionID:        record.SessionID,
		Kind:             record.Kind,
		Status:           string(record.Status),
		Error:            record.Error,
		CreatedAt:        record.CreatedAt,
		CompletedAt:      record.CompletedAt,
		DurationSeconds:  record.Duration,
		SpeakersDetected: record.SpeakersDetected,
	}
	if s.ttl > 0 {
		exp := record.CreatedAt.Add(s.ttl)
		row.ExpiresAt = &exp
	}
	row.Speakers, _ = json.Marshal(record.Speakers)
	row.Segments, _ = json.Marshal(record.Segments)
	if record.Summary != nil {
		row.Summary, _ = json.Marshal(record.Summary)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", record.SessionID).
			Delete(&storage.SessionRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, sessionID string) (Record, error) {
	var row storage.SessionRecord
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return Record{}, err
	}
	if row.ExpiresAt != nil && time.Now().After(*row.ExpiresAt) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return fromRow(row), nil
}

func (s *sqliteStore) Delete(ctx context.Context, sessionID string) error {
	result := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&storage.SessionRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Record, error) {
	var rows []storage.SessionRecord
	if err := s.db.WithContext(ctx).Order("session_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row.ExpiresAt != nil && now.After(*row.ExpiresAt) {
			continue
		}
		records = append(records, fromRow(row))
	}
	return records, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.SessionRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.SessionRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var completed int64
	if err := s.db.WithContext(ctx).Model(&storage.SessionRecord{}).
		Where("status = ?", string(StatusCompleted)).Count(&completed).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        "sqlite",
		"total":       total,
		"completed":   completed,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func fromRow(row storage.SessionRecord) Record {
	record := Record{
		SessionID:        row.SessionID,
		Kind:             row.Kind,
		Status:           Status(row.Status),
		Error:            row.Error,
		CreatedAt:        row.CreatedAt,
		CompletedAt:      row.CompletedAt,
		Duration:         row.DurationSeconds,
		SpeakersDetected: row.SpeakersDetected,
	}
	if len(row.Speakers) > 0 {
		_ = json.Unmarshal(row.Speakers, &record.Speakers)
	}
	if len(row.Segments) > 0 {
		_ = json.Unmarshal(row.Segments, &record.Segments)
	}
	if record.Segments == nil {
		record.Segments = []segment.Segment{}
	}
	if len(row.Summary) > 0 {
		_ = json.Unmarshal(row.Summary, &record.Summary)
	}
	return record
}
