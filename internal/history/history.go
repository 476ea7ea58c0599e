// Package history is the append-only record of analysis results.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/cropdoc/internal/storage"
)

const DefaultRetention = 20

// Record is a stored analysis. Records are immutable once written.
type Record struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Backend is the persistence the store writes through.
type Backend interface {
	InsertRecord(ctx context.Context, r storage.Record, retention int) (int64, error)
	ListRecords(ctx context.Context, recordType string, limit int) ([]storage.Record, error)
	GetRecord(ctx context.Context, id string) (storage.Record, error)
}

type Store struct {
	backend   Backend
	retention int
	now       func() time.Time
}

type Option func(*Store)

// WithClock replaces the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRetention caps the total number of records kept. Zero keeps everything.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retention = n
		}
	}
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, retention: DefaultRetention, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Retention() int { return s.retention }

// Store persists payload under recordType, assigning id and timestamp.
func (s *Store) Store(ctx context.Context, recordType string, payload any) (Record, error) {
	if strings.TrimSpace(recordType) == "" {
		return Record{}, errors.New("record type is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s payload: %w", recordType, err)
	}

	at := s.now().UTC().Truncate(time.Millisecond)
	r := storage.Record{
		ID:        newID(recordType, at),
		Type:      recordType,
		Timestamp: at,
		Payload:   string(body),
	}
	if _, err := s.backend.InsertRecord(ctx, r, s.retention); err != nil {
		return Record{}, fmt.Errorf("storing %s record: %w", recordType, err)
	}
	return fromStorage(r), nil
}

// Query returns records newest first, optionally restricted to one type.
func (s *Store) Query(ctx context.Context, recordType string) ([]Record, error) {
	return s.Recent(ctx, recordType, 0)
}

// Recent is Query with a result limit; limit <= 0 means no limit.
func (s *Store) Recent(ctx context.Context, recordType string, limit int) ([]Record, error) {
	recs, err := s.backend.ListRecords(ctx, recordType, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = fromStorage(r)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	r, err := s.backend.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return fromStorage(r), nil
}

func newID(recordType string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", recordType, at.UnixMilli(), suffix)
}

func fromStorage(r storage.Record) Record {
	return Record{
		ID:        r.ID,
		Type:      r.Type,
		Timestamp: r.Timestamp.UTC().Format(storage.TimeLayout),
		Payload:   json.RawMessage(r.Payload),
	}
}
