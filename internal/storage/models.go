package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// TimeLayout is the stored timestamp format: UTC, millisecond precision,
// fixed width so text ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one persisted analysis result.
type Record struct {
	Seq       int64
	ID        string
	Type      string
	Timestamp time.Time
	Payload   string // JSON object
}
