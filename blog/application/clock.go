package application

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces the random component of media file names.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces 8-character ids taken from a random UUID.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
