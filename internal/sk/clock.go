package sk

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so snapshot timestamps and restoration marks
// are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the local wall-clock time. Storage folder names are
// formatted from it, so it is deliberately not converted to UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator allocates snapshot ids.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
