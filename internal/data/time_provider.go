package data

import "time"

// TimeProvider supplies the timestamps repositories stamp onto rows.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time { return time.Now() }

// FixedTimeProvider always returns the same instant.
type FixedTimeProvider struct {
	at time.Time
}

// NewFixedTimeProvider creates a FixedTimeProvider pinned to t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{at: t}
}

func (f *FixedTimeProvider) Now() time.Time { return f.at }

// Advance moves the pinned instant forward by d.
func (f *FixedTimeProvider) Advance(d time.Duration) {
	f.at = f.at.Add(d)
}
