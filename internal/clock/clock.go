// Package clock is the date/time source used by the stores and services.
package clock

import (
	"sync"
	"time"
)

// Date and time layouts written to the ledger files.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	StampLayout     = "20060102150405"
	DateTimeLayout  = "2006-01-02 15:04:05"
	NoteStampLayout = "2006-01-02 15:04"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a manually driven clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed returns a Fixed clock set to t.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
