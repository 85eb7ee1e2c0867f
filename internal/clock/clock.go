// Package clock provides ledger time sources. The lifecycle core consumes
// time exclusively through domain.Clock so tests can drive expiry.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// System reads wall-clock time truncated to unix seconds.
type System struct{}

// Now returns the current unix time in seconds.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Manual is a hand-driven clock for tests and replay tooling.
type Manual struct {
	now atomic.Int64
}

// NewManual creates a Manual clock starting at the given unix time.
func NewManual(start int64) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

// Now returns the clock's current time.
func (m *Manual) Now() int64 {
	return m.now.Load()
}

// Set moves the clock to the given time.
func (m *Manual) Set(t int64) {
	m.now.Store(t)
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d int64) {
	m.now.Add(d)
}

var (
	_ domain.Clock = System{}
	_ domain.Clock = (*Manual)(nil)
)
