package testsupport

import (
	"sync"
	"time"
)

// Clock is a manual time source for stamps and expiry.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// EncryptionKey returns a fixed 32 byte AES key. Never use it outside tests.
func EncryptionKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}
