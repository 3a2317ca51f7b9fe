package app

import (
	"sync"
	"time"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	"github.com/lueurxax/telegram-relay/internal/process/dedup"
)

// messageClock reads the newest message date the detector has seen, falling
// back to the wall clock before the first one. It never moves backwards.
type messageClock struct {
	mu       sync.Mutex
	latest   time.Time
	fallback func() time.Time
}

func newMessageClock(fallback func() time.Time) *messageClock {
	if fallback == nil {
		fallback = time.Now
	}

	return &messageClock{fallback: fallback}
}

func (c *messageClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest.IsZero() {
		return c.fallback()
	}

	return c.latest
}

func (c *messageClock) observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.latest) {
		c.latest = t
	}
}

// clockedDetector advances the clock to each message before classifying it,
// so a replayed dump is windowed by its own timestamps.
type clockedDetector struct {
	dedup.Detector
	clock *messageClock
}

func (d clockedDetector) Check(msg domain.Message) domain.Verdict {
	d.clock.observe(msg.Date)

	return d.Detector.Check(msg)
}

func (d clockedDetector) Seed(msg domain.Message) {
	d.clock.observe(msg.Date)
	d.Detector.Seed(msg)
}
