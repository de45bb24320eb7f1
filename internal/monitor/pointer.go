package monitor

import (
	"context"
	"time"

	"github.com/ajakab/perch/internal/notify"
)

// defaultPointerInterval is roughly 60 Hz.
const defaultPointerInterval = 16 * time.Millisecond

// Publisher delivers monitor notifications.
type Publisher interface {
	Publish(topic string, payload any)
}

// MouseMove is published on pointer position changes.
type MouseMove struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	ButtonPressed bool    `json:"buttonPressed"`
}

// MouseButton is published on primary-button state changes.
type MouseButton struct {
	Pressed bool `json:"pressed"`
}

// PointerTracker publishes pointer samples, but only on change: a
// notification per moved position and a separate one per button
// transition. Idle pointers produce no traffic.
type PointerTracker struct {
	src      Source
	bus      Publisher
	interval time.Duration

	primed bool
	last   PointerState
}

// NewPointerTracker creates a tracker. If interval is <= 0, it defaults
// to 16ms.
func NewPointerTracker(src Source, bus Publisher, interval time.Duration) *PointerTracker {
	if interval <= 0 {
		interval = defaultPointerInterval
	}
	return &PointerTracker{src: src, bus: bus, interval: interval}
}

// Run samples until ctx is cancelled.
func (p *PointerTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(p.src.Pointer())
		}
	}
}

// sample compares one reading against the previous and publishes the
// deltas. The first reading only primes the baseline.
func (p *PointerTracker) sample(cur PointerState) {
	if !p.primed {
		p.primed = true
		p.last = cur
		return
	}

	if cur.X != p.last.X || cur.Y != p.last.Y {
		p.bus.Publish(notify.TopicMouseMove, MouseMove{
			X:             cur.X,
			Y:             cur.Y,
			ButtonPressed: cur.LeftPressed,
		})
	}
	if cur.LeftPressed != p.last.LeftPressed {
		p.bus.Publish(notify.TopicMouseButton, MouseButton{Pressed: cur.LeftPressed})
	}
	p.last = cur
}
