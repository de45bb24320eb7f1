package monitor

import (
	"context"
	"math"
	"time"

	"github.com/ajakab/perch/internal/notify"
)

const (
	defaultSampleInterval = 100 * time.Millisecond
	defaultReportAfter    = 2 * time.Second
	backspaceKey          = "Backspace"
)

// Snapshot is the aggregated behavior report published every reporting
// window. Rates are per second over the window that just closed.
type Snapshot struct {
	TypingSpeed     float64 `json:"typingSpeed"`
	KeyPressCount   int     `json:"keyPressCount"`
	BackspaceCount  int     `json:"backspaceCount"`
	MouseMoveSpeed  float64 `json:"mouseMoveSpeed"`
	MouseClickCount int     `json:"mouseClickCount"`
	IdleTime        float64 `json:"idleTime"`
	ActivityLevel   float64 `json:"activityLevel"`
}

// Analyzer samples input every 100ms and publishes a Snapshot once at
// least 2s have passed since the previous report. Key presses are
// counted edge-triggered: the counter advances when a sample shows more
// simultaneously pressed keys than the one before, so bursts between
// samples undercount.
type Analyzer struct {
	src         Source
	bus         Publisher
	interval    time.Duration
	reportAfter time.Duration
	now         func() time.Time

	state analyzerState
}

// NewAnalyzer creates an Analyzer with the standard 100ms/2s cadence.
func NewAnalyzer(src Source, bus Publisher) *Analyzer {
	return &Analyzer{
		src:         src,
		bus:         bus,
		interval:    defaultSampleInterval,
		reportAfter: defaultReportAfter,
		now:         time.Now,
	}
}

// Run samples until ctx is cancelled.
func (a *Analyzer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Analyzer) tick() {
	now := a.now()
	a.state.observe(a.src.Keys(), a.src.Pointer(), now)
	if snap, ok := a.state.report(now, a.reportAfter); ok {
		a.bus.Publish(notify.TopicBehavior, snap)
	}
}

// analyzerState accumulates counters between reports. It is not safe
// for concurrent use; the single sampling goroutine owns it.
type analyzerState struct {
	primed        bool
	lastKeyCount  int
	lastBackspace bool
	lastPointer   PointerState

	keyPresses int
	backspaces int
	clicks     int
	distance   float64

	windowStart  time.Time
	lastActivity time.Time
}

// observe folds one sample into the counters.
func (st *analyzerState) observe(keys []string, ptr PointerState, now time.Time) {
	if !st.primed {
		st.primed = true
		st.windowStart = now
		st.lastActivity = now
		st.lastKeyCount = len(keys)
		st.lastBackspace = keyPressed(keys, backspaceKey)
		st.lastPointer = ptr
		return
	}

	active := false

	// One press per growth sample, however many keys landed: keys
	// pressed together between samples undercount.
	if n := len(keys); n > st.lastKeyCount {
		st.keyPresses++
		active = true
	}
	st.lastKeyCount = len(keys)

	backspace := keyPressed(keys, backspaceKey)
	if backspace && !st.lastBackspace {
		st.backspaces++
	}
	st.lastBackspace = backspace

	dx := ptr.X - st.lastPointer.X
	dy := ptr.Y - st.lastPointer.Y
	if dx != 0 || dy != 0 {
		st.distance += math.Hypot(dx, dy)
		active = true
	}
	if ptr.LeftPressed && !st.lastPointer.LeftPressed {
		st.clicks++
		active = true
	}
	st.lastPointer = ptr

	if active {
		st.lastActivity = now
	}
}

// report closes the window if it has run long enough, returning the
// snapshot and resetting the counters.
func (st *analyzerState) report(now time.Time, after time.Duration) (Snapshot, bool) {
	if !st.primed || now.Sub(st.windowStart) < after {
		return Snapshot{}, false
	}

	window := now.Sub(st.windowStart).Seconds()
	typing := float64(st.keyPresses) / window
	moveSpeed := st.distance / window
	clicksPerSec := float64(st.clicks) / window

	snap := Snapshot{
		TypingSpeed:     typing,
		KeyPressCount:   st.keyPresses,
		BackspaceCount:  st.backspaces,
		MouseMoveSpeed:  moveSpeed,
		MouseClickCount: st.clicks,
		IdleTime:        now.Sub(st.lastActivity).Seconds(),
		ActivityLevel:   activityLevel(typing, moveSpeed, clicksPerSec),
	}

	st.keyPresses = 0
	st.backspaces = 0
	st.clicks = 0
	st.distance = 0
	st.windowStart = now
	return snap, true
}

// activityLevel folds the three rates into a single [0,1] score.
// Pointer speed saturates at 1000 px/s and clicks at 5/s.
func activityLevel(typingSpeed, mouseMoveSpeed, clicksPerSecond float64) float64 {
	score := 0.3*typingSpeed +
		0.3*math.Min(1, mouseMoveSpeed/1000) +
		0.4*math.Min(1, clicksPerSecond/5)
	return math.Min(1, score)
}

func keyPressed(keys []string, name string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}
