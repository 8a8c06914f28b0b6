// Package status holds the small shared structure the watch loop and the
// surrounding shell communicate through: a suppression on/off flag read once
// per cycle, and counters consumed by the status command. Nothing else
// crosses that boundary - no window state is shared.
package status

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/adscrub/adscrub/internal/domain"
)

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	State         domain.AgentState
	TargetPID     int
	Cycles        uint64
	WindowsSeen   uint64
	Hidden        uint64
	Resized       uint64
	Blocked       uint64
	Errors        uint64
	LastCycleTime time.Duration
	LastCycleAt   time.Time
}

// Tracker is the shared status/configuration structure. The enabled flag is
// atomic; counters sit behind a single mutex. Record is cheap and never
// blocks on anything but that mutex, so the loop treats it as
// fire-and-forget.
type Tracker struct {
	enabled atomic.Bool

	mu   sync.Mutex
	snap Snapshot
}

// NewTracker creates a tracker with suppression initially enabled or not.
func NewTracker(enabled bool) *Tracker {
	t := &Tracker{}
	t.enabled.Store(enabled)
	t.snap.State = domain.StateResolving
	return t
}

// Enabled reports whether suppression is active. Read once per cycle.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// SetEnabled toggles suppression. The cycle still enumerates when disabled,
// it only skips actuation.
func (t *Tracker) SetEnabled(v bool) {
	t.enabled.Store(v)
}

// Record folds one cycle's result into the counters.
func (t *Tracker) Record(result domain.CycleResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Cycles++
	t.snap.WindowsSeen += uint64(result.WindowsSeen)
	t.snap.Hidden += uint64(result.Hidden)
	t.snap.Resized += uint64(result.Resized)
	t.snap.Blocked += uint64(result.Blocked)
	t.snap.Errors += uint64(result.Errors)
	t.snap.LastCycleTime = result.Duration
	t.snap.LastCycleAt = result.ExecutedAt
}

// SetState records the watch loop state and current target PID.
func (t *Tracker) SetState(state domain.AgentState, targetPID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.State = state
	t.snap.TargetPID = targetPID
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snap
}
