// Package daemon implements the watch loop driving the suppression cycles.
package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/adscrub/adscrub/internal/config"
	"github.com/adscrub/adscrub/internal/domain"
	"github.com/adscrub/adscrub/internal/status"
	"github.com/adscrub/adscrub/internal/usecase"
)

// WatcherConfig holds watch loop configuration.
type WatcherConfig struct {
	MonitorInterval   time.Duration // Cycle cadence while the target is running
	ResolveInterval   time.Duration // Retry cadence while the target is absent
	HeartbeatInterval time.Duration // How often run state is flushed to the registry
	NotFoundThreshold int           // Consecutive not-found cycles before re-resolving
}

// DefaultWatcherConfig returns the default watch loop configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		MonitorInterval:   config.DefaultMonitorInterval,
		ResolveInterval:   config.DefaultResolveInterval,
		HeartbeatInterval: config.DefaultHeartbeatInterval,
		NotFoundThreshold: config.DefaultNotFoundThreshold,
	}
}

// Watcher is the top-level driver: a two-state loop that resolves the target
// process, then re-enumerates, re-classifies, and re-actuates on a fixed
// interval, falling back to resolving when the target goes away. There is no
// terminal state; the loop runs until its context is canceled.
type Watcher struct {
	config     WatcherConfig
	targetExe  string
	appVersion string

	locator    domain.ProcessLocator
	suppressor *usecase.Suppressor
	tracker    *status.Tracker
	registry   domain.RunRegistry
	logger     *zap.Logger

	state          domain.AgentState
	target         domain.TargetProcess
	notFoundStreak int
	startedAt      time.Time
}

// NewWatcher creates the watch loop.
func NewWatcher(
	cfg WatcherConfig,
	targetExe string,
	appVersion string,
	locator domain.ProcessLocator,
	suppressor *usecase.Suppressor,
	tracker *status.Tracker,
	registry domain.RunRegistry,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:     cfg,
		targetExe:  targetExe,
		appVersion: appVersion,
		locator:    locator,
		suppressor: suppressor,
		tracker:    tracker,
		registry:   registry,
		logger:     logger,
		state:      domain.StateResolving,
	}
}

// State returns the current loop state.
func (w *Watcher) State() domain.AgentState {
	return w.state
}

// Target returns the currently resolved target process (zero while resolving).
func (w *Watcher) Target() domain.TargetProcess {
	return w.target
}

// Run starts the watch loop. It registers the agent in the run registry
// (single-instance guard), then blocks until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.startedAt = time.Now()

	if err := w.registry.Acquire(w.runState()); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			return err
		}
		w.logger.Error("failed to register agent", zap.Error(err))
		return err
	}
	defer func() { _ = w.registry.Release() }()

	w.logger.Info("watch loop started",
		zap.Int("pid", os.Getpid()),
		zap.String("target_exe", w.targetExe),
		zap.Duration("monitor_interval", w.config.MonitorInterval))

	w.tracker.SetState(domain.StateResolving, 0)

	heartbeat := time.NewTicker(w.config.HeartbeatInterval)
	defer heartbeat.Stop()

	// Single timer instead of per-state tickers: the cadence depends on the
	// state, and a canceled context must interrupt the sleep promptly.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch loop stopping")
			w.flush()
			return ctx.Err()

		case <-heartbeat.C:
			w.flush()

		case <-timer.C:
			w.Step(ctx)
			timer.Reset(w.interval())
		}
	}
}

// Step advances the loop by one iteration: a resolution attempt or one
// suppression cycle, depending on the state. Exported so tests can drive the
// state machine deterministically.
func (w *Watcher) Step(ctx context.Context) {
	switch w.state {
	case domain.StateResolving:
		w.stepResolve()
	case domain.StateMonitoring:
		w.stepMonitor(ctx)
	}
}

func (w *Watcher) stepResolve() {
	pid, err := w.locator.FindByExe(w.targetExe)
	if err != nil {
		if !errors.Is(err, domain.ErrProcessNotFound) {
			w.logger.Warn("process lookup failed", zap.Error(err))
		}
		return
	}

	w.target = domain.TargetProcess{PID: pid, ExeName: w.targetExe}
	w.state = domain.StateMonitoring
	w.notFoundStreak = 0
	// Fresh target, fresh popup tracking: handles from a previous incarnation
	// must never be mistaken for already-blocked popups.
	w.suppressor.ResetPopups()
	w.tracker.SetState(domain.StateMonitoring, pid)

	w.logger.Info("target resolved",
		zap.String("exe", w.targetExe),
		zap.Int("pid", pid))
}

func (w *Watcher) stepMonitor(ctx context.Context) {
	result, err := w.suppressor.Cycle(ctx, w.target)
	if err != nil {
		if errors.Is(err, domain.ErrProcessNotFound) {
			w.notFoundStreak++
			if w.notFoundStreak >= w.config.NotFoundThreshold {
				w.logger.Info("target gone, resolving again",
					zap.Int("consecutive_misses", w.notFoundStreak))
				w.state = domain.StateResolving
				w.target = domain.TargetProcess{}
				w.notFoundStreak = 0
				w.tracker.SetState(domain.StateResolving, 0)
			}
			return
		}

		// Transient window-system failure: keep monitoring, retry next tick.
		w.logger.Warn("cycle failed", zap.Error(err))
		return
	}

	w.notFoundStreak = 0

	if result.Suppressed() > 0 {
		w.logger.Debug("cycle suppressed windows",
			zap.Int("hidden", result.Hidden),
			zap.Int("resized", result.Resized),
			zap.Int("blocked", result.Blocked),
			zap.Int("seen", result.WindowsSeen))
	}
}

func (w *Watcher) interval() time.Duration {
	if w.state == domain.StateMonitoring {
		return w.config.MonitorInterval
	}
	return w.config.ResolveInterval
}

// flush writes the current counters to the run registry. Fire-and-forget:
// a failed write is logged and never stalls the loop.
func (w *Watcher) flush() {
	if err := w.registry.Update(w.runState()); err != nil {
		w.logger.Warn("failed to update run state", zap.Error(err))
	}
}

func (w *Watcher) runState() domain.RunState {
	snap := w.tracker.Snapshot()
	return domain.RunState{
		PID:         os.Getpid(),
		StartedAt:   w.startedAt.Unix(),
		State:       string(snap.State),
		TargetExe:   w.targetExe,
		TargetPID:   snap.TargetPID,
		Cycles:      snap.Cycles,
		WindowsSeen: snap.WindowsSeen,
		Hidden:      snap.Hidden,
		Resized:     snap.Resized,
		Blocked:     snap.Blocked,
		AppVersion:  w.appVersion,
	}
}
