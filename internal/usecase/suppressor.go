// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adscrub/adscrub/internal/domain"
	"github.com/adscrub/adscrub/internal/status"
)

// Suppressor runs one enumerate-classify-actuate cycle against the target
// process. The window tree is re-derived from scratch each cycle; the only
// state carried across cycles is the seen-popup set, which keeps the Block
// action from firing twice on the same handle lifetime.
type Suppressor struct {
	winsys     domain.WindowSystem
	classifier domain.Classifier
	tracker    *status.Tracker
	logger     *zap.Logger

	// seenPopups holds handles already blocked. An entry survives only as
	// long as enumeration keeps reporting the handle; absence means the
	// window is destroyed and the handle may be recycled.
	seenPopups map[domain.WindowID]struct{}
}

// NewSuppressor creates a suppressor.
func NewSuppressor(
	winsys domain.WindowSystem,
	classifier domain.Classifier,
	tracker *status.Tracker,
	logger *zap.Logger,
) *Suppressor {
	return &Suppressor{
		winsys:     winsys,
		classifier: classifier,
		tracker:    tracker,
		logger:     logger,
		seenPopups: make(map[domain.WindowID]struct{}),
	}
}

// ResetPopups clears the seen-popup set. Called by the watch loop whenever
// monitoring (re)starts, so a restarted target begins from a clean slate.
func (s *Suppressor) ResetPopups() {
	s.seenPopups = make(map[domain.WindowID]struct{})
}

// SeenPopupCount returns the current size of the seen-popup set (for tests
// and status logging).
func (s *Suppressor) SeenPopupCount() int {
	return len(s.seenPopups)
}

// Cycle runs one full pass. Per-window errors are contained: they are
// logged, counted, and never abort the cycle. Only enumeration-level
// failures (process gone, window system unreachable) surface to the caller.
func (s *Suppressor) Cycle(ctx context.Context, target domain.TargetProcess) (domain.CycleResult, error) {
	start := time.Now()
	result := domain.CycleResult{ExecutedAt: start}

	snapshot, err := s.winsys.Enumerate(target)
	if err != nil {
		return result, err
	}
	result.WindowsSeen = len(snapshot)

	// Parents precede children in the snapshot, so the lookup is complete
	// before any child needs it.
	byID := make(map[domain.WindowID]*domain.WindowDescriptor, len(snapshot))
	for i := range snapshot {
		byID[snapshot[i].ID] = &snapshot[i]
	}

	actuate := s.tracker.Enabled()

	for i := range snapshot {
		if ctx.Err() != nil {
			break
		}

		d := snapshot[i]
		action := s.classifier.Classify(d, byID[d.Parent])

		switch action.Kind {
		case domain.ActionNoOp:
			continue

		case domain.ActionHide:
			if !actuate {
				continue
			}
			if err := s.winsys.Hide(d.ID); err != nil {
				s.reportActuation(err)
				result.Errors++
				continue
			}
			result.Hidden++

		case domain.ActionResize:
			if !actuate {
				continue
			}
			if err := s.winsys.Resize(d.ID, action.Width, action.Height); err != nil {
				s.reportActuation(err)
				result.Errors++
				continue
			}
			result.Resized++

		case domain.ActionBlock:
			if _, done := s.seenPopups[d.ID]; done {
				result.Skipped++
				continue
			}
			if !actuate {
				continue
			}
			if err := s.winsys.Close(d.ID); err != nil {
				// Not recorded as seen: the next cycle re-attempts if the
				// popup still exists.
				s.reportActuation(err)
				result.Errors++
				continue
			}
			s.seenPopups[d.ID] = struct{}{}
			result.Blocked++
		}
	}

	s.prunePopups(byID)

	result.Duration = time.Since(start)
	s.tracker.Record(result)
	return result, nil
}

// prunePopups drops seen-popup entries absent from the latest snapshot.
// Keeps the set a subset of live handles, so it never grows unbounded and a
// recycled handle is never mistaken for an already-blocked popup.
func (s *Suppressor) prunePopups(byID map[domain.WindowID]*domain.WindowDescriptor) {
	for id := range s.seenPopups {
		if _, live := byID[id]; !live {
			delete(s.seenPopups, id)
		}
	}
}

func (s *Suppressor) reportActuation(err error) {
	s.logger.Warn("suppression call failed", zap.Error(err))
}
