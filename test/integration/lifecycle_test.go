//go:build integration

package integration

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/adscrub/adscrub/internal/daemon"
	"github.com/adscrub/adscrub/internal/domain"
	"github.com/adscrub/adscrub/internal/signature"
	"github.com/adscrub/adscrub/internal/status"
	"github.com/adscrub/adscrub/internal/usecase"
)

var _ = Describe("Watch Loop Lifecycle", func() {
	var (
		desktop  *fakeDesktop
		locator  *fakeLocator
		tracker  *status.Tracker
		registry *memRegistry
		watcher  *daemon.Watcher
	)

	newWatcher := func() *daemon.Watcher {
		classifier, err := signature.NewBuiltinClassifier()
		Expect(err).NotTo(HaveOccurred())

		suppressor := usecase.NewSuppressor(desktop, classifier, tracker, zap.NewNop())
		cfg := daemon.WatcherConfig{
			MonitorInterval:   time.Millisecond,
			ResolveInterval:   time.Millisecond,
			HeartbeatInterval: 10 * time.Millisecond,
			NotFoundThreshold: 3,
		}
		return daemon.NewWatcher(cfg, "kakaotalk.exe", "test",
			locator, suppressor, tracker, registry, zap.NewNop())
	}

	BeforeEach(func() {
		desktop = newFakeDesktop(4242, appTree())
		locator = &fakeLocator{desktop: desktop}
		tracker = status.NewTracker(true)
		registry = &memRegistry{}
		watcher = newWatcher()
	})

	Describe("state transitions driven step by step", func() {
		It("moves from resolving to monitoring once the target appears", func() {
			Expect(watcher.State()).To(Equal(domain.StateResolving))

			watcher.Step(context.Background())

			Expect(watcher.State()).To(Equal(domain.StateMonitoring))
			Expect(watcher.Target().PID).To(Equal(4242))
		})

		It("suppresses windows while monitoring", func() {
			watcher.Step(context.Background()) // resolve
			watcher.Step(context.Background()) // first cycle

			banner, _ := desktop.window(bannerWin)
			Expect(banner.Rect.Height).To(BeZero())
			Expect(desktop.closeCount(popupWin)).To(Equal(1))
		})

		It("falls back to resolving after consecutive misses", func() {
			watcher.Step(context.Background())
			Expect(watcher.State()).To(Equal(domain.StateMonitoring))

			desktop.terminate()
			for i := 0; i < 3; i++ {
				watcher.Step(context.Background())
			}

			Expect(watcher.State()).To(Equal(domain.StateResolving))
			Expect(watcher.Target().PID).To(BeZero())
		})

		It("re-blocks popups after the target restarts", func() {
			watcher.Step(context.Background())
			watcher.Step(context.Background())
			Expect(desktop.closeCount(popupWin)).To(Equal(1))

			desktop.terminate()
			for i := 0; i < 3; i++ {
				watcher.Step(context.Background())
			}
			Expect(watcher.State()).To(Equal(domain.StateResolving))

			// New incarnation: same handle values, different process.
			desktop.mu.Lock()
			desktop.pid = 5151
			desktop.windows = appTree()
			desktop.mu.Unlock()

			watcher.Step(context.Background())
			Expect(watcher.Target().PID).To(Equal(5151))

			watcher.Step(context.Background())
			Expect(desktop.closeCount(popupWin)).To(Equal(2))
		})
	})

	Describe("Run", func() {
		It("registers, loops until canceled, and releases the registry", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- watcher.Run(ctx) }()

			Eventually(func() int {
				return desktop.closeCount(popupWin)
			}).Should(Equal(1))

			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))

			registry.mu.Lock()
			released := registry.released
			registry.mu.Unlock()
			Expect(released).To(BeTrue())
		})

		It("refuses to start a second instance", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- watcher.Run(ctx) }()

			Eventually(func() bool {
				state, _ := registry.Get()
				return state != nil
			}).Should(BeTrue())

			second := newWatcher()
			Expect(second.Run(context.Background())).To(MatchError(domain.ErrAlreadyRunning))

			cancel()
			Eventually(done).Should(Receive())
		})

		It("publishes counters through the run registry heartbeat", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- watcher.Run(ctx) }()

			Eventually(func() uint64 {
				state, _ := registry.Get()
				if state == nil {
					return 0
				}
				return state.Cycles
			}).Should(BeNumerically(">", 0))

			state, err := registry.Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(state.State).To(Equal(string(domain.StateMonitoring)))
			Expect(state.TargetExe).To(Equal("kakaotalk.exe"))
			Expect(state.AppVersion).To(Equal("test"))

			cancel()
			Eventually(done).Should(Receive())
		})
	})
})
