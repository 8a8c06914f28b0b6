//go:build integration

package integration

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/adscrub/adscrub/internal/domain"
	"github.com/adscrub/adscrub/internal/signature"
	"github.com/adscrub/adscrub/internal/status"
	"github.com/adscrub/adscrub/internal/usecase"
)

const (
	mainWin   = domain.WindowID(100)
	bannerWin = domain.WindowID(101)
	lockWin   = domain.WindowID(200)
	lockChild = domain.WindowID(201)
	popupWin  = domain.WindowID(300)
)

// appTree builds a window snapshot resembling the chat client under watch:
// a main window with an embedded ad banner, a lock screen with an ad child,
// and a browser-embedded popup.
func appTree() []domain.WindowDescriptor {
	return []domain.WindowDescriptor{
		{ID: mainWin, Class: "EVA_MainWindow", Rect: domain.Rect{Width: 400, Height: 650}, Visible: true},
		{ID: bannerWin, Class: "EVA_Window", Parent: mainWin, Rect: domain.Rect{X: 0, Y: 560, Width: 400, Height: 90}, Visible: true},
		{ID: lockWin, Class: "EVA_LockWindow", Rect: domain.Rect{Width: 400, Height: 650}, Visible: true},
		{ID: lockChild, Class: "EVA_ChildWindow", Parent: lockWin, Rect: domain.Rect{Width: 400, Height: 90}, Visible: true},
		{ID: popupWin, Class: "Chrome_WidgetWin_0", Rect: domain.Rect{Width: 320, Height: 240}, Visible: true, Popup: true},
	}
}

var _ = Describe("Suppression Cycle", func() {
	var (
		desktop    *fakeDesktop
		tracker    *status.Tracker
		suppressor *usecase.Suppressor
		target     domain.TargetProcess
	)

	BeforeEach(func() {
		desktop = newFakeDesktop(4242, appTree())
		tracker = status.NewTracker(true)

		classifier, err := signature.NewBuiltinClassifier()
		Expect(err).NotTo(HaveOccurred())

		suppressor = usecase.NewSuppressor(desktop, classifier, tracker, zap.NewNop())
		target = domain.TargetProcess{PID: 4242, ExeName: "kakaotalk.exe"}
	})

	Describe("a full cycle over the application window tree", func() {
		It("resizes the banner, hides the lock child, and blocks the popup", func() {
			result, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.WindowsSeen).To(Equal(5))
			Expect(result.Resized).To(Equal(1))
			Expect(result.Hidden).To(Equal(1))
			Expect(result.Blocked).To(Equal(1))
			Expect(result.Errors).To(BeZero())

			banner, ok := desktop.window(bannerWin)
			Expect(ok).To(BeTrue())
			Expect(banner.Rect.Width).To(Equal(400), "banner width is preserved")
			Expect(banner.Rect.Height).To(BeZero(), "banner height is collapsed")

			child, ok := desktop.window(lockChild)
			Expect(ok).To(BeTrue())
			Expect(child.Visible).To(BeFalse())

			Expect(desktop.closeCount(popupWin)).To(Equal(1))
		})

		It("leaves the main window untouched", func() {
			_, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())

			main, ok := desktop.window(mainWin)
			Expect(ok).To(BeTrue())
			Expect(main.Visible).To(BeTrue())
			Expect(main.Rect).To(Equal(domain.Rect{Width: 400, Height: 650}))
		})
	})

	Describe("repeated cycles", func() {
		It("keeps suppressed windows suppressed without errors", func() {
			for i := 0; i < 5; i++ {
				result, err := suppressor.Cycle(context.Background(), target)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Errors).To(BeZero())
			}

			child, _ := desktop.window(lockChild)
			Expect(child.Visible).To(BeFalse())

			banner, _ := desktop.window(bannerWin)
			Expect(banner.Rect.Height).To(BeZero())
		})

		It("blocks a popup once per handle lifetime", func() {
			for i := 0; i < 3; i++ {
				_, err := suppressor.Cycle(context.Background(), target)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(desktop.closeCount(popupWin)).To(Equal(1))
		})

		It("blocks a recycled handle again after the window is destroyed", func() {
			_, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())
			Expect(desktop.closeCount(popupWin)).To(Equal(1))

			// Popup destroyed: handle vanishes from the snapshot.
			tree := appTree()
			desktop.setWindows(tree[:4])
			_, err = suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())
			Expect(suppressor.SeenPopupCount()).To(BeZero())

			// Same handle, new window.
			desktop.setWindows(appTree())
			_, err = suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())
			Expect(desktop.closeCount(popupWin)).To(Equal(2))
		})
	})

	Describe("when suppression is disabled", func() {
		BeforeEach(func() {
			tracker.SetEnabled(false)
		})

		It("enumerates and classifies but does not touch any window", func() {
			result, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.WindowsSeen).To(Equal(5))
			Expect(result.Suppressed()).To(BeZero())

			banner, _ := desktop.window(bannerWin)
			Expect(banner.Rect.Height).To(Equal(90))

			child, _ := desktop.window(lockChild)
			Expect(child.Visible).To(BeTrue())

			Expect(desktop.closeCount(popupWin)).To(BeZero())
		})

		It("suppresses immediately after being re-enabled", func() {
			_, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())

			tracker.SetEnabled(true)
			result, err := suppressor.Cycle(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Suppressed()).To(Equal(3))
		})
	})

	Describe("when the target process dies mid-watch", func() {
		It("surfaces ErrProcessNotFound", func() {
			desktop.terminate()

			_, err := suppressor.Cycle(context.Background(), target)
			Expect(err).To(MatchError(domain.ErrProcessNotFound))
		})
	})
})
