//go:build integration

package integration

import (
	"sync"

	"github.com/adscrub/adscrub/internal/domain"
)

// fakeDesktop simulates the window system for a single target process. Its
// window tree is mutable between cycles, and each suppression primitive
// mutates the tree the way the real window system would.
type fakeDesktop struct {
	mu      sync.Mutex
	pid     int
	windows []domain.WindowDescriptor
	closed  map[domain.WindowID]int
}

func newFakeDesktop(pid int, windows []domain.WindowDescriptor) *fakeDesktop {
	return &fakeDesktop{
		pid:     pid,
		windows: windows,
		closed:  make(map[domain.WindowID]int),
	}
}

func (f *fakeDesktop) setWindows(windows []domain.WindowDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = windows
}

func (f *fakeDesktop) terminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pid = 0
	f.windows = nil
}

func (f *fakeDesktop) Enumerate(target domain.TargetProcess) ([]domain.WindowDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pid == 0 || target.PID != f.pid {
		return nil, domain.ErrProcessNotFound
	}
	out := make([]domain.WindowDescriptor, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

func (f *fakeDesktop) Hide(id domain.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.windows {
		if f.windows[i].ID == id {
			f.windows[i].Visible = false
		}
	}
	return nil
}

func (f *fakeDesktop) Resize(id domain.WindowID, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.windows {
		if f.windows[i].ID == id {
			f.windows[i].Rect.Width = width
			f.windows[i].Rect.Height = height
		}
	}
	return nil
}

func (f *fakeDesktop) Close(id domain.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed[id]++
	return nil
}

func (f *fakeDesktop) closeCount(id domain.WindowID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[id]
}

func (f *fakeDesktop) window(id domain.WindowID) (domain.WindowDescriptor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range f.windows {
		if w.ID == id {
			return w, true
		}
	}
	return domain.WindowDescriptor{}, false
}

// fakeLocator resolves the target from the fake desktop's PID.
type fakeLocator struct {
	desktop *fakeDesktop
}

func (l *fakeLocator) FindByExe(exeName string) (int, error) {
	l.desktop.mu.Lock()
	defer l.desktop.mu.Unlock()

	if l.desktop.pid == 0 {
		return 0, domain.ErrProcessNotFound
	}
	return l.desktop.pid, nil
}

func (l *fakeLocator) IsRunning(pid int) bool {
	l.desktop.mu.Lock()
	defer l.desktop.mu.Unlock()
	return l.desktop.pid != 0 && pid == l.desktop.pid
}

// memRegistry is an in-memory run registry for driving the watcher without
// touching the filesystem.
type memRegistry struct {
	mu       sync.Mutex
	state    *domain.RunState
	acquired bool
	released bool
}

func (r *memRegistry) Acquire(state domain.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acquired && !r.released {
		return domain.ErrAlreadyRunning
	}
	s := state
	r.state = &s
	r.acquired = true
	r.released = false
	return nil
}

func (r *memRegistry) Update(state domain.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := state
	r.state = &s
	return nil
}

func (r *memRegistry) Get() (*domain.RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil, nil
	}
	s := *r.state
	return &s, nil
}

func (r *memRegistry) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released = true
	return nil
}

func (r *memRegistry) Path() string { return "mem" }
