package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adscrub/adscrub/internal/domain"
)

// FileRegistry implements domain.RunRegistry using a JSON file under the
// user's runtime directory. It is the single-instance guard: an Acquire
// against a registry holding a live PID fails, a stale PID is swept.
type FileRegistry struct {
	path    string
	locator domain.ProcessLocator
}

// NewFileRegistry creates the registry at its standard location.
func NewFileRegistry(locator domain.ProcessLocator) domain.RunRegistry {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return &FileRegistry{
		path:    filepath.Join(dir, "adscrub.state"),
		locator: locator,
	}
}

// NewFileRegistryWithPath creates a registry at a specific path (for testing).
func NewFileRegistryWithPath(path string, locator domain.ProcessLocator) domain.RunRegistry {
	return &FileRegistry{path: path, locator: locator}
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Acquire registers this agent. Fails with domain.ErrAlreadyRunning when the
// registry holds a PID that is still alive.
func (r *FileRegistry) Acquire(state domain.RunState) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	existing, err := r.read()
	if err != nil {
		return err
	}
	if existing != nil && existing.PID != 0 && existing.PID != state.PID &&
		r.locator.IsRunning(existing.PID) {
		return domain.ErrAlreadyRunning
	}

	state.Version = 1
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(&state)
}

// Update overwrites the run state. Called on heartbeat ticks; the heartbeat
// timestamp is refreshed here.
func (r *FileRegistry) Update(state domain.RunState) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	state.Version = 1
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(&state)
}

// Get returns the current run state, or nil when no agent has run.
func (r *FileRegistry) Get() (*domain.RunState, error) {
	return r.read()
}

// Release removes the registry entry on clean shutdown.
func (r *FileRegistry) Release() error {
	err := os.Remove(r.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	os.Remove(r.path + ".lock")
	return nil
}

// lock acquires an exclusive flock so concurrent agents cannot race the
// Acquire check against each other.
func (r *FileRegistry) lock() (func(), error) {
	lockPath := r.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
	}, nil
}

func (r *FileRegistry) read() (*domain.RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupt registry is treated as absent; the next write replaces it.
		return nil, nil
	}
	return &state, nil
}

// atomicWrite writes to a temp file and renames so readers never observe a
// partial entry.
func (r *FileRegistry) atomicWrite(state *domain.RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, r.path)
}

// Ensure FileRegistry implements domain.RunRegistry.
var _ domain.RunRegistry = (*FileRegistry)(nil)
