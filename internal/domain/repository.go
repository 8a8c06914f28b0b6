package domain

// ProcessLocator finds and checks the target process.
// Implementation: uses gopsutil for process table access.
type ProcessLocator interface {
	// FindByExe returns the PID of the first process whose executable name
	// matches exeName (case-insensitive). Returns ErrProcessNotFound when
	// no process matches.
	FindByExe(exeName string) (int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// WindowSystem is the window-system adapter: enumeration plus the three
// suppression primitives. Implementation: X11 via xgb/xgbutil.
type WindowSystem interface {
	// Enumerate rebuilds the full window snapshot for the target process.
	// Parents are emitted before their children so a classifier can look up
	// a parent descriptor from the same snapshot. Returns ErrProcessNotFound
	// when the target PID is gone, or an *EnumerationError on a failed
	// window-system query.
	Enumerate(target TargetProcess) ([]WindowDescriptor, error)

	// Hide makes the window non-visible without destroying it. Idempotent.
	Hide(id WindowID) error

	// Resize changes the window's width and height, preserving its position.
	Resize(id WindowID, width, height int) error

	// Close hides the window and asks its owner to destroy it. Used for
	// blocked popups.
	Close(id WindowID) error
}

// Classifier maps a window descriptor (plus its parent's descriptor from the
// same snapshot, nil for top-level windows) to a suppression action.
// Implementations must be pure: same inputs, same action, no side effects.
type Classifier interface {
	Classify(d WindowDescriptor, parent *WindowDescriptor) Action
}

// RunRegistry persists the agent's run state to a file. It provides the
// single-instance guard and feeds the status command. All writes are atomic.
type RunRegistry interface {
	// Acquire registers this agent, failing with ErrAlreadyRunning when a
	// live agent already holds the registry.
	Acquire(state RunState) error

	// Update overwrites the run state (heartbeat, counters).
	Update(state RunState) error

	// Get returns the current run state, or nil when no agent has run.
	Get() (*RunState, error)

	// Release removes the registry entry on clean shutdown.
	Release() error

	// Path returns the registry file path (for tests and status output).
	Path() string
}

// AutostartManager installs the agent as a login-autostart entry.
type AutostartManager interface {
	// Enable writes the autostart entry pointing at execPath.
	Enable(execPath string) error

	// Disable removes the autostart entry.
	Disable() error

	// IsEnabled checks if the autostart entry is installed.
	IsEnabled() bool

	// EntryPath returns the autostart entry file path.
	EntryPath() string
}
