// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// WindowID is an opaque window-system handle. Handles are ephemeral: they
// identify a window only within one enumeration snapshot and may be recycled
// by the window system after the window is destroyed.
type WindowID uint32

// Rect is a window bounding rectangle in root-window coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// TargetProcess identifies the application being monitored.
// Resolved once at startup and re-resolved whenever enumeration stops
// finding it (covers target restart).
type TargetProcess struct {
	PID     int
	ExeName string // executable name used to locate the process
}

// WindowDescriptor is a point-in-time snapshot of one window. Descriptors are
// produced fresh each enumeration and never mutated; a new descriptor
// replaces the old one.
type WindowDescriptor struct {
	ID      WindowID
	Class   string   // WM_CLASS class string, empty if unreadable
	Parent  WindowID // 0 for top-level windows
	Rect    Rect
	Visible bool
	Popup   bool // override-redirect: no WM frame, transient overlay
}

// ActionKind enumerates suppression decisions.
type ActionKind int

const (
	// ActionNoOp leaves the window alone.
	ActionNoOp ActionKind = iota
	// ActionHide unmaps the window without destroying it.
	ActionHide
	// ActionResize shrinks the window's rectangle, keeping its position.
	ActionResize
	// ActionBlock forces a newly created popup to stay non-visible and
	// asks the owner to close it. Applied once per handle lifetime.
	ActionBlock
)

// String returns the action kind name for logs and status output.
func (k ActionKind) String() string {
	switch k {
	case ActionNoOp:
		return "noop"
	case ActionHide:
		return "hide"
	case ActionResize:
		return "resize"
	case ActionBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Action is the suppression decision for one descriptor. Width/Height are
// only meaningful for ActionResize and are already resolved against the
// descriptor (a rule may preserve the observed width).
type Action struct {
	Kind   ActionKind
	Width  int
	Height int
}

// AgentState is the watch loop state.
type AgentState string

const (
	// StateResolving means no valid target process has been found yet.
	StateResolving AgentState = "resolving"
	// StateMonitoring means the loop is actively enumerating and actuating.
	StateMonitoring AgentState = "monitoring"
)

// CycleResult captures what happened during a single suppression cycle.
type CycleResult struct {
	WindowsSeen int
	Hidden      int
	Resized     int
	Blocked     int
	Skipped     int // block candidates already acted on this handle lifetime
	Errors      int
	Duration    time.Duration
	ExecutedAt  time.Time
}

// Suppressed returns the total number of windows acted upon this cycle.
func (r CycleResult) Suppressed() int {
	return r.Hidden + r.Resized + r.Blocked
}

// RunState is the persisted run-registry entry. It doubles as the
// single-instance guard (live PID check) and the status command's data
// source for a detached agent.
type RunState struct {
	Version       int    `json:"version"`
	PID           int    `json:"pid"`
	StartedAt     int64  `json:"started_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	State         string `json:"state"`
	TargetExe     string `json:"target_exe"`
	TargetPID     int    `json:"target_pid,omitempty"`
	Cycles        uint64 `json:"cycles"`
	WindowsSeen   uint64 `json:"windows_seen"`
	Hidden        uint64 `json:"hidden"`
	Resized       uint64 `json:"resized"`
	Blocked       uint64 `json:"blocked"`
	AppVersion    string `json:"app_version,omitempty"`
}
