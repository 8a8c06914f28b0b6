// Package infra implements infrastructure concerns (process lookup, run
// registry, autostart entry, update check).
package infra

import (
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/adscrub/adscrub/internal/domain"
)

// ProcessLocatorImpl implements domain.ProcessLocator using gopsutil.
type ProcessLocatorImpl struct{}

// NewProcessLocator creates a new process locator.
func NewProcessLocator() domain.ProcessLocator {
	return &ProcessLocatorImpl{}
}

// FindByExe returns the PID of the first process whose executable name
// matches exeName (case-insensitive). The target is a Wine client, so the
// name it shows up under is the Windows executable name.
func (pl *ProcessLocatorImpl) FindByExe(exeName string) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}

		if strings.EqualFold(name, exeName) {
			return int(p.Pid), nil
		}
	}

	return 0, domain.ErrProcessNotFound
}

// IsRunning checks if a PID exists and is running.
func (pl *ProcessLocatorImpl) IsRunning(pid int) bool {
	// On Unix, FindProcess always succeeds
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// Ensure ProcessLocatorImpl implements domain.ProcessLocator.
var _ domain.ProcessLocator = (*ProcessLocatorImpl)(nil)
