package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// Detach re-executes the binary as a detached background agent. The child
// runs `run` without the detach flag, followed by extraArgs so flags like
// --config survive the re-exec. The parent returns immediately so a shell or
// the autostart entry is not held up.
func Detach(extraArgs ...string) (pid int, err error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, err
	}

	cmd := detachCommand(executable, extraArgs)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

func detachCommand(executable string, extraArgs []string) *exec.Cmd {
	args := append([]string{"run"}, extraArgs...)
	cmd := exec.Command(executable, args...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached; the agent logs to its file.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd
}
