//go:build unix

package nextflow

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCommandProcess starts the engine in its own process group so that
// cancellation reaches the containers and helpers it spawns.
func configureCommandProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return terminateProcessGroup(cmd)
	}
}

func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return nil
	}
	if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID targets the whole group. SIGTERM gives nextflow the
		// chance to stop its tasks; WaitDelay escalates to SIGKILL.
		return unix.Kill(-pgid, unix.SIGTERM)
	}
	return cmd.Process.Kill()
}
