//go:build unix

package toolchain

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the child in a new process group and makes
// cancellation kill the whole group, so grandchildren spawned by compiler
// drivers do not survive a timeout.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
