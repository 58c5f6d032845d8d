//go:build unix

package toolchain

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own group so the whole tree can be
// killed on timeout.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
