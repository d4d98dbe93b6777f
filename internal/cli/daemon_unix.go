//go:build !windows

package cli

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr starts the daemon in its own session so it survives the terminal
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
