//go:build windows

package cli

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the daemon from the console
func setSysProcAttr(cmd *exec.Cmd) {
	const createNewProcessGroup = 0x00000200
	const detachedProcess = 0x00000008
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup | detachedProcess,
	}
}
