//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// prepareCommand puts the child in its own process group, so signals sent to
// the daemon's group (such as a terminal Ctrl-C) do not reach it. Stop
// escalation signals the child's pid only, not the whole group.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
