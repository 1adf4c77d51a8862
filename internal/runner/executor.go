package runner

import "os/exec"

// HostExecutor abstracts how a child process is actually created, so the
// supervisor depends only on a capability instead of calling os/exec
// directly. DirectExecutor forks/execs in this process's own namespace,
// which is correct for a bare-metal or systemd-managed daemon.
// NamespaceExecutor re-enters the host's process namespace for a
// containerized deployment of the control plane itself, so game-server
// children land alongside the host's other processes instead of being
// confined to the control plane's own container.
type HostExecutor interface {
	Command(name string, arg ...string) *exec.Cmd
}

// DirectExecutor runs commands directly in this process's namespace.
type DirectExecutor struct{}

func (DirectExecutor) Command(name string, arg ...string) *exec.Cmd {
	cmd := exec.Command(name, arg...)
	prepareCommand(cmd)
	return cmd
}

// NamespaceExecutor wraps every command in a namespace-entering helper
// (e.g. "nsenter --target 1 --mount --pid --") so a control plane running
// inside a container can still spawn game-server processes that live in
// the host's own process namespace.
type NamespaceExecutor struct {
	HelperPath string
	HelperArgs []string
}

func (n NamespaceExecutor) Command(name string, arg ...string) *exec.Cmd {
	full := make([]string, 0, len(n.HelperArgs)+1+len(arg))
	full = append(full, n.HelperArgs...)
	full = append(full, name)
	full = append(full, arg...)
	cmd := exec.Command(n.HelperPath, full...)
	prepareCommand(cmd)
	return cmd
}
