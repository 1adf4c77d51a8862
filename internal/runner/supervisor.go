package runner

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/domain"
	"fleetctl/internal/jvm"
	"fleetctl/internal/runner/strategy"
	"fleetctl/internal/server"
	"fleetctl/internal/storage"
	"fleetctl/internal/ws"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// gracefulStopTimeout is how long StopServer waits after writing "stop" to
// stdin before escalating to SIGTERM, then a kill.
const gracefulStopTimeout = 30 * time.Second
const forcefulKillTimeout = 5 * time.Second

type Supervisor struct {
	Store        *storage.GormStore
	JVM          *jvm.Manager
	HubManager   *ws.HubManager
	ServersPath  string
	Executor     HostExecutor
	log          *zap.SugaredLogger
	processes    map[string]*ActiveProcess
	currentState map[string]domain.ServerState
	mu           sync.Mutex
}

type ActiveProcess struct {
	Cmd   *exec.Cmd
	Stdin io.WriteCloser
}

func NewSupervisor(store *storage.GormStore, jvmMgr *jvm.Manager, hubManager *ws.HubManager, serversPath string, log *zap.SugaredLogger) *Supervisor {
	return &Supervisor{
		Store:        store,
		JVM:          jvmMgr,
		HubManager:   hubManager,
		ServersPath:  serversPath,
		Executor:     DirectExecutor{},
		log:          log,
		processes:    make(map[string]*ActiveProcess),
		currentState: make(map[string]domain.ServerState),
	}
}

// ResetRunningStates clears any STARTING/RUNNING/STOPPING status left over
// from a previous daemon process, since no ActiveProcess survives a
// restart to eventually transition them to STOPPED itself.
func (s *Supervisor) ResetRunningStates() error {
	servers, err := s.Store.ListServers()
	if err != nil {
		return err
	}

	for _, srv := range servers {
		switch srv.Status {
		case domain.StateStarting, domain.StateRunning, domain.StateStopping:
			s.setStatus(srv.ID, domain.StateStopped)
		}
	}
	return nil
}

func (s *Supervisor) setStatus(id string, state domain.ServerState) {
	if err := s.Store.UpdateStatus(id, state); err != nil {
		s.log.Warnw("could not update server status", "server", id, "state", state, "error", err)
	}
	s.mu.Lock()
	s.currentState[id] = state
	s.mu.Unlock()
	s.HubManager.GetHub(id).BroadcastState(string(state))
}

// stateIs reports whether id's last-known state matches want, used to guard
// log-pattern transitions that must not regress a later lifecycle state.
func (s *Supervisor) stateIs(id string, want domain.ServerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState[id] == want
}

func (s *Supervisor) StartServer(serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[serverID]; exists {
		return apperr.New(apperr.AlreadyRunning, "server is already running")
	}

	srv, err := s.Store.GetServerByID(serverID)
	if err != nil {
		return err
	}

	serverDir := filepath.Join(s.ServersPath, srv.FolderName)
	absServerDir, err := filepath.Abs(serverDir)
	if err != nil {
		return fmt.Errorf("error getting absolute path for server: %w", err)
	}

	if err := checkPortAvailable(srv.Port); err != nil {
		s.log.Warnw("port busy, reallocating", "server", srv.Name, "port", srv.Port)
		newPort, err := server.AllocatePort(s.Store)
		if err != nil {
			return fmt.Errorf("failed to allocate new port: %w", err)
		}
		if err := s.Store.UpdateServerPort(srv.ID, newPort); err != nil {
			return fmt.Errorf("failed to update server port in database: %w", err)
		}
		srv.Port = newPort
		s.log.Infow("reassigned server port", "server", srv.Name, "port", newPort)
	}

	configFile := filepath.Join(absServerDir, "server.properties")
	if err := ensurePortInProperties(configFile, srv.Port); err != nil {
		s.log.Warnw("could not update server.properties", "error", err)
	}

	requiredJava := GetJavaVersionForMC(srv.Version)
	javaPath, err := s.JVM.EnsureJava(requiredJava)
	if err != nil {
		return fmt.Errorf("error preparing Java: %w", err)
	}

	runner := strategy.GetRunner(srv.Engine)
	argv, err := runner.BuildCommand(javaPath, absServerDir, srv.RAM, srv.CustomArgs)
	if err != nil {
		return err
	}

	cmd := s.Executor.Command(argv[0], argv[1:]...)
	cmd.Dir = absServerDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	hub := s.HubManager.GetHub(serverID)

	// s.mu is held for the whole of StartServer, so status changes here go
	// through this helper instead of setStatus, which takes s.mu itself.
	setStatusLocked := func(state domain.ServerState) {
		if err := s.Store.UpdateStatus(serverID, state); err != nil {
			s.log.Warnw("could not update server status", "server", serverID, "state", state, "error", err)
		}
		s.currentState[serverID] = state
		hub.BroadcastState(string(state))
	}

	setStatusLocked(domain.StateStarting)

	go s.pumpOutput(serverID, hub, stdout)
	go s.pumpOutput(serverID, hub, stderr)

	go func() {
		for command := range hub.Commands {
			hub.Broadcast(append([]byte("> "), command...))
			if _, err := io.WriteString(stdin, string(command)+"\n"); err != nil {
				return
			}
		}
	}()

	if err := cmd.Start(); err != nil {
		setStatusLocked(domain.StateError)
		return fmt.Errorf("failed to start: %w", err)
	}

	s.processes[serverID] = &ActiveProcess{
		Cmd:   cmd,
		Stdin: stdin,
	}

	go func(id string, c *exec.Cmd) {
		waitErr := c.Wait()

		s.mu.Lock()
		delete(s.processes, id)
		s.mu.Unlock()

		if waitErr == nil {
			s.setStatus(id, domain.StateStopped)
		} else if _, ok := waitErr.(*exec.ExitError); ok {
			s.setStatus(id, domain.StateExited)
		} else {
			s.setStatus(id, domain.StateError)
		}

		s.HubManager.RemoveHub(id)
	}(serverID, cmd)

	return nil
}

// pumpOutput forwards a game-server log stream onto its console hub, and
// transitions the server's recorded state on known log-line milestones.
func (s *Supervisor) pumpOutput(serverID string, hub *ws.Hub, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		hub.Broadcast([]byte(line))

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "done") && strings.Contains(lower, "help"):
			s.setStatus(serverID, domain.StateRunning)
		case strings.Contains(lower, "starting minecraft server") || strings.Contains(lower, "starting net.minecraft.server"):
			// A plugin/mod reload can log this same line well after the
			// server already reached Running; never regress Running back
			// to Starting.
			if !s.stateIs(serverID, domain.StateRunning) {
				s.setStatus(serverID, domain.StateStarting)
			}
		case strings.Contains(lower, "stopping server") || strings.Contains(lower, "stopping the server") || strings.Contains(lower, "saving worlds"):
			s.setStatus(serverID, domain.StateStopping)
		}
	}
}

// StopServer requests a graceful shutdown, escalating to SIGTERM and then a
// kill if the process hasn't exited within gracefulStopTimeout.
func (s *Supervisor) StopServer(serverID string) error {
	s.mu.Lock()
	proc, exists := s.processes[serverID]
	s.mu.Unlock()

	if !exists {
		return apperr.New(apperr.AlreadyStopped, "server is already stopped")
	}

	s.setStatus(serverID, domain.StateStopping)
	if _, err := io.WriteString(proc.Stdin, "stop\n"); err != nil {
		return err
	}

	// Cmd.Wait belongs to StartServer's exit goroutine; StopServer waits for
	// that goroutine to drop the process entry instead of calling Wait again.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			time.Sleep(100 * time.Millisecond)
			s.mu.Lock()
			cur, ok := s.processes[serverID]
			s.mu.Unlock()
			if !ok || cur != proc {
				return
			}
		}
	}()

	select {
	case <-done:
		return nil
	case <-time.After(gracefulStopTimeout):
	}

	s.log.Warnw("graceful stop timed out, escalating", "server", serverID)
	if proc.Cmd.Process != nil {
		_ = proc.Cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-done:
		return nil
	case <-time.After(forcefulKillTimeout):
	}

	s.log.Warnw("forceful stop timed out, killing", "server", serverID)
	if proc.Cmd.Process != nil {
		_ = proc.Cmd.Process.Kill()
	}
	<-done
	return nil
}

// SendCommand writes a console command to a running server's stdin and
// echoes it into the console hub so viewers see what was typed.
func (s *Supervisor) SendCommand(serverID string, cmd string) error {
	s.mu.Lock()
	proc, exists := s.processes[serverID]
	s.mu.Unlock()

	if !exists || !s.stateIs(serverID, domain.StateRunning) {
		return apperr.New(apperr.NotRunning, "server is not running")
	}

	s.HubManager.GetHub(serverID).Broadcast([]byte("> " + cmd))

	_, err := io.WriteString(proc.Stdin, cmd+"\n")
	return err
}

func ensurePortInProperties(path string, port int) error {
	props := make(map[string]string)
	var lines []string

	if file, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := scanner.Text()
			lines = append(lines, line)

			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				val := strings.TrimSpace(parts[1])
				props[key] = val
			}
		}
		file.Close()
	}

	portStr := fmt.Sprintf("%d", port)
	if currentVal, ok := props["server-port"]; ok && currentVal == portStr {
		return nil
	}

	var newContent []string
	portUpdated := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "server-port=") || strings.HasPrefix(strings.TrimSpace(line), "server-port =") {
			newContent = append(newContent, fmt.Sprintf("server-port=%s", portStr))
			portUpdated = true
		} else {
			newContent = append(newContent, line)
		}
	}

	if !portUpdated {
		newContent = append(newContent, fmt.Sprintf("server-port=%s", portStr))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range newContent {
		writer.WriteString(line + "\n")
	}
	return writer.Flush()
}

// Stats samples a point-in-time resource snapshot for every currently
// running server: CPU percent and resident memory from the server's JVM
// process via gopsutil, and on-disk size from walking its server directory.
// Servers with no live process (stopped, or mid-provision) are omitted.
func (s *Supervisor) Stats() (map[string]domain.ServerStats, error) {
	s.mu.Lock()
	pids := make(map[string]int32, len(s.processes))
	for id, proc := range s.processes {
		if proc.Cmd.Process != nil {
			pids[id] = int32(proc.Cmd.Process.Pid)
		}
	}
	s.mu.Unlock()

	servers, err := s.Store.ListServers()
	if err != nil {
		return nil, err
	}
	folderByID := make(map[string]string, len(servers))
	for _, srv := range servers {
		folderByID[srv.ID] = srv.FolderName
	}

	out := make(map[string]domain.ServerStats, len(pids))
	for id, pid := range pids {
		stat := domain.ServerStats{}

		if proc, err := gopsutilprocess.NewProcess(pid); err == nil {
			if cpu, err := proc.CPUPercent(); err == nil {
				stat.CPU = cpu
			}
			if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
				stat.RAM = mem.RSS
			}
		} else {
			s.log.Debugw("could not sample process stats", "server", id, "pid", pid, "error", err)
		}

		if folder, ok := folderByID[id]; ok {
			stat.Disk = dirSize(filepath.Join(s.ServersPath, folder))
		}

		out[id] = stat
	}
	return out, nil
}

// dirSize returns the total size in bytes of all regular files under dir,
// skipping anything it can't stat rather than failing the whole sample.
func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	_ = ln.Close()
	return nil
}
