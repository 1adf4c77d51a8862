package server

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fleetctl/internal/domain"
)

// UpdateServerProperties performs an order-preserving read-modify-write of
// server.properties, setting the port and the handful of GameOptions
// fields the control plane treats as first-class. Any other key a prior
// run (or the operator, by hand) added is left untouched and in place.
func UpdateServerProperties(serverDir string, port int, opts domain.GameOptions) error {
	path := filepath.Join(serverDir, "server.properties")

	props := make(map[string]string)
	var order []string

	if file, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				val := strings.TrimSpace(parts[1])
				props[key] = val
				order = append(order, key)
			}
		}
		_ = file.Close()
	}

	set := func(key, value string) {
		if _, exists := props[key]; !exists {
			order = append(order, key)
		}
		props[key] = value
	}

	set("server-port", strconv.Itoa(port))
	if opts.Seed != "" {
		set("level-seed", opts.Seed)
	}
	if opts.Difficulty != "" {
		set("difficulty", opts.Difficulty)
	}
	if opts.Gamemode != "" {
		set("gamemode", opts.Gamemode)
	}
	set("pvp", strconv.FormatBool(opts.PVP))
	set("white-list", strconv.FormatBool(opts.Whitelist))
	set("online-mode", strconv.FormatBool(opts.OnlineMode))
	if opts.MaxPlayers > 0 {
		set("max-players", strconv.Itoa(opts.MaxPlayers))
	}
	if opts.MOTD != "" {
		set("motd", opts.MOTD)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writer.WriteString("# Minecraft server properties\n")
	writer.WriteString("# Managed by fleetctl\n")

	for _, key := range order {
		fmt.Fprintf(writer, "%s=%s\n", key, props[key])
	}
	return writer.Flush()
}

// remoteConsolePortOffset is added to a server's own port to derive its
// RCON port, per the fixed convention every server.properties render uses.
const remoteConsolePortOffset = 10000

// EnableRemoteConsole turns on RCON with a generated password at
// basePort+10000, the fixed offset the control plane uses for every
// server's remote-console port.
func EnableRemoteConsole(serverDir string, basePort int, password string, opts domain.GameOptions) error {
	if err := UpdateServerProperties(serverDir, basePort, opts); err != nil {
		return err
	}

	path := filepath.Join(serverDir, "server.properties")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	rconProps := map[string]string{
		"enable-rcon":   "true",
		"rcon.port":     strconv.Itoa(basePort + remoteConsolePortOffset),
		"rcon.password": password,
	}
	seen := make(map[string]bool, len(rconProps))
	for i, line := range lines {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if val, ok := rconProps[key]; ok {
			lines[i] = key + "=" + val
			seen[key] = true
		}
	}
	for key, val := range rconProps {
		if !seen[key] {
			lines = append(lines, key+"="+val)
		}
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// WriteUserJVMArgs renders user_jvm_args.txt for a script-kind runnable
// descriptor (Forge/NeoForge): the memory flags plus any user-supplied JVM
// options, one per line, in the format the Forge/NeoForge launch scripts
// expect to @-include.
func WriteUserJVMArgs(serverDir string, memMB int, customArgs string) error {
	minHeap := memMB
	if minHeap > 1024 {
		minHeap = 1024
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-Xmx%dM\n", memMB)
	fmt.Fprintf(&b, "-Xms%dM\n", minHeap)
	if customArgs != "" {
		for _, arg := range strings.Fields(customArgs) {
			b.WriteString(arg)
			b.WriteByte('\n')
		}
	}

	return os.WriteFile(filepath.Join(serverDir, "user_jvm_args.txt"), []byte(b.String()), 0644)
}
