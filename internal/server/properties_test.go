package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"fleetctl/internal/domain"
)

func TestEnableRemoteConsoleUsesTenThousandOffset(t *testing.T) {
	dir := t.TempDir()

	if err := EnableRemoteConsole(dir, 25565, "secret", domain.GameOptions{}); err != nil {
		t.Fatalf("EnableRemoteConsole failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "server.properties"))
	if err != nil {
		t.Fatalf("failed to read server.properties: %v", err)
	}

	want := "rcon.port=" + strconv.Itoa(25565+10000)
	if !strings.Contains(string(data), want) {
		t.Errorf("expected %q in server.properties, got:\n%s", want, data)
	}
	if !strings.Contains(string(data), "rcon.password=secret") {
		t.Error("expected rcon.password to be set")
	}
	if !strings.Contains(string(data), "enable-rcon=true") {
		t.Error("expected enable-rcon to be true")
	}
}

func TestWriteUserJVMArgsCapsMinHeapAt1024(t *testing.T) {
	dir := t.TempDir()

	if err := WriteUserJVMArgs(dir, 4096, "-Dfoo=bar"); err != nil {
		t.Fatalf("WriteUserJVMArgs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "user_jvm_args.txt"))
	if err != nil {
		t.Fatalf("failed to read user_jvm_args.txt: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "-Xmx4096M") {
		t.Errorf("expected -Xmx4096M, got:\n%s", content)
	}
	if !strings.Contains(content, "-Xms1024M") {
		t.Errorf("expected -Xms1024M (capped), got:\n%s", content)
	}
	if !strings.Contains(content, "-Dfoo=bar") {
		t.Errorf("expected custom arg to be preserved, got:\n%s", content)
	}
}

func TestWriteUserJVMArgsUsesFullMemoryWhenUnder1024(t *testing.T) {
	dir := t.TempDir()

	if err := WriteUserJVMArgs(dir, 512, ""); err != nil {
		t.Fatalf("WriteUserJVMArgs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "user_jvm_args.txt"))
	if err != nil {
		t.Fatalf("failed to read user_jvm_args.txt: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "-Xmx512M") || !strings.Contains(content, "-Xms512M") {
		t.Errorf("expected matching Xmx/Xms at 512M, got:\n%s", content)
	}
}
