package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectPrefersLaunchScriptOverJar(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "server.jar"), "jar")
	mustWrite(t, filepath.Join(dir, "run.sh"), "#!/bin/sh")

	desc, ok := Detect(dir)
	if !ok {
		t.Fatal("expected Detect to find a runnable artifact")
	}
	if desc.Kind != KindScript {
		t.Errorf("expected KindScript, got %v", desc.Kind)
	}
	if filepath.Base(desc.Path) != "run.sh" {
		t.Errorf("expected run.sh, got %s", desc.Path)
	}
}

func TestDetectPrefersEngineKeywordJar(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "aaa-unrelated.jar"), "unrelated")
	mustWrite(t, filepath.Join(dir, "zzz-forge-installer.jar"), "installer")
	mustWrite(t, filepath.Join(dir, "forge-server.jar"), "jar")

	desc, ok := Detect(dir)
	if !ok {
		t.Fatal("expected Detect to find a runnable artifact")
	}
	if desc.Kind != KindJar {
		t.Errorf("expected KindJar, got %v", desc.Kind)
	}
	if filepath.Base(desc.Path) != "forge-server.jar" {
		t.Errorf("expected forge-server.jar to win on engine keyword despite lexical order, got %s", desc.Path)
	}
}

func TestDetectIgnoresInstallerAndLibraryJars(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "thing-installer.jar"), "installer")
	mustWrite(t, filepath.Join(dir, "thing-library.jar"), "lib")

	if _, ok := Detect(dir); ok {
		t.Fatal("expected Detect to find nothing when only installer/library jars are present")
	}
}

func TestDetectReturnsFalseOnEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Detect(dir); ok {
		t.Fatal("expected Detect to find nothing in an empty directory")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
