package provision

import (
	"testing"

	"fleetctl/internal/domain"
)

func TestClassifyEngineForge(t *testing.T) {
	engine, version := classifyEngine("forge-47.2.0", "1.20.1")
	if engine != domain.EngineForge {
		t.Errorf("expected EngineForge, got %v", engine)
	}
	if version != "1.20.1-47.2.0" {
		t.Errorf("expected composed Forge version, got %q", version)
	}
}

func TestClassifyEngineNeoForge(t *testing.T) {
	engine, version := classifyEngine("neoforge-20.4.80", "1.20.1")
	if engine != domain.EngineNeoForge {
		t.Errorf("expected EngineNeoForge, got %v", engine)
	}
	if version != "20.4.80" {
		t.Errorf("expected bare NeoForge loader version, got %q", version)
	}
}

func TestClassifyEngineFabric(t *testing.T) {
	engine, version := classifyEngine("fabric-0.15.7", "1.20.1")
	if engine != domain.EngineFabric {
		t.Errorf("expected EngineFabric, got %v", engine)
	}
	if version != "0.15.7" {
		t.Errorf("expected Fabric loader version, got %q", version)
	}
}

func TestClassifyEngineDefaultsToVanilla(t *testing.T) {
	engine, version := classifyEngine("", "1.20.1")
	if engine != domain.EngineVanilla {
		t.Errorf("expected EngineVanilla default, got %v", engine)
	}
	if version != "1.20.1" {
		t.Errorf("expected game version passthrough, got %q", version)
	}
}

func TestPrimaryModLoaderIDPrefersPrimaryFlag(t *testing.T) {
	mf := modpackManifest{}
	mf.Minecraft.ModLoaders = []struct {
		ID      string `json:"id"`
		Primary bool   `json:"primary"`
	}{
		{ID: "forge-47.2.0", Primary: false},
		{ID: "fabric-0.15.7", Primary: true},
	}

	if got := primaryModLoaderID(mf); got != "fabric-0.15.7" {
		t.Errorf("expected the primary-flagged loader, got %q", got)
	}
}

func TestPrimaryModLoaderIDFallsBackToFirst(t *testing.T) {
	mf := modpackManifest{}
	mf.Minecraft.ModLoaders = []struct {
		ID      string `json:"id"`
		Primary bool   `json:"primary"`
	}{
		{ID: "forge-47.2.0", Primary: false},
	}

	if got := primaryModLoaderID(mf); got != "forge-47.2.0" {
		t.Errorf("expected fallback to the only loader, got %q", got)
	}
}

func TestSanitizeNameStripsUnsafeCharsAndTruncates(t *testing.T) {
	got := sanitizeName("My Pack!! 123")
	if got != "My_Pack_123" {
		t.Errorf("expected sanitized name, got %q", got)
	}

	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	if got := sanitizeName(long); len(got) != 50 {
		t.Errorf("expected truncation to 50 chars, got length %d", len(got))
	}

	if got := sanitizeName(""); got != "server" {
		t.Errorf("expected fallback name for empty input, got %q", got)
	}
}
