package strategy

import (
	"strings"

	"fleetctl/internal/domain"
)

// GetRunner returns the command builder for an engine family. Every family
// except Forge/NeoForge runs a single jar through VanillaRunner: the
// BuildTools families (Spigot/Bukkit) keep their output as server.jar, and
// direct-download families are stored as "<engine>-server.jar".
func GetRunner(engine domain.EngineFamily) ServerRunner {
	switch engine {
	case domain.EngineForge, domain.EngineNeoForge:
		return &ForgeRunner{}
	case domain.EngineSpigot, domain.EngineBukkit:
		return &VanillaRunner{JarName: "server.jar"}
	default:
		return &VanillaRunner{JarName: strings.ToLower(string(engine)) + "-server.jar"}
	}
}
