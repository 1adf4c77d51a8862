package loader

import (
	"fmt"

	"fleetctl/internal/apperr"
	"fleetctl/internal/domain"
)

// GetLoader returns the VersionLister+Resolver for the given engine family.
// Every family implements both, regardless of how its artifact is actually
// obtained (direct download, installer run, or local build).
func GetLoader(engine domain.EngineFamily) (VersionLister, error) {
	switch engine {
	case domain.EngineVanilla:
		return NewVanillaLoader(), nil
	case domain.EnginePaper:
		return NewPaperLoader(), nil
	case domain.EngineSpigot:
		return NewSpigotLoader(), nil
	case domain.EngineBukkit:
		return NewBukkitLoader(), nil
	case domain.EngineFabric:
		return NewFabricLoader(), nil
	case domain.EngineForge:
		return NewForgeLoader(), nil
	case domain.EngineNeoForge:
		return NewNeoForgeLoader(), nil
	case domain.EngineQuilt:
		return NewQuiltLoader(), nil
	case domain.EnginePurpur:
		return NewPurpurLoader(), nil
	case domain.EngineFolia:
		return NewFoliaLoader(), nil
	default:
		return nil, apperr.New(apperr.InvalidRequest, fmt.Sprintf("engine family %q not supported", engine))
	}
}

// GetResolver returns the Resolver for the given engine family. Every
// loader returned by GetLoader also implements Resolver; this is a typed
// accessor for callers (the artifact installer) that only need plan
// resolution.
func GetResolver(engine domain.EngineFamily) (Resolver, error) {
	l, err := GetLoader(engine)
	if err != nil {
		return nil, err
	}
	r, ok := l.(Resolver)
	if !ok {
		return nil, apperr.New(apperr.Internal, fmt.Sprintf("engine family %q has no resolver", engine))
	}
	return r, nil
}

// GetSourceBuilder returns the SourceBuilder for an engine family whose
// Resolver reports PlanBuildFromSource (Spigot/Bukkit). Any other family
// has no local-build path and fails apperr.Internal.
func GetSourceBuilder(engine domain.EngineFamily) (SourceBuilder, error) {
	l, err := GetLoader(engine)
	if err != nil {
		return nil, err
	}
	b, ok := l.(SourceBuilder)
	if !ok {
		return nil, apperr.New(apperr.Internal, fmt.Sprintf("engine family %q has no source builder", engine))
	}
	return b, nil
}

func GetLoaderVersions(engine domain.EngineFamily) ([]string, error) {
	l, err := GetLoader(engine)
	if err != nil {
		return nil, err
	}
	return l.GetSupportedVersions()
}

func GetAvailableEngines() []domain.EngineFamily {
	return []domain.EngineFamily{
		domain.EngineVanilla,
		domain.EnginePaper,
		domain.EngineSpigot,
		domain.EngineBukkit,
		domain.EngineFabric,
		domain.EngineForge,
		domain.EngineNeoForge,
		domain.EngineQuilt,
		domain.EnginePurpur,
		domain.EngineFolia,
	}
}
