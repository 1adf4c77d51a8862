package loader

import "fleetctl/internal/domain"

// VersionLister reports the versions one engine family supports, the only
// capability every family needs for the `/loaders/{name}/versions` listing
// endpoint.
type VersionLister interface {
	GetSupportedVersions() ([]string, error)
}

// SourceBuilder compiles a server jar locally via BuildTools (the
// Spigot/Bukkit family) instead of downloading a prebuilt artifact,
// streaming progress as a structured domain.ProgressEvent. Only families
// whose Resolver reports PlanBuildFromSource implement this.
type SourceBuilder interface {
	Load(version string, destDir string, progressChan chan<- domain.ProgressEvent) error
}

// PlanKind classifies how a FetchPlan's artifact must be turned into a
// running server jar.
type PlanKind string

const (
	// PlanDirectJar: download URL and place it at destDir/<engine>-server.jar.
	PlanDirectJar PlanKind = "direct_jar"
	// PlanInstallerRun: download URL as an installer jar, then run Argv
	// against it (java -jar <installer> ...) inside destDir.
	PlanInstallerRun PlanKind = "installer_run"
	// PlanBuildFromSource: no artifact to download; compile one locally via
	// BuildTools (Spigot/Bukkit family) against CompileTarget, keeping the
	// "<OutputPrefix>-<version>.jar" output as server.jar.
	PlanBuildFromSource PlanKind = "build_from_source"
)

// FetchPlan is the resolved, not-yet-executed description of how to obtain
// one engine family's server artifact for a given version. Resolver
// implementations only ever decide WHAT to fetch/run; executing the plan
// (downloading, running the installer, invoking BuildTools) is the artifact
// installer's job.
type FetchPlan struct {
	Kind PlanKind

	// Populated for PlanDirectJar and PlanInstallerRun.
	URL string

	// Populated for PlanInstallerRun: the installer's argv, e.g.
	// []string{"-jar", "installer.jar", "--installServer"}.
	Argv []string

	// Populated for PlanBuildFromSource.
	CompileTarget string
	OutputPrefix  string
}

// Resolver resolves a version to a FetchPlan without downloading or
// installing anything, separating "what artifact does this version need"
// from "how do I obtain it" so the artifact installer can cache, retry, and
// report progress uniformly across engine families.
type Resolver interface {
	Resolve(version string) (FetchPlan, error)
}
