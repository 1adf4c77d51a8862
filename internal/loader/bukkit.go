package loader

import "fleetctl/internal/domain"

// BukkitLoader compiles CraftBukkit via the same BuildTools pipeline as
// Spigot, keeping the craftbukkit-<version>.jar output instead.
type BukkitLoader struct{}

func NewBukkitLoader() *BukkitLoader { return &BukkitLoader{} }

func (l *BukkitLoader) GetSupportedVersions() ([]string, error) {
	return (&VanillaLoader{}).GetSupportedVersions()
}

func (l *BukkitLoader) Load(versionID string, destDir string, progressChan chan<- domain.ProgressEvent) error {
	return buildWithBuildTools(versionID, destDir, "CraftBukkit", "craftbukkit", progressChan)
}

// Resolve returns a build-from-source plan; CraftBukkit has no published
// binary jar, so the artifact installer must invoke BuildTools rather than
// download+place a jar.
func (l *BukkitLoader) Resolve(versionID string) (FetchPlan, error) {
	return FetchPlan{Kind: PlanBuildFromSource, CompileTarget: "CraftBukkit", OutputPrefix: "craftbukkit"}, nil
}
