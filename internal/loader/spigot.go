package loader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"fleetctl/internal/domain"
)

// BuildToolsURL is SpigotMC's compile-from-source tool. Unlike the other
// families, Spigot and CraftBukkit have no published binary jar — BuildTools
// downloads Mojang's mappings, applies SpigotMC's patches, and compiles the
// server jar locally with the installed JDK.
const BuildToolsURL = "https://hub.spigotmc.org/jenkins/job/BuildTools/lastSuccessfulBuild/artifact/target/BuildTools.jar"

// buildWithBuildTools runs BuildTools for the given version and renames the
// named output jar ("spigot-<version>.jar" or "craftbukkit-<version>.jar")
// to server.jar. It is shared by SpigotLoader and BukkitLoader since they
// differ only in which --compile target's output they keep.
func buildWithBuildTools(versionID, destDir, compileTarget, outputPrefix string, progressChan chan<- domain.ProgressEvent) error {
	if progressChan != nil {
		progressChan <- domain.ProgressEvent{Message: "Downloading BuildTools.jar..."}
	}

	toolsPath := filepath.Join(destDir, "BuildTools.jar")
	if err := downloadPlain(BuildToolsURL, toolsPath, progressChan); err != nil {
		return err
	}

	if progressChan != nil {
		progressChan <- domain.ProgressEvent{Message: fmt.Sprintf("Compiling %s %s (this can take several minutes)...", compileTarget, versionID)}
	}

	cmd := exec.Command("java", "-jar", "BuildTools.jar", "--rev", versionID, "--compile", compileTarget)
	cmd.Dir = destDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("BuildTools compile failed: %w", err)
	}

	builtJar := filepath.Join(destDir, fmt.Sprintf("%s-%s.jar", outputPrefix, versionID))
	if _, err := os.Stat(builtJar); err != nil {
		return fmt.Errorf("BuildTools did not produce the expected jar: %w", err)
	}
	if err := os.Rename(builtJar, filepath.Join(destDir, "server.jar")); err != nil {
		return err
	}

	_ = os.Remove(toolsPath)

	if progressChan != nil {
		progressChan <- domain.ProgressEvent{Message: "Installation completed.", Progress: 100}
	}
	return nil
}

func downloadPlain(url, dest string, progressChan chan<- domain.ProgressEvent) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading %s: status %d", url, resp.StatusCode)
	}

	progressReader := &ProgressReader{
		Reader:       resp.Body,
		Total:        resp.ContentLength,
		ProgressChan: progressChan,
		Message:      "Downloading BuildTools.jar",
	}
	_, err = io.Copy(out, progressReader)
	return err
}

// SpigotLoader shares SpigotMC's BuildTools pipeline with BukkitLoader; the
// list of known-buildable versions is the same Mojang manifest vanilla
// offers, since BuildTools can compile any version with published mappings.
type SpigotLoader struct{}

func NewSpigotLoader() *SpigotLoader { return &SpigotLoader{} }

func (l *SpigotLoader) GetSupportedVersions() ([]string, error) {
	return (&VanillaLoader{}).GetSupportedVersions()
}

func (l *SpigotLoader) Load(versionID string, destDir string, progressChan chan<- domain.ProgressEvent) error {
	return buildWithBuildTools(versionID, destDir, "Spigot", "spigot", progressChan)
}

// Resolve returns a build-from-source plan; Spigot has no published binary
// jar, so the artifact installer must invoke BuildTools rather than
// download+place a jar.
func (l *SpigotLoader) Resolve(versionID string) (FetchPlan, error) {
	return FetchPlan{Kind: PlanBuildFromSource, CompileTarget: "Spigot", OutputPrefix: "spigot"}, nil
}
