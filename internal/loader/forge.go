package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const ForgeAPIURL = "https://bmclapi2.bangbang93.com/forge/"

type ForgeLoader struct{}

func NewForgeLoader() *ForgeLoader {
	return &ForgeLoader{}
}

func (l *ForgeLoader) GetSupportedVersions() ([]string, error) {
	resp, err := http.Get(ForgeAPIURL + "minecraft")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}

	SortVersions(versions)
	return versions, nil
}

func (l *ForgeLoader) getLoaderVersions(minecraftVersion string) ([]string, error) {
	resp, err := http.Get(ForgeAPIURL + "minecraft/" + minecraftVersion)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	type forgeLoaderVersion struct {
		Version string `json:"version"`
	}

	var loaderInfo []forgeLoaderVersion
	if err := json.NewDecoder(resp.Body).Decode(&loaderInfo); err != nil {
		return nil, err
	}

	var versions []string
	for _, v := range loaderInfo {
		versions = append(versions, v.Version)
	}

	SortVersions(versions)
	return versions, nil
}

// Resolve returns an installer-run plan against the Maven installer jar for
// versionID. A combined "<mc>-<forge>" version is used as is; a bare
// Minecraft version is paired with its latest Forge loader version.
func (l *ForgeLoader) Resolve(versionID string) (FetchPlan, error) {
	forgeVersion := versionID
	if !strings.Contains(versionID, "-") {
		loaderVersions, err := l.getLoaderVersions(versionID)
		if err != nil {
			return FetchPlan{}, fmt.Errorf("error getting Forge loader versions: %w", err)
		}
		if len(loaderVersions) == 0 {
			return FetchPlan{}, fmt.Errorf("no loader versions found for Forge on minecraft version %s", versionID)
		}
		forgeVersion = fmt.Sprintf("%s-%s", versionID, loaderVersions[0])
	}
	url := fmt.Sprintf("https://maven.minecraftforge.net/net/minecraftforge/forge/%s/forge-%s-installer.jar", forgeVersion, forgeVersion)

	return FetchPlan{
		Kind: PlanInstallerRun,
		URL:  url,
		Argv: []string{"-jar", "installer.jar", "--installServer"},
	}, nil
}

