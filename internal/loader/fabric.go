package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const FabricAPIURL = "https://meta.fabricmc.net/v2/versions/"

type FabricGameVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

type FabricLoaderVersion struct {
	Version string `json:"version"`
}

type FabricInstallerVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

type FabricLoader struct{}

func NewFabricLoader() *FabricLoader {
	return &FabricLoader{}
}

func (l *FabricLoader) GetSupportedVersions() ([]string, error) {
	return l.getGameVersions()
}

// Resolve looks up the latest loader and installer versions for versionID
// and returns a direct-jar plan pointing at Fabric's server-jar endpoint.
func (l *FabricLoader) Resolve(versionID string) (FetchPlan, error) {
	loaderVersions, err := l.getLoaderVersions()
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting Fabric loader versions: %w", err)
	}
	if len(loaderVersions) == 0 {
		return FetchPlan{}, fmt.Errorf("no loader versions found for Fabric")
	}
	latestLoaderVersion := loaderVersions[0]

	installerVersion, err := l.getLatestInstallerVersion()
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting latest installer version: %w", err)
	}

	url := fmt.Sprintf("%sloader/%s/%s/%s/server/jar",
		FabricAPIURL, versionID, latestLoaderVersion, installerVersion)
	return FetchPlan{Kind: PlanDirectJar, URL: url}, nil
}

func (l *FabricLoader) getGameVersions() ([]string, error) {
	resp, err := http.Get(FabricAPIURL + "game")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []FabricGameVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}

	var stableVersions []string
	for _, v := range versions {
		if v.Stable {
			stableVersions = append(stableVersions, v.Version)
		}
	}

	return stableVersions, nil
}

func (l *FabricLoader) getLoaderVersions() ([]string, error) {
	resp, err := http.Get(FabricAPIURL + "loader")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []FabricLoaderVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}

	var loaderVersions []string
	for _, v := range versions {
		loaderVersions = append(loaderVersions, v.Version)
	}

	return loaderVersions, nil
}

func (l *FabricLoader) getLatestInstallerVersion() (string, error) {
	resp, err := http.Get(FabricAPIURL + "installer")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []FabricInstallerVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return "", err
	}

	for _, v := range versions {
		if v.Stable {
			return v.Version, nil
		}
	}

	return "", fmt.Errorf("no stable installer version found")
}
