package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// QuiltAPIURL follows the same meta-server shape as Fabric's, since Quilt
// is a Fabric-toolchain fork.
const QuiltAPIURL = "https://meta.quiltmc.org/v3/versions/"

type QuiltGameVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

type QuiltLoaderVersion struct {
	Version string `json:"version"`
}

type QuiltLoader struct{}

func NewQuiltLoader() *QuiltLoader {
	return &QuiltLoader{}
}

func (l *QuiltLoader) GetSupportedVersions() ([]string, error) {
	resp, err := http.Get(QuiltAPIURL + "game")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []QuiltGameVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}

	var stable []string
	for _, v := range versions {
		if v.Stable {
			stable = append(stable, v.Version)
		}
	}
	return stable, nil
}

func (l *QuiltLoader) getLoaderVersions() ([]string, error) {
	resp, err := http.Get(QuiltAPIURL + "loader")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var versions []QuiltLoaderVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, err
	}

	var loaderVersions []string
	for _, v := range versions {
		loaderVersions = append(loaderVersions, v.Version)
	}
	return loaderVersions, nil
}

// Resolve looks up the latest Quilt loader version for versionID and
// returns a direct-jar plan pointing at Quilt's server-jar endpoint.
func (l *QuiltLoader) Resolve(versionID string) (FetchPlan, error) {
	loaderVersions, err := l.getLoaderVersions()
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting Quilt loader versions: %w", err)
	}
	if len(loaderVersions) == 0 {
		return FetchPlan{}, fmt.Errorf("no loader versions found for Quilt")
	}
	latestLoaderVersion := loaderVersions[0]
	url := fmt.Sprintf("%sloader/%s/%s/server/jar", QuiltAPIURL, versionID, latestLoaderVersion)
	return FetchPlan{Kind: PlanDirectJar, URL: url}, nil
}
