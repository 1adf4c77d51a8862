package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const NeoForgeAPIURL = "https://maven.neoforged.net/api/maven/versions/releases/net%2Fneoforged%2Fneoforge"

type NeoForgeLoader struct{}

func NewNeoForgeLoader() *NeoForgeLoader {
	return &NeoForgeLoader{}
}

type NeoForgeVersionsResponse struct {
	Versions []string `json:"versions"`
}

// GetSupportedVersions derives the Minecraft game versions NeoForge
// supports from its loader version list: loader majors 20 and 21 encode the
// game version in their first two components ("21.1.x" is MC 1.21.1, and
// "21.0.x" is MC 1.21); other loader versions keep their first three
// components as they are.
func (l *NeoForgeLoader) GetSupportedVersions() ([]string, error) {
	resp, err := http.Get(NeoForgeAPIURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response NeoForgeVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	var versionsList []string
	seen := make(map[string]bool)

	for _, version := range response.Versions {
		if strings.HasPrefix(version, "0.") || strings.Contains(version, "snapshot") || strings.Contains(version, "alpha") {
			continue
		}

		parts := strings.Split(version, ".")
		if len(parts) >= 2 {
			majorNum := parts[0]
			var formatted string

			if majorNum == "21" && parts[1] == "0" {
				formatted = "1.21"
			} else if majorNum == "20" || majorNum == "21" {
				formatted = fmt.Sprintf("1.%s.%s", majorNum, parts[1])
			} else if len(parts) >= 3 {
				formatted = fmt.Sprintf("%s.%s.%s", majorNum, parts[1], parts[2])
			} else {
				formatted = fmt.Sprintf("%s.%s", majorNum, parts[1])
			}

			if !seen[formatted] {
				versionsList = append(versionsList, formatted)
				seen[formatted] = true
			}
		}
	}

	SortVersions(versionsList)
	return versionsList, nil
}

func (l *NeoForgeLoader) getLoaderVersions(minecraftVersion string) ([]string, error) {
	resp, err := http.Get(NeoForgeAPIURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response NeoForgeVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	var loaderVersionsList []string
	parts := strings.Split(minecraftVersion, ".")
	oldScheme := len(parts) >= 2 && parts[0] == "1" && (parts[1] == "20" || parts[1] == "21")

	var versionPrefix string
	switch {
	case oldScheme && len(parts) >= 3:
		versionPrefix = parts[1] + "." + parts[2] + "."
	case oldScheme:
		versionPrefix = parts[1] + ".0."
	case len(parts) >= 3:
		versionPrefix = parts[0] + "." + parts[1] + "." + parts[2] + "."
	case len(parts) == 2:
		versionPrefix = parts[0] + "." + parts[1] + "."
	}

	for _, version := range response.Versions {
		if version == minecraftVersion || (versionPrefix != "" && strings.HasPrefix(version, versionPrefix)) {
			loaderVersionsList = append(loaderVersionsList, version)
		}
	}

	SortVersions(loaderVersionsList)
	return loaderVersionsList, nil
}

// Resolve picks the NeoForge loader version for versionID (versionID itself
// when it is a published loader version, otherwise the latest loader for
// that Minecraft version) and returns an installer-run plan against the
// matching Maven installer jar.
func (l *NeoForgeLoader) Resolve(versionID string) (FetchPlan, error) {
	loaderVersions, err := l.getLoaderVersions(versionID)
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting NeoForge loader versions: %w", err)
	}
	if len(loaderVersions) == 0 {
		return FetchPlan{}, fmt.Errorf("no loader versions found for NeoForge on minecraft version %s", versionID)
	}
	latestLoaderVersion := loaderVersions[0]
	url := fmt.Sprintf("https://maven.neoforged.net/releases/net/neoforged/neoforge/%s/neoforge-%s-installer.jar", latestLoaderVersion, latestLoaderVersion)

	return FetchPlan{
		Kind: PlanInstallerRun,
		URL:  url,
		Argv: []string{"-jar", "installer.jar", "--installServer"},
	}, nil
}
