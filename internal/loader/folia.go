package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// FoliaAPIURL reuses PaperMC's own project-API shape under the "folia"
// project instead of "paper".
const FoliaAPIURL = "https://api.papermc.io/v2/projects/folia/"

type FoliaLoader struct{}

func NewFoliaLoader() *FoliaLoader {
	return &FoliaLoader{}
}

func (l *FoliaLoader) GetSupportedVersions() ([]string, error) {
	resp, err := http.Get(FoliaAPIURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response PaperVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	var filtered []string
	for _, v := range response.Versions {
		if !strings.Contains(v, "-") {
			filtered = append(filtered, v)
		}
	}
	SortVersions(filtered)
	return filtered, nil
}

// Resolve looks up versionID's latest Folia build and returns a direct-jar
// plan.
func (l *FoliaLoader) Resolve(versionID string) (FetchPlan, error) {
	build, err := l.getLatestBuild(versionID)
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting latest Folia build: %w", err)
	}
	url := fmt.Sprintf("%sversions/%s/builds/%d/downloads/folia-%s-%d.jar",
		FoliaAPIURL, versionID, build, versionID, build)
	return FetchPlan{Kind: PlanDirectJar, URL: url}, nil
}

func (l *FoliaLoader) getLatestBuild(version string) (int, error) {
	resp, err := http.Get(fmt.Sprintf("%sversions/%s", FoliaAPIURL, version))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response PaperBuildsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, err
	}
	if len(response.Builds) == 0 {
		return 0, fmt.Errorf("no builds found for version %s", version)
	}
	return response.Builds[len(response.Builds)-1], nil
}
