package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const PaperAPIURL = "https://api.papermc.io/v2/projects/paper/"

type PaperVersionsResponse struct {
	Versions []string `json:"versions"`
}

type PaperBuildsResponse struct {
	Builds []int `json:"builds"`
}

type PaperLoader struct{}

func NewPaperLoader() *PaperLoader {
	return &PaperLoader{}
}

func (l *PaperLoader) GetSupportedVersions() ([]string, error) {
	return l.getVersions()
}

// Resolve looks up versionID's latest build and returns a direct-jar plan.
func (l *PaperLoader) Resolve(versionID string) (FetchPlan, error) {
	build, err := l.getLatestBuild(versionID)
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting latest Paper build: %w", err)
	}
	url := fmt.Sprintf("%sversions/%s/builds/%d/downloads/paper-%s-%d.jar",
		PaperAPIURL, versionID, build, versionID, build)
	return FetchPlan{Kind: PlanDirectJar, URL: url}, nil
}

func (l *PaperLoader) getVersions() ([]string, error) {
	resp, err := http.Get(PaperAPIURL)
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

	var filteredVersions []string
	for _, v := range response.Versions {
		if !strings.Contains(v, "-") {
			filteredVersions = append(filteredVersions, v)
		}
	}

	SortVersions(filteredVersions)
	return filteredVersions, nil
}

func (l *PaperLoader) getLatestBuild(version string) (int, error) {
	url := fmt.Sprintf("%sversions/%s", PaperAPIURL, version)
	resp, err := http.Get(url)
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
