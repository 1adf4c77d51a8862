package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const PurpurAPIURL = "https://api.purpurmc.org/v2/purpur/"

type purpurVersionsResponse struct {
	Versions []string `json:"versions"`
}

type purpurBuildsResponse struct {
	Builds struct {
		Latest string `json:"latest"`
	} `json:"builds"`
}

type PurpurLoader struct{}

func NewPurpurLoader() *PurpurLoader {
	return &PurpurLoader{}
}

func (l *PurpurLoader) GetSupportedVersions() ([]string, error) {
	resp, err := http.Get(PurpurAPIURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response purpurVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	SortVersions(response.Versions)
	return response.Versions, nil
}

func (l *PurpurLoader) getLatestBuild(version string) (string, error) {
	resp, err := http.Get(PurpurAPIURL + version)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API responded with status %d", resp.StatusCode)
	}

	var response purpurBuildsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", err
	}
	if response.Builds.Latest == "" {
		return "", fmt.Errorf("no builds found for version %s", version)
	}
	return response.Builds.Latest, nil
}

// Resolve looks up versionID's latest Purpur build and returns a direct-jar
// plan.
func (l *PurpurLoader) Resolve(versionID string) (FetchPlan, error) {
	build, err := l.getLatestBuild(versionID)
	if err != nil {
		return FetchPlan{}, fmt.Errorf("error getting latest Purpur build: %w", err)
	}
	url := fmt.Sprintf("%s%s/%s/download", PurpurAPIURL, versionID, build)
	return FetchPlan{Kind: PlanDirectJar, URL: url}, nil
}
