package loader

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const ManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

type Manifest struct {
	Versions []Version `json:"versions"`
}
type Version struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
type VersionDetails struct {
	Downloads Downloads `json:"downloads"`
}
type Downloads struct {
	Server DownloadInfo `json:"server"`
}
type DownloadInfo struct {
	URL string `json:"url"`
}

type VanillaLoader struct{}

func NewVanillaLoader() *VanillaLoader {
	return &VanillaLoader{}
}

func (l *VanillaLoader) GetSupportedVersions() ([]string, error) {
	manifest, err := l.fetchManifest()
	if err != nil {
		return nil, fmt.Errorf("could not get version manifest: %w", err)
	}

	var versions []string
	for _, v := range manifest.Versions {
		versions = append(versions, v.ID)
	}

	return versions, nil
}

// Resolve looks up versionID in the Mojang manifest and returns a direct-jar
// plan pointing at its server download URL.
func (l *VanillaLoader) Resolve(versionID string) (FetchPlan, error) {
	manifest, err := l.fetchManifest()
	if err != nil {
		return FetchPlan{}, err
	}

	var versionURL string
	for _, v := range manifest.Versions {
		if v.ID == versionID {
			versionURL = v.URL
			break
		}
	}
	if versionURL == "" {
		return FetchPlan{}, fmt.Errorf("version %s not found in Mojang", versionID)
	}

	details, err := l.fetchVersionDetails(versionURL)
	if err != nil {
		return FetchPlan{}, err
	}
	return FetchPlan{Kind: PlanDirectJar, URL: details.Downloads.Server.URL}, nil
}

func (l *VanillaLoader) fetchManifest() (*Manifest, error) {
	resp, err := http.Get(ManifestURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (l *VanillaLoader) fetchVersionDetails(url string) (*VersionDetails, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var d VersionDetails
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}
