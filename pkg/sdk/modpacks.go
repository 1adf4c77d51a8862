package sdk

import "fmt"

type ModpackSearchHit struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Summary string `json:"summary"`
}

type ModpackMeta struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Summary     string `json:"summary"`
	LogoURL     string `json:"logoUrl"`
	DownloadURL string `json:"downloadUrl"`
}

type ModpackFile struct {
	ID          int    `json:"id"`
	ModpackID   int    `json:"modpackId"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	GameVersion string `json:"gameVersion"`
}

type ProvisionRequest struct {
	DisplayName      string `json:"displayName"`
	Description      string `json:"description,omitempty"`
	CatalogModpackID int    `json:"catalogModpackId"`
	CatalogFileID    int    `json:"catalogFileId"`
	RequestedPort    int    `json:"requestedPort,omitempty"`
	Memory           int    `json:"memory"`
	JVMOpts          string `json:"jvmOpts,omitempty"`
}

type ProvisionResponse struct {
	SessionID string `json:"sessionId"`
}

// ExpandedMod is one modpack file entry joined with its catalog metadata.
type ExpandedMod struct {
	ProjectID  int    `json:"projectId"`
	FileID     int    `json:"fileId"`
	Required   bool   `json:"required"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Summary    string `json:"summary"`
	Logo       string `json:"logo"`
	WebsiteURL string `json:"websiteUrl"`
}

func (c *Client) SearchModpacks(query, gameVersion string, page int) ([]ModpackSearchHit, error) {
	var hits []ModpackSearchHit
	err := c.get(fmt.Sprintf("/modpacks/search?q=%s&gameVersion=%s&page=%d", query, gameVersion, page), &hits)
	return hits, err
}

func (c *Client) GetModpack(id int) (*ModpackMeta, error) {
	var meta ModpackMeta
	err := c.get(fmt.Sprintf("/modpacks/%d", id), &meta)
	return &meta, err
}

func (c *Client) ListModpackFiles(id int, gameVersion string) ([]ModpackFile, error) {
	var files []ModpackFile
	path := fmt.Sprintf("/modpacks/%d/files", id)
	if gameVersion != "" {
		path += "?gameVersion=" + gameVersion
	}
	err := c.get(path, &files)
	return files, err
}

// ListModpackMods fetches the enriched mod list for a modpack file,
// defaulting to its latest file when fileID is 0.
func (c *Client) ListModpackMods(id, fileID int) ([]ExpandedMod, error) {
	var mods []ExpandedMod
	path := fmt.Sprintf("/modpacks/%d/mods", id)
	if fileID != 0 {
		path += fmt.Sprintf("?fileId=%d", fileID)
	}
	err := c.get(path, &mods)
	return mods, err
}

// ProvisionModpack kicks off server creation from a modpack and returns the
// progress session id to subscribe to via StreamProgress.
func (c *Client) ProvisionModpack(req ProvisionRequest) (string, error) {
	var resp ProvisionResponse
	err := c.post("/modpacks/provision", req, &resp)
	return resp.SessionID, err
}
