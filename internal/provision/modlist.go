package provision

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"fleetctl/internal/apperr"
	"fleetctl/internal/archive"
	"fleetctl/internal/catalog"
)

// ExpandedMod is one modpack file entry joined with its upstream catalog
// metadata, the shape the mod-list read operation returns.
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

// ModList resolves the enriched mod list for (modpackID, fileID): download
// the archive, read its manifest, batch-fetch metadata for every referenced
// mod, and join the two into ExpandedMod entries. Results are cached for 30
// minutes and deduplicated across concurrent callers via the catalog
// client's singleflight-backed cache.
func (o *Orchestrator) ModList(ctx context.Context, modpackID, fileID int) ([]ExpandedMod, error) {
	mf, err := o.fetchManifestOnly(ctx, modpackID, fileID)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(mf.Files))
	for _, f := range mf.Files {
		ids = append(ids, f.ProjectID)
	}

	cached, err := o.Catalog.ModListCached(ctx, modpackID, fileID, func() ([]catalog.ModMetadata, error) {
		if len(ids) == 0 {
			return nil, nil
		}
		return o.Catalog.ModMetadataBatch(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	byProject := make(map[int]catalog.ModMetadata, len(cached))
	for _, m := range cached {
		byProject[m.ProjectID] = m
	}

	entries := make([]ExpandedMod, 0, len(mf.Files))
	for _, f := range mf.Files {
		meta := byProject[f.ProjectID]
		entries = append(entries, ExpandedMod{
			ProjectID:  f.ProjectID,
			FileID:     f.FileID,
			Required:   f.Required,
			Name:       meta.Name,
			Slug:       meta.Slug,
			Summary:    meta.Summary,
			Logo:       meta.Logo,
			WebsiteURL: meta.WebsiteURL,
		})
	}
	return entries, nil
}

// fetchManifestOnly downloads the modpack archive into a temp directory,
// extracts it, and parses manifest.json, cleaning up the temp directory
// before returning.
func (o *Orchestrator) fetchManifestOnly(ctx context.Context, modpackID, fileID int) (modpackManifest, error) {
	var mf modpackManifest

	detail, err := o.Catalog.FileDetailOf(ctx, modpackID, fileID)
	if err != nil {
		return mf, err
	}
	if detail.DownloadURL == "" {
		return mf, apperr.New(apperr.ManifestInvalid, "catalog file has no download URL")
	}

	tmpDir, err := os.MkdirTemp("", "fleetctl-modlist-*")
	if err != nil {
		return mf, err
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "modpack.zip")
	if err := o.downloadArchive(ctx, detail.DownloadURL, archivePath); err != nil {
		return mf, err
	}

	extractDir := filepath.Join(tmpDir, "extracted")
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return mf, err
	}
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return mf, apperr.Wrap(apperr.ManifestInvalid, "could not extract modpack archive", err)
	}

	raw, err := os.ReadFile(filepath.Join(extractDir, "manifest.json"))
	if err != nil {
		return mf, apperr.New(apperr.ManifestMissing, "modpack archive has no manifest.json")
	}
	if err := json.Unmarshal(raw, &mf); err != nil {
		return mf, apperr.Wrap(apperr.ManifestInvalid, "manifest.json is not valid JSON", err)
	}
	return mf, nil
}
