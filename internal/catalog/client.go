// Package catalog is the upstream modpack/mod catalog client (CurseForge-
// shaped API): search, modpack/file metadata, and artifact downloads, all
// gated on an API key and generalized off the teacher's per-engine
// downloadFile helpers (internal/loader/forge.go and siblings).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fleetctl/internal/apperr"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL  = "https://api.curseforge.com/v1"
	metadataTimeout = 30 * time.Second
	downloadTimeout = 5 * time.Minute
	maxArchiveBytes = 500 * 1024 * 1024
	batchSize       = 100
	modListCacheTTL = 30 * time.Minute
)

// SearchHit is one result row from Search. Extra is not filled by JSON
// decoding: upstream fields beyond the ones modeled here are dropped.
type SearchHit struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Slug    string         `json:"slug"`
	Summary string         `json:"summary"`
	Extra   map[string]any `json:"-"`
}

// ModpackMeta is the modpack-level metadata returned by ModpackMeta.
type ModpackMeta struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Summary     string `json:"summary"`
	LogoURL     string `json:"logoUrl"`
	DownloadURL string `json:"downloadUrl"`
	Authors     []string
}

// FileDetail describes one downloadable file of a modpack.
type FileDetail struct {
	ID          int    `json:"id"`
	ModpackID   int    `json:"modpackId"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	GameVersion string `json:"gameVersion"`
}

// ModMetadata is a single mod's metadata, joined into a modpack's expanded
// mod list by the provisioning orchestrator.
type ModMetadata struct {
	ProjectID  int    `json:"projectId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Summary    string `json:"summary"`
	Logo       string `json:"logo"`
	WebsiteURL string `json:"websiteUrl"`
}

type cacheEntry struct {
	value    []ModMetadata
	cachedAt time.Time
}

// Client is the catalog API client. A zero-value APIKey disables every
// metadata/search operation, surfacing apperr.CatalogDisabled, per the
// environment-variable contract (CATALOG_API_KEY).
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	log     *zap.SugaredLogger

	group      singleflight.Group
	modCacheMu sync.Mutex
	modCache   map[string]cacheEntry
}

func New(apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		BaseURL:  defaultBaseURL,
		APIKey:   apiKey,
		HTTP:     &http.Client{},
		log:      log,
		modCache: make(map[string]cacheEntry),
	}
}

func (c *Client) requireKey() error {
	if c.APIKey == "" {
		return apperr.New(apperr.CatalogDisabled, "CATALOG_API_KEY not configured")
	}
	return nil
}

// doJSON issues a GET against path, making up to 3 attempts in all with
// exponential backoff between them; 5xx responses and transport errors are
// retried. The JSON body is decoded into out. 4xx responses surface
// immediately without retrying.
func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", c.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("catalog: server error %d", resp.StatusCode)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("catalog request failed: %d", resp.StatusCode))
		}

		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return apperr.Wrap(apperr.UpstreamUnavailable, "catalog unreachable after retries", lastErr)
}

// Search looks up modpacks matching query for the given game version.
func (c *Client) Search(ctx context.Context, query, gameVersion string, page int) ([]SearchHit, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	var result struct {
		Data []SearchHit `json:"data"`
	}
	path := fmt.Sprintf("/mods/search?gameVersion=%s&searchFilter=%s&index=%d", gameVersion, query, page*50)
	if err := c.doJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ModpackMeta fetches a single modpack's metadata.
func (c *Client) ModpackMeta(ctx context.Context, id int) (*ModpackMeta, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	var result struct {
		Data ModpackMeta `json:"data"`
	}
	if err := c.doJSON(ctx, fmt.Sprintf("/mods/%d", id), &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ModpackFiles lists downloadable files for a modpack, optionally filtered
// to engineVersion.
func (c *Client) ModpackFiles(ctx context.Context, id int, engineVersion string) ([]FileDetail, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	var result struct {
		Data []FileDetail `json:"data"`
	}
	path := fmt.Sprintf("/mods/%d/files", id)
	if engineVersion != "" {
		path += "?gameVersion=" + engineVersion
	}
	if err := c.doJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// FileDetailOf fetches one file's metadata.
func (c *Client) FileDetailOf(ctx context.Context, modpackID, fileID int) (*FileDetail, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}
	var result struct {
		Data FileDetail `json:"data"`
	}
	if err := c.doJSON(ctx, fmt.Sprintf("/mods/%d/files/%d", modpackID, fileID), &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ModMetadataBatch resolves metadata for every id, splitting the request
// into chunks of at most 100 ids per the upstream API's batch ceiling.
func (c *Client) ModMetadataBatch(ctx context.Context, ids []int) ([]ModMetadata, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}

	var all []ModMetadata
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := c.modMetadataChunk(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	return all, nil
}

func (c *Client) modMetadataChunk(ctx context.Context, ids []int) ([]ModMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"modIds": ids})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/mods", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "catalog batch metadata request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("catalog batch metadata failed: %d", resp.StatusCode))
	}

	var result struct {
		Data []ModMetadata `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ModListCached resolves the enriched mod list for (modpackID, fileID),
// serving a 30-minute cache when warm and collapsing concurrent callers for
// the same key onto one upstream fetch via singleflight.
func (c *Client) ModListCached(ctx context.Context, modpackID, fileID int, fetch func() ([]ModMetadata, error)) ([]ModMetadata, error) {
	key := fmt.Sprintf("%d:%d", modpackID, fileID)

	c.modCacheMu.Lock()
	entry, ok := c.modCache[key]
	c.modCacheMu.Unlock()
	if ok && time.Since(entry.cachedAt) < modListCacheTTL {
		return entry.value, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		mods, err := fetch()
		if err != nil {
			return nil, err
		}
		c.modCacheMu.Lock()
		c.modCache[key] = cacheEntry{value: mods, cachedAt: time.Now()}
		c.modCacheMu.Unlock()
		return mods, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ModMetadata), nil
}

// Download streams url's body, enforcing a 5-minute deadline and a 500MB
// ceiling via a limited reader that fails DownloadTooLarge once exceeded.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		cancel()
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "download request failed", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		cancel()
		return nil, apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("download failed: %d", resp.StatusCode))
	}

	return &cancelingLimitedReadCloser{
		r:      io.LimitReader(resp.Body, maxArchiveBytes+1),
		closer: resp.Body,
		cancel: cancel,
		limit:  maxArchiveBytes,
	}, nil
}

// cancelingLimitedReadCloser wraps a download body so a read past limit
// bytes fails DownloadTooLarge instead of silently truncating, and always
// releases the request context when closed.
type cancelingLimitedReadCloser struct {
	r      io.Reader
	closer io.Closer
	cancel context.CancelFunc
	limit  int64
	read   int64
}

func (l *cancelingLimitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, apperr.New(apperr.DownloadTooLarge, "artifact exceeds 500MB ceiling")
	}
	return n, err
}

func (l *cancelingLimitedReadCloser) Close() error {
	l.cancel()
	return l.closer.Close()
}
