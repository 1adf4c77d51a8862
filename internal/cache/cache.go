// Package cache is the content-addressed artifact store: server jars,
// modpack archives, and individual mods are written once by SHA-256 and
// looked up either by hash directly or via the (engine, version)
// convenience index in storage.GormStore.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"fleetctl/internal/apperr"
	"fleetctl/internal/storage"

	"go.uber.org/zap"
)

// Cache is the artifact store rooted at Dir. Writes are atomic (temp file
// then os.Rename), grounded on the teacher's CreateBackup temp-then-rename
// pattern in internal/backup/manager.go.
type Cache struct {
	Dir   string
	Store *storage.GormStore
	log   *zap.SugaredLogger
}

func New(dir string, store *storage.GormStore, log *zap.SugaredLogger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{Dir: dir, Store: store, log: log}, nil
}

func (c *Cache) pathForHash(hash string) string {
	return filepath.Join(c.Dir, hash[:2], hash)
}

// Put streams r into the cache, returning its content hash. The write lands
// in a temp file under Dir first and is renamed into place once fully
// written and hashed, so a reader can never observe a partial artifact.
func (c *Cache) Put(r io.Reader) (hash string, size int64, err error) {
	tmp, err := os.CreateTemp(c.Dir, "incoming-*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	n, err := io.Copy(tmp, io.TeeReader(r, hasher))
	closeErr := tmp.Close()
	if err != nil {
		return "", 0, err
	}
	if closeErr != nil {
		return "", 0, closeErr
	}

	hash = hex.EncodeToString(hasher.Sum(nil))
	dest := c.pathForHash(hash)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", 0, err
	}

	if _, statErr := os.Stat(dest); statErr == nil {
		return hash, n, nil
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, fmt.Errorf("cache: committing artifact: %w", err)
	}
	return hash, n, nil
}

// Open returns a reader over the artifact stored under hash, or an error if
// it isn't present. The stored content is re-hashed first; a blob whose
// SHA-256 no longer matches hash fails with ChecksumMismatch.
func (c *Cache) Open(hash string) (io.ReadCloser, error) {
	path := c.pathForHash(hash)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hasher := sha256.New()
	_, err = io.Copy(hasher, f)
	f.Close()
	if err != nil {
		return nil, err
	}
	if hex.EncodeToString(hasher.Sum(nil)) != hash {
		return nil, apperr.New(apperr.ChecksumMismatch, "cache: stored artifact does not match its hash")
	}
	return os.Open(path)
}

// Has reports whether hash is already stored.
func (c *Cache) Has(hash string) bool {
	_, err := os.Stat(c.pathForHash(hash))
	return err == nil
}

// Lookup resolves the cached hash for a previously-downloaded (engine,
// version) pair, returning false if nothing is cached or the cached blob
// has since been evicted from disk.
func (c *Cache) Lookup(engine, version string) (hash string, ok bool) {
	entry, err := c.Store.GetCacheEntry(engine, version)
	if err != nil {
		return "", false
	}
	if !c.Has(entry.Hash) {
		return "", false
	}
	return entry.Hash, true
}

// Remember records that (engine, version) resolves to hash, so future
// lookups for the same pin skip the network entirely.
func (c *Cache) Remember(engine, version, hash string, size int64) error {
	return c.Store.PutCacheEntry(engine, version, hash, size)
}

// Evict deletes entries, oldest modification time first, until the cache's
// total size is at or below ceiling. Eviction is best-effort: correctness of Put/Open
// never depends on it having run, so errors are logged, not returned.
func (c *Cache) Evict(ceiling int64) {
	type blob struct {
		path    string
		size    int64
		modTime time.Time
	}
	var blobs []blob
	var total int64

	_ = filepath.Walk(c.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		blobs = append(blobs, blob{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
		return nil
	})

	if total <= ceiling {
		return
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].modTime.Before(blobs[j].modTime) })

	for _, b := range blobs {
		if total <= ceiling {
			break
		}
		if err := os.Remove(b.path); err != nil {
			c.log.Warnw("cache eviction failed to remove blob", "path", b.path, "error", err)
			continue
		}
		total -= b.size
	}
}
