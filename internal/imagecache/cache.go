// Package imagecache provides a content-addressed on-disk cache for remote
// artwork images.
//
// Browsers refuse to mix artwork from arbitrary speaker-provided origins into
// a TLS dashboard page, so every artwork URL is rewritten to point at
// /image_proxy on this server. The cache keeps one file per distinct source
// URL, named by the SHA-1 of the URL string, and evicts entries that have not
// been served within the TTL. There is no index file: the directory listing
// itself is the index.
package imagecache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/nowspinning/host/internal/errors"
)

// fileExt is the fixed extension for cached files. Artwork is written with
// this extension regardless of the actual content type; Sonos art is JPEG in
// practice and browsers sniff the real type anyway.
const fileExt = ".jpeg"

// DefaultTTL is the last-access eviction window.
const DefaultTTL = 8 * time.Hour

// fetchTimeout bounds a single upstream artwork download.
const fetchTimeout = 15 * time.Second

// Cache is an on-disk image cache keyed by source URL.
//
// Concurrency: no cross-request lock is held. Two concurrent requests for the
// same uncached URL may both fetch and both write the destination file. Writes
// go to a temp file and are renamed into place, so the race is last-writer-wins
// and readers never observe partial content.
type Cache struct {
	// dir is the cache directory. Created on first use.
	dir string

	// ttl is the maximum allowed gap since last access before eviction.
	ttl time.Duration

	// client performs upstream image downloads.
	client *http.Client

	// verbose enables per-file debug logging.
	verbose bool
}

// New creates a cache rooted at dir with the given eviction TTL.
// A zero ttl selects DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		dir: dir,
		ttl: ttl,
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// SetVerbose enables debug logging of cache operations.
func (c *Cache) SetVerbose(v bool) {
	c.verbose = v
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// keyFor derives the cache key for a source URL: the hex SHA-1 digest of the
// UTF-8 URL string. Deterministic, so repeated requests for one URL always
// resolve to the same file.
func keyFor(sourceURL string) string {
	sum := sha1.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// pathFor returns the on-disk path for a source URL.
func (c *Cache) pathFor(sourceURL string) string {
	return filepath.Join(c.dir, keyFor(sourceURL)+fileExt)
}

// Fetch returns the path of a local file containing the bytes of sourceURL.
//
// The cache directory is created if absent and swept for expired entries
// before the request is served; every proxy request pays the sweep cost.
// On a miss the image is downloaded; only a 200 response results in a
// persisted file. If no file exists after the download attempt (upstream
// error or non-success status), a cache.not_found error is returned and the
// HTTP layer converts it to a 404.
func (c *Cache) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeCacheWriteFailed, "creating cache directory", err)
	}

	c.sweep()

	fp := c.pathFor(sourceURL)
	if _, err := os.Stat(fp); err == nil {
		// Cache hit. Touch the file so the eviction clock resets:
		// a frequently requested image never expires.
		now := time.Now()
		if err := os.Chtimes(fp, now, now); err != nil {
			log.Printf("Warning: failed to touch cache file %s: %v", fp, err)
		}
		if c.verbose {
			log.Printf("Cache hit for %s -> %s", sourceURL, fp)
		}
		return fp, nil
	}

	if err := c.download(ctx, sourceURL, fp); err != nil {
		log.Printf("Warning: artwork fetch failed for %s: %v", sourceURL, err)
	}

	// The download may have failed or returned a non-success status, in
	// which case no file was written. Re-check rather than trusting the
	// download result: a concurrent request may have populated the entry.
	if _, err := os.Stat(fp); err != nil {
		return "", apperrors.CacheNotFound(sourceURL)
	}
	return fp, nil
}

// download fetches sourceURL and writes the body to dest. Only a 200 response
// is persisted. The write goes through a temp file in the same directory and
// is renamed into place so concurrent fetchers of the same URL cannot corrupt
// each other's output.
func (c *Cache) download(ctx context.Context, sourceURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return apperrors.FetchFailed(sourceURL, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.FetchFailed(sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.FetchFailed(sourceURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	tmp, err := os.CreateTemp(c.dir, "fetch-*")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, "creating temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.FetchFailed(sourceURL, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, "closing temp file", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CodeCacheWriteFailed, "renaming temp file", err)
	}

	if c.verbose {
		log.Printf("Cached %s -> %s", sourceURL, dest)
	}
	return nil
}

// sweep scans the whole cache directory and deletes every file whose last
// access is older than the TTL. Deletion failures are logged and skipped,
// never fatal; a request must not fail because an unrelated entry is stuck.
func (c *Cache) sweep() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("Warning: cache sweep failed to list %s: %v", c.dir, err)
		return
	}

	cutoff := time.Now().Add(-c.ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fp := filepath.Join(c.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			log.Printf("Warning: cache sweep failed to stat %s: %v", fp, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		log.Printf("Images clean-up removing file: %s", fp)
		if err := os.Remove(fp); err != nil {
			log.Printf("Warning: cache sweep failed to remove %s: %v", fp, err)
		}
	}
}
