// Package pagecache keeps a raw copy of every deck page on disk.
//
// Pages are fetched once and never refreshed, there is no expiry. Cache file
// names are derived from the sanitized source url, so two urls that only
// differ in characters that are invalid in file names share one entry.
package pagecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"precon-scraper/internal/components/assert"
	"precon-scraper/internal/components/telemetry"
	"precon-scraper/internal/store"
	"precon-scraper/pkg/osutil"
	"precon-scraper/pkg/textutil"

	"github.com/google/renameio/v2"
)

const (
	report_cache_ensure = "cache.ensure"
)

// Fetcher returns the raw markup at a url.
type Fetcher interface {
	Fetch(ctx context.Context, link string) ([]byte, error)
}

type Cache struct {
	dir     string
	fetcher Fetcher
	tel     telemetry.API
}

func New(dir string, fetcher Fetcher, tel telemetry.API) Cache {
	assert.NotEmptyStr(dir)
	assert.NotNil(fetcher)
	assert.NotNil(tel)

	return Cache{
		dir:     dir,
		fetcher: fetcher,
		tel:     telemetry.NewScopedAPI("page_cache", tel),
	}
}

// Path returns where the page at sourceUrl is cached.
func (c Cache) Path(sourceUrl string) string {
	return filepath.Join(c.dir, textutil.SanitizeFilename(sourceUrl))
}

// Ensure makes sure the page of deck is cached, fetched is true if it had to
// be downloaded.
func (c Cache) Ensure(ctx context.Context, deck *store.DeckEntry) (path string, fetched bool, err error) {
	if deck.SourceURL == "" {
		return "", false, fmt.Errorf("deck '%s' has no source url", deck.ID)
	}

	path = c.Path(deck.SourceURL)
	exists, err := osutil.Exists(path)
	if err != nil {
		c.tel.ReportBroken(report_cache_ensure, fmt.Errorf("stat: %w", err), path)
		return "", false, err
	}
	if exists {
		c.tel.ReportDebug("cache hit", deck.ID, path)
		return path, false, nil
	}

	contents, err := c.fetcher.Fetch(ctx, deck.SourceURL)
	if err != nil {
		return "", false, err
	}

	err = renameio.WriteFile(path, contents, 0644)
	if err != nil {
		c.tel.ReportBroken(report_cache_ensure, fmt.Errorf("write: %w", err), path)
		return "", false, fmt.Errorf("write %s: %w", path, err)
	}
	return path, true, nil
}

// Read returns the cached page of deck.
func (c Cache) Read(deck *store.DeckEntry) ([]byte, error) {
	return os.ReadFile(c.Path(deck.SourceURL))
}
