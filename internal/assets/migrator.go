// Package assets rehosts embedded media: every asset referenced by an
// article body on a legacy host is downloaded, cached locally, uploaded to
// the destination CMS and the reference rewritten to the new URL.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/blog-cms-migrator/internal/cms"
	"github.com/blog-cms-migrator/internal/models"
	"github.com/rs/zerolog"
)

var assetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// Migrator rewrites article bodies in place. Downloads are cached on disk
// under content-addressed names, so re-runs after a failed sync do not
// re-fetch from the (possibly slow or dying) legacy host.
type Migrator struct {
	client      *cms.Client
	httpc       *http.Client
	cacheDir    string
	legacyHosts map[string]bool
	rehosted    map[string]string
	log         zerolog.Logger
}

// NewMigrator creates a Migrator that rehosts assets served from any of
// legacyHosts, caching downloads under cacheDir.
func NewMigrator(client *cms.Client, cacheDir string, legacyHosts []string, timeout time.Duration, log zerolog.Logger) *Migrator {
	hosts := make(map[string]bool, len(legacyHosts))
	for _, h := range legacyHosts {
		hosts[strings.ToLower(h)] = true
	}
	return &Migrator{
		client:      client,
		httpc:       &http.Client{Timeout: timeout},
		cacheDir:    cacheDir,
		legacyHosts: hosts,
		rehosted:    make(map[string]string),
		log:         log.With().Str("component", "assets").Logger(),
	}
}

// Rewrite replaces every legacy asset reference in the record's article
// body with its rehosted URL. Called once per record before collation; any
// failure is fatal to the run.
func (m *Migrator) Rewrite(ctx context.Context, rec *models.IntermediateRecord) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Article.Body))
	if err != nil {
		return fmt.Errorf("assets: parse body of %q: %w", rec.Article.Slug, err)
	}

	var rewriteErr error
	rewrite := func(sel *goquery.Selection, attr string) {
		if rewriteErr != nil {
			return
		}
		raw := sel.AttrOr(attr, "")
		if !m.isLegacyAsset(raw) {
			return
		}
		hosted, err := m.rehost(ctx, raw)
		if err != nil {
			rewriteErr = err
			return
		}
		sel.SetAttr(attr, hosted)
	}

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) { rewrite(sel, "src") })
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) { rewrite(sel, "href") })
	if rewriteErr != nil {
		return rewriteErr
	}

	body, err := doc.Find("body").Html()
	if err != nil {
		return fmt.Errorf("assets: serialize body of %q: %w", rec.Article.Slug, err)
	}
	rec.Article.Body = body
	return nil
}

// isLegacyAsset reports whether raw points at a rehostable asset on one of
// the configured legacy hosts.
func (m *Migrator) isLegacyAsset(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if !m.legacyHosts[strings.ToLower(u.Host)] {
		return false
	}
	return assetExtensions[strings.ToLower(path.Ext(u.Path))]
}

// rehost downloads (or reuses the cached copy of) one asset, uploads it to
// the store and returns its destination URL. Memoized per URL within a run.
func (m *Migrator) rehost(ctx context.Context, rawURL string) (string, error) {
	if hosted, ok := m.rehosted[rawURL]; ok {
		return hosted, nil
	}

	cached, err := m.download(ctx, rawURL)
	if err != nil {
		return "", err
	}

	f, err := os.Open(cached)
	if err != nil {
		return "", fmt.Errorf("assets: open cache %s: %w", cached, err)
	}
	defer f.Close()

	uploaded, err := m.client.Upload(ctx, filepath.Base(cached), f)
	if err != nil {
		return "", err
	}

	m.log.Debug().Str("from", rawURL).Str("to", uploaded.URL).Msg("Asset rehosted")
	m.rehosted[rawURL] = uploaded.URL
	return uploaded.URL, nil
}

// download fetches the asset unless a cached copy already exists, and
// returns the cache path.
func (m *Migrator) download(ctx context.Context, rawURL string) (string, error) {
	u, _ := url.Parse(rawURL)
	sum := sha256.Sum256([]byte(rawURL))
	cached := filepath.Join(m.cacheDir, hex.EncodeToString(sum[:8])+path.Ext(u.Path))

	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("assets: cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("assets: fetch %s: %w", rawURL, err)
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("assets: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assets: fetch %s: %d %s", rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	tmp, err := os.CreateTemp(m.cacheDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("assets: cache %s: %w", rawURL, err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("assets: cache %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("assets: cache %s: %w", rawURL, err)
	}
	if err := os.Rename(tmp.Name(), cached); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("assets: cache %s: %w", rawURL, err)
	}

	return cached, nil
}
