package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/blog-cms-migrator/internal/models"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// HTMLImporter walks a directory of static HTML export files, one page per
// post. Metadata comes from og:/article: meta tags; the body is the
// <article> element (falling back to <body>) sanitized of legacy markup.
type HTMLImporter struct {
	dir               string
	defaultCollection models.CollectionAttributes
	policy            *bluemonday.Policy
	log               zerolog.Logger
}

// NewHTMLImporter creates an importer for the export directory at dir.
func NewHTMLImporter(dir string, defaultCollection models.CollectionAttributes, log zerolog.Logger) *HTMLImporter {
	return &HTMLImporter{
		dir:               dir,
		defaultCollection: defaultCollection,
		policy:            bluemonday.UGCPolicy(),
		log:               log.With().Str("importer", "html").Logger(),
	}
}

// Import parses every .html file under the directory, in path order so
// repeated runs produce records in the same order.
func (im *HTMLImporter) Import(ctx context.Context) ([]models.IntermediateRecord, error) {
	var pages []string
	err := filepath.WalkDir(im.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("html import: walk %s: %w", im.dir, err)
	}
	sort.Strings(pages)

	records := make([]models.IntermediateRecord, 0, len(pages))
	for _, page := range pages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := im.convert(page)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	im.log.Info().Int("records", len(records)).Str("dir", im.dir).Msg("Import completed")
	return records, nil
}

func (im *HTMLImporter) convert(page string) (models.IntermediateRecord, error) {
	f, err := os.Open(page)
	if err != nil {
		return models.IntermediateRecord{}, fmt.Errorf("html import: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return models.IntermediateRecord{}, fmt.Errorf("html import: parse %s: %w", page, err)
	}

	title := metaContent(doc, "og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	body := doc.Find("article").First()
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}
	bodyHTML, err := body.Html()
	if err != nil {
		return models.IntermediateRecord{}, fmt.Errorf("html import: body of %s: %w", page, err)
	}
	bodyHTML = im.policy.Sanitize(bodyHTML)

	published := parseMetaTime(metaContent(doc, "article:published_time"))
	updated := parseMetaTime(metaContent(doc, "article:modified_time"))
	if updated.IsZero() {
		updated = published
	}

	ogType := metaContent(doc, "og:type")
	if ogType == "" {
		ogType = "article"
	}

	rel, err := filepath.Rel(im.dir, page)
	if err != nil {
		rel = filepath.Base(page)
	}
	legacyPath := "/" + filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))

	slug := Slugify(strings.TrimSuffix(filepath.Base(page), filepath.Ext(page)))

	rec := models.IntermediateRecord{
		Article: models.ArticleAttributes{
			Title:       title,
			Body:        bodyHTML,
			Slug:        slug,
			Author:      metaName(doc, "author"),
			OGType:      ogType,
			CreatedAt:   published,
			PublishedAt: published,
			UpdatedAt:   updated,
		},
		Collection: im.defaultCollection,
		Redirect: models.RedirectAttributes{
			From:     legacyPath,
			HTTPCode: redirectHTTPCode,
		},
	}

	if section := metaContent(doc, "article:section"); section != "" {
		rec.Collection = models.CollectionAttributes{Name: section, Slug: Slugify(section)}
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.AttrOr("content", "")); name != "" {
			rec.Tags = append(rec.Tags, models.TagAttributes{Name: name, Slug: Slugify(name)})
		}
	})

	return rec, nil
}

func metaContent(doc *goquery.Document, property string) string {
	return strings.TrimSpace(doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().AttrOr("content", ""))
}

func metaName(doc *goquery.Document, name string) string {
	return strings.TrimSpace(doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().AttrOr("content", ""))
}

func parseMetaTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
