package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/blog-cms-migrator/internal/models"
	"github.com/rs/zerolog"
)

// XMLImporter reads an RSS-2.0-style blog export: one <item> per post,
// body in <content:encoded>, tags as plain <category> elements and the
// collection as <category domain="collection">.
type XMLImporter struct {
	path              string
	defaultCollection models.CollectionAttributes
	log               zerolog.Logger
}

// NewXMLImporter creates an importer for the export file at path. Records
// without a collection category fall back to defaultCollection.
func NewXMLImporter(path string, defaultCollection models.CollectionAttributes, log zerolog.Logger) *XMLImporter {
	return &XMLImporter{
		path:              path,
		defaultCollection: defaultCollection,
		log:               log.With().Str("importer", "xml").Logger(),
	}
}

type rssExport struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title      string        `xml:"title"`
	Link       string        `xml:"link"`
	PubDate    string        `xml:"pubDate"`
	Creator    string        `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Content    string        `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Categories []rssCategory `xml:"category"`
}

type rssCategory struct {
	Domain string `xml:"domain,attr"`
	Value  string `xml:",chardata"`
}

// Import parses the export into intermediate records, one per item, in
// document order.
func (im *XMLImporter) Import(ctx context.Context) ([]models.IntermediateRecord, error) {
	data, err := os.ReadFile(im.path)
	if err != nil {
		return nil, fmt.Errorf("xml import: %w", err)
	}

	var export rssExport
	if err := xml.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("xml import: parse %s: %w", im.path, err)
	}

	records := make([]models.IntermediateRecord, 0, len(export.Channel.Items))
	for _, item := range export.Channel.Items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		records = append(records, im.convert(item))
	}

	im.log.Info().Int("records", len(records)).Str("file", im.path).Msg("Import completed")
	return records, nil
}

func (im *XMLImporter) convert(item rssItem) models.IntermediateRecord {
	legacyPath := legacyURLPath(item.Link)

	slug := Slugify(path.Base(legacyPath))
	if slug == "" {
		slug = Slugify(item.Title)
	}

	published := parsePubDate(item.PubDate)

	rec := models.IntermediateRecord{
		Article: models.ArticleAttributes{
			Title:       item.Title,
			Body:        item.Content,
			Slug:        slug,
			Author:      item.Creator,
			OGType:      "article",
			CreatedAt:   published,
			PublishedAt: published,
			UpdatedAt:   published,
		},
		Collection: im.defaultCollection,
		Redirect: models.RedirectAttributes{
			From:     legacyPath,
			HTTPCode: redirectHTTPCode,
		},
	}

	for _, cat := range item.Categories {
		name := strings.TrimSpace(cat.Value)
		if name == "" {
			continue
		}
		if cat.Domain == "collection" {
			rec.Collection = models.CollectionAttributes{Name: name, Slug: Slugify(name)}
			continue
		}
		rec.Tags = append(rec.Tags, models.TagAttributes{Name: name, Slug: Slugify(name)})
	}

	return rec
}

// legacyURLPath extracts the path of a legacy post URL, which becomes the
// redirect's from key.
func legacyURLPath(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Path == "" {
		return strings.TrimSpace(link)
	}
	return strings.TrimRight(u.Path, "/")
}

// parsePubDate accepts the date formats seen across legacy exports.
func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
