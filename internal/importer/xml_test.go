package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blog-cms-migrator/internal/importer"
	"github.com/blog-cms-migrator/internal/models"
	"github.com/rs/zerolog"
)

var defaultCollection = models.CollectionAttributes{Name: "Fotoblog", Slug: "fotoblog"}

const sampleExport = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"
     xmlns:content="http://purl.org/rss/1.0/modules/content/"
     xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Legacy Blog</title>
    <item>
      <title>First Post</title>
      <link>http://old.example.com/fotoblog/first-post</link>
      <pubDate>Mon, 02 Mar 2015 10:30:00 +0000</pubDate>
      <dc:creator>ben</dc:creator>
      <category>Bed-Stuy</category>
      <category>Street</category>
      <category domain="collection">Fotoblog</category>
      <content:encoded><![CDATA[<p>Hello <img src="http://old.example.com/img/a.jpg"></p>]]></content:encoded>
    </item>
    <item>
      <title>Second Post</title>
      <link>http://old.example.com/fotoblog/second-post/</link>
      <pubDate>Tue, 03 Mar 2015 09:00:00 +0000</pubDate>
      <dc:creator>ben</dc:creator>
      <content:encoded><![CDATA[<p>World</p>]]></content:encoded>
    </item>
  </channel>
</rss>`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestXMLImporter_Import(t *testing.T) {
	path := writeExport(t, sampleExport)
	im := importer.NewXMLImporter(path, defaultCollection, zerolog.Nop())

	records, err := im.Import(context.Background())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Article.Slug != "first-post" {
		t.Errorf("Slug = %q, want %q", first.Article.Slug, "first-post")
	}
	if first.Article.Title != "First Post" {
		t.Errorf("Title = %q", first.Article.Title)
	}
	if first.Article.Author != "ben" {
		t.Errorf("Author = %q", first.Article.Author)
	}
	if first.Article.OGType != "article" {
		t.Errorf("OGType = %q", first.Article.OGType)
	}
	want := time.Date(2015, 3, 2, 10, 30, 0, 0, time.UTC)
	if !first.Article.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", first.Article.PublishedAt, want)
	}

	if len(first.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d: %+v", len(first.Tags), first.Tags)
	}
	if first.Tags[0].Slug != "bed-stuy" || first.Tags[0].Name != "Bed-Stuy" {
		t.Errorf("unexpected first tag %+v", first.Tags[0])
	}

	if first.Collection.Slug != "fotoblog" {
		t.Errorf("Collection = %+v", first.Collection)
	}
	if first.Redirect.From != "/fotoblog/first-post" || first.Redirect.HTTPCode != 301 {
		t.Errorf("Redirect = %+v", first.Redirect)
	}
}

func TestXMLImporter_DefaultCollection(t *testing.T) {
	path := writeExport(t, sampleExport)
	im := importer.NewXMLImporter(path, defaultCollection, zerolog.Nop())

	records, err := im.Import(context.Background())
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// Second item has no collection category and a trailing-slash link.
	second := records[1]
	if second.Collection != defaultCollection {
		t.Errorf("Collection = %+v, want default", second.Collection)
	}
	if second.Redirect.From != "/fotoblog/second-post" {
		t.Errorf("Redirect.From = %q", second.Redirect.From)
	}
	if second.Article.Slug != "second-post" {
		t.Errorf("Slug = %q", second.Article.Slug)
	}
	if len(second.Tags) != 0 {
		t.Errorf("expected no tags, got %+v", second.Tags)
	}
}

func TestXMLImporter_MissingFile(t *testing.T) {
	im := importer.NewXMLImporter(filepath.Join(t.TempDir(), "absent.xml"), defaultCollection, zerolog.Nop())
	if _, err := im.Import(context.Background()); err == nil {
		t.Fatal("expected an error for a missing export file")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bed-Stuy", "bed-stuy"},
		{"Hello World", "hello-world"},
		{"Crown Heights / Prospect", "crown-heights-prospect"},
		{"  spaced  out  ", "spaced-out"},
		{"snake_case_title", "snake-case-title"},
		{"Überlin", "berlin"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := importer.Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
