package collate_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/blog-cms-migrator/internal/collate"
	"github.com/blog-cms-migrator/internal/models"
)

func record(slug string, tags ...string) models.IntermediateRecord {
	rec := models.IntermediateRecord{
		Article: models.ArticleAttributes{
			Title:       "Title " + slug,
			Body:        "<p>" + slug + "</p>",
			Slug:        slug,
			Author:      "tester",
			OGType:      "article",
			CreatedAt:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			PublishedAt: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		Collection: models.CollectionAttributes{Name: "Fotoblog", Slug: "fotoblog"},
		Redirect:   models.RedirectAttributes{From: "/fotoblog/" + slug, HTTPCode: 301},
	}
	for _, t := range tags {
		rec.Tags = append(rec.Tags, models.TagAttributes{Name: t, Slug: t})
	}
	return rec
}

func TestCollate_SharedTagDeduplicated(t *testing.T) {
	// Two records share "bed-stuy" and each brings one tag of its own:
	// the collated tag list must hold 2 unique tags, not 3.
	records := []models.IntermediateRecord{
		record("first-post", "bed-stuy", "street"),
		record("second-post", "bed-stuy", "portrait"),
	}

	c := collate.Collate(records)

	if len(c.Tags) != 3 {
		t.Fatalf("expected 3 unique tags (bed-stuy, street, portrait), got %d", len(c.Tags))
	}
	if c.Tags[0].Slug != "bed-stuy" || c.Tags[1].Slug != "street" || c.Tags[2].Slug != "portrait" {
		t.Errorf("tags not in first-appearance order: %+v", c.Tags)
	}

	got := c.TagArticles["bed-stuy"]
	want := []string{"first-post", "second-post"}
	if len(got) != len(want) {
		t.Fatalf("TagArticles[bed-stuy] = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TagArticles[bed-stuy][%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCollate_FirstSeenWins(t *testing.T) {
	first := record("a", "shared")
	first.Tags[0].Name = "Shared (original casing)"
	second := record("b", "shared")
	second.Tags[0].Name = "shared"

	c := collate.Collate([]models.IntermediateRecord{first, second})

	if len(c.Tags) != 1 {
		t.Fatalf("expected 1 unique tag, got %d", len(c.Tags))
	}
	if c.Tags[0].Name != "Shared (original casing)" {
		t.Errorf("first-seen attributes should win, got name %q", c.Tags[0].Name)
	}
}

func TestCollate_CollectionsDeduplicated(t *testing.T) {
	a := record("a")
	b := record("b")
	b.Collection = models.CollectionAttributes{Name: "Travel", Slug: "travel"}
	c := record("c")

	col := collate.Collate([]models.IntermediateRecord{a, b, c})

	if len(col.Collections) != 2 {
		t.Fatalf("expected 2 unique collections, got %d", len(col.Collections))
	}
	if col.Collections[0].Slug != "fotoblog" || col.Collections[1].Slug != "travel" {
		t.Errorf("collections not in first-appearance order: %+v", col.Collections)
	}

	got := col.CollectionArticles["fotoblog"]
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("CollectionArticles[fotoblog] = %v, want [a c]", got)
	}
}

func TestCollate_ArticlesAndRedirectsKeepInputOrder(t *testing.T) {
	records := []models.IntermediateRecord{record("z"), record("a"), record("m")}

	c := collate.Collate(records)

	if len(c.Articles) != 3 || len(c.Redirects) != 3 {
		t.Fatalf("articles/redirects must be 1:1 with records, got %d/%d", len(c.Articles), len(c.Redirects))
	}
	for i, want := range []string{"z", "a", "m"} {
		if c.Articles[i].Slug != want {
			t.Errorf("Articles[%d].Slug = %q, want %q", i, c.Articles[i].Slug, want)
		}
		if c.Redirects[i].From != "/fotoblog/"+want {
			t.Errorf("Redirects[%d].From = %q, want %q", i, c.Redirects[i].From, "/fotoblog/"+want)
		}
	}
}

func TestCollate_RedirectIndexOneToOne(t *testing.T) {
	records := []models.IntermediateRecord{record("x"), record("y")}

	c := collate.Collate(records)

	if len(c.RedirectArticle) != 2 {
		t.Fatalf("expected 2 redirect index entries, got %d", len(c.RedirectArticle))
	}
	if c.RedirectArticle["/fotoblog/x"] != "x" {
		t.Errorf("RedirectArticle[/fotoblog/x] = %q, want %q", c.RedirectArticle["/fotoblog/x"], "x")
	}
}

func TestCollate_Empty(t *testing.T) {
	c := collate.Collate(nil)

	if len(c.Articles) != 0 || len(c.Tags) != 0 || len(c.Collections) != 0 || len(c.Redirects) != 0 {
		t.Error("empty input must produce empty collections")
	}
	if len(c.TagArticles) != 0 || len(c.CollectionArticles) != 0 || len(c.RedirectArticle) != 0 {
		t.Error("empty input must produce empty indexes")
	}
}

func BenchmarkCollate(b *testing.B) {
	records := make([]models.IntermediateRecord, 0, 1000)
	for i := 0; i < 1000; i++ {
		records = append(records, record(fmt.Sprintf("post-%d", i), "bed-stuy", fmt.Sprintf("tag-%d", i%50)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collate.Collate(records)
	}
}
