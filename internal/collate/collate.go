// Package collate merges per-document intermediate records into
// deduplicated entity collections plus the relationship indexes the
// synchronizer needs for id linking.
package collate

import (
	"github.com/blog-cms-migrator/internal/models"
)

// Collation is the output of one collation pass. Articles and redirects are
// 1:1 with input records and keep input order; tags and collections are
// deduplicated by slug, first-seen wins, first-appearance order preserved.
type Collation struct {
	Articles    []models.ArticleAttributes
	Tags        []models.TagAttributes
	Collections []models.CollectionAttributes
	Redirects   []models.RedirectAttributes

	// TagArticles maps a tag slug to the slugs of every article that
	// carried that tag, in record order.
	TagArticles map[string][]string

	// CollectionArticles maps a collection slug to the slugs of every
	// article in that collection, in record order.
	CollectionArticles map[string][]string

	// RedirectArticle maps a redirect's from-path to its article slug.
	// A colliding from-path is a source-data bug; last write wins here and
	// the collision is not masked.
	RedirectArticle map[string]string
}

// Collate folds an ordered list of records into a Collation. It is pure and
// input-shape-trusting: malformed records (an empty slug, say) are not
// rejected here and surface later as a linking failure.
func Collate(records []models.IntermediateRecord) *Collation {
	c := &Collation{
		TagArticles:        make(map[string][]string),
		CollectionArticles: make(map[string][]string),
		RedirectArticle:    make(map[string]string),
	}

	seenTags := make(map[string]bool)
	seenCollections := make(map[string]bool)

	for _, rec := range records {
		c.Articles = append(c.Articles, rec.Article)
		c.Redirects = append(c.Redirects, rec.Redirect)

		for _, tag := range rec.Tags {
			if !seenTags[tag.Slug] {
				seenTags[tag.Slug] = true
				c.Tags = append(c.Tags, tag)
			}
			c.TagArticles[tag.Slug] = append(c.TagArticles[tag.Slug], rec.Article.Slug)
		}

		col := rec.Collection
		if !seenCollections[col.Slug] {
			seenCollections[col.Slug] = true
			c.Collections = append(c.Collections, col)
		}
		c.CollectionArticles[col.Slug] = append(c.CollectionArticles[col.Slug], rec.Article.Slug)

		c.RedirectArticle[rec.Redirect.From] = rec.Article.Slug
	}

	return c
}
