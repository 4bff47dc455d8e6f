package models

import (
	"time"
)

// IntermediateRecord is the normalized shape every importer produces, one
// per source document. The collator and synchronizer only ever see this
// shape; they never touch source-specific formats.
type IntermediateRecord struct {
	Article    ArticleAttributes    `json:"article"`
	Tags       []TagAttributes      `json:"tags"`
	Collection CollectionAttributes `json:"collection"`
	Redirect   RedirectAttributes   `json:"redirect"`
}

// ArticleAttributes holds the article payload. Slug is the natural key.
type ArticleAttributes struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Slug        string    `json:"slug"`
	Author      string    `json:"author"`
	OGType      string    `json:"og_type"`
	CreatedAt   time.Time `json:"createdAt"`
	PublishedAt time.Time `json:"publishedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TagAttributes holds a tag. Slug is the natural key. Articles is stamped
// by the relationship linker once article ids are known.
type TagAttributes struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Articles *Connect `json:"articles,omitempty"`
}

// CollectionAttributes holds a collection. Every record belongs to exactly
// one collection; importers apply a default when none is detected.
type CollectionAttributes struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	Articles *Connect `json:"articles,omitempty"`
}

// RedirectAttributes holds a redirect from a legacy URL path to an article.
// From is the natural key. To holds the target article's store id after
// linking.
type RedirectAttributes struct {
	From     string `json:"from"`
	To       *int   `json:"to,omitempty"`
	HTTPCode int    `json:"httpCode"`
}
