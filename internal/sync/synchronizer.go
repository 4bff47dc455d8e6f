// Package sync reconciles collated blog content against the remote CMS:
// find-or-init by natural key, create-if-absent, update-if-present, with
// articles persisted first so dependent entities can reference their ids.
package sync

import (
	"context"
	"time"

	"github.com/blog-cms-migrator/internal/cms"
	"github.com/blog-cms-migrator/internal/collate"
	"github.com/blog-cms-migrator/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Synchronizer drives one synchronization run. It holds no state between
// runs; a failed run is retried whole by the caller.
type Synchronizer struct {
	client *cms.Client
	limit  int
	log    zerolog.Logger
}

// New creates a Synchronizer. concurrency bounds how many store requests
// are in flight at once within a phase; values below 1 fall back to the
// default.
func New(client *cms.Client, concurrency int, log zerolog.Logger) *Synchronizer {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Synchronizer{
		client: client,
		limit:  concurrency,
		log:    log.With().Str("component", "sync").Logger(),
	}
}

// Result holds every entity persisted by one run, per kind, in the original
// input order regardless of the order the concurrent operations finished.
type Result struct {
	Articles    []models.Entity[models.ArticleAttributes]
	Tags        []models.Entity[models.TagAttributes]
	Collections []models.Entity[models.CollectionAttributes]
	Redirects   []models.Entity[models.RedirectAttributes]
}

// Total is the number of persisted entities across all kinds.
func (r *Result) Total() int {
	return len(r.Articles) + len(r.Tags) + len(r.Collections) + len(r.Redirects)
}

// Synchronize reconciles the collation against the store. All-or-nothing
// from the caller's perspective: the first failure aborts the run and no
// local recovery is attempted.
func (s *Synchronizer) Synchronize(ctx context.Context, col *collate.Collation) (*Result, error) {
	start := time.Now()

	articleSlug := func(a models.ArticleAttributes) string { return a.Slug }
	tagSlug := func(t models.TagAttributes) string { return t.Slug }
	collectionSlug := func(c models.CollectionAttributes) string { return c.Slug }
	redirectFrom := func(r models.RedirectAttributes) string { return r.From }

	// Articles first: every relationship index is keyed by article slug and
	// dependents need resolved article ids.
	articles, err := findAll(ctx, s, models.CollectionArticles, "slug", col.Articles, articleSlug)
	if err != nil {
		return nil, err
	}
	articles, err = persistAll(ctx, s, models.CollectionArticles, articles)
	if err != nil {
		return nil, err
	}

	tags, err := findAll(ctx, s, models.CollectionTags, "slug", col.Tags, tagSlug)
	if err != nil {
		return nil, err
	}
	err = connectMany(col.TagArticles, articles, articleSlug, tags, tagSlug,
		func(t *models.TagAttributes, ids []int) { t.Articles = models.ConnectIDs(ids) })
	if err != nil {
		return nil, err
	}
	tags, err = persistAll(ctx, s, models.CollectionTags, tags)
	if err != nil {
		return nil, err
	}

	collections, err := findAll(ctx, s, models.CollectionCollections, "slug", col.Collections, collectionSlug)
	if err != nil {
		return nil, err
	}
	err = connectMany(col.CollectionArticles, articles, articleSlug, collections, collectionSlug,
		func(c *models.CollectionAttributes, ids []int) { c.Articles = models.ConnectIDs(ids) })
	if err != nil {
		return nil, err
	}
	collections, err = persistAll(ctx, s, models.CollectionCollections, collections)
	if err != nil {
		return nil, err
	}

	redirects, err := findAll(ctx, s, models.CollectionRedirects, "from", col.Redirects, redirectFrom)
	if err != nil {
		return nil, err
	}
	err = connectOne(col.RedirectArticle, articles, articleSlug, redirects, redirectFrom,
		func(r *models.RedirectAttributes, id int) { r.To = &id })
	if err != nil {
		return nil, err
	}
	redirects, err = persistAll(ctx, s, models.CollectionRedirects, redirects)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Articles:    articles,
		Tags:        tags,
		Collections: collections,
		Redirects:   redirects,
	}

	s.log.Info().
		Int("articles", len(articles)).
		Int("tags", len(tags)).
		Int("collections", len(collections)).
		Int("redirects", len(redirects)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Synchronization completed")

	return result, nil
}

// findAll resolves every attribute set against the store concurrently.
// Results land at the same index their attributes came in, so ordering is
// deterministic no matter how the requests interleave.
func findAll[A any](ctx context.Context, s *Synchronizer, collection, field string, attrs []A, key func(A) string) ([]models.Entity[A], error) {
	entities := make([]models.Entity[A], len(attrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i := range attrs {
		i := i
		g.Go(func() error {
			e, err := cms.FindOrInit(gctx, s.client, collection, field, key(attrs[i]), attrs[i])
			if err != nil {
				return err
			}
			entities[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entities, nil
}

// persistAll creates every new entity and updates every existing one,
// concurrently within the bound. Entities are disjoint, so creates and
// updates may interleave freely; results are reassembled in input order.
func persistAll[A any](ctx context.Context, s *Synchronizer, collection string, entities []models.Entity[A]) ([]models.Entity[A], error) {
	creating := 0
	for _, e := range entities {
		if !e.Exists() {
			creating++
		}
	}

	out := make([]models.Entity[A], len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i := range entities {
		i := i
		g.Go(func() error {
			var (
				e   models.Entity[A]
				err error
			)
			if entities[i].Exists() {
				e, err = cms.Update(gctx, s.client, collection, entities[i])
			} else {
				e, err = cms.Create(gctx, s.client, collection, entities[i])
			}
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("collection", collection).
		Int("created", creating).
		Int("updated", len(entities)-creating).
		Msg("Collection synchronized")

	return out, nil
}
