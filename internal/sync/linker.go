package sync

import (
	"errors"
	"fmt"

	"github.com/blog-cms-migrator/internal/models"
)

// ErrUnresolvedLink is a data-integrity failure: a relationship index
// references a natural key with no persisted entity behind it.
var ErrUnresolvedLink = errors.New("unresolved relationship link")

// idsByKey maps each parent's natural key to its store id. If two parents
// carry the same key the first one wins; duplicate natural keys violate the
// collation invariant, so this is an assumption, not a guarantee.
func idsByKey[P any](parents []models.Entity[P], key func(P) string) map[string]int {
	byKey := make(map[string]int, len(parents))
	for _, p := range parents {
		k := key(p.Attributes)
		if _, seen := byKey[k]; seen {
			continue
		}
		if p.ID != nil {
			byKey[k] = *p.ID
		}
	}
	return byKey
}

// connectMany stamps a {connect: [ids]} relation onto every dependent
// entity: the index maps a dependent's natural key to the parent natural
// keys it relates to, and stamp receives the resolved parent ids. Pure, no
// I/O. An index reference to a parent that was never persisted fails fast.
func connectMany[P, D any](
	index map[string][]string,
	parents []models.Entity[P],
	parentKey func(P) string,
	deps []models.Entity[D],
	depKey func(D) string,
	stamp func(*D, []int),
) error {
	byKey := idsByKey(parents, parentKey)

	for i := range deps {
		key := depKey(deps[i].Attributes)
		refs := index[key]
		ids := make([]int, 0, len(refs))
		for _, ref := range refs {
			id, ok := byKey[ref]
			if !ok {
				return fmt.Errorf("%w: %q references %q which was never persisted", ErrUnresolvedLink, key, ref)
			}
			ids = append(ids, id)
		}
		stamp(&deps[i].Attributes, ids)
	}
	return nil
}

// connectOne stamps a single parent id onto every dependent entity via a
// one-to-one index. Zero matches is a data-integrity error, never a silent
// missing foreign key.
func connectOne[P, D any](
	index map[string]string,
	parents []models.Entity[P],
	parentKey func(P) string,
	deps []models.Entity[D],
	depKey func(D) string,
	stamp func(*D, int),
) error {
	byKey := idsByKey(parents, parentKey)

	for i := range deps {
		key := depKey(deps[i].Attributes)
		ref, ok := index[key]
		if !ok {
			return fmt.Errorf("%w: %q has no index entry", ErrUnresolvedLink, key)
		}
		id, ok := byKey[ref]
		if !ok {
			return fmt.Errorf("%w: %q references %q which was never persisted", ErrUnresolvedLink, key, ref)
		}
		stamp(&deps[i].Attributes, id)
	}
	return nil
}
