package models

// Entity is a remote-store record of kind A: an optional store-assigned id,
// the attribute payload, and an opaque metadata bag passed through from the
// store untouched.
type Entity[A any] struct {
	ID         *int           `json:"id,omitempty"`
	Attributes A              `json:"attributes"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Exists reports whether the entity has been persisted. This is the sole
// predicate used to partition entities into create vs update.
func (e Entity[A]) Exists() bool {
	return e.ID != nil
}

// Connect is the store's directive for attaching a list of related record
// ids to a relation field.
type Connect struct {
	Connect []int `json:"connect"`
}

// ConnectIDs builds a Connect directive. A nil or empty id list still
// produces a valid, empty directive.
func ConnectIDs(ids []int) *Connect {
	return &Connect{Connect: ids}
}

// Collection names in the remote store.
const (
	CollectionArticles    = "articles"
	CollectionTags        = "tags"
	CollectionCollections = "collections"
	CollectionRedirects   = "redirects"
)
