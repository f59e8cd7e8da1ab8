package usecase

import (
	"context"
	"errors"
	"fmt"

	"QuestionScanner/internal/domain"
)

type tagStore interface {
	GetOrCreateTag(ctx context.Context, title string) (domain.TagID, error)
}

// TagResolver maps tag text to a stable tag identity for the lifetime of one run.
// Repeat lookups are served from memory; first sightings go to the store's
// atomic get-or-create, so identities also agree across runs.
type TagResolver struct {
	store tagStore
	cache map[string]domain.TagID
}

// NewTagResolver creates a resolver with an empty per-run cache.
func NewTagResolver(store tagStore) *TagResolver {
	return &TagResolver{store: store, cache: map[string]domain.TagID{}}
}

// Resolve returns the identity of the normalized tag, creating it on first sight.
func (r *TagResolver) Resolve(ctx context.Context, text string) (domain.TagID, error) {
	tag := domain.NormalizeTag(text)
	if tag == "" {
		return 0, domain.NewError(domain.KindResolution, "resolve tag", errors.New("empty tag"))
	}
	if id, ok := r.cache[tag]; ok {
		return id, nil
	}
	if r.store == nil {
		return 0, domain.NewError(domain.KindResolution, fmt.Sprintf("resolve tag %q", tag), errors.New("no tag store"))
	}

	id, err := r.store.GetOrCreateTag(ctx, tag)
	if err != nil {
		return 0, domain.NewError(domain.KindResolution, fmt.Sprintf("resolve tag %q", tag), err)
	}
	r.cache[tag] = id
	return id, nil
}

// Len reports how many distinct tags were resolved.
func (r *TagResolver) Len() int {
	return len(r.cache)
}
