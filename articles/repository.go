package articles

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/nicolagi/papyrus/storage"
)

// Repository persists articles as JSON documents in a storage.Store, one
// document per slug. The store given to it is assumed to be dedicated to
// the article collection.
type Repository struct {
	store storage.Store
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load returns the article stored under the given slug. The error wraps
// storage.ErrNotFound if there is none.
func (r *Repository) Load(slug string) (*Article, error) {
	value, err := r.store.Get(slug)
	if err != nil {
		return nil, err
	}
	var a Article
	if err := json.Unmarshal(value, &a); err != nil {
		return nil, fmt.Errorf("article %.40q: %w", slug, err)
	}
	return &a, nil
}

// Save stores the article under its slug, replacing any previous document
// held there.
func (r *Repository) Save(a *Article) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("article %.40q: %w", a.Slug, err)
	}
	return r.store.Put(a.Slug, value)
}

// Delete removes the article stored under the given slug. Deleting a slug
// that holds no article is not an error.
func (r *Repository) Delete(slug string) error {
	return r.store.Delete(slug)
}

// All returns every article in the collection, in no particular order.
// Articles deleted between listing the keys and loading them are skipped.
func (r *Repository) All() ([]*Article, error) {
	keys, err := r.store.Keys()
	if err != nil {
		return nil, err
	}
	all := make([]*Article, 0, len(keys))
	for _, key := range keys {
		a, err := r.Load(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, a)
	}
	return all, nil
}

// PublishedNewestFirst returns the published articles ordered by their
// publishedAt field, most recent first. Articles whose publishedAt cannot
// be parsed sort last.
func (r *Repository) PublishedNewestFirst() ([]*Article, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	published := make([]*Article, 0, len(all))
	for _, a := range all {
		if a.Published() {
			published = append(published, a)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		return published[i].PublishedTime().After(published[j].PublishedTime())
	})
	return published, nil
}
