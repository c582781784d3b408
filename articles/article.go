// Package articles implements the article collection: the document model,
// the slug rules that derive storage keys, a repository persisting articles
// as JSON in a storage.Store, and the HTTP handler exposing CRUD over them.
package articles

import (
	"time"
)

// Article statuses. Only published articles appear in listings; drafts
// remain fetchable by slug.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Article is one document in the collection, keyed by its slug. The JSON
// field names are the wire contract, both in the store and over HTTP.
// CreatedAt and UpdatedAt are stamped by the handler on writes; PublishedAt
// is whatever the client supplied and is only interpreted for ordering
// listings.
type Article struct {
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Excerpt         string `json:"excerpt"`
	Content         string `json:"content"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"categoryDisplay,omitempty"`
	Status          string `json:"status"`
	PublishedAt     string `json:"publishedAt"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// Published tells whether the article should appear in listings.
func (a *Article) Published() bool {
	return a.Status == StatusPublished
}

// Layouts accepted for publishedAt. Clients send anything from bare dates to
// full timestamps.
var publishedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// PublishedTime parses the publishedAt field for ordering. Unparseable or
// missing values yield the zero time, so such articles sort last in a
// newest-first listing.
func (a *Article) PublishedTime() time.Time {
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, a.PublishedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}
