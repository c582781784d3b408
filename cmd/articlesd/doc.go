// Package articlesd implements the HTTP server for the article API. It
// serves /api/articles backed by any implementation of storage.Store,
// chosen in the configuration file.
//
// The API is the one implemented by articles.Handler and consumed by the
// client package. GET /api/articles lists published articles, newest
// first. GET /api/articles/{slug} returns a single article, draft or
// published. POST /api/articles creates or updates the article in the
// request body, keyed by its sanitized slug. DELETE /api/articles/{slug}
// removes an article. Responses, errors included, are always JSON.
//
// The configuration file is in rjson format and defaults to
// $HOME/lib/papyrus/articlesd.config. A minimal example, serving the API
// on port 6660 with metrics on 6670, storing articles in BoltDB:
//
//	{
//		listen: ":6660"
//		diag_listen: ":6670"
//		store: {
//			type: "bolt"
//			file: "/home/you/lib/papyrus/articles.db"
//		}
//	}
//
// Without a store section, articles are stored on disk under
// $HOME/lib/papyrus/data. The s3, dynamodb and postgres store types reach
// their backing services with the credentials named in the store section;
// cache_dir layers a disk cache over any of them for reads. If diag_listen
// is set, Prometheus metrics are exposed at /metrics on that address.
//
// Passing -routes prints the routing documentation and exits.
package main // import "github.com/nicolagi/papyrus/cmd/articlesd"
