package articles

import (
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/papyrus/storage"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

var (
	testInstant      = time.Date(2021, 6, 15, 10, 30, 0, 0, time.UTC)
	testInstantLater = time.Date(2021, 6, 15, 11, 45, 0, 0, time.UTC)
)

func newTestHandler(store storage.Store) *Handler {
	h := NewHandler(NewRepository(store))
	h.now = func() time.Time { return testInstant }
	return h
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func decodeArticle(t *testing.T, w *httptest.ResponseRecorder) *Article {
	t.Helper()
	var a Article
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &a))
	return &a
}

func TestArticleCreation(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	t.Run("a new slug is created with stamps and default status", func(t *testing.T) {
		w := serve(h, "POST", "/api/articles", `{"slug":"First Post","title":"First post","content":"Hello."}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		a := decodeArticle(t, w)
		assert.Equal(t, "first-post", a.Slug)
		assert.Equal(t, StatusDraft, a.Status)
		assert.Equal(t, "2021-06-15T10:30:00Z", a.CreatedAt)
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	})
	t.Run("the saved record is then fetchable under the sanitized slug", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/first-post", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Hello.", decodeArticle(t, w).Content)
	})
	t.Run("a body slug is sanitized before use", func(t *testing.T) {
		w := serve(h, "POST", "/api/articles", `{"slug":"--Crazy  Slug!!--","title":"T"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "crazy-slug", decodeArticle(t, w).Slug)
	})
	t.Run("the path plays no part in the slug", func(t *testing.T) {
		w := serve(h, "POST", "/api/articles/somewhere-else", `{"slug":"from-the-body","title":"T"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "from-the-body", decodeArticle(t, w).Slug)
	})
}

func TestArticleValidation(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	testCases := []struct {
		name string
		body string
	}{
		{"a missing slug", `{"title":"T"}`},
		{"a missing title", `{"slug":"s"}`},
		{"an empty body object", `{}`},
		{"a slug that sanitizes to nothing", `{"slug":"!!!","title":"T"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name+" is rejected", func(t *testing.T) {
			w := serve(h, "POST", "/api/articles", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Slug and title are required"}`, w.Body.String())
		})
	}
	t.Run("nothing was stored", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestArticleUpdate(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	w := serve(h, "POST", "/api/articles", `{"slug":"evolving","title":"Original","excerpt":"Kept? No.","content":"Body.","status":"published","publishedAt":"2021-06-01"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	h.now = func() time.Time { return testInstantLater }
	w = serve(h, "POST", "/api/articles", `{"slug":"evolving","title":"Revised"}`)
	require.Equal(t, http.StatusOK, w.Code)
	a := decodeArticle(t, w)
	t.Run("createdAt survives the update", func(t *testing.T) {
		assert.Equal(t, "2021-06-15T10:30:00Z", a.CreatedAt)
	})
	t.Run("updatedAt moves forward", func(t *testing.T) {
		assert.Equal(t, "2021-06-15T11:45:00Z", a.UpdatedAt)
	})
	t.Run("the document is replaced, not merged", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/evolving", "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeArticle(t, w)
		assert.Equal(t, "Revised", got.Title)
		assert.Equal(t, "", got.Excerpt)
		assert.Equal(t, "", got.Content)
		assert.Equal(t, StatusDraft, got.Status)
	})
	t.Run("a client cannot forge createdAt", func(t *testing.T) {
		w := serve(h, "POST", "/api/articles", `{"slug":"evolving","title":"Forged","createdAt":"1999-01-01T00:00:00Z"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2021-06-15T10:30:00Z", decodeArticle(t, w).CreatedAt)
	})
}

func TestArticleFetch(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	w := serve(h, "POST", "/api/articles", `{"slug":"secret-draft","title":"Hush"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	t.Run("a draft is fetchable by slug", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/secret-draft", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, StatusDraft, decodeArticle(t, w).Status)
	})
	t.Run("an unknown slug is not found", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"Article not found"}`, w.Body.String())
	})
}

func TestArticleListing(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	t.Run("an empty collection lists as an empty sequence", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
	for _, body := range []string{
		`{"slug":"oldest","title":"Oldest","status":"published","publishedAt":"2021-01-01"}`,
		`{"slug":"newest","title":"Newest","status":"published","publishedAt":"2021-06-01T10:00:00Z"}`,
		`{"slug":"undated","title":"Undated","status":"published","publishedAt":"whenever"}`,
		`{"slug":"draft","title":"Draft","publishedAt":"2021-12-31"}`,
	} {
		w := serve(h, "POST", "/api/articles", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	t.Run("published articles only, newest first, unparseable dates last", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles", "")
		require.Equal(t, http.StatusOK, w.Code)
		var got []*Article
		require.Nil(t, json.Unmarshal(w.Body.Bytes(), &got))
		var slugs []string
		for _, a := range got {
			slugs = append(slugs, a.Slug)
		}
		assert.Equal(t, []string{"newest", "oldest", "undated"}, slugs)
	})
	t.Run("a trailing slash also lists", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/", "")
		require.Equal(t, http.StatusOK, w.Code)
		var got []*Article
		require.Nil(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 3)
	})
}

func TestArticleDeletion(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	w := serve(h, "POST", "/api/articles", `{"slug":"doomed","title":"Doomed"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	t.Run("deleting an existing article", func(t *testing.T) {
		w := serve(h, "DELETE", "/api/articles/doomed", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
		w = serve(h, "GET", "/api/articles/doomed", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("deleting an absent article reports success too", func(t *testing.T) {
		w := serve(h, "DELETE", "/api/articles/never-was", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})
	t.Run("deleting without a slug", func(t *testing.T) {
		for _, target := range []string{"/api/articles", "/api/articles/"} {
			w := serve(h, "DELETE", target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Slug is required"}`, w.Body.String())
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	for _, method := range []string{"PUT", "PATCH", "OPTIONS", "HEAD"} {
		for _, target := range []string{"/api/articles", "/api/articles/some-slug"} {
			w := serve(h, method, target, "")
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "%s %s", method, target)
			assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String(), "%s %s", method, target)
		}
	}
}

// explodingStore fails every operation, standing in for an unreachable
// backing service.
type explodingStore struct{}

func (explodingStore) Put(string, []byte) error   { return errors.New("store down") }
func (explodingStore) Get(string) ([]byte, error) { return nil, errors.New("store down") }
func (explodingStore) Delete(string) error        { return errors.New("store down") }
func (explodingStore) Keys() ([]string, error)    { return nil, errors.New("store down") }

func TestStoreFailures(t *testing.T) {
	h := newTestHandler(explodingStore{})
	testCases := []struct {
		method string
		target string
		body   string
	}{
		{"GET", "/api/articles", ""},
		{"GET", "/api/articles/any", ""},
		{"POST", "/api/articles", `{"slug":"any","title":"T"}`},
		{"DELETE", "/api/articles/any", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			w := serve(h, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newTestHandler(storage.NewInMemoryStore())
	for _, body := range []string{"", "{", "not json at all", `{"title":42}`} {
		w := serve(h, "POST", "/api/articles", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, "%q", body)
		assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String(), "%q", body)
	}
}

func TestCorruptedDocument(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.Nil(t, store.Put("broken", []byte("not json")))
	h := newTestHandler(store)
	t.Run("fetching it", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles/broken", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	})
	t.Run("updating it", func(t *testing.T) {
		w := serve(h, "POST", "/api/articles", `{"slug":"broken","title":"T"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
	t.Run("listing over it", func(t *testing.T) {
		w := serve(h, "GET", "/api/articles", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

// panickyStore panics on reads. Embedding keeps the interface satisfied for
// the operations the test never reaches.
type panickyStore struct{ storage.Store }

func (panickyStore) Get(string) ([]byte, error) { panic("mapped region gone") }

func TestPanicsBecomeInternalErrors(t *testing.T) {
	h := newTestHandler(panickyStore{})
	w := serve(h, "GET", "/api/articles/any", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
