package articles

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/papyrus/storage"
)

// Handler serves the article collection over HTTP. Every response it
// produces is JSON, including errors and recovered panics. Writes are
// last-write-wins; the handler takes no locks of its own.
type Handler struct {
	repo *Repository

	// Stamps createdAt and updatedAt on writes. Tests fix this to a
	// known instant.
	now func() time.Time
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo, now: time.Now}
}

// Routes builds the router for the article API, mounted at /api/articles.
// Everything after that prefix is the article slug, which may itself
// contain slashes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(recoverer)
	r.MethodNotAllowed(h.methodNotAllowed)
	r.Get("/api/articles", h.list)
	r.Post("/api/articles", h.save)
	r.Delete("/api/articles", h.remove)
	r.Get("/api/articles/*", h.get)
	r.Post("/api/articles/*", h.save)
	r.Delete("/api/articles/*", h.remove)
	return r
}

// ErrResponse is the body of every error response, rendered as
// {"error": "..."} together with the carried status code.
type ErrResponse struct {
	HTTPStatusCode int    `json:"-"`
	ErrorText      string `json:"error"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

var (
	errArticleNotFound  = &ErrResponse{HTTPStatusCode: http.StatusNotFound, ErrorText: "Article not found"}
	errSlugTitleMissing = &ErrResponse{HTTPStatusCode: http.StatusBadRequest, ErrorText: "Slug and title are required"}
	errSlugMissing      = &ErrResponse{HTTPStatusCode: http.StatusBadRequest, ErrorText: "Slug is required"}
	errMethodNotAllowed = &ErrResponse{HTTPStatusCode: http.StatusMethodNotAllowed, ErrorText: "Method not allowed"}
	errInternal         = &ErrResponse{HTTPStatusCode: http.StatusInternalServerError, ErrorText: "Internal server error"}
)

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	published, err := h.repo.PublishedNewestFirst()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, published)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "*")
	if slug == "" {
		h.list(w, r)
		return
	}
	a, err := h.repo.Load(slug)
	if errors.Is(err, storage.ErrNotFound) {
		h.renderError(w, r, errArticleNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, a)
}

// save handles creates and updates alike. The body replaces any document
// already stored under the sanitized slug, except for createdAt, which is
// carried over from the existing document.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var a Article
	if err := render.DecodeJSON(r.Body, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	if a.Slug == "" || a.Title == "" {
		h.renderError(w, r, errSlugTitleMissing)
		return
	}
	slug := SanitizeSlug(a.Slug)
	if slug == "" {
		h.renderError(w, r, errSlugTitleMissing)
		return
	}
	now := h.now().UTC().Format(time.RFC3339)
	a.Slug = slug
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusDraft
	}
	status := http.StatusOK
	existing, err := h.repo.Load(slug)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusCreated
		a.CreatedAt = now
	case err != nil:
		h.fail(w, r, err)
		return
	case existing.CreatedAt != "":
		a.CreatedAt = existing.CreatedAt
	default:
		a.CreatedAt = now
	}
	if err := h.repo.Save(&a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, status, &a)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "*")
	if slug == "" {
		h.renderError(w, r, errSlugMissing)
		return
	}
	if err := h.repo.Delete(slug); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, render.M{"success": true})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, errMethodNotAllowed)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.Respond(w, r, v)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, e *ErrResponse) {
	if err := render.Render(w, r, e); err != nil {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"cause":  err,
		}).Error("Could not render error response")
	}
}

// fail logs the cause and answers with the generic 500 body. The cause is
// never echoed to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"cause":  err,
	}).Error("Could not serve article request")
	h.renderError(w, r, errInternal)
}

// recoverer converts a panic while serving a request into the generic 500
// response, keeping the JSON error contract even for programming errors.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  rec,
				}).Error("Could not serve request")
				render.Status(r, http.StatusInternalServerError)
				render.Respond(w, r, errInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
