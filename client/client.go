// Package client is a typed client for the article API. Not-found
// responses map back to storage.ErrNotFound, so callers can treat a remote
// collection much like a local one.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/papyrus/articles"
	"github.com/nicolagi/papyrus/storage"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

// New returns a client for the article API served at baseURL, e.g.
// "http://localhost:6660".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// List returns the published articles, newest first, as the server orders
// them.
func (c *Client) List() ([]*articles.Article, error) {
	resp, err := c.httpc.Get(c.baseURL + "/api/articles")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var all []*articles.Article
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, err
	}
	return all, nil
}

// Get returns the article stored under the given slug, draft or published.
// The error wraps storage.ErrNotFound if there is none.
func (c *Client) Get(slug string) (*articles.Article, error) {
	resp, err := c.httpc.Get(c.baseURL + "/api/articles/" + slug)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	switch resp.StatusCode {
	case http.StatusOK:
		var a articles.Article
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			return nil, err
		}
		return &a, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%.40q: %w", slug, storage.ErrNotFound)
	default:
		return nil, responseError(resp)
	}
}

// Save creates or updates the article and returns the document as the
// server finalized it, with the sanitized slug and fresh timestamps, along
// with whether it was newly created.
func (c *Client) Save(a *articles.Article) (saved *articles.Article, created bool, err error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.httpc.Post(c.baseURL+"/api/articles", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	defer closeBody(resp)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		saved = &articles.Article{}
		if err := json.NewDecoder(resp.Body).Decode(saved); err != nil {
			return nil, false, err
		}
		return saved, resp.StatusCode == http.StatusCreated, nil
	default:
		return nil, false, responseError(resp)
	}
}

// Delete removes the article stored under the given slug. Deleting a slug
// that holds no article is not an error.
func (c *Client) Delete(slug string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/articles/"+slug, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	var ack struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("delete of %.40q not acknowledged", slug)
	}
	return nil
}

// responseError turns a non-2xx response into an error carrying the
// server's message when one can be read.
func responseError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s (status %d)", e.Error, resp.StatusCode)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		log.WithFields(log.Fields{
			"cause": err,
		}).Warning("Could not close response body")
	}
}
