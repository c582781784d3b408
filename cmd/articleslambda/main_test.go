package main

import (
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/papyrus/articles"
	"github.com/nicolagi/papyrus/storage"
)

func TestEventTranslation(t *testing.T) {
	h := articles.NewHandler(articles.NewRepository(storage.NewInMemoryStore()))
	router = h.Routes()
	ctx := context.Background()
	t.Run("posting an article", func(t *testing.T) {
		resp, err := handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: "POST",
			Path:       "/api/articles",
			Body:       `{"slug":"From Lambda!","title":"From Lambda"}`,
		})
		require.Nil(t, err)
		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, "application/json; charset=utf-8", resp.Headers["Content-Type"])
		assert.Contains(t, resp.Body, `"slug":"from-lambda"`)
	})
	t.Run("a base64 encoded body decodes the same", func(t *testing.T) {
		resp, err := handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod:      "POST",
			Path:            "/api/articles",
			Body:            base64.StdEncoding.EncodeToString([]byte(`{"slug":"encoded","title":"Encoded"}`)),
			IsBase64Encoded: true,
		})
		require.Nil(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})
	t.Run("fetching it back", func(t *testing.T) {
		resp, err := handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: "GET",
			Path:       "/api/articles/from-lambda",
		})
		require.Nil(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Contains(t, resp.Body, `"title":"From Lambda"`)
	})
	t.Run("error responses carry through", func(t *testing.T) {
		resp, err := handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: "DELETE",
			Path:       "/api/articles",
		})
		require.Nil(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Slug is required"}`, resp.Body)
	})
	t.Run("unsupported methods carry through", func(t *testing.T) {
		resp, err := handle(ctx, events.APIGatewayProxyRequest{
			HTTPMethod: "PUT",
			Path:       "/api/articles/from-lambda",
		})
		require.Nil(t, err)
		assert.Equal(t, 405, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, resp.Body)
	})
}

func TestStoreFromEnv(t *testing.T) {
	t.Run("the default wants a bucket", func(t *testing.T) {
		os.Unsetenv("PAPYRUS_STORE")
		os.Unsetenv("PAPYRUS_S3_BUCKET")
		_, err := storeFromEnv()
		assert.NotNil(t, err)
	})
	t.Run("memory needs nothing else", func(t *testing.T) {
		os.Setenv("PAPYRUS_STORE", "memory")
		defer os.Unsetenv("PAPYRUS_STORE")
		store, err := storeFromEnv()
		require.Nil(t, err)
		assert.NotNil(t, store)
	})
	t.Run("an unknown type is rejected", func(t *testing.T) {
		os.Setenv("PAPYRUS_STORE", "floppy")
		defer os.Unsetenv("PAPYRUS_STORE")
		_, err := storeFromEnv()
		assert.NotNil(t, err)
	})
}
