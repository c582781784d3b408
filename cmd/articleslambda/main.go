package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/papyrus/articles"
	"github.com/nicolagi/papyrus/storage"
)

var router http.Handler

func main() {
	store, err := storeFromEnv()
	if err != nil {
		log.WithField("err", err).Fatal("Could not configure store")
	}
	h := articles.NewHandler(articles.NewRepository(store))
	router = h.Routes()
	lambda.Start(handle)
}

func storeFromEnv() (storage.Store, error) {
	region := os.Getenv("AWS_REGION")
	switch t := os.Getenv("PAPYRUS_STORE"); t {
	case "", "s3":
		bucket := os.Getenv("PAPYRUS_S3_BUCKET")
		if bucket == "" {
			return nil, errors.New("PAPYRUS_S3_BUCKET is not set")
		}
		return storage.NewS3("", region, bucket, os.Getenv("PAPYRUS_S3_PREFIX")), nil
	case "dynamodb":
		table := os.Getenv("PAPYRUS_DYNAMODB_TABLE")
		if table == "" {
			return nil, errors.New("PAPYRUS_DYNAMODB_TABLE is not set")
		}
		return storage.NewDynamoDBStore("", region, table)
	case "memory":
		// Holds data only for the lifetime of one execution environment.
		// Useful to try out the deployment wiring.
		return storage.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", t)
	}
}

// handle translates an API Gateway event to a plain HTTP request, serves it
// with the article router, and translates the response back.
func handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := newRequest(ctx, event)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	w := &responseRecorder{status: http.StatusOK, header: make(http.Header)}
	router.ServeHTTP(w, req)
	headers := make(map[string]string, len(w.header))
	for name := range w.header {
		headers[name] = w.header.Get(name)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: w.status,
		Headers:    headers,
		Body:       w.body.String(),
	}, nil
}

func newRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	var body io.Reader
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(decoded)
	} else if event.Body != "" {
		body = strings.NewReader(event.Body)
	}
	req, err := http.NewRequest(event.HTTPMethod, event.Path, body)
	if err != nil {
		return nil, err
	}
	for name, value := range event.Headers {
		req.Header.Set(name, value)
	}
	return req.WithContext(ctx), nil
}

// responseRecorder captures the router's response so it can be copied into
// an API Gateway response.
type responseRecorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func (w *responseRecorder) Header() http.Header { return w.header }

func (w *responseRecorder) Write(p []byte) (int, error) { return w.body.Write(p) }

func (w *responseRecorder) WriteHeader(status int) { w.status = status }
