package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/boltdb/bolt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/docgen"
	"github.com/google/gops/agent"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"

	"github.com/nicolagi/papyrus/articles"
	"github.com/nicolagi/papyrus/storage"
)

const serviceName = "articlesd"

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/papyrus/articlesd.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	routes := flag.Bool("routes", false, "generate router documentation and exit")
	flag.Parse()

	if *routes {
		h := articles.NewHandler(articles.NewRepository(storage.NewInMemoryStore()))
		fmt.Println(docgen.MarkdownRoutesDoc(h.Routes(), docgen.MarkdownOpts{
			ProjectPath: "github.com/nicolagi/papyrus",
			Intro:       "articlesd routes.",
		}))
		return
	}

	opts, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}
	if opts.Listen == "" {
		log.WithFields(log.Fields{
			"path": *configFile,
		}).Fatal("No listen address configured")
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	store, cleanup, err := newStore(opts.Store)
	if err != nil {
		log.WithField("err", err).Fatal("Could not configure store")
	}
	defer cleanup()

	exporter, completed := newMetrics()
	if opts.DiagListen != "" {
		diag := chi.NewRouter()
		diag.Get("/metrics", exporter.ServeHTTP)
		go func() {
			if err := http.ListenAndServe(opts.DiagListen, diag); err != nil {
				log.WithField("err", err).Error("Diagnostics server failed")
			}
		}()
	}

	handler := articles.NewHandler(articles.NewRepository(store))
	var h http.Handler = instrumented(handler.Routes(), completed)
	h = middleware.RequestID(h)

	srv := &http.Server{Addr: opts.Listen, Handler: h}

	// Before we call srv.ListenAndServe(), which never returns unless
	// srv.Shutdown() is called, we need to install a signal handler to call
	// srv.Shutdown().
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		sig := <-c
		log.WithField("signal", sig).Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Will make srv.ListenAndServe() return, and allow deferred
		// clean-up functions to execute.
		if err := srv.Shutdown(ctx); err != nil {
			log.WithFields(log.Fields{"err": err}).Warn("Could not shut down the server cleanly")
		}
	}()

	log.WithFields(log.Fields{"addr": opts.Listen}).Info("Listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithField("err", err).Fatal("Could not listen and serve")
	}
}

func newStore(c storeConfig) (storage.Store, func(), error) {
	store, cleanup, err := newBackingStore(c)
	if err != nil {
		return nil, nil, err
	}
	if c.CacheDir != "" {
		log.Infof("Will cache reads on disk at %s", c.CacheDir)
		store = storage.NewPaired(storage.NewDiskStore(c.CacheDir), store)
	}
	return store, cleanup, nil
}

func newBackingStore(c storeConfig) (storage.Store, func(), error) {
	nop := func() {}
	switch c.Type {
	case "memory":
		log.Info("Will use an in-memory backend, data will not survive restarts")
		return storage.NewInMemoryStore(), nop, nil
	case "", "disk":
		dir := c.Dir
		if dir == "" {
			dir = os.ExpandEnv("$HOME/lib/papyrus/data")
		}
		log.Infof("Will use a disk-based backend storing data at %s", dir)
		return storage.NewDiskStore(dir), nop, nil
	case "bolt":
		db, err := bolt.Open(c.File, 0600, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open database %q: %w", c.File, err)
		}
		store, err := storage.NewBoltStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Infof("Will use a BoltDB backend storing data at %s", c.File)
		return store, func() {
			if err := db.Close(); err != nil {
				log.Warnf("Could not close boltdb database: %v", err)
			}
		}, nil
	case "s3":
		log.Infof("Will use an S3 backend with bucket %s", c.Bucket)
		return storage.NewS3(c.Profile, c.Region, c.Bucket, c.Prefix), nop, nil
	case "dynamodb":
		store, err := storage.NewDynamoDBStore(c.Profile, c.Region, c.Table)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("Will use a DynamoDB backend with table %s", c.Table)
		return store, nop, nil
	case "postgres":
		db, err := sql.Open("postgres", c.DataSource)
		if err != nil {
			return nil, nil, err
		}
		table := c.Table
		if table == "" {
			table = "articles"
		}
		store, err := storage.NewPostgresStore(db, table)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Infof("Will use a PostgreSQL backend with table %s", table)
		return store, func() {
			if err := db.Close(); err != nil {
				log.Warnf("Could not close database: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", c.Type)
	}
}

func newMetrics() (*prometheus.Exporter, metric.Int64Counter) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		log.WithField("err", err).Fatal("Could not initialize prometheus exporter")
	}
	global.SetMeterProvider(exporter.MeterProvider())
	meter := global.Meter(serviceName)
	completed := metric.Must(meter).NewInt64Counter(
		"http/server/completed_count",
		metric.WithDescription("Count of completed requests, by HTTP method and response status"),
	)
	return exporter, completed
}

// instrumented wraps the API handler to log every request and count it in
// the completed-requests metric.
func instrumented(next http.Handler, completed metric.Int64Counter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		completed.Add(r.Context(), 1,
			attribute.String("method", r.Method),
			attribute.Int("status", ww.Status()),
		)
		log.WithFields(log.Fields{
			"op":      r.Method,
			"path":    r.URL.Path,
			"status":  ww.Status(),
			"bytes":   ww.BytesWritten(),
			"elapsed": time.Since(start),
			"request": middleware.GetReqID(r.Context()),
		}).Debug("Served")
	})
}
