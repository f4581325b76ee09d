// Package api serves the aggregated product views over HTTP.
package api

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/observability"
	"pricewatch/internal/storage"
	"pricewatch/internal/stream"
)

// App wires the HTTP handlers to their collaborators.
type App struct {
	cfg       config.Config
	lineItems storage.LineItemStore
	documents storage.DocumentStore
	hub       *stream.Hub
	logger    *log.Logger
	started   time.Time
}

// NewApp creates the API application.
func NewApp(cfg config.Config, lineItems storage.LineItemStore, documents storage.DocumentStore, hub *stream.Hub) *App {
	return &App{
		cfg:       cfg,
		lineItems: lineItems,
		documents: documents,
		hub:       hub,
		logger:    log.New(os.Stdout, "[api] ", log.LstdFlags),
		started:   time.Now(),
	}
}

// Router builds the HTTP mux with all endpoints registered.
func (a *App) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/products/grouped", a.instrument("/api/products/grouped", a.handleGrouped))
	mux.HandleFunc("/api/products/series", a.instrument("/api/products/series", a.handleSeries))
	mux.HandleFunc("/api/documents/", a.instrument("/api/documents", a.handleDocument))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", a.handleStatus)

	if a.hub != nil {
		mux.Handle("/ws/updates", a.hub)
	}

	return mux
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and duration per path.
func (a *App) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.RecordHTTPRequest(path, strconv.Itoa(rec.status), time.Since(start).Seconds())
	}
}
