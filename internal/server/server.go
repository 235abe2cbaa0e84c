// Package server exposes the crawl boundary over HTTP for the dashboard to
// poll. It is a thin JSON wrapper: all scrape behavior lives behind the
// Crawler interface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordforest/dingbot/internal/market"
	"github.com/wordforest/dingbot/pkg/models"
)

// Crawler runs the full multi-query scrape-and-merge for one request.
// Implemented by internal/app.Application.
type Crawler interface {
	Crawl(city, queryList string, maxPrice, maxResults int) ([]models.ClassifiedListing, error)
}

// allowedOrigins are the dashboard hosts permitted by CORS.
var allowedOrigins = map[string]bool{
	"http://localhost":      true,
	"http://localhost:8000": true,
	"http://localhost:3000": true,
	"http://localhost:8501": true,
}

// Server is the HTTP request-serving boundary.
type Server struct {
	httpServer *http.Server
	crawler    Crawler
	uptime     func() time.Duration
}

// New creates a Server listening on addr. uptime feeds the health endpoint
// and may be nil.
func New(addr string, crawler Crawler, uptime func() time.Duration) *Server {
	s := &Server{crawler: crawler, uptime: uptime}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/crawl", s.handleCrawl)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "DingBot marketplace watch API. GET /crawl?city=&query=&max_price=&max_results=",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.uptime != nil {
		body["uptime"] = s.uptime().Round(time.Second).String()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCrawl serves the one inbound operation. Failed queries come back as
// an empty array, indistinguishable from no results; only an unsupported
// city is a hard error.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := q.Get("city")
	queryList := q.Get("query")

	maxPrice, err := intParam(q.Get("max_price"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "max_price must be an integer"})
		return
	}
	maxResults, err := intParam(q.Get("max_results"), 8)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "max_results must be an integer"})
		return
	}

	results, err := s.crawler.Crawl(city, queryList, maxPrice, maxResults)
	if err != nil {
		var unsupported *market.UnsupportedCityError
		if errors.As(err, &unsupported) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": unsupported.Error()})
			return
		}
		// Internal failures surface as "no results found".
		log.Error().Err(err).Str("city", city).Str("query", queryList).
			Msg("Crawl failed")
		writeJSON(w, http.StatusOK, []models.ClassifiedListing{})
		return
	}

	if results == nil {
		results = []models.ClassifiedListing{}
	}
	writeJSON(w, http.StatusOK, results)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

// corsMiddleware admits the local dashboard origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
