// Package api serves the parser over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dhcgn/mailbody/extract"
	"github.com/dhcgn/mailbody/parser"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Config holds the handlers' dependencies.
type Config struct {
	Parser *parser.Parser
	// Options apply to /v1/extract. /v1/body takes them per request.
	Options parser.BodyOptions
	Logger  *slog.Logger
}

// NewRouter creates the chi router with all routes.
func NewRouter(cfg Config) http.Handler {
	if cfg.Parser == nil {
		cfg.Parser = parser.New(parser.WithLogger(cfg.Logger))
	}
	extractor := extract.New(cfg.Parser, cfg.Options)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/body", handleBody(cfg.Parser))
		r.Post("/split", handleSplit())
		r.Post("/extract", handleExtract(extractor))
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(started),
				"requestID", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
