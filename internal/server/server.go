// Package server wires the qid store behind a chi HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/livingatlas/occquery/internal/health"
	"github.com/livingatlas/occquery/internal/middleware"
	"github.com/livingatlas/occquery/internal/qid"
	"github.com/livingatlas/occquery/internal/query"
)

type Deps struct {
	Log      zerolog.Logger
	Store    *qid.Store
	Rewriter *query.Rewriter
	Metrics  http.Handler
	Ready    health.ReadinessReporter
}

// Router builds the service routes; exposed separately so tests can drive
// the handlers with httptest.
func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(deps.Log))
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Ready))
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.ServeHTTP)
	}

	r.Post("/qid", putQid(deps))
	r.Get("/qid/{id}", getQid(deps))
	if deps.Rewriter != nil {
		r.Post("/query/format", formatQuery(deps))
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, deps Deps) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Log.Info().Str("addr", addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

type putRequest struct {
	Q             string      `json:"q"`
	DisplayString string      `json:"displayString,omitempty"`
	Wkt           string      `json:"wkt,omitempty"`
	Bbox          *[4]float64 `json:"bbox,omitempty"`
	Fqs           []string    `json:"fqs,omitempty"`
	MaxAge        int64       `json:"maxAge,omitempty"`
	Source        string      `json:"source,omitempty"`
}

func putQid(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in putRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if in.Q == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		key, err := deps.Store.Put(r.Context(), in.Q, in.DisplayString, in.Wkt, in.Bbox, in.Fqs, in.MaxAge, in.Source)
		if err != nil {
			var se *qid.SizeError
			if errors.As(err, &se) {
				writeError(w, http.StatusRequestEntityTooLarge, se.Error())
				return
			}
			deps.Log.Error().Err(err).Msg("qid store put failed")
			writeError(w, http.StatusInternalServerError, "store failure")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"qid": key})
	}
}

func getQid(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "id")
		rec, err := deps.Store.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, qid.ErrNotFound) {
				writeError(w, http.StatusNotFound, "qid not found")
				return
			}
			deps.Log.Error().Err(err).Str("qid", key).Msg("qid store get failed")
			writeError(w, http.StatusInternalServerError, "store failure")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type formatRequest struct {
	Q      string   `json:"q"`
	Fq     []string `json:"fq,omitempty"`
	Qc     string   `json:"qc,omitempty"`
	Wkt    string   `json:"wkt,omitempty"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
	Radius *float64 `json:"radius,omitempty"`
}

type formatResponse struct {
	Query         string                 `json:"query"`
	DisplayString string                 `json:"displayString"`
	Fqs           []string               `json:"fqs,omitempty"`
	ActiveFacets  map[string]query.Facet `json:"activeFacets,omitempty"`
}

func formatQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in formatRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req := &query.SearchRequest{
			Q:      in.Q,
			Fq:     in.Fq,
			Qc:     in.Qc,
			Wkt:    in.Wkt,
			Lat:    in.Lat,
			Lon:    in.Lon,
			Radius: in.Radius,
		}
		facets := deps.Rewriter.FormatSearchQuery(r.Context(), req, false)
		writeJSON(w, http.StatusOK, formatResponse{
			Query:         req.FormattedQuery,
			DisplayString: req.DisplayString,
			Fqs:           req.FormattedFq,
			ActiveFacets:  facets,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
