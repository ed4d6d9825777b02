package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/inqbatorchris/aimee-sub007/internal/db"
	"github.com/inqbatorchris/aimee-sub007/internal/metrics"
	"github.com/inqbatorchris/aimee-sub007/internal/session"
)

type Handler struct {
	log      zerolog.Logger
	pool     *db.Pool
	sessions *session.Registry
	metrics  *metrics.Metrics
}

// NewHandler wires the HTTP surface. pool may be nil when the service runs on the
// in-memory store.
func NewHandler(log zerolog.Logger, pool *db.Pool, sessions *session.Registry, m *metrics.Metrics) *Handler {
	return &Handler{log: log, pool: pool, sessions: sessions, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.handleCreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetSession)
					r.Delete("/", h.handleDeleteSession)
					r.Post("/refresh", h.handleRefresh)
					r.Put("/filter", h.handleSetFilter)
					r.Get("/nodes", h.handleListNodes)
					r.Get("/cables", h.handleListCables)
					r.Get("/geometry", h.handleGeometry)
					r.Get("/notifications", h.handleNotifications)
					r.Post("/notifications/drain", h.handleDrainNotifications)

					r.Post("/mode", h.handleEnterMode)
					r.Delete("/mode", h.handleExitMode)

					r.Route("/events", func(r chi.Router) {
						r.Post("/map-click", h.handleMapClick)
						r.Post("/marker-click", h.handleMarkerClick)
					})

					r.Route("/selection", func(r chi.Router) {
						r.Post("/finish", h.handleFinishPolygon)
						r.Delete("/", h.handleClearSelection)
						r.Post("/status", h.handleBulkStatus)
					})

					r.Route("/drafts", func(r chi.Router) {
						r.Post("/node", h.handleConfirmNode)
						r.Delete("/node", h.handleDiscardNode)
						r.Post("/cable", h.handleConfirmCable)
						r.Delete("/cable", h.handleDiscardCable)
					})

					r.Route("/cable-edit", func(r chi.Router) {
						r.Post("/", h.handleBeginCableEdit)
						r.Delete("/", h.handleCancelCableEdit)
						r.Post("/save", h.handleSaveCableEdit)
						r.Post("/waypoints", h.handleInsertWaypoint)
						r.Put("/waypoints/{index}", h.handleMoveWaypoint)
						r.Delete("/waypoints/{index}", h.handleRemoveWaypoint)
					})
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "store": "memory"})
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "store": "postgres"})
}
