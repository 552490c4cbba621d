package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// Source loads every order matching a query.
type Source interface {
	FindAll(ctx context.Context, q domain.OrderQuery) ([]domain.Order, error)
}

// CacheRecorder is notified of cache lookups.
type CacheRecorder interface {
	RecordCacheLookup(ctx context.Context, hit bool)
}

type Handler struct {
	source   Source
	cache    Cache
	recorder CacheRecorder
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

type HandlerOption func(*Handler)

func WithCache(cache Cache, ttl time.Duration) HandlerOption {
	return func(h *Handler) {
		h.cache = cache
		h.ttl = ttl
	}
}

func WithCacheRecorder(r CacheRecorder) HandlerOption {
	return func(h *Handler) {
		h.recorder = r
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

func NewHandler(source Source, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		source: source,
		logger: logger,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := q.CacheKey()
	if h.cache != nil {
		cached, err := h.cache.Get(r.Context(), key)
		if err != nil {
			h.logger.Warn("analytics cache read failed", "error", err, "key", key)
		}
		if h.recorder != nil {
			h.recorder.RecordCacheLookup(r.Context(), cached != nil)
		}
		if cached != nil {
			h.logger.Info("analytics report served from cache", "key", key)
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	report, err := h.Build(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to build analytics report", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, report, h.ttl); err != nil {
			h.logger.Warn("analytics cache write failed", "error", err, "key", key)
		}
	}

	h.logger.Info("analytics report built", "period", q.Period, "group_by", q.GroupBy, "orders", report.Totals.OrderCount)
	h.writeJSON(w, http.StatusOK, report)
}

// Build loads the matching orders and summarizes them.
func (h *Handler) Build(ctx context.Context, q Query) (Report, error) {
	now := h.now()
	rng := q.Range(now)

	orders, err := h.source.FindAll(ctx, q.OrderQuery(rng))
	if err != nil {
		return Report{}, err
	}
	return Summarize(orders, q, rng, now), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
