package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/lifecycle"
)

type Handler struct {
	service *Service
	pricing domain.Pricing
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(service *Service, pricing domain.Pricing, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}
}

// orderView adds the fields the dashboard derives for display.
type orderView struct {
	domain.Order
	Elapsed         *lifecycle.Elapsed `json:"elapsed,omitempty"`
	CompletionScore *int               `json:"completion_score,omitempty"`
}

func (h *Handler) view(order domain.Order) orderView {
	v := orderView{Order: order}
	switch order.Status {
	case domain.OrderStatusDelivered:
		if score, err := lifecycle.Score(order); err == nil {
			v.CompletionScore = &score
		}
	case domain.OrderStatusCancelled, domain.OrderStatusPaymentFailed:
	default:
		if elapsed, err := lifecycle.Classify(order.CreatedAt, h.now()); err == nil {
			v.Elapsed = &elapsed
		}
	}
	return v
}

type createOrderRequest struct {
	Customer      domain.Customer     `json:"customer"`
	Fulfillment   *domain.Fulfillment `json:"fulfillment"`
	ShippingInfo  *domain.Address     `json:"shipping_info"`
	Items         []domain.OrderItem  `json:"items"`
	Discount      decimal.Decimal     `json:"discount"`
	Totals        *domain.Totals      `json:"totals"`
	PaymentMethod string              `json:"payment_method"`
	Status        domain.OrderStatus  `json:"status"`
	Notes         string              `json:"notes"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Status {
	case "", domain.OrderStatusPending, domain.OrderStatusPaid:
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("orders cannot be created as %q", req.Status))
		return
	}

	var fulfillment domain.Fulfillment
	switch {
	case req.Fulfillment != nil:
		fulfillment = *req.Fulfillment
	case req.ShippingInfo != nil:
		fulfillment = domain.FulfillmentFromAddress(*req.ShippingInfo)
	default:
		h.writeError(w, http.StatusBadRequest, "fulfillment or shipping_info is required")
		return
	}

	totals := h.pricing.Quote(req.Items, req.Discount, fulfillment)
	if req.Totals != nil {
		totals = *req.Totals
	}

	order, err := h.service.Create(r.Context(), domain.OrderDraft{
		Customer:      req.Customer,
		Fulfillment:   fulfillment,
		Items:         req.Items,
		Totals:        totals,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create order")
		return
	}

	h.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "customer_email", order.Customer.Email)
	h.writeJSON(w, http.StatusCreated, h.view(*order))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get order")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, h.view(*order))
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Notes  *string            `json:"notes"`
}

type updateStatusResponse struct {
	Order    orderView `json:"order"`
	Changed  bool      `json:"changed"`
	Notified bool      `json:"notified"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.writeServiceError(w, err, "failed to update order status")
		return
	}

	h.logger.Info("order status update handled", "order_id", id, "status", result.Order.Status, "changed", result.Changed)
	h.writeJSON(w, http.StatusOK, updateStatusResponse{
		Order:    h.view(*result.Order),
		Changed:  result.Changed,
		Notified: result.Notified,
	})
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) HandleUnarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.SetArchived(r.Context(), id, archived)
	if err != nil {
		h.writeServiceError(w, err, "failed to archive order")
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(*order))
}

type listResponse struct {
	Orders []orderView `json:"orders"`
	Total  int         `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, page, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.List(r.Context(), q, page)
	if err != nil {
		h.writeServiceError(w, err, "failed to list orders")
		return
	}

	views := make([]orderView, len(result.Orders))
	for i, order := range result.Orders {
		views[i] = h.view(order)
	}

	h.logger.Info("orders listed", "count", len(views), "total", result.Total)
	h.writeJSON(w, http.StatusOK, listResponse{Orders: views, Total: result.Total, Page: result.Page, Limit: result.Limit})
}

func parseListQuery(v url.Values) (domain.OrderQuery, domain.Page, error) {
	var q domain.OrderQuery
	for _, raw := range strings.Split(v.Get("status"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" || raw == "all" {
			continue
		}
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return q, domain.Page{}, err
		}
		q.Statuses = append(q.Statuses, status)
	}
	q.Search = strings.TrimSpace(v.Get("search"))

	for key, dst := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		raw := v.Get(key)
		if raw == "" {
			continue
		}
		t, err := lifecycle.ParseTimestamp(raw)
		if err != nil {
			return q, domain.Page{}, err
		}
		*dst = &t
	}

	switch v.Get("archived") {
	case "", "false":
	case "true":
		q.ArchivedOnly = true
	case "all":
		q.IncludeArchived = true
	default:
		return q, domain.Page{}, fmt.Errorf("invalid archived filter %q", v.Get("archived"))
	}

	var page domain.Page
	for key, dst := range map[string]*int{"page": &page.Number, "limit": &page.Limit} {
		raw := v.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, domain.Page{}, fmt.Errorf("invalid %s %q", key, raw)
		}
		*dst = n
	}
	return q, page.Normalize(), nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidTimestamp):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrVersionConflict):
		h.writeError(w, http.StatusConflict, "order was modified by someone else, reload and retry")
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
