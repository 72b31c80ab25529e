package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type OrderStore interface {
	Create(ctx context.Context, tenantID string, req orders.CreateRequest) (orders.Order, bool, error)
	Get(ctx context.Context, tenantID, id string) (orders.Order, error)
	List(ctx context.Context, tenantID string, status orders.Status, limit int) ([]orders.Order, error)
	GetStatus(ctx context.Context, tenantID, id string) (orders.Status, error)
	TransitionStatus(ctx context.Context, tenantID, id string, to orders.Status) (orders.Status, error)
	Sales(ctx context.Context, tenantID string, from, to time.Time) (orders.SalesSummary, error)
}

type OrdersHandler struct {
	Repo    OrderStore
	Events  orders.Emitter
	Redis   redis.Cmdable
	Service string
	Log     *logger.Logger
	Now     func() time.Time
}

type statusBody struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Get("/analytics/sales", h.salesToday)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenant := TenantFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; DB tetap jadi kebenaran
	if req.ExternalID != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, tenant, req.ExternalID)
		if id, ok, _ := redisx.GetString(ctx, h.Redis, idemKey); ok {
			if o, err := h.Repo.Get(ctx, tenant, id); err == nil {
				writeData(w, http.StatusOK, o)
				return
			}
		}
	}

	o, existed, err := h.Repo.Create(ctx, tenant, req)
	if err != nil {
		h.fail(w, "order_create", err)
		return
	}

	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyIdemOrderCreate, tenant, o.ExternalID), o.ID, redisx.TTLIdempotency).Err()
	if existed {
		writeData(w, http.StatusOK, o)
		return
	}
	h.cacheStatus(ctx, tenant, o.ID, o.Status)

	env, err := orders.NewEnvelope(orders.EventOrderPlaced, h.Service, tenant, o.ID, traceID(r),
		orders.OrderPlacedPayload{
			OrderID:    o.ID,
			ExternalID: o.ExternalID,
			OrderType:  o.OrderType,
			Table:      o.TableNumber,
			Items:      o.Items,
			Total:      o.Total,
		})
	if err == nil {
		err = orders.Publish(ctx, h.Events, orders.TopicOrderPlaced, env)
	}
	if err != nil {
		// order sudah commit; event gagal cukup di-log
		h.Log.Error("order_event", "failed to publish OrderPlaced", err, "order_id", o.ID)
	}

	h.Log.Info("order_created", "order placed", "tenant", tenant, "order_id", o.ID, "total", o.Total.String())
	writeData(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := orders.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}
	limit := 50
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.List(ctx, TenantFrom(r.Context()), status, limit)
	if err != nil {
		h.fail(w, "order_list", err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeData(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.Get(ctx, TenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "order_get", err)
		return
	}
	writeData(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	tenant, id := TenantFrom(r.Context()), chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, tenant, id)
	if s, ok, err := redisx.GetString(ctx, h.Redis, key); err == nil && ok {
		writeData(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	status, err := h.Repo.GetStatus(ctx, tenant, id)
	if err != nil {
		h.fail(w, "order_status", err)
		return
	}
	h.cacheStatus(ctx, tenant, id, status)
	writeData(w, http.StatusOK, statusBody{Status: status})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	tenant, id := TenantFrom(r.Context()), chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from, err := h.Repo.TransitionStatus(ctx, tenant, id, req.Status)
	if err != nil {
		h.fail(w, "order_transition", err)
		return
	}
	h.cacheStatus(ctx, tenant, id, req.Status)

	env, err := orders.NewEnvelope(orders.EventOrderStatusChanged, h.Service, tenant, id, traceID(r),
		orders.OrderStatusChangedPayload{OrderID: id, From: from, To: req.Status})
	if err == nil {
		err = orders.Publish(ctx, h.Events, orders.TopicOrderStatusChanged, env)
	}
	if err != nil {
		h.Log.Error("order_event", "failed to publish OrderStatusChanged", err, "order_id", id)
	}

	o, err := h.Repo.Get(ctx, tenant, id)
	if err != nil {
		h.fail(w, "order_get", err)
		return
	}
	h.Log.Info("order_status_changed", "order moved", "order_id", id, "from", string(from), "to", string(req.Status))
	writeData(w, http.StatusOK, o)
}

// salesToday: hari berjalan dalam UTC, order cancelled tidak dihitung.
func (h *OrdersHandler) salesToday(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	start := now().UTC().Truncate(24 * time.Hour)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Repo.Sales(ctx, TenantFrom(r.Context()), start, start.Add(24*time.Hour))
	if err != nil {
		h.fail(w, "sales_summary", err)
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, tenant, id string, s orders.Status) {
	b, _ := json.Marshal(statusBody{Status: s})
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, tenant, id), b, redisx.TTLStatusCache).Err()
}

// fail maps domain errors to status codes; anything else is a 500.
func (h *OrdersHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case orders.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrItemNotFound), errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error(action, "request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func traceID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return chimw.GetReqID(r.Context())
}
