package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
	"github.com/ariefcatur/go-restaurant-pos/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type MenuStore interface {
	List(ctx context.Context, tenantID, category string) ([]menu.Item, error)
	Get(ctx context.Context, tenantID, id string) (menu.Item, error)
}

type MenuHandler struct {
	Repo  MenuStore
	Redis redis.Cmdable
	Log   *logger.Logger
}

func (h *MenuHandler) Register(r chi.Router) {
	r.Get("/menu", h.list)
	r.Get("/menu/{id}", h.get)
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	tenant := TenantFrom(r.Context())
	category := r.URL.Query().Get("category")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyMenu, tenant, category)
	if s, ok, err := redisx.GetString(ctx, h.Redis, key); err == nil && ok {
		writeData(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB, lalu isi cache
	items, err := h.Repo.List(ctx, tenant, category)
	if err != nil {
		h.Log.Error("menu_list", "failed to load menu", err, "tenant", tenant)
		writeError(w, http.StatusInternalServerError, "failed to load menu")
		return
	}
	if b, err := json.Marshal(items); err == nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLMenuCache).Err()
	}
	writeData(w, http.StatusOK, items)
}

func (h *MenuHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	it, err := h.Repo.Get(ctx, TenantFrom(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, menu.ErrNotFound) {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}
	if err != nil {
		h.Log.Error("menu_get", "failed to load menu item", err)
		writeError(w, http.StatusInternalServerError, "failed to load menu item")
		return
	}
	writeData(w, http.StatusOK, it)
}
