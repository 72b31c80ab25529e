package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/cart"
	"github.com/ariefcatur/go-restaurant-pos/internal/checkout"
	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
	"github.com/ariefcatur/go-restaurant-pos/internal/menucache"
	"github.com/ariefcatur/go-restaurant-pos/internal/offline"
	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// POSHandler is the terminal's local surface for the UI shell. Nothing here
// needs the network except menu refresh, checkout and flush.
type POSHandler struct {
	Cart      *cart.Cart
	Menu      *menucache.Cache
	Submitter *checkout.Submitter
	Queue     *offline.Queue
	Online    func() bool
	Log       *logger.Logger
}

type addItemReq struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type setQtyReq struct {
	Quantity int `json:"quantity"`
}

type adjustReq struct {
	Tip      *decimal.Decimal `json:"tip"`
	Discount *decimal.Decimal `json:"discount"`
}

type terminalStatus struct {
	Online      bool      `json:"online"`
	Pending     int       `json:"pending"`
	MenuUpdated time.Time `json:"menuUpdated"`
}

func (h *POSHandler) Register(r chi.Router) {
	r.Get("/status", h.status)

	r.Get("/menu", h.menu)
	r.Post("/menu/refresh", h.refreshMenu)
	r.Get("/menu/categories", h.categories)

	r.Get("/cart", h.cart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{itemId}", h.setQuantity)
	r.Delete("/cart", h.clearCart)
	r.Put("/cart/adjustments", h.adjust)

	r.Post("/checkout", h.checkout)

	r.Get("/offline/orders", h.offlineOrders)
	r.Post("/offline/flush", h.flush)
	r.Post("/offline/orders/{id}/retry", h.retry)

	r.Get("/orders/confirmed", h.confirmed)
}

func (h *POSHandler) status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Queue.ListPending(r.Context())
	if err != nil {
		h.Log.Error("pos_status", "failed to read offline queue", err)
		writeError(w, http.StatusInternalServerError, "failed to read offline queue")
		return
	}
	st := terminalStatus{Pending: len(pending), MenuUpdated: h.Menu.Get().LastUpdated}
	if h.Online != nil {
		st.Online = h.Online()
	}
	writeData(w, http.StatusOK, st)
}

func (h *POSHandler) menu(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.Menu.Get())
}

func (h *POSHandler) refreshMenu(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Menu.Refresh(r.Context())
	if err != nil {
		h.Log.Warn("menu_refresh", "menu refresh failed, serving cached copy", "error", err.Error())
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeData(w, http.StatusOK, snap)
}

// categories feeds the category tabs; served from the cached menu.
func (h *POSHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats := h.Menu.Categories()
	if cats == nil {
		cats = []string{}
	}
	writeData(w, http.StatusOK, cats)
}

func (h *POSHandler) cart(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.Cart.Snapshot())
}

func (h *POSHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	it, ok := h.Menu.Find(req.ItemID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("menu item %q not found", req.ItemID))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := h.Cart.AddItem(it, req.Quantity, req.Notes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, h.Cart.Snapshot())
}

func (h *POSHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQtyReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.Cart.SetQuantity(chi.URLParam(r, "itemId"), req.Quantity)
	writeData(w, http.StatusOK, h.Cart.Snapshot())
}

func (h *POSHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.Cart.Clear()
	writeData(w, http.StatusOK, h.Cart.Snapshot())
}

func (h *POSHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Tip != nil {
		if err := h.Cart.SetTip(*req.Tip); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Discount != nil {
		if err := h.Cart.SetDiscount(*req.Discount); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeData(w, http.StatusOK, h.Cart.Snapshot())
}

func (h *POSHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var opt checkout.Options
	if err := decodeJSON(w, r, &opt); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.Submitter.Submit(r.Context(), opt)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), orders.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Log.Error("pos_checkout", "checkout failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusCreated
	if res.Queued {
		code = http.StatusAccepted
	}
	writeData(w, code, res)
}

func (h *POSHandler) offlineOrders(w http.ResponseWriter, r *http.Request) {
	status := offline.Status(r.URL.Query().Get("status"))
	switch status {
	case "", offline.StatusPending, offline.StatusSynced, offline.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}
	list, err := h.Queue.List(r.Context(), status)
	if err != nil {
		h.Log.Error("pos_offline_list", "failed to read offline queue", err)
		writeError(w, http.StatusInternalServerError, "failed to read offline queue")
		return
	}
	if list == nil {
		list = []offline.Order{}
	}
	writeData(w, http.StatusOK, list)
}

func (h *POSHandler) flush(w http.ResponseWriter, r *http.Request) {
	// dibatasi timeout router; sisa antrian diambil Syncer
	rep, err := h.Queue.Flush(r.Context())
	if err != nil {
		h.Log.Error("pos_flush", "manual flush aborted", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, rep)
}

func (h *POSHandler) retry(w http.ResponseWriter, r *http.Request) {
	o, err := h.Queue.Retry(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, offline.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, offline.ErrAlreadySynced):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.Log.Error("pos_retry", "failed to requeue order", err)
		writeError(w, http.StatusInternalServerError, "failed to requeue order")
	default:
		writeData(w, http.StatusOK, o)
	}
}

func (h *POSHandler) confirmed(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.Submitter.Confirmed())
}
