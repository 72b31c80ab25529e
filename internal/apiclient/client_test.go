package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/orders"
	"github.com/shopspring/decimal"
)

func TestMenu(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/menu" || r.Header.Get("X-Tenant-ID") != "demo" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"es-teh","name":"Es Teh","price":"80","category":"drinks","available":true}]}`))
	}))
	defer srv.Close()

	items, err := New(srv.URL, "demo", time.Second).Menu(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "es-teh" || !items[0].Price.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("items = %+v", items)
	}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req orders.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    orders.Order{ID: "srv-1", ExternalID: req.ExternalID, Status: orders.StatusPlaced},
		})
	}))
	defer srv.Close()

	o, err := New(srv.URL, "demo", time.Second).CreateOrder(context.Background(), orders.CreateRequest{
		ExternalID: "local-1",
		Items:      []orders.ItemInput{{MenuItemID: "es-teh", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "srv-1" || o.ExternalID != "local-1" {
		t.Fatalf("order = %+v", o)
	}
}

func TestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"menu item not found"}`))
		case "/api/menu":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "demo", 50*time.Millisecond)

	_, err := c.CreateOrder(context.Background(), orders.CreateRequest{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Message != "menu item not found" {
		t.Fatalf("err = %v", err)
	}

	if _, err := c.Menu(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}

	if err := New("http://127.0.0.1:1", "demo", time.Second).Health(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
