package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartsync/internal/cartapi"
	"cartsync/internal/gateway"
	"cartsync/internal/model"
	"cartsync/internal/reconcile"
	"cartsync/internal/session"
	"cartsync/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler wires a real engine over gw and an in-memory store.
func newTestHandler(t *testing.T, gw gateway.Gateway) (*Handler, *reconcile.Engine) {
	t.Helper()
	logger := testLogger()
	local := store.NewLocal(store.NewMemoryStore(), logger)

	engine, err := reconcile.New(reconcile.Config{
		Local:          local,
		Gateway:        gw,
		Sessions:       session.NewManager(context.Background(), local, logger),
		Logger:         logger,
		ResyncInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return New(cartapi.New(engine), logger), engine
}

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &gateway.Mock{})
	mux := newTestMux(h)

	for _, path := range []string{"/health", "/healthz"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("status = %q, want ok", resp.Status)
			}
		})
	}
}

func TestGetCart(t *testing.T) {
	h, _ := newTestHandler(t, &gateway.Mock{})
	mux := newTestMux(h)
	ctx := context.Background()

	if err := h.api.AddItem(ctx, cartapi.AddItemRequest{ItemID: "ring-7", Quantity: 2, UnitPrice: 6000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Session       cartapi.SessionView `json:"session"`
		Cart          model.CartView      `json:"cart"`
		CartItemCount int                 `json:"cartItemCount"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.Mode != model.ModeAnonymous {
		t.Errorf("mode = %q, want anonymous", resp.Session.Mode)
	}
	if resp.CartItemCount != 2 {
		t.Errorf("cartItemCount = %d, want 2", resp.CartItemCount)
	}
	if resp.Cart.TotalAmount != 12000 {
		t.Errorf("total = %s, want 120.00", resp.Cart.TotalAmount)
	}
}

func TestGetWishlist(t *testing.T) {
	h, _ := newTestHandler(t, &gateway.Mock{})
	mux := newTestMux(h)

	req := httptest.NewRequest(http.MethodGet, "/wishlist", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// An empty wishlist is [] rather than null.
	if got := string(resp["items"]); got != "[]" {
		t.Errorf("items = %s, want []", got)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, &gateway.Mock{})
	mux := newTestMux(h)

	req := httptest.NewRequest(http.MethodPost, "/cart", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.Money
		wantErr bool
	}{
		{"empty is zero", "", 0, false},
		{"decimal", "19.99", 1999, false},
		{"whole", "120", 12000, false},
		{"not a number", "cheap", 0, true},
		{"negative", "-1.00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePrice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePrice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parsePrice(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
