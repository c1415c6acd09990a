package cartapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cartsync/internal/gateway"
	"cartsync/internal/model"
	"cartsync/internal/reconcile"
	"cartsync/internal/session"
	"cartsync/internal/store"
)

func newTestAPI(t *testing.T, gw gateway.Gateway) (*API, *reconcile.Engine, *store.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemoryStore()
	local := store.NewLocal(mem, logger)

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
	return New(engine), engine, mem
}

func TestAPI_RingScenario(t *testing.T) {
	var added []string
	gw := &gateway.Mock{
		AddLineFunc: func(_ context.Context, credential, itemID string, qty int) error {
			if credential != "tok-1" {
				t.Errorf("credential = %q, want tok-1", credential)
			}
			added = append(added, itemID)
			return nil
		},
		FetchCartFunc: func(context.Context, string) (*model.AuthenticatedCart, error) {
			return &model.AuthenticatedCart{
				Lines:       []model.CartLine{{LineID: "L1", ItemID: "ring-7", Quantity: 1, UnitPrice: 12000}},
				TotalAmount: 12000,
			}, nil
		},
	}
	api, engine, mem := newTestAPI(t, gw)
	ctx := context.Background()

	if err := api.AddItem(ctx, AddItemRequest{ItemID: "ring-7", Quantity: 1, UnitPrice: 12000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if n := api.CartItemCount(); n != 1 {
		t.Fatalf("CartItemCount() = %d, want 1", n)
	}

	if err := api.Login(ctx, "tok-1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !api.Session().Authenticated {
		t.Error("Session() should be authenticated right after Login")
	}
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(added) != 1 || added[0] != "ring-7" {
		t.Errorf("migrated = %v, want [ring-7]", added)
	}
	if n := api.CartItemCount(); n != 1 {
		t.Errorf("CartItemCount() = %d, want 1", n)
	}
	if total := api.Cart().TotalAmount.String(); total != "120.00" {
		t.Errorf("total = %s, want 120.00", total)
	}
	if _, found, _ := mem.Read(ctx, store.KeyGuestCart); found {
		t.Error("cart.guest still persisted")
	}
}

func TestAPI_ItemCountZeroUntilLoaded(t *testing.T) {
	release := make(chan struct{})
	gw := &gateway.Mock{
		FetchCartFunc: func(ctx context.Context, _ string) (*model.AuthenticatedCart, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, model.NewUnreachableError("fetchCart", ctx.Err())
			}
			return &model.AuthenticatedCart{Lines: []model.CartLine{{LineID: "L1", ItemID: "X", Quantity: 3}}}, nil
		},
	}
	api, engine, _ := newTestAPI(t, gw)
	ctx := context.Background()

	if err := api.Login(ctx, "tok-1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if cart := api.Cart(); cart.Loaded || api.CartItemCount() != 0 {
		t.Errorf("cart before fetch = %+v, want not loaded with 0 items", cart)
	}

	close(release)
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := api.CartItemCount(); n != 3 {
		t.Errorf("CartItemCount() = %d, want 3", n)
	}
}

func TestAPI_WishlistViews(t *testing.T) {
	api, _, _ := newTestAPI(t, &gateway.Mock{})
	ctx := context.Background()

	if items := api.Wishlist(); items == nil || len(items) != 0 {
		t.Errorf("Wishlist() = %#v, want empty non-nil slice", items)
	}

	_ = api.AddToWishlist(ctx, model.WishlistItem{ItemID: "a"})
	_ = api.AddToWishlist(ctx, model.WishlistItem{ItemID: "b"})
	_ = api.AddToWishlist(ctx, model.WishlistItem{ItemID: "a"})
	if n := api.WishlistItemCount(); n != 2 {
		t.Errorf("WishlistItemCount() = %d, want 2", n)
	}

	_ = api.RemoveFromWishlist(ctx, "a")
	if items := api.Wishlist(); len(items) != 1 || items[0].ItemID != "b" {
		t.Errorf("Wishlist() = %+v, want [b]", items)
	}
}

func TestAPI_SessionViewHidesCredential(t *testing.T) {
	api, _, _ := newTestAPI(t, &gateway.Mock{})

	if s := api.Session(); s.Authenticated || s.Mode != model.ModeAnonymous {
		t.Errorf("Session() = %+v, want anonymous", s)
	}
	_ = api.Login(context.Background(), "secret-token")
	if s := api.Session(); !s.Authenticated || s.Mode != model.ModeAuthenticated {
		t.Errorf("Session() = %+v, want authenticated", s)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"stale", model.NewStaleLineError("X"), "This item is out of date. Remove it and add it again."},
		{"unauthorized", model.NewUnauthorizedError("expired"), "Your session has expired. Please sign in again."},
		{"internal", errors.New("sql: connection refused"), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
