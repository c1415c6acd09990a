// Package cartapi is the UI-facing surface of the sync engine: mutation
// entry points plus normalized read views. It holds no state of its own.
package cartapi

import (
	"context"
	"encoding/json"

	"cartsync/internal/model"
	"cartsync/internal/reconcile"
)

// Engine is the subset of *reconcile.Engine the API drives.
type Engine interface {
	Login(ctx context.Context, credential string) error
	Logout(ctx context.Context) error
	AddItem(ctx context.Context, line model.CartLine) error
	UpdateQty(ctx context.Context, itemID string, qty int) error
	RemoveItem(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
	AddToWishlist(ctx context.Context, item model.WishlistItem) error
	RemoveFromWishlist(ctx context.Context, itemID string) error
	MoveToCart(ctx context.Context, itemID string) error
	ApplyPromotion(ctx context.Context, code string) (*model.AppliedPromotion, error)
	RemovePromotion(ctx context.Context) error
	Refresh(ctx context.Context) error
	Snapshot() reconcile.Snapshot
}

// AddItemRequest describes a product to put in the cart.
type AddItemRequest struct {
	ItemID    string          `json:"itemId"`
	Quantity  int             `json:"quantity"`
	UnitPrice model.Money     `json:"unitPrice"`
	Metadata  json.RawMessage `json:"displayMetadata,omitempty"`
}

// SessionView is the session as shown to the UI. The credential never leaves
// the engine.
type SessionView struct {
	Mode          model.Mode `json:"mode"`
	Authenticated bool       `json:"authenticated"`
}

// API is the public mutation API.
type API struct {
	engine Engine
}

// New wraps engine.
func New(engine Engine) *API {
	return &API{engine: engine}
}

// Login signs in. Guest cart migration continues in the background.
func (a *API) Login(ctx context.Context, credential string) error {
	return a.engine.Login(ctx, credential)
}

// Logout signs out and clears account state.
func (a *API) Logout(ctx context.Context) error {
	return a.engine.Logout(ctx)
}

// AddItem adds a product to the cart.
func (a *API) AddItem(ctx context.Context, req AddItemRequest) error {
	return a.engine.AddItem(ctx, model.CartLine{
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Metadata:  req.Metadata,
	})
}

// UpdateQty sets a line's quantity; zero removes it.
func (a *API) UpdateQty(ctx context.Context, itemID string, qty int) error {
	return a.engine.UpdateQty(ctx, itemID, qty)
}

// RemoveItem removes a line.
func (a *API) RemoveItem(ctx context.Context, itemID string) error {
	return a.engine.RemoveItem(ctx, itemID)
}

// Clear empties the cart.
func (a *API) Clear(ctx context.Context) error {
	return a.engine.Clear(ctx)
}

// AddToWishlist saves a product.
func (a *API) AddToWishlist(ctx context.Context, item model.WishlistItem) error {
	return a.engine.AddToWishlist(ctx, item)
}

// RemoveFromWishlist drops a saved product.
func (a *API) RemoveFromWishlist(ctx context.Context, itemID string) error {
	return a.engine.RemoveFromWishlist(ctx, itemID)
}

// MoveToCart moves a saved product into the cart.
func (a *API) MoveToCart(ctx context.Context, itemID string) error {
	return a.engine.MoveToCart(ctx, itemID)
}

// ApplyPromotion validates and applies a promotion code.
func (a *API) ApplyPromotion(ctx context.Context, code string) (*model.AppliedPromotion, error) {
	return a.engine.ApplyPromotion(ctx, code)
}

// RemovePromotion drops the applied promotion.
func (a *API) RemovePromotion(ctx context.Context) error {
	return a.engine.RemovePromotion(ctx)
}

// Refresh refetches server state now.
func (a *API) Refresh(ctx context.Context) error {
	return a.engine.Refresh(ctx)
}

// Cart returns the normalized cart view.
func (a *API) Cart() model.CartView {
	return a.engine.Snapshot().Cart
}

// Wishlist returns the saved items in order.
func (a *API) Wishlist() []model.WishlistItem {
	items := a.engine.Snapshot().Wishlist
	if items == nil {
		return []model.WishlistItem{}
	}
	return items
}

// Promotion returns the applied promotion, or nil.
func (a *API) Promotion() *model.AppliedPromotion {
	return a.engine.Snapshot().Promotion
}

// Session returns the current session mode.
func (a *API) Session() SessionView {
	s := a.engine.Snapshot().Session
	return SessionView{Mode: s.Mode, Authenticated: s.Authenticated()}
}

// CartItemCount sums line quantities. It is 0 until the cart has loaded.
func (a *API) CartItemCount() int {
	return a.Cart().ItemCount()
}

// WishlistItemCount returns the number of saved items.
func (a *API) WishlistItemCount() int {
	return len(a.engine.Snapshot().Wishlist)
}

// Message returns the short human-readable message for err.
func Message(err error) string {
	return model.UserMessage(err)
}

// Verify *reconcile.Engine satisfies Engine at compile time.
var _ Engine = (*reconcile.Engine)(nil)
