package gateway

import (
	"context"

	"cartsync/internal/model"
)

// Mock implements Gateway for testing.
// Each method can be configured via function fields; unset fields succeed
// with empty results.
type Mock struct {
	FetchCartFunc              func(ctx context.Context, credential string) (*model.AuthenticatedCart, error)
	AddLineFunc                func(ctx context.Context, credential, itemID string, qty int) error
	UpdateLineFunc             func(ctx context.Context, credential, lineID string, qty int) error
	RemoveLineFunc             func(ctx context.Context, credential, lineID string) error
	ClearCartFunc              func(ctx context.Context, credential string) error
	FetchWishlistFunc          func(ctx context.Context, credential string) (*model.Wishlist, error)
	AddWishlistItemFunc        func(ctx context.Context, credential, itemID string) error
	RemoveWishlistItemFunc     func(ctx context.Context, credential, itemID string) error
	MoveWishlistItemToCartFunc func(ctx context.Context, credential, itemID string) error
}

// FetchCart calls FetchCartFunc or returns an empty cart.
func (m *Mock) FetchCart(ctx context.Context, credential string) (*model.AuthenticatedCart, error) {
	if m.FetchCartFunc != nil {
		return m.FetchCartFunc(ctx, credential)
	}
	return &model.AuthenticatedCart{Lines: []model.CartLine{}}, nil
}

// AddLine calls AddLineFunc.
func (m *Mock) AddLine(ctx context.Context, credential, itemID string, qty int) error {
	if m.AddLineFunc != nil {
		return m.AddLineFunc(ctx, credential, itemID, qty)
	}
	return nil
}

// UpdateLine calls UpdateLineFunc.
func (m *Mock) UpdateLine(ctx context.Context, credential, lineID string, qty int) error {
	if m.UpdateLineFunc != nil {
		return m.UpdateLineFunc(ctx, credential, lineID, qty)
	}
	return nil
}

// RemoveLine calls RemoveLineFunc.
func (m *Mock) RemoveLine(ctx context.Context, credential, lineID string) error {
	if m.RemoveLineFunc != nil {
		return m.RemoveLineFunc(ctx, credential, lineID)
	}
	return nil
}

// ClearCart calls ClearCartFunc.
func (m *Mock) ClearCart(ctx context.Context, credential string) error {
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx, credential)
	}
	return nil
}

// FetchWishlist calls FetchWishlistFunc or returns an empty wishlist.
func (m *Mock) FetchWishlist(ctx context.Context, credential string) (*model.Wishlist, error) {
	if m.FetchWishlistFunc != nil {
		return m.FetchWishlistFunc(ctx, credential)
	}
	return &model.Wishlist{}, nil
}

// AddWishlistItem calls AddWishlistItemFunc.
func (m *Mock) AddWishlistItem(ctx context.Context, credential, itemID string) error {
	if m.AddWishlistItemFunc != nil {
		return m.AddWishlistItemFunc(ctx, credential, itemID)
	}
	return nil
}

// RemoveWishlistItem calls RemoveWishlistItemFunc.
func (m *Mock) RemoveWishlistItem(ctx context.Context, credential, itemID string) error {
	if m.RemoveWishlistItemFunc != nil {
		return m.RemoveWishlistItemFunc(ctx, credential, itemID)
	}
	return nil
}

// MoveWishlistItemToCart calls MoveWishlistItemToCartFunc.
func (m *Mock) MoveWishlistItemToCart(ctx context.Context, credential, itemID string) error {
	if m.MoveWishlistItemToCartFunc != nil {
		return m.MoveWishlistItemToCartFunc(ctx, credential, itemID)
	}
	return nil
}

// Verify Mock implements Gateway interface at compile time.
var _ Gateway = (*Mock)(nil)
