// Package gateway is the only component that talks to the cart backend.
// Every call takes the session credential explicitly and never retries;
// retry and fallback policy belongs to the reconciliation engine.
package gateway

import (
	"context"

	"cartsync/internal/model"
)

// Gateway abstracts the backend's cart and wishlist endpoints.
//
// Failures are *model.SyncError values wrapping one of
// model.ErrUnauthorized, model.ErrItemNotFound, model.ErrLineNotFound,
// model.ErrUnreachable or model.ErrInvalidRequest.
type Gateway interface {
	// FetchCart returns the server's cart: lines with IDs and the computed total.
	FetchCart(ctx context.Context, credential string) (*model.AuthenticatedCart, error)

	// AddLine adds qty of itemID. The server merges into an existing line.
	AddLine(ctx context.Context, credential, itemID string, qty int) error

	// UpdateLine sets the quantity of a server line.
	UpdateLine(ctx context.Context, credential, lineID string, qty int) error

	// RemoveLine deletes a server line.
	RemoveLine(ctx context.Context, credential, lineID string) error

	// ClearCart removes every line.
	ClearCart(ctx context.Context, credential string) error

	// FetchWishlist returns the server's wishlist.
	FetchWishlist(ctx context.Context, credential string) (*model.Wishlist, error)

	// AddWishlistItem saves itemID. Adding a saved item is not an error.
	AddWishlistItem(ctx context.Context, credential, itemID string) error

	// RemoveWishlistItem drops itemID from the wishlist.
	RemoveWishlistItem(ctx context.Context, credential, itemID string) error

	// MoveWishlistItemToCart moves itemID from the wishlist into the cart.
	MoveWishlistItemToCart(ctx context.Context, credential, itemID string) error
}
