// Package store is the durable local key-value surface for cart, wishlist
// and session snapshots. Drivers hold opaque bytes; Local adds typed access.
package store

import (
	"context"
	"errors"
)

// Key names one persisted blob.
type Key string

const (
	KeySession           Key = "session"
	KeyGuestCart         Key = "cart.guest"
	KeyAuthenticatedCart Key = "cart.authenticated"
	KeyWishlist          Key = "wishlist"
)

var (
	// ErrInvalidStoreType is returned by NewStore for an unknown driver.
	ErrInvalidStoreType = errors.New("store: invalid store type")
	// ErrInvalidConfig is returned when a driver is missing required options.
	ErrInvalidConfig = errors.New("store: invalid config")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store is a durable key-value store. Implementations apply no validation
// and no merge logic; the last write wins.
type Store interface {
	// Read returns the stored value. found is false if the key is absent.
	Read(ctx context.Context, key Key) (value []byte, found bool, err error)

	// Write replaces the value for key.
	Write(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// Close releases driver resources.
	Close() error
}
