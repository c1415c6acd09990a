package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"cartsync/internal/model"
)

// Local is the typed view of a Store used by the session manager and engine.
// Read failures and corrupt blobs are logged and reported as absent; write
// failures are logged and swallowed so in-memory state stays authoritative.
type Local struct {
	store  Store
	logger *slog.Logger
}

// NewLocal wraps s.
func NewLocal(s Store, logger *slog.Logger) *Local {
	return &Local{store: s, logger: logger}
}

// LoadSession returns the persisted session, or an anonymous one.
func (l *Local) LoadSession(ctx context.Context) model.Session {
	var s model.Session
	if !l.load(ctx, KeySession, &s) {
		return model.AnonymousSession()
	}
	if s.Mode != model.ModeAuthenticated || s.Credential == "" {
		return model.AnonymousSession()
	}
	return s
}

// SaveSession persists s.
func (l *Local) SaveSession(ctx context.Context, s model.Session) {
	l.save(ctx, KeySession, s)
}

// LoadGuestCart returns the persisted guest cart, or an empty one.
func (l *Local) LoadGuestCart(ctx context.Context) *model.GuestCart {
	var c model.GuestCart
	if !l.load(ctx, KeyGuestCart, &c) {
		return &model.GuestCart{}
	}
	return &c
}

// SaveGuestCart persists c as a bare array of lines.
func (l *Local) SaveGuestCart(ctx context.Context, c *model.GuestCart) {
	l.save(ctx, KeyGuestCart, c)
}

// LoadAuthenticatedCart returns the cached authenticated cart, or nil if none
// is persisted. needsRepair is set when a blob exists but cannot serve as an
// authenticated cache: corrupt JSON, guest format (bare array), or lines
// without server IDs. In that case cart is nil.
func (l *Local) LoadAuthenticatedCart(ctx context.Context) (cart *model.AuthenticatedCart, needsRepair bool) {
	data, ok := l.read(ctx, KeyAuthenticatedCart)
	if !ok {
		return nil, false
	}
	if model.IsGuestFormat(data) {
		l.logger.Warn("persisted authenticated cart is in guest format",
			slog.String("key", string(KeyAuthenticatedCart)),
		)
		return nil, true
	}
	cart, err := model.DecodeAuthenticatedCart(data)
	if err != nil {
		l.logger.Warn("discarding corrupt persisted blob",
			slog.String("key", string(KeyAuthenticatedCart)),
			slog.String("error", err.Error()),
		)
		return nil, true
	}
	if cart.HasUnsyncedLines() {
		l.logger.Warn("persisted authenticated cart has lines without server IDs",
			slog.String("key", string(KeyAuthenticatedCart)),
		)
		return nil, true
	}
	return cart, false
}

// SaveAuthenticatedCart persists the server's cart snapshot.
func (l *Local) SaveAuthenticatedCart(ctx context.Context, c *model.AuthenticatedCart) {
	l.save(ctx, KeyAuthenticatedCart, c)
}

// LoadWishlist returns the persisted wishlist, or an empty one.
func (l *Local) LoadWishlist(ctx context.Context) *model.Wishlist {
	var w model.Wishlist
	if !l.load(ctx, KeyWishlist, &w) {
		return &model.Wishlist{}
	}
	return &w
}

// SaveWishlist persists w.
func (l *Local) SaveWishlist(ctx context.Context, w *model.Wishlist) {
	l.save(ctx, KeyWishlist, w)
}

// Delete removes each key, logging failures.
func (l *Local) Delete(ctx context.Context, keys ...Key) {
	for _, k := range keys {
		if err := l.store.Delete(ctx, k); err != nil {
			l.logger.Warn("persisted delete failed",
				slog.String("key", string(k)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (l *Local) read(ctx context.Context, key Key) ([]byte, bool) {
	data, found, err := l.store.Read(ctx, key)
	if err != nil {
		l.logger.Warn("persisted read failed",
			slog.String("key", string(key)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return data, found
}

func (l *Local) load(ctx context.Context, key Key, v any) bool {
	data, ok := l.read(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		l.logger.Warn("discarding corrupt persisted blob",
			slog.String("key", string(key)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (l *Local) save(ctx context.Context, key Key, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.logger.Error("persisted encode failed",
			slog.String("key", string(key)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := l.store.Write(ctx, key, data); err != nil {
		l.logger.Warn("persisted write failed",
			slog.String("key", string(key)),
			slog.String("error", err.Error()),
		)
	}
}
