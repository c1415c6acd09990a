package reconcile

import (
	"context"
	"log/slog"
	"time"

	"cartsync/internal/model"
	"cartsync/internal/session"
	"cartsync/internal/store"
)

// startResync ticks a cart refetch for the lifetime of snap's session.
func (e *Engine) startResync(snap session.Snapshot) {
	if e.resyncInterval <= 0 {
		return
	}

	e.loops.Add(1)
	go func() {
		defer e.loops.Done()
		ticker := time.NewTicker(e.resyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-snap.Context.Done():
				return
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				e.enqueue("resync", func() { _ = e.resync(e.ctx, snap) })
			}
		}
	}()
}

// resync refetches the cart and logs any drift from the cached copy.
func (e *Engine) resync(parent context.Context, snap session.Snapshot) error {
	if !e.sessions.IsCurrent(snap.Generation) {
		return model.NewSessionChangedError()
	}
	ctx, cancel := e.bind(parent, snap)
	defer cancel()

	before := read(e, func(s *state) []model.CartLine {
		if s.auth == nil || !s.authLoaded {
			return nil
		}
		return s.auth.Clone().Lines
	})

	if err := e.refetchCart(ctx, snap); err != nil {
		return err
	}

	after := read(e, func(s *state) []model.CartLine { return s.auth.Clone().Lines })
	if diff := DiffLines(before, after); !diff.IsEmpty() {
		e.logger.Info("cart drifted from server",
			slog.Int("added", len(diff.Added)),
			slog.Int("removed", len(diff.Removed)),
			slog.Int("updated", len(diff.Updated)),
		)
	}
	return nil
}

// Refresh refetches the authenticated cart and wishlist now.
// It is a no-op for guests.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.doInSession(ctx, "refresh", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			return nil
		}
		if err := e.resync(ctx, snap); err != nil {
			return err
		}
		wctx, cancel := e.bind(ctx, snap)
		defer cancel()
		return e.refetchWishlist(wctx, snap)
	})
}

// restoreAuthenticatedCart loads the cached authenticated cart, discarding
// it when it cannot be trusted. loaded reports whether a usable cache exists.
func (e *Engine) restoreAuthenticatedCart(ctx context.Context) (cart *model.AuthenticatedCart, loaded bool) {
	cart, needsRepair := e.local.LoadAuthenticatedCart(ctx)
	if cart != nil && schemaOutdated(cart.SchemaVersion, e.minSchema) {
		e.logger.Warn("cached cart predates backend schema",
			slog.String("schema_version", cart.SchemaVersion),
			slog.String("minimum", e.minSchema),
		)
		needsRepair = true
	}

	if needsRepair {
		e.local.Delete(ctx, store.KeyAuthenticatedCart)
		e.logger.Info("discarded unusable authenticated cart cache")
		return &model.AuthenticatedCart{Lines: []model.CartLine{}}, false
	}
	if cart == nil {
		return &model.AuthenticatedCart{Lines: []model.CartLine{}}, false
	}
	return cart, true
}
