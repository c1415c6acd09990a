package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cartsync/internal/model"
	"cartsync/internal/session"
	"cartsync/internal/store"
)

// Login signs in with credential. It returns once the session has switched;
// migration of the guest cart and the wishlist load run in the background.
func (e *Engine) Login(ctx context.Context, credential string) error {
	return e.do(ctx, "login", func(ctx context.Context) error {
		guest := read(e, func(s *state) *model.GuestCart { return s.guest.Clone() })

		snap, err := e.sessions.Login(credential)
		if err != nil {
			return err
		}

		// Guest wishlist items are not carried over. Until the server copy
		// arrives the account's wishlist reads as empty.
		e.local.Delete(e.persist, store.KeyWishlist)
		e.update(func(s *state) {
			s.guest = &model.GuestCart{}
			s.auth = &model.AuthenticatedCart{Lines: []model.CartLine{}}
			s.authLoaded = false
			s.wishlist = &model.Wishlist{}
			s.promotion = nil
		})

		e.logger.Info("signed in",
			slog.Uint64("generation", snap.Generation),
			slog.Int("guest_lines", len(guest.Lines)),
		)

		e.enqueue("migrate", func() { e.migrate(snap, guest) })
		e.startResync(snap)
		return nil
	})
}

// Logout signs out. The session's in-flight calls are cancelled immediately;
// the state cleanup runs on the worker and Logout waits for it.
func (e *Engine) Logout(ctx context.Context) error {
	if !e.sessions.Current().Authenticated() {
		return model.NewValidationError("session", "not signed in")
	}
	prev := e.sessions.Logout()
	e.logger.Info("signed out", slog.Uint64("generation", prev.Generation))

	// The cleanup must run even if ctx is already done.
	return e.do(context.WithoutCancel(ctx), "logout", func(context.Context) error {
		e.clearAccountState()
		return nil
	})
}

// migrate copies the guest lines captured at login into the server cart,
// one at a time and in order. A line that fails is dropped, never retried.
func (e *Engine) migrate(snap session.Snapshot, guest *model.GuestCart) {
	ctx, cancel := e.bind(e.ctx, snap)
	defer cancel()

	start := time.Now()
	migrated, dropped := 0, 0
	for i, line := range guest.Lines {
		if ctx.Err() != nil {
			dropped += len(guest.Lines) - i
			break
		}
		err := e.gateway.AddLine(ctx, snap.Session.Credential, line.ItemID, line.Quantity)
		if err == nil {
			migrated++
			continue
		}
		if errors.Is(err, model.ErrUnauthorized) {
			dropped += len(guest.Lines) - i
			e.fail(snap, "migrate", err)
			break
		}
		dropped++
		e.logger.Warn("dropping guest line that failed to migrate",
			slog.String("item_id", line.ItemID),
			slog.Int("quantity", line.Quantity),
			slog.String("error", err.Error()),
		)
	}

	// At-most-once: the guest copy goes whatever happened above.
	e.local.Delete(e.persist, store.KeyGuestCart)

	e.logger.Info("guest cart migration finished",
		slog.Int("migrated", migrated),
		slog.Int("dropped", dropped),
		slog.Duration("duration", time.Since(start)),
	)

	if !e.sessions.IsCurrent(snap.Generation) {
		return
	}
	_ = e.refresh(ctx, snap)
}

// refresh refetches both the cart and the wishlist for snap.
func (e *Engine) refresh(ctx context.Context, snap session.Snapshot) error {
	if err := e.refetchCart(ctx, snap); err != nil {
		if !e.sessions.IsCurrent(snap.Generation) {
			return err
		}
		_ = e.refetchWishlist(ctx, snap)
		return err
	}
	return e.refetchWishlist(ctx, snap)
}

// refetchCart replaces the authenticated snapshot with the server's.
// On failure the prior snapshot is kept.
func (e *Engine) refetchCart(ctx context.Context, snap session.Snapshot) error {
	cart, err := e.gateway.FetchCart(ctx, snap.Session.Credential)
	if err != nil {
		return e.fail(snap, "fetchCart", err)
	}
	if !e.sessions.IsCurrent(snap.Generation) {
		return model.NewSessionChangedError()
	}
	if cart.Lines == nil {
		cart.Lines = []model.CartLine{}
	}

	e.local.SaveAuthenticatedCart(e.persist, cart)
	e.update(func(s *state) {
		s.auth = cart
		s.authLoaded = true
	})
	return nil
}

// refetchWishlist replaces the wishlist snapshot with the server's.
func (e *Engine) refetchWishlist(ctx context.Context, snap session.Snapshot) error {
	wishlist, err := e.gateway.FetchWishlist(ctx, snap.Session.Credential)
	if err != nil {
		return e.fail(snap, "fetchWishlist", err)
	}
	if !e.sessions.IsCurrent(snap.Generation) {
		return model.NewSessionChangedError()
	}
	if wishlist == nil {
		wishlist = &model.Wishlist{}
	}

	prev := read(e, func(s *state) *model.Wishlist { return s.wishlist.Clone() })
	if diff := DiffWishlist(prev, wishlist); !diff.IsEmpty() {
		e.logger.Debug("wishlist changed on server",
			slog.Any("added", diff.Added),
			slog.Any("removed", diff.Removed),
		)
	}

	e.local.SaveWishlist(e.persist, wishlist)
	e.update(func(s *state) { s.wishlist = wishlist })
	return nil
}
