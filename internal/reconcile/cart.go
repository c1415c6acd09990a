package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"cartsync/internal/model"
	"cartsync/internal/session"
)

// AddItem adds line.Quantity of line.ItemID. Guests merge into an existing
// line for the same item; signed-in users write through to the server.
// LineID is ignored.
func (e *Engine) AddItem(ctx context.Context, line model.CartLine) error {
	if line.ItemID == "" {
		return model.NewValidationError("itemId", "required")
	}
	if line.Quantity <= 0 {
		return model.NewValidationError("quantity", "must be positive")
	}

	return e.doInSession(ctx, "addItem", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			e.mutateGuest(func(c *model.GuestCart) { c.Add(line) })
			return nil
		}
		return e.write(ctx, snap, "addLine", func(ctx context.Context, credential string) error {
			return e.gateway.AddLine(ctx, credential, line.ItemID, line.Quantity)
		})
	})
}

// UpdateQty sets the quantity of itemID. Zero removes the line.
func (e *Engine) UpdateQty(ctx context.Context, itemID string, qty int) error {
	if itemID == "" {
		return model.NewValidationError("itemId", "required")
	}
	if qty < 0 {
		return model.NewValidationError("quantity", "must not be negative")
	}
	if qty == 0 {
		return e.RemoveItem(ctx, itemID)
	}

	return e.doInSession(ctx, "updateQty", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			if !read(e, func(s *state) bool { return s.guest.Contains(itemID) }) {
				return model.NewNotInCartError(itemID)
			}
			e.mutateGuest(func(c *model.GuestCart) { c.SetQuantity(itemID, qty) })
			return nil
		}

		line, err := e.syncedLine(itemID)
		if err != nil {
			return err
		}
		err = e.write(ctx, snap, "updateLine", func(ctx context.Context, credential string) error {
			return e.gateway.UpdateLine(ctx, credential, line.LineID, qty)
		})
		if errors.Is(err, model.ErrLineNotFound) {
			return model.NewStaleLineError(itemID)
		}
		return err
	})
}

// RemoveItem drops itemID from the cart. For signed-in users the line
// disappears locally before the server confirms; if the server call fails
// it stays removed and a REMOVE_NOT_CONFIRMED error is returned.
func (e *Engine) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return model.NewValidationError("itemId", "required")
	}

	return e.doInSession(ctx, "removeItem", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			if !read(e, func(s *state) bool { return s.guest.Contains(itemID) }) {
				return model.NewNotInCartError(itemID)
			}
			e.mutateGuest(func(c *model.GuestCart) { c.Remove(itemID) })
			return nil
		}

		line, err := e.syncedLine(itemID)
		if err != nil {
			return err
		}

		e.update(func(s *state) { s.auth = s.auth.WithoutLine(line.LineID) })

		cctx, cancel := e.bind(ctx, snap)
		defer cancel()
		if err := e.gateway.RemoveLine(cctx, snap.Session.Credential, line.LineID); err != nil {
			err = e.fail(snap, "removeLine", err)
			switch {
			case !e.sessions.IsCurrent(snap.Generation):
				return err
			case errors.Is(err, model.ErrLineNotFound):
				e.refetchAfterWrite(cctx, snap)
				return model.NewStaleLineError(itemID)
			default:
				return model.NewRemoveNotConfirmedError(itemID, err)
			}
		}
		return e.refetchAfterWrite(cctx, snap)
	})
}

// Clear empties the cart and drops any applied promotion.
func (e *Engine) Clear(ctx context.Context) error {
	return e.doInSession(ctx, "clear", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			empty := &model.GuestCart{}
			e.local.SaveGuestCart(e.persist, empty)
			e.update(func(s *state) {
				s.guest = empty
				s.promotion = nil
			})
			return nil
		}

		err := e.write(ctx, snap, "clearCart", func(ctx context.Context, credential string) error {
			return e.gateway.ClearCart(ctx, credential)
		})
		if err != nil {
			return err
		}
		e.update(func(s *state) { s.promotion = nil })
		return nil
	})
}

// mutateGuest applies fn to a copy of the guest cart, persists it and
// publishes it.
func (e *Engine) mutateGuest(fn func(c *model.GuestCart)) {
	next := read(e, func(s *state) *model.GuestCart { return s.guest.Clone() })
	fn(next)
	e.local.SaveGuestCart(e.persist, next)
	e.update(func(s *state) { s.guest = next })
}

// syncedLine finds the authenticated line for itemID, rejecting lines the
// server never assigned an ID to.
func (e *Engine) syncedLine(itemID string) (model.CartLine, error) {
	var (
		line model.CartLine
		ok   bool
	)
	e.mu.RLock()
	if e.state.auth != nil {
		line, ok = e.state.auth.Find(itemID)
	}
	e.mu.RUnlock()

	if !ok {
		return model.CartLine{}, model.NewNotInCartError(itemID)
	}
	if !line.Synced() {
		e.logger.Warn("rejecting mutation of a line without a server ID",
			slog.String("item_id", itemID),
		)
		return model.CartLine{}, model.NewStaleLineError(itemID)
	}
	return line, nil
}

// write issues a cart write, then refetches the server cart whatever the
// write's outcome, since a failed write may still have been applied.
func (e *Engine) write(ctx context.Context, snap session.Snapshot, op string, call func(ctx context.Context, credential string) error) error {
	cctx, cancel := e.bind(ctx, snap)
	defer cancel()

	err := call(cctx, snap.Session.Credential)
	if err != nil {
		err = e.fail(snap, op, err)
		if !e.sessions.IsCurrent(snap.Generation) {
			return err
		}
	}
	if ferr := e.refetchAfterWrite(cctx, snap); err == nil {
		err = ferr
	}
	return err
}

// refetchAfterWrite refetches the cart after a write. An unreachable
// backend only leaves the cached copy stale until the next resync, so it
// is not reported; other failures are.
func (e *Engine) refetchAfterWrite(ctx context.Context, snap session.Snapshot) error {
	err := e.refetchCart(ctx, snap)
	if err == nil || errors.Is(err, model.ErrUnreachable) {
		return nil
	}
	return err
}
