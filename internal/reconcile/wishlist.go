package reconcile

import (
	"context"
	"errors"

	"cartsync/internal/model"
	"cartsync/internal/session"
)

// AddToWishlist saves item. Adding a saved item is a no-op.
// Signed-in adds are applied locally first and rolled back if the server
// rejects them.
func (e *Engine) AddToWishlist(ctx context.Context, item model.WishlistItem) error {
	if item.ItemID == "" {
		return model.NewValidationError("itemId", "required")
	}

	return e.doInSession(ctx, "addToWishlist", func(ctx context.Context, snap session.Snapshot) error {
		next := read(e, func(s *state) *model.Wishlist { return s.wishlist.Clone() })
		if !next.Add(item) {
			return nil
		}
		return e.commitWishlist(ctx, snap, "addWishlistItem", next, func(ctx context.Context, credential string) error {
			return e.gateway.AddWishlistItem(ctx, credential, item.ItemID)
		})
	})
}

// RemoveFromWishlist drops itemID. Removing an absent item is a no-op.
func (e *Engine) RemoveFromWishlist(ctx context.Context, itemID string) error {
	if itemID == "" {
		return model.NewValidationError("itemId", "required")
	}

	return e.doInSession(ctx, "removeFromWishlist", func(ctx context.Context, snap session.Snapshot) error {
		next := read(e, func(s *state) *model.Wishlist { return s.wishlist.Clone() })
		if !next.Remove(itemID) {
			return nil
		}
		return e.commitWishlist(ctx, snap, "removeWishlistItem", next, func(ctx context.Context, credential string) error {
			return e.gateway.RemoveWishlistItem(ctx, credential, itemID)
		})
	})
}

// MoveToCart moves itemID from the wishlist into the cart. Guests get one
// unit priced from the wishlist's cached price; signed-in users move it on
// the server and refetch both lists.
func (e *Engine) MoveToCart(ctx context.Context, itemID string) error {
	if itemID == "" {
		return model.NewValidationError("itemId", "required")
	}

	return e.doInSession(ctx, "moveToCart", func(ctx context.Context, snap session.Snapshot) error {
		if !snap.Authenticated() {
			wishlist := read(e, func(s *state) *model.Wishlist { return s.wishlist.Clone() })
			item, ok := wishlist.Get(itemID)
			if !ok {
				return model.NewNotInWishlistError(itemID)
			}
			wishlist.Remove(itemID)
			cart := read(e, func(s *state) *model.GuestCart { return s.guest.Clone() })
			cart.Add(model.CartLine{
				ItemID:    item.ItemID,
				Quantity:  1,
				UnitPrice: item.UnitPrice,
				Metadata:  item.Metadata,
			})

			e.local.SaveWishlist(e.persist, wishlist)
			e.local.SaveGuestCart(e.persist, cart)
			e.update(func(s *state) {
				s.wishlist = wishlist
				s.guest = cart
			})
			return nil
		}

		cctx, cancel := e.bind(ctx, snap)
		defer cancel()
		if err := e.gateway.MoveWishlistItemToCart(cctx, snap.Session.Credential, itemID); err != nil {
			return e.fail(snap, "moveWishlistItemToCart", err)
		}
		if err := e.refetchAfterWrite(cctx, snap); err != nil {
			return err
		}
		if err := e.refetchWishlist(cctx, snap); err != nil && !errors.Is(err, model.ErrUnreachable) {
			return err
		}
		return nil
	})
}

// commitWishlist publishes next. Guests persist it directly. Signed-in users
// see it immediately; call then confirms it with the server, and on failure
// the previous wishlist is restored.
func (e *Engine) commitWishlist(ctx context.Context, snap session.Snapshot, op string, next *model.Wishlist, call func(ctx context.Context, credential string) error) error {
	if !snap.Authenticated() {
		e.local.SaveWishlist(e.persist, next)
		e.update(func(s *state) { s.wishlist = next })
		return nil
	}

	prev := read(e, func(s *state) *model.Wishlist { return s.wishlist })
	e.update(func(s *state) { s.wishlist = next })

	if err := e.callAs(ctx, snap, call); err != nil {
		err = e.fail(snap, op, err)
		if e.sessions.IsCurrent(snap.Generation) {
			e.update(func(s *state) { s.wishlist = prev })
		}
		return err
	}

	e.local.SaveWishlist(e.persist, next)
	return nil
}

// callAs runs call under snap's credential with a context bound to the session.
func (e *Engine) callAs(ctx context.Context, snap session.Snapshot, call func(ctx context.Context, credential string) error) error {
	cctx, cancel := e.bind(ctx, snap)
	defer cancel()
	return call(cctx, snap.Session.Credential)
}
