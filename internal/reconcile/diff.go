package reconcile

import "cartsync/internal/model"

// LineDiff describes how a cart changed between two server snapshots.
// Lines are matched by ItemID, not LineID: the server may reissue line IDs.
type LineDiff struct {
	Added   []model.CartLine // in current but not previous
	Removed []model.CartLine // in previous but not current
	Updated []QuantityChange // in both with different quantities
}

// QuantityChange is a line whose quantity moved.
type QuantityChange struct {
	ItemID      string
	LineID      string // current line ID
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if the carts hold the same items in the same quantities.
func (d *LineDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

// DiffLines computes the delta from previous to current.
// Output order follows current (added, updated) and previous (removed).
func DiffLines(previous, current []model.CartLine) *LineDiff {
	diff := &LineDiff{}

	previousByItem := make(map[string]model.CartLine, len(previous))
	for _, l := range previous {
		previousByItem[l.ItemID] = l
	}
	currentByItem := make(map[string]model.CartLine, len(current))
	for _, l := range current {
		currentByItem[l.ItemID] = l
	}

	for _, cur := range current {
		prev, exists := previousByItem[cur.ItemID]
		if !exists {
			diff.Added = append(diff.Added, cur)
			continue
		}
		if prev.Quantity != cur.Quantity {
			diff.Updated = append(diff.Updated, QuantityChange{
				ItemID:      cur.ItemID,
				LineID:      cur.LineID,
				OldQuantity: prev.Quantity,
				NewQuantity: cur.Quantity,
			})
		}
	}

	for _, prev := range previous {
		if _, exists := currentByItem[prev.ItemID]; !exists {
			diff.Removed = append(diff.Removed, prev)
		}
	}

	return diff
}

// WishlistDiff describes how a wishlist changed between two snapshots.
type WishlistDiff struct {
	Added   []string
	Removed []string
}

// IsEmpty returns true if no items were added or removed.
func (d *WishlistDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffWishlist computes the set difference between two wishlists.
func DiffWishlist(previous, current *model.Wishlist) *WishlistDiff {
	diff := &WishlistDiff{}
	if current != nil {
		for _, it := range current.Items {
			if !previous.Contains(it.ItemID) {
				diff.Added = append(diff.Added, it.ItemID)
			}
		}
	}
	if previous != nil {
		for _, it := range previous.Items {
			if !current.Contains(it.ItemID) {
				diff.Removed = append(diff.Removed, it.ItemID)
			}
		}
	}
	return diff
}
