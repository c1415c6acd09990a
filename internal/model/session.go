package model

import "encoding/json"

// Mode is the identity mode of a session.
type Mode string

const (
	ModeAnonymous     Mode = "anonymous"
	ModeAuthenticated Mode = "authenticated"
)

// Session is the persisted identity: {mode, credential?}.
type Session struct {
	Mode       Mode   `json:"mode"`
	Credential string `json:"credential,omitempty"`
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Mode == ModeAuthenticated && s.Credential != ""
}

// AnonymousSession is the initial session.
func AnonymousSession() Session {
	return Session{Mode: ModeAnonymous}
}

// WishlistItem is one saved product. Price and metadata are display caches.
type WishlistItem struct {
	ItemID    string          `json:"itemId"`
	UnitPrice Money           `json:"unitPrice,omitempty"`
	Metadata  json.RawMessage `json:"displayMetadata,omitempty"`
}

// Wishlist is an ordered set of items keyed by ItemID.
type Wishlist struct {
	Items []WishlistItem
}

// Len returns the set cardinality.
func (w *Wishlist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Items)
}

// Contains reports whether itemID is present.
func (w *Wishlist) Contains(itemID string) bool {
	return w.index(itemID) >= 0
}

// Get returns the item for itemID.
func (w *Wishlist) Get(itemID string) (WishlistItem, bool) {
	if i := w.index(itemID); i >= 0 {
		return w.Items[i], true
	}
	return WishlistItem{}, false
}

// Add appends item unless its ItemID is already present.
// Returns false when the add was a no-op.
func (w *Wishlist) Add(item WishlistItem) bool {
	if w.Contains(item.ItemID) {
		return false
	}
	w.Items = append(w.Items, item)
	return true
}

// Remove drops itemID. Returns false if it was absent.
func (w *Wishlist) Remove(itemID string) bool {
	i := w.index(itemID)
	if i < 0 {
		return false
	}
	w.Items = append(w.Items[:i], w.Items[i+1:]...)
	return true
}

// Clone returns a copy safe to mutate independently.
func (w *Wishlist) Clone() *Wishlist {
	if w == nil {
		return &Wishlist{}
	}
	items := make([]WishlistItem, len(w.Items))
	copy(items, w.Items)
	return &Wishlist{Items: items}
}

func (w *Wishlist) index(itemID string) int {
	if w == nil {
		return -1
	}
	for i, it := range w.Items {
		if it.ItemID == itemID {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the wishlist as an array of items.
func (w Wishlist) MarshalJSON() ([]byte, error) {
	items := w.Items
	if items == nil {
		items = []WishlistItem{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array of items, dropping duplicate IDs.
func (w *Wishlist) UnmarshalJSON(data []byte) error {
	var items []WishlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	w.Items = nil
	for _, it := range items {
		w.Add(it)
	}
	return nil
}
