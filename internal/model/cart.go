// Package model defines the cart, wishlist and session state shared by the
// store, gateway and reconciliation layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CartLine is one product variant in a cart.
// LineID is assigned by the server and is always empty in a guest cart.
type CartLine struct {
	LineID    string          `json:"lineId,omitempty"`
	ItemID    string          `json:"itemId"`
	Quantity  int             `json:"quantity"`
	UnitPrice Money           `json:"unitPrice"`
	Metadata  json.RawMessage `json:"displayMetadata,omitempty"`
}

// Synced reports whether the line can be targeted by update/remove calls.
func (l CartLine) Synced() bool {
	return l.LineID != ""
}

// Cart is the tagged union of the two cart representations.
// Only *GuestCart and *AuthenticatedCart implement it.
type Cart interface {
	// CartLines returns the lines in display order. Callers must not mutate them.
	CartLines() []CartLine
	// Total returns the cart total: derived for guests, server-computed otherwise.
	Total() Money
	// Mode reports which session mode owns this representation.
	Mode() Mode

	sealed()
}

// GuestCart is the anonymous-session cart. ItemID is the unique key.
// It persists as a bare JSON array of lines.
type GuestCart struct {
	Lines []CartLine
}

func (*GuestCart) sealed() {}

// CartLines implements Cart.
func (c *GuestCart) CartLines() []CartLine { return c.Lines }

// Mode implements Cart.
func (c *GuestCart) Mode() Mode { return ModeAnonymous }

// Total sums unit price times quantity over all lines.
func (c *GuestCart) Total() Money {
	var total Money
	for _, l := range c.Lines {
		total += l.UnitPrice.Times(l.Quantity)
	}
	return total
}

// Clone returns a deep copy of the line slice.
func (c *GuestCart) Clone() *GuestCart {
	return &GuestCart{Lines: cloneLines(c.Lines)}
}

// Add merges qty into the line for itemID, appending a new line if absent.
func (c *GuestCart) Add(line CartLine) {
	if i := c.index(line.ItemID); i >= 0 {
		c.Lines[i].Quantity += line.Quantity
		return
	}
	line.LineID = ""
	c.Lines = append(c.Lines, line)
}

// Contains reports whether the cart has a line for itemID.
func (c *GuestCart) Contains(itemID string) bool {
	return c.index(itemID) >= 0
}

// SetQuantity replaces the quantity of itemID. Returns false if absent.
func (c *GuestCart) SetQuantity(itemID string, qty int) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = qty
	return true
}

// Remove drops the line for itemID. Returns false if absent.
func (c *GuestCart) Remove(itemID string) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

func (c *GuestCart) index(itemID string) int {
	for i, l := range c.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the guest cart as an array of lines.
func (c GuestCart) MarshalJSON() ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}
	return json.Marshal(lines)
}

// UnmarshalJSON decodes an array of lines. Line IDs are dropped.
func (c *GuestCart) UnmarshalJSON(data []byte) error {
	var lines []CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("guest cart: %w", err)
	}
	for i := range lines {
		lines[i].LineID = ""
	}
	c.Lines = lines
	return nil
}

// AuthenticatedCart is the server's view of a signed-in user's cart.
// TotalAmount and LineIDs are authoritative and never recomputed locally.
type AuthenticatedCart struct {
	Lines       []CartLine `json:"lines"`
	TotalAmount Money      `json:"totalAmount"`

	// SchemaVersion is the backend cart schema this snapshot was fetched under.
	SchemaVersion string `json:"schemaVersion,omitempty"`
}

func (*AuthenticatedCart) sealed() {}

// CartLines implements Cart.
func (c *AuthenticatedCart) CartLines() []CartLine { return c.Lines }

// Mode implements Cart.
func (c *AuthenticatedCart) Mode() Mode { return ModeAuthenticated }

// Total returns the server-computed total.
func (c *AuthenticatedCart) Total() Money { return c.TotalAmount }

// Clone returns a deep copy.
func (c *AuthenticatedCart) Clone() *AuthenticatedCart {
	cp := *c
	cp.Lines = cloneLines(c.Lines)
	return &cp
}

// Find returns the first line for itemID.
func (c *AuthenticatedCart) Find(itemID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return CartLine{}, false
}

// WithoutLine returns a copy with the line lineID removed. Other lines for
// the same item stay.
func (c *AuthenticatedCart) WithoutLine(lineID string) *AuthenticatedCart {
	cp := c.Clone()
	kept := cp.Lines[:0]
	for _, l := range cp.Lines {
		if l.LineID != lineID {
			kept = append(kept, l)
		}
	}
	cp.Lines = kept
	return cp
}

// HasUnsyncedLines reports whether any line is missing its server ID.
func (c *AuthenticatedCart) HasUnsyncedLines() bool {
	for _, l := range c.Lines {
		if !l.Synced() {
			return true
		}
	}
	return false
}

// IsGuestFormat reports whether a persisted cart blob is a bare array of lines.
func IsGuestFormat(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// DecodeAuthenticatedCart parses a persisted authenticated cart.
// A bare array means the blob was written in guest format; it is decoded
// so the caller can see its lines lack server IDs.
func DecodeAuthenticatedCart(data []byte) (*AuthenticatedCart, error) {
	if IsGuestFormat(data) {
		var guest GuestCart
		if err := json.Unmarshal(data, &guest); err != nil {
			return nil, err
		}
		return &AuthenticatedCart{Lines: guest.Lines, TotalAmount: guest.Total()}, nil
	}
	var cart AuthenticatedCart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("authenticated cart: %w", err)
	}
	return &cart, nil
}

// CartView is the normalized read view of either cart representation.
type CartView struct {
	Mode        Mode       `json:"mode"`
	Lines       []CartLine `json:"lines"`
	TotalAmount Money      `json:"totalAmount"`
	Loaded      bool       `json:"loaded"`
}

// ViewOf normalizes a cart into a CartView. A nil cart yields an empty view.
func ViewOf(c Cart, loaded bool) CartView {
	if c == nil {
		return CartView{Mode: ModeAnonymous, Lines: []CartLine{}, Loaded: loaded}
	}
	lines := cloneLines(c.CartLines())
	if lines == nil {
		lines = []CartLine{}
	}
	return CartView{
		Mode:        c.Mode(),
		Lines:       lines,
		TotalAmount: c.Total(),
		Loaded:      loaded,
	}
}

// ItemCount sums quantities; 0 while the snapshot is not loaded.
func (v CartView) ItemCount() int {
	if !v.Loaded {
		return 0
	}
	n := 0
	for _, l := range v.Lines {
		n += l.Quantity
	}
	return n
}

// AppliedPromotion is a session-scoped discount returned by the promotion
// service. It is never persisted.
type AppliedPromotion struct {
	Code             string          `json:"code"`
	DiscountAmount   Money           `json:"discountAmount"`
	FinalTotal       Money           `json:"finalTotal"`
	PromotionDetails json.RawMessage `json:"promotionDetails,omitempty"`
}

func cloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
