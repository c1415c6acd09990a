package model

import (
	"encoding/json"
	"testing"
)

func TestGuestCart_AddMergesByItemID(t *testing.T) {
	cart := &GuestCart{}
	cart.Add(CartLine{ItemID: "ring-7", Quantity: 1, UnitPrice: 12000})
	cart.Add(CartLine{ItemID: "ring-7", Quantity: 1, UnitPrice: 12000})

	if len(cart.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", cart.Lines[0].Quantity)
	}
	if cart.Total() != 24000 {
		t.Errorf("Total() = %s, want 240.00", cart.Total())
	}
}

func TestGuestCart_AddDropsLineID(t *testing.T) {
	cart := &GuestCart{}
	cart.Add(CartLine{LineID: "L9", ItemID: "a", Quantity: 1})

	if cart.Lines[0].LineID != "" {
		t.Errorf("LineID = %q, want empty in guest cart", cart.Lines[0].LineID)
	}
}

func TestGuestCart_SetQuantityAndRemove(t *testing.T) {
	cart := &GuestCart{Lines: []CartLine{{ItemID: "a", Quantity: 1}, {ItemID: "b", Quantity: 1}}}

	if !cart.SetQuantity("b", 4) {
		t.Fatal("SetQuantity(b) = false, want true")
	}
	if cart.SetQuantity("zzz", 4) {
		t.Error("SetQuantity(zzz) = true, want false")
	}
	if !cart.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if len(cart.Lines) != 1 || cart.Lines[0].ItemID != "b" || cart.Lines[0].Quantity != 4 {
		t.Errorf("Lines = %+v, want [b x4]", cart.Lines)
	}
}

func TestGuestCart_JSONIsBareArray(t *testing.T) {
	cart := GuestCart{Lines: []CartLine{{ItemID: "a", Quantity: 2, UnitPrice: 150}}}
	data, err := json.Marshal(cart)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != '[' {
		t.Fatalf("guest cart JSON = %s, want array", data)
	}

	var empty GuestCart
	data, _ = json.Marshal(empty)
	if string(data) != "[]" {
		t.Errorf("empty guest cart JSON = %s, want []", data)
	}
}

func TestDecodeAuthenticatedCart(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantLines    int
		wantUnsynced bool
		wantErr      bool
	}{
		{
			name:      "object with line ids",
			input:     `{"lines":[{"lineId":"L1","itemId":"ring-7","quantity":1,"unitPrice":120.00}],"totalAmount":120.00}`,
			wantLines: 1,
		},
		{
			name:         "guest-format array",
			input:        `[{"itemId":"ring-7","quantity":1,"unitPrice":120.00}]`,
			wantLines:    1,
			wantUnsynced: true,
		},
		{
			name:         "object missing line id",
			input:        `{"lines":[{"itemId":"ring-7","quantity":1}],"totalAmount":0}`,
			wantLines:    1,
			wantUnsynced: true,
		},
		{
			name:    "corrupt",
			input:   `{"lines":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := DecodeAuthenticatedCart([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(cart.Lines) != tt.wantLines {
				t.Errorf("len(Lines) = %d, want %d", len(cart.Lines), tt.wantLines)
			}
			if cart.HasUnsyncedLines() != tt.wantUnsynced {
				t.Errorf("HasUnsyncedLines() = %v, want %v", cart.HasUnsyncedLines(), tt.wantUnsynced)
			}
		})
	}
}

func TestAuthenticatedCart_WithoutLine(t *testing.T) {
	cart := &AuthenticatedCart{
		Lines: []CartLine{
			{LineID: "L1", ItemID: "a", Quantity: 1},
			{LineID: "L2", ItemID: "b", Quantity: 2},
			{LineID: "L3", ItemID: "a", Quantity: 4},
		},
		TotalAmount: 500,
	}

	next := cart.WithoutLine("L1")

	if len(next.Lines) != 2 || next.Lines[0].LineID != "L2" || next.Lines[1].LineID != "L3" {
		t.Errorf("WithoutLine(L1).Lines = %+v, want [L2 L3]", next.Lines)
	}
	if len(cart.Lines) != 3 || cart.Lines[0].LineID != "L1" {
		t.Errorf("original cart modified: %+v", cart.Lines)
	}
	if next.Total() != 500 {
		t.Errorf("Total() = %s, want server total untouched", next.Total())
	}
	if got := cart.WithoutLine("missing"); len(got.Lines) != 3 {
		t.Errorf("WithoutLine(missing) dropped lines: %+v", got.Lines)
	}
}

func TestCartView_ItemCount(t *testing.T) {
	cart := &AuthenticatedCart{Lines: []CartLine{{LineID: "L1", ItemID: "a", Quantity: 2}, {LineID: "L2", ItemID: "b", Quantity: 3}}}

	if got := ViewOf(cart, true).ItemCount(); got != 5 {
		t.Errorf("ItemCount() = %d, want 5", got)
	}
	if got := ViewOf(cart, false).ItemCount(); got != 0 {
		t.Errorf("ItemCount() while not loaded = %d, want 0", got)
	}
	if got := ViewOf(nil, true); got.Lines == nil || got.Mode != ModeAnonymous {
		t.Errorf("ViewOf(nil) = %+v", got)
	}
}

func TestWishlist_AddIsIdempotent(t *testing.T) {
	w := &Wishlist{}
	if !w.Add(WishlistItem{ItemID: "a"}) {
		t.Fatal("first Add = false")
	}
	if w.Add(WishlistItem{ItemID: "a"}) {
		t.Error("second Add = true, want no-op")
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}

	clone := w.Clone()
	clone.Remove("a")
	if !w.Contains("a") {
		t.Error("Clone shares storage with original")
	}
}

func TestWishlist_UnmarshalDropsDuplicates(t *testing.T) {
	var w Wishlist
	if err := json.Unmarshal([]byte(`[{"itemId":"a"},{"itemId":"b"},{"itemId":"a"}]`), &w); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 2 {
		t.Errorf("Len() = %d, want 2", w.Len())
	}
}
