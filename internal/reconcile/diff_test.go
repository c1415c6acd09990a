package reconcile

import (
	"testing"

	"cartsync/internal/model"
)

func TestDiffLines_EmptyToLines(t *testing.T) {
	current := []model.CartLine{
		{LineID: "L1", ItemID: "prod-1", Quantity: 2},
		{LineID: "L2", ItemID: "prod-2", Quantity: 1},
	}

	diff := DiffLines(nil, current)

	if len(diff.Added) != 2 {
		t.Errorf("Added = %d, want 2", len(diff.Added))
	}
	if len(diff.Removed) != 0 {
		t.Errorf("Removed = %d, want 0", len(diff.Removed))
	}
	if len(diff.Updated) != 0 {
		t.Errorf("Updated = %d, want 0", len(diff.Updated))
	}
	if diff.Added[0].ItemID != "prod-1" || diff.Added[1].ItemID != "prod-2" {
		t.Errorf("Added order = %v, want current order", diff.Added)
	}
}

func TestDiffLines_LinesToEmpty(t *testing.T) {
	previous := []model.CartLine{
		{LineID: "L1", ItemID: "prod-1", Quantity: 2},
		{LineID: "L2", ItemID: "prod-2", Quantity: 1},
	}

	diff := DiffLines(previous, []model.CartLine{})

	if len(diff.Removed) != 2 {
		t.Fatalf("Removed = %d, want 2", len(diff.Removed))
	}
	for _, l := range diff.Removed {
		if l.LineID == "" {
			t.Error("Removed line missing LineID")
		}
	}
}

func TestDiffLines_QuantityUpdate(t *testing.T) {
	previous := []model.CartLine{{LineID: "L1", ItemID: "prod-1", Quantity: 2}}
	current := []model.CartLine{{LineID: "L9", ItemID: "prod-1", Quantity: 5}}

	diff := DiffLines(previous, current)

	if len(diff.Added) != 0 || len(diff.Removed) != 0 {
		t.Errorf("Added = %d, Removed = %d, want 0, 0", len(diff.Added), len(diff.Removed))
	}
	if len(diff.Updated) != 1 {
		t.Fatalf("Updated = %d, want 1", len(diff.Updated))
	}

	got := diff.Updated[0]
	if got.OldQuantity != 2 || got.NewQuantity != 5 {
		t.Errorf("quantities = %d → %d, want 2 → 5", got.OldQuantity, got.NewQuantity)
	}
	if got.LineID != "L9" {
		t.Errorf("LineID = %q, want current line ID L9", got.LineID)
	}
}

func TestDiffLines_NoChange(t *testing.T) {
	lines := []model.CartLine{
		{LineID: "L1", ItemID: "prod-1", Quantity: 2},
		{LineID: "L2", ItemID: "prod-2", Quantity: 1},
	}

	if diff := DiffLines(lines, lines); !diff.IsEmpty() {
		t.Errorf("DiffLines(same) = %+v, want empty", diff)
	}
}

func TestDiffLines_Mixed(t *testing.T) {
	previous := []model.CartLine{
		{LineID: "L1", ItemID: "keep", Quantity: 1},
		{LineID: "L2", ItemID: "bump", Quantity: 1},
		{LineID: "L3", ItemID: "gone", Quantity: 1},
	}
	current := []model.CartLine{
		{LineID: "L1", ItemID: "keep", Quantity: 1},
		{LineID: "L2", ItemID: "bump", Quantity: 3},
		{LineID: "L4", ItemID: "new", Quantity: 1},
	}

	diff := DiffLines(previous, current)

	if len(diff.Added) != 1 || diff.Added[0].ItemID != "new" {
		t.Errorf("Added = %v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].ItemID != "gone" {
		t.Errorf("Removed = %v", diff.Removed)
	}
	if len(diff.Updated) != 1 || diff.Updated[0].ItemID != "bump" {
		t.Errorf("Updated = %v", diff.Updated)
	}
}

func TestDiffWishlist(t *testing.T) {
	wishlist := func(ids ...string) *model.Wishlist {
		w := &model.Wishlist{}
		for _, id := range ids {
			w.Add(model.WishlistItem{ItemID: id})
		}
		return w
	}

	tests := []struct {
		name        string
		previous    *model.Wishlist
		current     *model.Wishlist
		wantAdded   int
		wantRemoved int
	}{
		{"both empty", wishlist(), wishlist(), 0, 0},
		{"nil previous", nil, wishlist("a", "b"), 2, 0},
		{"nil current", wishlist("a"), nil, 0, 1},
		{"same set", wishlist("a", "b"), wishlist("b", "a"), 0, 0},
		{"swap one", wishlist("a", "b"), wishlist("a", "c"), 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := DiffWishlist(tt.previous, tt.current)
			if len(diff.Added) != tt.wantAdded {
				t.Errorf("Added = %v, want %d", diff.Added, tt.wantAdded)
			}
			if len(diff.Removed) != tt.wantRemoved {
				t.Errorf("Removed = %v, want %d", diff.Removed, tt.wantRemoved)
			}
			if (tt.wantAdded+tt.wantRemoved == 0) != diff.IsEmpty() {
				t.Errorf("IsEmpty() = %v", diff.IsEmpty())
			}
		})
	}
}
