package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cartsync/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Read(context.Context, Key) ([]byte, bool, error) {
	return nil, false, errors.New("quota exceeded")
}
func (failingStore) Write(context.Context, Key, []byte) error { return errors.New("quota exceeded") }
func (failingStore) Delete(context.Context, Key) error        { return errors.New("quota exceeded") }
func (failingStore) Close() error                             { return nil }

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(NewMemoryStore(), testLogger())

	l.SaveSession(ctx, model.Session{Mode: model.ModeAuthenticated, Credential: "tok-1"})
	l.SaveGuestCart(ctx, &model.GuestCart{Lines: []model.CartLine{{ItemID: "a", Quantity: 2, UnitPrice: 500}}})
	l.SaveAuthenticatedCart(ctx, &model.AuthenticatedCart{
		Lines:       []model.CartLine{{LineID: "L1", ItemID: "b", Quantity: 1}},
		TotalAmount: 12000,
	})
	l.SaveWishlist(ctx, &model.Wishlist{Items: []model.WishlistItem{{ItemID: "w1"}}})

	if s := l.LoadSession(ctx); !s.Authenticated() || s.Credential != "tok-1" {
		t.Errorf("LoadSession() = %+v", s)
	}
	if c := l.LoadGuestCart(ctx); len(c.Lines) != 1 || c.Lines[0].Quantity != 2 {
		t.Errorf("LoadGuestCart() = %+v", c)
	}
	if c, repair := l.LoadAuthenticatedCart(ctx); c == nil || repair || c.TotalAmount != 12000 || c.Lines[0].LineID != "L1" {
		t.Errorf("LoadAuthenticatedCart() = %+v, %v", c, repair)
	}
	if w := l.LoadWishlist(ctx); w.Len() != 1 {
		t.Errorf("LoadWishlist().Len() = %d, want 1", w.Len())
	}

	l.Delete(ctx, KeyAuthenticatedCart, KeyWishlist)
	if c, repair := l.LoadAuthenticatedCart(ctx); c != nil || repair {
		t.Error("authenticated cart still present after Delete")
	}
	if w := l.LoadWishlist(ctx); w.Len() != 0 {
		t.Error("wishlist still present after Delete")
	}
}

func TestLocal_CorruptBlobsAreAbsent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	l := NewLocal(mem, testLogger())

	_ = mem.Write(ctx, KeySession, []byte(`{not json`))
	_ = mem.Write(ctx, KeyGuestCart, []byte(`{"lines":1}`))
	_ = mem.Write(ctx, KeyAuthenticatedCart, []byte(`"nope"`))
	_ = mem.Write(ctx, KeyWishlist, []byte(`42`))

	if s := l.LoadSession(ctx); s.Mode != model.ModeAnonymous {
		t.Errorf("LoadSession() = %+v, want anonymous", s)
	}
	if c := l.LoadGuestCart(ctx); len(c.Lines) != 0 {
		t.Errorf("LoadGuestCart() = %+v, want empty", c)
	}
	if c, repair := l.LoadAuthenticatedCart(ctx); c != nil || !repair {
		t.Errorf("LoadAuthenticatedCart() on corrupt blob = %+v, %v; want nil, true", c, repair)
	}
	if w := l.LoadWishlist(ctx); w.Len() != 0 {
		t.Errorf("LoadWishlist() = %+v, want empty", w)
	}
}

func TestLocal_SessionWithoutCredentialIsAnonymous(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = mem.Write(ctx, KeySession, []byte(`{"mode":"authenticated"}`))

	if s := NewLocal(mem, testLogger()).LoadSession(ctx); s.Mode != model.ModeAnonymous {
		t.Errorf("LoadSession() = %+v, want anonymous", s)
	}
}

func TestLocal_StorageFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(failingStore{}, testLogger())

	// None of these may panic or block.
	l.SaveGuestCart(ctx, &model.GuestCart{Lines: []model.CartLine{{ItemID: "a", Quantity: 1}}})
	l.Delete(ctx, KeyGuestCart)

	if c := l.LoadGuestCart(ctx); len(c.Lines) != 0 {
		t.Errorf("LoadGuestCart() on failing store = %+v, want empty", c)
	}
	if s := l.LoadSession(ctx); s.Mode != model.ModeAnonymous {
		t.Errorf("LoadSession() on failing store = %+v", s)
	}
}

func TestLocal_AuthenticatedCartNeedsRepair(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"guest format", `[{"itemId":"ring-7","quantity":1,"unitPrice":120}]`},
		{"empty guest format", `[]`},
		{"line without id", `{"lines":[{"itemId":"ring-7","quantity":1,"unitPrice":120}],"totalAmount":120}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := NewMemoryStore()
			_ = mem.Write(ctx, KeyAuthenticatedCart, []byte(tt.blob))

			c, repair := NewLocal(mem, testLogger()).LoadAuthenticatedCart(ctx)
			if c != nil || !repair {
				t.Errorf("LoadAuthenticatedCart() = %+v, %v; want nil, true", c, repair)
			}
		})
	}
}
