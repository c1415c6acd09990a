package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cartsync/internal/model"
	"cartsync/internal/store"
)

func testManager(t *testing.T) (*Manager, *store.Local) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local := store.NewLocal(store.NewMemoryStore(), logger)
	return NewManager(context.Background(), local, logger), local
}

func TestManager_StartsAnonymous(t *testing.T) {
	m, _ := testManager(t)

	if snap := m.Current(); snap.Authenticated() || snap.Session.Mode != model.ModeAnonymous {
		t.Errorf("Current() = %+v, want anonymous", snap.Session)
	}
}

func TestManager_RestoresPersistedSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local := store.NewLocal(store.NewMemoryStore(), logger)
	local.SaveSession(context.Background(), model.Session{Mode: model.ModeAuthenticated, Credential: "tok-1"})

	m := NewManager(context.Background(), local, logger)
	if snap := m.Current(); !snap.Authenticated() || snap.Session.Credential != "tok-1" {
		t.Errorf("Current() = %+v, want restored tok-1", snap.Session)
	}
}

func TestManager_LoginLogout(t *testing.T) {
	m, local := testManager(t)
	ctx := context.Background()

	before := m.Current()
	snap, err := m.Login("tok-1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !snap.Authenticated() || snap.Generation == before.Generation {
		t.Errorf("Login snapshot = %+v", snap)
	}
	if m.IsCurrent(before.Generation) {
		t.Error("pre-login generation should be stale")
	}
	if s := local.LoadSession(ctx); s.Credential != "tok-1" {
		t.Errorf("persisted session = %+v", s)
	}

	prev := m.Logout()
	if prev.Generation != snap.Generation {
		t.Errorf("Logout returned generation %d, want %d", prev.Generation, snap.Generation)
	}
	if prev.Context.Err() == nil {
		t.Error("authenticated context should be cancelled on logout")
	}
	if m.Current().Authenticated() {
		t.Error("still authenticated after Logout")
	}
	if s := local.LoadSession(ctx); s.Mode != model.ModeAnonymous {
		t.Errorf("persisted session after logout = %+v", s)
	}
}

func TestManager_LoginValidation(t *testing.T) {
	m, _ := testManager(t)

	if _, err := m.Login(""); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Login(\"\") error = %v, want ErrInvalidRequest", err)
	}
	if _, err := m.Login("tok-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Login("tok-2"); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("second Login error = %v, want ErrInvalidRequest", err)
	}
}

func TestManager_LogoutIf(t *testing.T) {
	m, _ := testManager(t)

	first, _ := m.Login("tok-1")
	m.Logout()
	second, _ := m.Login("tok-2")

	if m.LogoutIf(first.Generation) {
		t.Error("LogoutIf with a stale generation must not end the newer session")
	}
	if !m.Current().Authenticated() {
		t.Fatal("session ended by stale LogoutIf")
	}
	if !m.LogoutIf(second.Generation) {
		t.Error("LogoutIf with the current generation should log out")
	}
	if second.Context.Err() == nil {
		t.Error("forced logout should cancel the session context")
	}
}
