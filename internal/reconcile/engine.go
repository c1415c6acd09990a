// Package reconcile keeps the client's cart and wishlist in step with the
// backend across guest and signed-in sessions.
//
// Every state change runs on a single worker goroutine that drains an
// ordered command queue: public mutations enqueue and wait, while migration,
// wishlist loads and resync ticks enqueue and return. Results computed under
// a session generation that is no longer current are dropped.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/mod/semver"

	"cartsync/internal/gateway"
	"cartsync/internal/model"
	"cartsync/internal/session"
	"cartsync/internal/store"
)

// DefaultResyncInterval is the period of the authenticated cart refetch.
const DefaultResyncInterval = 5 * time.Minute

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("reconcile: engine closed")

// PromotionValidator checks a promotion code against the current cart.
// Pricing rules live behind it; the engine only stores the result.
type PromotionValidator interface {
	Validate(ctx context.Context, code string, cart model.CartView) (*model.AppliedPromotion, error)
}

// Config wires the engine's collaborators.
type Config struct {
	Local    *store.Local
	Gateway  gateway.Gateway
	Sessions *session.Manager
	Logger   *slog.Logger

	// ResyncInterval defaults to DefaultResyncInterval. Negative disables resync.
	ResyncInterval time.Duration

	// MinSchemaVersion discards a cached authenticated cart written under an
	// older backend cart schema. Empty disables the check.
	MinSchemaVersion string

	// OnChange runs on the worker goroutine after every state change.
	// It must not call back into the engine's blocking methods.
	OnChange func(Snapshot)

	// Promotions is optional; without it ApplyPromotion is not supported.
	Promotions PromotionValidator
}

// Snapshot is a copy of the engine state safe to hand to the UI.
type Snapshot struct {
	Session   model.Session
	Cart      model.CartView
	Wishlist  []model.WishlistItem
	Promotion *model.AppliedPromotion
}

// state is owned by the worker; readers take mu.RLock.
type state struct {
	guest      *model.GuestCart
	auth       *model.AuthenticatedCart
	authLoaded bool
	wishlist   *model.Wishlist
	promotion  *model.AppliedPromotion
}

// Engine reconciles local and remote cart state.
type Engine struct {
	local          *store.Local
	gateway        gateway.Gateway
	sessions       *session.Manager
	logger         *slog.Logger
	resyncInterval time.Duration
	minSchema      string
	onChange       func(Snapshot)
	promotions     PromotionValidator

	queue *queue

	mu    sync.RWMutex
	state state

	ctx       context.Context
	stop      context.CancelFunc
	persist   context.Context
	started   atomic.Bool
	done      chan struct{}
	loops     sync.WaitGroup
	closeOnce sync.Once
}

// New validates cfg and builds an engine. Call Start to load persisted state.
func New(cfg Config) (*Engine, error) {
	if cfg.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ResyncInterval == 0 {
		cfg.ResyncInterval = DefaultResyncInterval
	}
	if cfg.MinSchemaVersion != "" && !semver.IsValid(normalizeVersion(cfg.MinSchemaVersion)) {
		return nil, fmt.Errorf("invalid minimum cart schema version %q", cfg.MinSchemaVersion)
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		local:          cfg.Local,
		gateway:        cfg.Gateway,
		sessions:       cfg.Sessions,
		logger:         cfg.Logger,
		resyncInterval: cfg.ResyncInterval,
		minSchema:      cfg.MinSchemaVersion,
		onChange:       cfg.OnChange,
		promotions:     cfg.Promotions,
		queue:          newQueue(),
		state: state{
			guest:    &model.GuestCart{},
			wishlist: &model.Wishlist{},
		},
		ctx:     ctx,
		stop:    stop,
		persist: context.WithoutCancel(ctx),
		done:    make(chan struct{}),
	}, nil
}

// Start loads persisted state, repairs an unusable authenticated cache and
// starts the worker. Under an authenticated session it also schedules a
// refetch and the resync loop.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("reconcile: engine already started")
	}

	snap := e.sessions.Current()
	guest := e.local.LoadGuestCart(ctx)
	wishlist := e.local.LoadWishlist(ctx)
	var auth *model.AuthenticatedCart
	var authLoaded bool
	if snap.Authenticated() {
		auth, authLoaded = e.restoreAuthenticatedCart(ctx)
	}

	e.mu.Lock()
	e.state.guest = guest
	e.state.wishlist = wishlist
	e.state.auth = auth
	e.state.authLoaded = authLoaded
	e.mu.Unlock()

	go e.run()

	if snap.Authenticated() {
		e.enqueue("refresh", func() {
			ctx, cancel := e.bind(e.ctx, snap)
			defer cancel()
			_ = e.refresh(ctx, snap)
		})
		e.startResync(snap)
	}

	e.logger.Info("reconcile engine started",
		slog.String("mode", string(snap.Session.Mode)),
		slog.Duration("resync_interval", e.resyncInterval),
	)
	return nil
}

// Close stops the worker after draining queued commands. In-flight gateway
// calls are cancelled.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.queue.close()
		e.stop()
		if e.started.Load() {
			<-e.done
		}
		e.loops.Wait()
	})
	return nil
}

// Flush waits until every command queued before it has run.
func (e *Engine) Flush(ctx context.Context) error {
	return e.do(ctx, "flush", func(context.Context) error { return nil })
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	sess := e.sessions.Current().Session
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked(sess)
}

func (e *Engine) snapshotLocked(sess model.Session) Snapshot {
	snap := Snapshot{Session: sess}
	if sess.Authenticated() {
		cart := e.state.auth
		if cart == nil {
			cart = &model.AuthenticatedCart{}
		}
		snap.Cart = model.ViewOf(cart, e.state.authLoaded)
	} else {
		snap.Cart = model.ViewOf(e.state.guest, true)
	}
	snap.Wishlist = e.state.wishlist.Clone().Items
	if p := e.state.promotion; p != nil {
		cp := *p
		snap.Promotion = &cp
	}
	return snap
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		c, ok := e.queue.next()
		if !ok {
			return
		}
		e.exec(c)
	}
}

func (e *Engine) exec(c command) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command panicked",
				slog.String("command", c.name),
				slog.Any("panic", r),
			)
		}
	}()
	c.run()
}

// do runs fn on the worker and waits for its result. If ctx is done before
// fn starts, fn is skipped.
func (e *Engine) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	ok := e.queue.push(command{name: name, run: func() {
		err := ctx.Err()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("command panicked",
					slog.String("command", name),
					slog.Any("panic", r),
				)
				err = model.NewInternalError(fmt.Errorf("%s: panic: %v", name, r))
			}
			result <- err
		}()
		if err == nil {
			err = fn(ctx)
		}
	}})
	if !ok {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doInSession is do for commands bound to the session they were issued in.
// The session is captured when the command is queued; if it has changed by
// the time the worker reaches the command, fn is skipped and a
// SESSION_CHANGED error is returned.
func (e *Engine) doInSession(ctx context.Context, name string, fn func(ctx context.Context, snap session.Snapshot) error) error {
	queued := e.sessions.Current()
	return e.do(ctx, name, func(ctx context.Context) error {
		if !e.sessions.IsCurrent(queued.Generation) {
			e.logger.Info("rejecting command issued in an ended session",
				slog.String("command", name),
				slog.Uint64("generation", queued.Generation),
			)
			return model.NewSessionChangedError()
		}
		return fn(ctx, queued)
	})
}

// enqueue schedules background work without waiting.
func (e *Engine) enqueue(name string, fn func()) {
	if !e.queue.push(command{name: name, run: fn}) {
		e.logger.Debug("dropping command after close", slog.String("command", name))
	}
}

// bind derives a context cancelled when parent ends, the session generation
// ends, or the engine closes.
func (e *Engine) bind(parent context.Context, snap session.Snapshot) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stopSession := context.AfterFunc(snap.Context, cancel)
	stopEngine := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stopSession()
		stopEngine()
		cancel()
	}
}

// update mutates state under the write lock and notifies OnChange.
// Worker only.
func (e *Engine) update(fn func(s *state)) {
	e.mu.Lock()
	fn(&e.state)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) notify() {
	if e.onChange == nil {
		return
	}
	e.onChange(e.Snapshot())
}

// read returns a value computed under the read lock.
func read[T any](e *Engine, fn func(s *state) T) T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(&e.state)
}

// fail applies the engine-wide gateway error policy. Unauthorized forces a
// logout; any failure observed after the session moved on becomes
// SessionChanged.
func (e *Engine) fail(snap session.Snapshot, op string, err error) error {
	if errors.Is(err, model.ErrUnauthorized) {
		e.forceLogout(snap, op)
		return err
	}
	if !e.sessions.IsCurrent(snap.Generation) {
		e.logger.Debug("dropping result from a stale session",
			slog.String("op", op),
			slog.Uint64("generation", snap.Generation),
		)
		return model.NewSessionChangedError()
	}
	e.logger.Warn("gateway call failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return err
}

// forceLogout ends snap's session after the backend rejected its credential.
func (e *Engine) forceLogout(snap session.Snapshot, op string) {
	if !e.sessions.LogoutIf(snap.Generation) {
		return
	}
	e.logger.Warn("credential rejected, signing out", slog.String("op", op))
	e.clearAccountState()
}

// clearAccountState resets in-memory state and deletes every cart and
// wishlist key. Worker only.
func (e *Engine) clearAccountState() {
	e.local.Delete(e.persist, store.KeyAuthenticatedCart, store.KeyWishlist, store.KeyGuestCart)
	e.update(func(s *state) {
		s.guest = &model.GuestCart{}
		s.auth = nil
		s.authLoaded = false
		s.wishlist = &model.Wishlist{}
		s.promotion = nil
	})
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// schemaOutdated reports whether a cached cart's schema predates minimum.
// Versions that are not semver compare as strings (date-stamped schemas).
func schemaOutdated(version, minimum string) bool {
	if minimum == "" {
		return false
	}
	if version == "" {
		return true
	}
	v, m := normalizeVersion(version), normalizeVersion(minimum)
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return version < minimum
	}
	return semver.Compare(v, m) < 0
}
