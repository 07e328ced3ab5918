package game

import (
	"context"
	"sync"

	"github.com/pmulch/gamekit/internal/ident"
)

// Handler runs whenever a game's current state is (re-)evaluated. The
// refresh loop invokes handlers on every document change, including
// redundant notifications for the same state value, so handlers must be
// idempotent.
type Handler func(*Game)

// Coder generates unique access codes with server authority, since the
// uniqueness check has to be centrally visible.
type Coder interface {
	Unique(ctx context.Context) (string, error)
}

// Controller owns the registry of named state handlers and drives a
// Game through them. The registry is per-instance; defaults for the
// lobby and end states are registered at construction.
type Controller struct {
	mu     sync.Mutex
	states map[string]Handler
	store  Store
	coder  Coder
}

// NewController returns a controller bound to the given store. The
// coder may be nil when access-code generation is not needed (pure
// client-side controllers).
func NewController(store Store, coder Coder) *Controller {
	c := &Controller{
		store: store,
		coder: coder,
		states: map[string]Handler{
			// Entering the lobby reactivates an inactive game. Re-running
			// while already active is a no-op.
			StateLobby: func(g *Game) {
				if !g.Active {
					_ = g.Update(map[string]any{"active": true})
				}
			},
			// End is a marker state; ending is driven by End, not by the
			// transition itself.
			StateEnd: func(g *Game) {},
		},
	}
	return c
}

// Create builds a new unsaved Game with lobby defaults, a fresh host
// identifier, and the supplied overrides applied on top. The caller
// persists it with Save.
func (c *Controller) Create(overrides map[string]any) *Game {
	g := New(map[string]any{
		"state":  StateLobby,
		"active": true,
		"host":   Host{ID: ident.New()},
	})
	g.ApplyChanges(overrides)
	return g.Bind(c.store)
}

// GenerateAccessCode asks the coder for a unique short code and stores
// it on the game. Remote failures propagate unchanged.
func (c *Controller) GenerateAccessCode(ctx context.Context, g *Game) error {
	if g == nil || c.coder == nil {
		return ErrInvalidParameters
	}
	code, err := c.coder.Unique(ctx)
	if err != nil {
		return err
	}
	return g.Update(map[string]any{"accessCode": code})
}

// Reset returns the game to the lobby: every player's readiness is
// cleared (one update per player) and the game is reactivated.
func (c *Controller) Reset(g *Game) error {
	if g == nil {
		return nil
	}
	for i := range g.Players {
		if err := g.UpdatePlayer(g.Players[i], map[string]any{"isReady": false}); err != nil {
			return err
		}
	}
	return g.Update(map[string]any{
		"state":  StateLobby,
		"active": true,
	})
}

// End flags the game as inactive. The state name is left unchanged.
func (c *Controller) End(g *Game) error {
	if g == nil {
		return nil
	}
	return g.Update(map[string]any{"active": false})
}

// SetStates merges handler entries into the registry; later entries
// overwrite earlier ones with the same name. A nil map is a no-op.
func (c *Controller) SetStates(states map[string]Handler) {
	if states == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, handler := range states {
		c.states[name] = handler
	}
}

// State returns the registered handler for the given name.
func (c *Controller) State(name string) (Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handler, ok := c.states[name]
	return handler, ok
}

// RefreshState invokes the handler registered for the game's current
// state. Unknown state names and nil handlers are silently skipped;
// this runs on every change notification and must never panic.
func (c *Controller) RefreshState(g *Game) {
	if g == nil {
		return
	}
	handler, ok := c.State(g.State)
	if ok && handler != nil {
		handler(g)
	}
}

// IsReady reports whether the game has at least one player and every
// player has flagged readiness.
func (c *Controller) IsReady(g *Game) bool {
	if g == nil || len(g.Players) == 0 {
		return false
	}
	for i := range g.Players {
		if !g.Players[i].IsReady {
			return false
		}
	}
	return true
}
