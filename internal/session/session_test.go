package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmulch/gamekit/internal/db"
	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/session"
	"github.com/pmulch/gamekit/internal/store"
)

const (
	keyActiveGame = "active.gameId"
	keyActiveUser = "active.userId"
)

type fixture struct {
	docs  *store.Store
	cache *db.RoleCache
	ctrl  *game.Controller
	sess  *session.GameSession
}

func newFixture(t *testing.T, joiner session.Joiner) *fixture {
	t.Helper()
	docs := store.New(nil)
	cache := db.NewRoleCache(nil)
	return &fixture{
		docs:  docs,
		cache: cache,
		ctrl:  game.NewController(docs, nil),
		sess:  session.New(docs, cache, joiner, nil),
	}
}

func (f *fixture) seedGame(t *testing.T) *game.Game {
	t.Helper()
	g := f.ctrl.Create(map[string]any{"accessCode": "ab12"})
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	return g
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSaveIgnoresMissingArguments(t *testing.T) {
	f := newFixture(t, nil)
	f.sess.Save("", "role-1")
	f.sess.Save("game-1", "")
	if f.sess.Values().Get(keyActiveGame) != "" || f.sess.Values().Get(keyActiveUser) != "" {
		t.Fatal("partial save mutated the transient pointers")
	}
	if f.cache.Get("game.game-1") != "" {
		t.Fatal("partial save wrote to the durable cache")
	}
}

func TestSaveAndRestorePlayerRole(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	p, err := g.AddPlayer(game.Player{Name: "Alice"})
	if err != nil {
		t.Fatalf("add player failed: %v", err)
	}

	f.sess.Save(g.ID, p.ID)

	// A second session sharing the durable cache stands in for the same
	// device after a reload.
	reloaded := session.New(f.docs, f.cache, nil, nil)
	reloaded.Values().Set(keyActiveGame, g.ID)
	if got := reloaded.Restore(); got != p.ID {
		t.Fatalf("expected restored role %q, got %q", p.ID, got)
	}
	if reloaded.IsHost() {
		t.Fatal("player role restored as host")
	}
	current := reloaded.CurrentPlayer()
	if current == nil || current.Name != "Alice" {
		t.Fatalf("current player not resolved: %+v", current)
	}
}

func TestRestoreHostRole(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	f.sess.Save(g.ID, g.Host.ID)

	if got := f.sess.Restore(); got != g.Host.ID {
		t.Fatalf("expected host role %q, got %q", g.Host.ID, got)
	}
	if !f.sess.IsHost() {
		t.Fatal("host role not recognized")
	}
	if f.sess.CurrentPlayer() != nil {
		t.Fatal("host resolved to a player record")
	}
}

func TestRestoreWithoutActiveGame(t *testing.T) {
	f := newFixture(t, nil)
	if got := f.sess.Restore(); got != "" {
		t.Fatalf("expected absent role, got %q", got)
	}
}

func TestRestoreMissingGameLeavesUserUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.sess.Values().Set(keyActiveGame, "nosuchgame")
	f.sess.Values().Set(keyActiveUser, "previous")
	if got := f.sess.Restore(); got != "" {
		t.Fatalf("expected absent role, got %q", got)
	}
	if f.sess.Values().Get(keyActiveUser) != "previous" {
		t.Fatal("restore of a missing game clobbered the active user")
	}
}

func TestRestorePurgesStaleRole(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	f.cache.Set("game."+g.ID, "booted-player")
	f.sess.Values().Set(keyActiveGame, g.ID)

	if got := f.sess.Restore(); got != "" {
		t.Fatalf("stale role resolved to %q", got)
	}
	if f.cache.Get("game."+g.ID) != "" {
		t.Fatal("stale cache entry not purged")
	}
	if f.sess.Values().Get(keyActiveUser) != "" {
		t.Fatal("active user not forced to absent")
	}
}

func TestLoadByIDOrAccessCode(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)

	f.sess.Load("AB12")
	if got := f.sess.Values().Get(keyActiveGame); got != g.ID {
		t.Fatalf("load by access code set active game to %q", got)
	}

	f.sess.Clear()
	f.sess.Load(g.ID)
	if got := f.sess.Values().Get(keyActiveGame); got != g.ID {
		t.Fatalf("load by id set active game to %q", got)
	}

	f.sess.Clear()
	f.sess.Load("nosuchgame")
	if got := f.sess.Values().Get(keyActiveGame); got != "" {
		t.Fatalf("load of unknown key set active game to %q", got)
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	f.sess.Save(g.ID, g.Host.ID)

	f.sess.Clear()
	if f.sess.Values().Get(keyActiveGame) != "" || f.sess.Values().Get(keyActiveUser) != "" {
		t.Fatal("transient pointers survive clear")
	}
	if f.cache.Get("game."+g.ID) != "" {
		t.Fatal("durable cache entry survives clear")
	}
}

type fakeJoiner struct {
	result session.JoinResult
	err    error
}

func (f *fakeJoiner) Join(context.Context, string, string) (session.JoinResult, error) {
	return f.result, f.err
}

func TestJoinSavesIdentity(t *testing.T) {
	joiner := &fakeJoiner{result: session.JoinResult{GameID: "g1", PlayerID: "p1"}}
	f := newFixture(t, joiner)

	result, err := f.sess.Join(context.Background(), "ab12", "Alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if result != joiner.result {
		t.Fatalf("unexpected join result: %+v", result)
	}
	if f.sess.Values().Get(keyActiveGame) != "g1" || f.sess.Values().Get(keyActiveUser) != "p1" {
		t.Fatal("join did not save the session")
	}
	if f.cache.Get("game.g1") != "p1" {
		t.Fatal("join did not write the durable cache")
	}
}

func TestJoinPropagatesRemoteError(t *testing.T) {
	f := newFixture(t, &fakeJoiner{err: game.ErrGameNotFound})

	_, err := f.sess.Join(context.Background(), "zz99", "Alice")
	if !errors.Is(err, game.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if f.sess.Values().Get(keyActiveGame) != "" {
		t.Fatal("failed join saved a session")
	}
}

func TestUpdateCurrentPlayer(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	p, err := g.AddPlayer(game.Player{Name: "Alice"})
	if err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	f.sess.Save(g.ID, p.ID)

	if err := f.sess.UpdateCurrentPlayer(map[string]any{"isReady": true}); err != nil {
		t.Fatalf("update current player failed: %v", err)
	}
	fresh, _ := f.docs.Get(g.ID)
	if !fresh.FindPlayer(p.ID).IsReady {
		t.Fatal("readiness not persisted")
	}
}

func TestBindRestoresOnActivation(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)
	p, err := g.AddPlayer(game.Player{Name: "Alice"})
	if err != nil {
		t.Fatalf("add player failed: %v", err)
	}
	f.cache.Set("game."+g.ID, p.ID)

	unbind := f.sess.Bind(f.ctrl)
	defer unbind()

	f.sess.Load(g.ID)
	waitFor(t, "role restore", func() bool {
		return f.sess.Values().Get(keyActiveUser) == p.ID
	})
}

func TestBindRefreshesStateOnChange(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)

	refreshed := make(chan string, 8)
	f.ctrl.SetStates(map[string]game.Handler{
		"question": func(doc *game.Game) {
			select {
			case refreshed <- doc.State:
			default:
			}
		},
	})

	unbind := f.sess.Bind(f.ctrl)
	defer unbind()

	f.sess.Load(g.ID)
	if err := g.Update(map[string]any{"state": "question"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	select {
	case state := <-refreshed:
		if state != "question" {
			t.Fatalf("handler saw state %q", state)
		}
	case <-time.After(time.Second):
		t.Fatal("state handler not invoked within a second")
	}
}

func TestBindLobbyHandlerReactivates(t *testing.T) {
	f := newFixture(t, nil)
	g := f.seedGame(t)

	unbind := f.sess.Bind(f.ctrl)
	defer unbind()

	f.sess.Load(g.ID)
	if err := g.Update(map[string]any{"active": false}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// The lobby handler runs off the change notification and flips the
	// game back to active.
	waitFor(t, "lobby reactivation", func() bool {
		fresh, ok := f.docs.Get(g.ID)
		return ok && fresh.Active
	})
}
