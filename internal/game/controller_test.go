package game_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/store"
)

type fakeCoder struct {
	code string
	err  error
}

func (f *fakeCoder) Unique(context.Context) (string, error) {
	return f.code, f.err
}

func TestCreateDefaults(t *testing.T) {
	ctrl := game.NewController(store.New(nil), nil)
	g := ctrl.Create(nil)
	if g.State != game.StateLobby {
		t.Fatalf("expected state %q, got %q", game.StateLobby, g.State)
	}
	if !g.Active {
		t.Fatal("new game is not active")
	}
	if g.Host.ID == "" {
		t.Fatal("new game has no host id")
	}
	if g.ID != "" {
		t.Fatalf("unsaved game already has an id: %q", g.ID)
	}
}

func TestCreateOverrides(t *testing.T) {
	ctrl := game.NewController(store.New(nil), nil)
	g := ctrl.Create(map[string]any{
		"name":  "Quiz Night",
		"state": "question",
		"host":  game.Host{ID: "host-1"},
	})
	if g.Name != "Quiz Night" || g.State != "question" || g.Host.ID != "host-1" {
		t.Fatalf("overrides not applied: %+v", g)
	}
}

func TestGenerateAccessCode(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, &fakeCoder{code: "ab12"})
	g := ctrl.Create(nil)
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := ctrl.GenerateAccessCode(context.Background(), g); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if g.AccessCode != "ab12" {
		t.Fatalf("expected access code %q, got %q", "ab12", g.AccessCode)
	}
	fresh, _ := docs.Get(g.ID)
	if fresh.AccessCode != "ab12" {
		t.Fatalf("durable access code mismatch: %q", fresh.AccessCode)
	}
}

func TestGenerateAccessCodeInvalidInput(t *testing.T) {
	ctrl := game.NewController(store.New(nil), &fakeCoder{code: "ab12"})
	err := ctrl.GenerateAccessCode(context.Background(), nil)
	if !errors.Is(err, game.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestGenerateAccessCodePropagatesRemoteError(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, &fakeCoder{err: game.ErrTooManyAttempts})
	g := ctrl.Create(nil)
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	err := ctrl.GenerateAccessCode(context.Background(), g)
	if !errors.Is(err, game.ErrTooManyAttempts) {
		t.Fatalf("expected remote error to propagate, got %v", err)
	}
	if g.AccessCode != "" {
		t.Fatalf("access code set despite remote failure: %q", g.AccessCode)
	}
}

func TestIsReady(t *testing.T) {
	ctrl := game.NewController(store.New(nil), nil)
	if ctrl.IsReady(nil) {
		t.Fatal("nil game reported ready")
	}

	g := ctrl.Create(nil)
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if ctrl.IsReady(g) {
		t.Fatal("game with no players reported ready")
	}

	first, _ := g.AddPlayer(game.Player{Name: "Ada"})
	second, _ := g.AddPlayer(game.Player{Name: "Bob"})
	if ctrl.IsReady(g) {
		t.Fatal("game with unready players reported ready")
	}

	if err := g.UpdatePlayer(first, map[string]any{"isReady": true}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if ctrl.IsReady(g) {
		t.Fatal("game with one unready player reported ready")
	}

	if err := g.UpdatePlayer(second, map[string]any{"isReady": true}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !ctrl.IsReady(g) {
		t.Fatal("game with all players ready reported not ready")
	}
}

func TestReset(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, nil)
	g := ctrl.Create(nil)
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	first, _ := g.AddPlayer(game.Player{Name: "Ada", IsReady: true})
	second, _ := g.AddPlayer(game.Player{Name: "Bob", IsReady: true})
	if err := g.Update(map[string]any{"state": "question", "active": false}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if err := ctrl.Reset(g); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if g.State != game.StateLobby || !g.Active {
		t.Fatalf("reset did not restore lobby: state=%q active=%v", g.State, g.Active)
	}
	for _, id := range []string{first.ID, second.ID} {
		if g.FindPlayer(id).IsReady {
			t.Fatalf("player %q still ready after reset", id)
		}
	}
	fresh, _ := docs.Get(g.ID)
	if fresh.State != game.StateLobby || !fresh.Active {
		t.Fatalf("durable copy not reset: %+v", fresh)
	}

	// Reset of a nil game is a quiet no-op.
	if err := ctrl.Reset(nil); err != nil {
		t.Fatalf("reset of nil game errored: %v", err)
	}
}

func TestEnd(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, nil)
	g := ctrl.Create(map[string]any{"state": "question"})
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := ctrl.End(g); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if g.Active {
		t.Fatal("game still active after end")
	}
	if g.State != "question" {
		t.Fatalf("end changed the state to %q", g.State)
	}
	if err := ctrl.End(nil); err != nil {
		t.Fatalf("end of nil game errored: %v", err)
	}
}

func TestSetStatesAndLookup(t *testing.T) {
	ctrl := game.NewController(store.New(nil), nil)
	if _, ok := ctrl.State("question"); ok {
		t.Fatal("unregistered state resolved")
	}
	ran := false
	ctrl.SetStates(map[string]game.Handler{
		"question": func(*game.Game) { ran = true },
	})
	handler, ok := ctrl.State("question")
	if !ok {
		t.Fatal("registered state did not resolve")
	}
	handler(nil)
	if !ran {
		t.Fatal("resolved handler is not the registered one")
	}

	// Later registrations overwrite earlier ones with the same name.
	ctrl.SetStates(map[string]game.Handler{
		"question": func(*game.Game) { ran = false },
	})
	handler, _ = ctrl.State("question")
	handler(nil)
	if ran {
		t.Fatal("re-registration did not overwrite the handler")
	}

	ctrl.SetStates(nil) // no-op
}

func TestRefreshStateSafety(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, nil)
	g := ctrl.Create(map[string]any{"state": "nosuchstate"})

	// Unknown states, nil handlers, and nil games are all silently
	// skipped; the refresh loop runs on every change notification and
	// must never panic.
	ctrl.RefreshState(g)
	ctrl.RefreshState(nil)
	ctrl.SetStates(map[string]game.Handler{"nosuchstate": nil})
	ctrl.RefreshState(g)
}

func TestLobbyHandlerReactivates(t *testing.T) {
	docs := store.New(nil)
	ctrl := game.NewController(docs, nil)
	g := ctrl.Create(nil)
	if err := g.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := g.Update(map[string]any{"active": false}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	ctrl.RefreshState(g)
	if !g.Active {
		t.Fatal("lobby handler did not reactivate the game")
	}

	// Re-running while already active is a no-op.
	before := g.Modified
	ctrl.RefreshState(g)
	if !g.Modified.Equal(before) {
		t.Fatal("idempotent lobby refresh advanced modified")
	}
}
