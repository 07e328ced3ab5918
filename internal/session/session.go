package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/store"
)

const (
	keyActiveGame = "active.gameId"
	keyActiveUser = "active.userId"
)

func cacheKey(gameID string) string {
	return "game." + gameID
}

// Cache is the durable key-value collaborator that survives process
// restarts, used solely for the game→role recovery mapping.
type Cache interface {
	Set(key, roleID string)
	Get(key string) string
	Clear(key string)
}

// JoinResult identifies the game and player a join resolved to.
type JoinResult struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// Joiner performs the join with server authority: resolve the access
// code to an active lobby game and append a new player.
type Joiner interface {
	Join(ctx context.Context, accessCode, name string) (JoinResult, error)
}

// GameSession maps this device to a role (host id or player id) within
// one active game, across reloads. The transient pointers live in
// Values; the durable recovery anchor lives in the Cache.
type GameSession struct {
	store  *store.Store
	values *Values
	cache  Cache
	joiner Joiner
	log    *zap.Logger
}

func New(docs *store.Store, cache Cache, joiner Joiner, log *zap.Logger) *GameSession {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameSession{
		store:  docs,
		values: NewValues(),
		cache:  cache,
		joiner: joiner,
		log:    log,
	}
}

// Values exposes the transient pointer store, mainly for tests and for
// embedding UIs that want to observe the active ids directly.
func (s *GameSession) Values() *Values {
	return s.values
}

// Save records the game and role this device now occupies, both in the
// transient pointers and in the durable cache. Missing arguments are
// logged and ignored; saving is fire-and-forget.
func (s *GameSession) Save(gameID, roleID string) {
	if gameID == "" || roleID == "" {
		s.log.Warn("session save ignored, missing game id or role id",
			zap.String("game_id", gameID),
			zap.String("role_id", roleID))
		return
	}
	s.values.Set(keyActiveGame, gameID)
	s.values.Set(keyActiveUser, roleID)
	s.cache.Set(cacheKey(gameID), roleID)
}

// Load resolves a game by id or access code and sets it active. Role
// restoration follows through the active-game watcher installed by
// Bind. An unknown key does nothing.
func (s *GameSession) Load(gameIDOrCode string) {
	if gameIDOrCode == "" {
		return
	}
	g, ok := s.store.FindByIDOrCode(gameIDOrCode)
	if !ok {
		return
	}
	s.values.Set(keyActiveGame, g.ID)
}

// Restore resolves this device's role for the currently active game
// from the durable cache, validated against the live document. A cached
// role that matches neither the host nor any current player is purged
// and the resolved role forced to absent. Returns the resolved role id,
// or "" when there is none.
func (s *GameSession) Restore() string {
	gameID := s.values.Get(keyActiveGame)
	if gameID == "" {
		return ""
	}
	g, ok := s.store.Get(gameID)
	if !ok {
		// Leave any previous active-user value untouched.
		return ""
	}
	roleID := s.cache.Get(cacheKey(gameID))
	if roleID != "" && roleID != g.Host.ID && g.FindPlayer(roleID) == nil {
		// Stale or forged entry: the device was removed from the game
		// or never belonged to it.
		s.cache.Clear(cacheKey(gameID))
		roleID = ""
	}
	s.values.Set(keyActiveUser, roleID)
	return roleID
}

// Clear forgets the active session, including the durable cache entry
// for the currently active game.
func (s *GameSession) Clear() {
	if gameID := s.values.Get(keyActiveGame); gameID != "" {
		s.cache.Clear(cacheKey(gameID))
	}
	s.values.Set(keyActiveGame, "")
	s.values.Set(keyActiveUser, "")
}

// Join joins the game with the given access code and remembers the
// resulting identity on success. Remote failures (typically
// game-not-found) propagate unchanged.
func (s *GameSession) Join(ctx context.Context, accessCode, name string) (JoinResult, error) {
	if s.joiner == nil {
		return JoinResult{}, game.ErrInvalidParameters
	}
	result, err := s.joiner.Join(ctx, accessCode, name)
	if err != nil {
		return JoinResult{}, err
	}
	s.Save(result.GameID, result.PlayerID)
	return result, nil
}

// CurrentGame returns a fresh copy of the active game, or nil.
func (s *GameSession) CurrentGame() *game.Game {
	gameID := s.values.Get(keyActiveGame)
	if gameID == "" {
		return nil
	}
	g, ok := s.store.Get(gameID)
	if !ok {
		return nil
	}
	return g
}

// CurrentPlayer returns this device's player record within the active
// game, or nil. The host is not a player record, so a host device gets
// nil here.
func (s *GameSession) CurrentPlayer() *game.Player {
	g := s.CurrentGame()
	if g == nil {
		return nil
	}
	return g.FindPlayer(s.values.Get(keyActiveUser))
}

// IsHost reports whether this device holds the host role for the
// active game.
func (s *GameSession) IsHost() bool {
	g := s.CurrentGame()
	if g == nil || g.Host.ID == "" {
		return false
	}
	return g.Host.ID == s.values.Get(keyActiveUser)
}

// UpdateCurrentPlayer forwards a change set to the entity's
// UpdatePlayer for the currently resolved game and player.
func (s *GameSession) UpdateCurrentPlayer(changes map[string]any) error {
	g := s.CurrentGame()
	if g == nil {
		return game.ErrGameNotFound
	}
	p := g.FindPlayer(s.values.Get(keyActiveUser))
	if p == nil {
		return game.ErrPlayerNotFound
	}
	return g.UpdatePlayer(*p, changes)
}

// Bind installs the reactive wiring: whenever the active game id
// changes the role is restored, and whenever the live document changes
// the controller re-evaluates its state handler. Both run on a single
// drained goroutine outside any store lock, so handler side effects
// that mutate the game cannot re-enter the notifier. Returns an unbind
// func.
func (s *GameSession) Bind(ctrl *game.Controller) func() {
	gameWatch := s.values.Watch(keyActiveGame)
	done := make(chan struct{})

	go func() {
		var sub *store.Subscription
		var docs <-chan *game.Game
		defer func() {
			if sub != nil {
				sub.Cancel()
			}
		}()
		for {
			select {
			case <-done:
				return
			case id, ok := <-gameWatch.C:
				if !ok {
					return
				}
				if sub != nil {
					sub.Cancel()
					sub = nil
					docs = nil
				}
				s.Restore()
				if id == "" {
					continue
				}
				sub = s.store.Watch(id)
				docs = sub.C
				if ctrl != nil {
					if doc, found := s.store.Get(id); found {
						ctrl.RefreshState(doc)
					}
				}
			case doc, ok := <-docs:
				if !ok {
					docs = nil
					continue
				}
				if ctrl != nil {
					ctrl.RefreshState(doc)
				}
			}
		}
	}()

	return func() {
		close(done)
		gameWatch.Cancel()
	}
}
