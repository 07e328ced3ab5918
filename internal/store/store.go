package store

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pmulch/gamekit/internal/game"
	"github.com/pmulch/gamekit/internal/ident"
)

var ErrNotFound = errors.New("game not found in store")

// Store holds the authoritative in-memory copy of every game document,
// mirrors each mutation into Postgres when a connection is configured,
// and notifies watchers of the touched document. Callers always receive
// detached deep copies; cross-observer consistency is eventual, driven
// by watch notifications.
type Store struct {
	mu       sync.Mutex
	db       *gorm.DB
	games    map[string]*game.Game
	watchers map[string]map[int]*Subscription
	nextKey  int
}

// New returns a store. conn may be nil for a purely in-memory store.
func New(conn *gorm.DB) *Store {
	return &Store{
		db:       conn,
		games:    make(map[string]*game.Game),
		watchers: make(map[string]map[int]*Subscription),
	}
}

// Insert assigns an id to the game and stores a detached copy of it.
func (s *Store) Insert(g *game.Game) (string, error) {
	if g == nil {
		return "", game.ErrInvalidParameters
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ident.New()
	doc := g.Clone()
	doc.ID = id
	s.games[id] = doc
	if err := s.persist(doc); err != nil {
		delete(s.games, id)
		return "", err
	}
	if err := s.logEvent(doc, "game_created", map[string]any{
		"host_id": doc.Host.ID,
	}); err != nil {
		return "", err
	}
	s.notify(doc)
	return id, nil
}

// Set applies a partial update of named top-level fields.
func (s *Store) Set(id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	doc.ApplyChanges(fields)
	if err := s.persist(doc); err != nil {
		return err
	}
	if state, ok := fields["state"]; ok {
		if err := s.logEvent(doc, "state_changed", map[string]any{
			"state": state,
		}); err != nil {
			return err
		}
	}
	s.notify(doc)
	return nil
}

// SetPlayerFields applies a targeted update to one player, addressed by
// position within the document's player sequence, and stamps the parent
// document's modified time. An empty field set still advances modified.
func (s *Store) SetPlayerFields(id string, index int, fields map[string]any, modified time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	if index < 0 || index >= len(doc.Players) {
		return game.ErrPlayerNotFound
	}
	doc.Players[index].ApplyChanges(fields)
	doc.Modified = modified
	if err := s.persist(doc); err != nil {
		return err
	}
	s.notify(doc)
	return nil
}

// PushPlayer appends a player to the document's player sequence.
func (s *Store) PushPlayer(id string, p game.Player, modified time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	doc.Players = append(doc.Players, p.Clone())
	doc.Modified = modified
	if err := s.persist(doc); err != nil {
		return err
	}
	if err := s.logEvent(doc, "player_joined", map[string]any{
		"player_id": p.ID,
		"name":      p.Name,
	}); err != nil {
		return err
	}
	s.notify(doc)
	return nil
}

// PullPlayer removes a player by value match. The modified time is
// stamped regardless of whether anything matched, mirroring the
// unconditional durable write the entity contract documents.
func (s *Store) PullPlayer(id string, p game.Player, modified time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	for i := range doc.Players {
		if reflect.DeepEqual(doc.Players[i], p) {
			doc.Players = append(doc.Players[:i], doc.Players[i+1:]...)
			if err := s.logEvent(doc, "player_removed", map[string]any{
				"player_id": p.ID,
			}); err != nil {
				return err
			}
			break
		}
	}
	doc.Modified = modified
	if err := s.persist(doc); err != nil {
		return err
	}
	s.notify(doc)
	return nil
}

// Get returns a detached copy of the document with the given id.
func (s *Store) Get(id string) (*game.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.games[id]
	if !ok {
		return nil, false
	}
	return doc.Clone().Bind(s), true
}

// FindByIDOrCode resolves a document by exact id match or by access
// code. Codes compare case-insensitively.
func (s *Store) FindByIDOrCode(key string) (*game.Game, bool) {
	if key == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.games[key]; ok {
		return doc.Clone().Bind(s), true
	}
	code := strings.ToLower(key)
	for _, doc := range s.games {
		if doc.AccessCode != "" && doc.AccessCode == code {
			return doc.Clone().Bind(s), true
		}
	}
	return nil, false
}

// FindJoinable resolves the active, lobby-state game with the given
// access code; players can only be added to such games.
func (s *Store) FindJoinable(code string) (*game.Game, bool) {
	if code == "" {
		return nil, false
	}
	code = strings.ToLower(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.games {
		if doc.Active && doc.State == game.StateLobby && doc.AccessCode == code {
			return doc.Clone().Bind(s), true
		}
	}
	return nil, false
}

// CountActiveByCode reports how many currently active games hold the
// given access code. Used by the uniqueness check during generation.
func (s *Store) CountActiveByCode(code string) int {
	if code == "" {
		return 0
	}
	code = strings.ToLower(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, doc := range s.games {
		if doc.Active && doc.AccessCode == code {
			count++
		}
	}
	return count
}
