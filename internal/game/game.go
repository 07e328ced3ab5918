package game

import (
	"reflect"
	"time"

	"github.com/pmulch/gamekit/internal/ident"
)

// Lifecycle state names pre-registered on every Controller. Additional
// states are free-form strings supplied by the embedding game.
const (
	StateInit  = "init"
	StateLobby = "lobby"
	StateEnd   = "end"
)

// Store is the narrow view of the document store the entity mutates
// through. Implementations must apply each call atomically from the
// caller's point of view and notify document watchers on success.
type Store interface {
	Insert(g *Game) (string, error)
	Set(id string, fields map[string]any) error
	SetPlayerFields(id string, index int, fields map[string]any, modified time.Time) error
	PushPlayer(id string, p Player, modified time.Time) error
	PullPlayer(id string, p Player, modified time.Time) error
}

// Host identifies the controlling device for a Game. It is set at
// creation and never updated by the normal mutation paths.
type Host struct {
	ID string `json:"id"`
}

// Player is a joined participant. Game-specific logic may attach
// arbitrary extra fields through Custom; the entity only constrains ID.
type Player struct {
	ID      string         `json:"id"`
	Name    string         `json:"name,omitempty"`
	IsReady bool           `json:"isReady"`
	Custom  map[string]any `json:"custom,omitempty"`
}

// Game is one match instance: a shared document synchronized to every
// connected device. Mutation methods apply changes to both the durable
// store and this in-memory copy; other observers see the change through
// the store's watch notifications.
type Game struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Host       Host           `json:"host"`
	Players    []Player       `json:"players"`
	State      string         `json:"state"`
	AccessCode string         `json:"accessCode,omitempty"`
	Active     bool           `json:"active"`
	Modified   time.Time      `json:"modified"`
	Custom     map[string]any `json:"custom,omitempty"`

	store Store
}

// New returns a bare, unbound Game with construction defaults applied,
// then overridden by the supplied fields. The Controller's Create is the
// usual entry point; it forces the lobby defaults on top of these.
func New(overrides map[string]any) *Game {
	g := &Game{
		State:   StateInit,
		Players: []Player{},
	}
	g.ApplyChanges(overrides)
	return g
}

// Bind attaches the store the mutation methods write through.
func (g *Game) Bind(store Store) *Game {
	g.store = store
	return g
}

// Save persists a Game that has never been persisted and records the
// store-assigned id. A Game that already has an id cannot be inserted
// again; use Update.
func (g *Game) Save() error {
	if g.store == nil {
		return ErrNotBound
	}
	if g.ID != "" {
		return ErrAlreadyPersisted
	}
	id, err := g.store.Insert(g)
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

// Update applies the named fields to the durable document and to this
// copy, stamping Modified. A nil change set is silently ignored. An
// empty (non-nil) change set still advances Modified.
func (g *Game) Update(changes map[string]any) error {
	if changes == nil {
		return nil
	}
	if g.store == nil {
		return ErrNotBound
	}
	if g.ID == "" {
		return ErrNotPersisted
	}
	merged := make(map[string]any, len(changes)+1)
	for key, value := range changes {
		merged[key] = value
	}
	merged["modified"] = time.Now().UTC()
	if err := g.store.Set(g.ID, merged); err != nil {
		return err
	}
	g.ApplyChanges(merged)
	return nil
}

// AddPlayer appends the player to the game, generating an id when none
// is supplied, and returns the (possibly id-augmented) record. Callers
// must not pass ids that already exist in this game.
func (g *Game) AddPlayer(p Player) (Player, error) {
	if g.store == nil {
		return Player{}, ErrNotBound
	}
	if g.ID == "" {
		return Player{}, ErrNotPersisted
	}
	if p.ID == "" {
		p.ID = ident.New()
	}
	now := time.Now().UTC()
	if err := g.store.PushPlayer(g.ID, p, now); err != nil {
		return Player{}, err
	}
	g.Modified = now
	g.Players = append(g.Players, p)
	return p, nil
}

// UpdatePlayer applies the named fields to the player with a matching
// id. The player argument may be a detached copy; only its id matters.
// The parent Game's Modified advances even for an empty change set.
func (g *Game) UpdatePlayer(p Player, changes map[string]any) error {
	if g.store == nil {
		return ErrNotBound
	}
	index := g.playerIndex(p.ID)
	if index < 0 {
		return ErrPlayerNotFound
	}
	now := time.Now().UTC()
	if err := g.store.SetPlayerFields(g.ID, index, changes, now); err != nil {
		return err
	}
	g.Players[index].ApplyChanges(changes)
	g.Modified = now
	return nil
}

// RemovePlayer removes the player by value match from both the durable
// and local sequences and reports whether a local removal occurred. The
// durable pull is attempted unconditionally, so a drifted local copy can
// answer false while the durable document still changed.
func (g *Game) RemovePlayer(p Player) (bool, error) {
	if g.store == nil {
		return false, ErrNotBound
	}
	now := time.Now().UTC()
	if err := g.store.PullPlayer(g.ID, p, now); err != nil {
		return false, err
	}
	g.Modified = now
	for i := range g.Players {
		if reflect.DeepEqual(g.Players[i], p) {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// FindPlayer returns the player with the given id, or nil.
func (g *Game) FindPlayer(id string) *Player {
	index := g.playerIndex(id)
	if index < 0 {
		return nil
	}
	return &g.Players[index]
}

func (g *Game) playerIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyChanges merges a flat change set into the struct. Keys that are
// not well-known fields land in Custom so embedding games can carry
// their own document fields.
func (g *Game) ApplyChanges(changes map[string]any) {
	for key, value := range changes {
		switch key {
		case "id":
			if v, ok := value.(string); ok {
				g.ID = v
			}
		case "name":
			if v, ok := value.(string); ok {
				g.Name = v
			}
		case "host":
			if v, ok := value.(Host); ok {
				g.Host = v
			}
		case "players":
			if v, ok := value.([]Player); ok {
				g.Players = v
			}
		case "state":
			if v, ok := value.(string); ok {
				g.State = v
			}
		case "accessCode":
			if v, ok := value.(string); ok {
				g.AccessCode = v
			}
		case "active":
			if v, ok := value.(bool); ok {
				g.Active = v
			}
		case "modified":
			if v, ok := value.(time.Time); ok {
				g.Modified = v
			}
		default:
			if g.Custom == nil {
				g.Custom = make(map[string]any)
			}
			g.Custom[key] = value
		}
	}
}

// ApplyChanges merges a flat change set into the player record.
func (p *Player) ApplyChanges(changes map[string]any) {
	for key, value := range changes {
		switch key {
		case "id":
			if v, ok := value.(string); ok {
				p.ID = v
			}
		case "name":
			if v, ok := value.(string); ok {
				p.Name = v
			}
		case "isReady":
			if v, ok := value.(bool); ok {
				p.IsReady = v
			}
		default:
			if p.Custom == nil {
				p.Custom = make(map[string]any)
			}
			p.Custom[key] = value
		}
	}
}

// Clone returns a deep copy detached from any other observer's copy.
// The store binding is carried over so the copy can keep mutating.
func (g *Game) Clone() *Game {
	clone := *g
	clone.Players = make([]Player, len(g.Players))
	for i := range g.Players {
		clone.Players[i] = g.Players[i].Clone()
	}
	clone.Custom = cloneMap(g.Custom)
	return &clone
}

// Clone returns a deep copy of the player record.
func (p Player) Clone() Player {
	clone := p
	clone.Custom = cloneMap(p.Custom)
	return clone
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for key, value := range m {
		clone[key] = value
	}
	return clone
}
