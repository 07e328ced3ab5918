package store

import (
	"sync"

	"github.com/pmulch/gamekit/internal/game"
)

// Subscription delivers fresh snapshots of one document as it changes.
// Delivery never blocks the mutating caller: a slow consumer is
// coalesced to the latest snapshot.
type Subscription struct {
	C <-chan *game.Game

	id    string
	key   int
	store *Store
	ch    chan *game.Game
	once  sync.Once
}

// Cancel detaches the subscription and closes its channel.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()
		if group, ok := sub.store.watchers[sub.id]; ok {
			delete(group, sub.key)
			if len(group) == 0 {
				delete(sub.store.watchers, sub.id)
			}
		}
		close(sub.ch)
	})
}

// Watch registers a change subscription for the document with the given
// id. An unknown id is fine; the subscription starts delivering once a
// document with that id exists and mutates.
func (s *Store) Watch(id string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan *game.Game, 1)
	sub := &Subscription{
		C:     ch,
		id:    id,
		key:   s.nextKey,
		store: s,
		ch:    ch,
	}
	s.nextKey++
	group := s.watchers[id]
	if group == nil {
		group = make(map[int]*Subscription)
		s.watchers[id] = group
	}
	group[sub.key] = sub
	return sub
}

// notify fans a fresh snapshot out to every watcher of the document.
// Callers hold s.mu; sends are non-blocking so handler side effects can
// never deadlock against the store lock.
func (s *Store) notify(doc *game.Game) {
	group := s.watchers[doc.ID]
	if len(group) == 0 {
		return
	}
	for _, sub := range group {
		snapshot := doc.Clone().Bind(s)
		select {
		case sub.ch <- snapshot:
		default:
			// Drop the stale snapshot, then offer the fresh one.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}
