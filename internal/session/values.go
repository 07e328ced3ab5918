package session

import "sync"

// Values is the process-lifetime key-value store holding the transient
// session pointers (active game id, active user id). Watchers are told
// when a key's value actually changes; setting the same value again is
// not a change, which keeps the restore loop from re-triggering itself.
type Values struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[string]map[int]*Watcher
	nextKey  int
}

// Watcher delivers new values of one key. A slow consumer is coalesced
// to the latest value.
type Watcher struct {
	C <-chan string

	key    string
	id     int
	values *Values
	ch     chan string
	once   sync.Once
}

func NewValues() *Values {
	return &Values{
		values:   make(map[string]string),
		watchers: make(map[string]map[int]*Watcher),
	}
}

// Set stores the value and notifies watchers of the key if it changed.
// An empty value clears the key.
func (v *Values) Set(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.values[key] == value {
		return
	}
	if value == "" {
		delete(v.values, key)
	} else {
		v.values[key] = value
	}
	for _, w := range v.watchers[key] {
		select {
		case w.ch <- value:
		default:
			select {
			case <-w.ch:
			default:
			}
			select {
			case w.ch <- value:
			default:
			}
		}
	}
}

// Get returns the current value of the key, or "" when absent.
func (v *Values) Get(key string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[key]
}

// Watch registers a change watcher for the key.
func (v *Values) Watch(key string) *Watcher {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch := make(chan string, 1)
	w := &Watcher{
		C:      ch,
		key:    key,
		id:     v.nextKey,
		values: v,
		ch:     ch,
	}
	v.nextKey++
	group := v.watchers[key]
	if group == nil {
		group = make(map[int]*Watcher)
		v.watchers[key] = group
	}
	group[w.id] = w
	return w
}

// Cancel detaches the watcher and closes its channel.
func (w *Watcher) Cancel() {
	w.once.Do(func() {
		w.values.mu.Lock()
		defer w.values.mu.Unlock()
		if group, ok := w.values.watchers[w.key]; ok {
			delete(group, w.id)
			if len(group) == 0 {
				delete(w.values.watchers, w.key)
			}
		}
		close(w.ch)
	})
}
