package hotkey

import (
	"fmt"
	"sync"
)

// Event is one raw key transition as delivered by a platform listener. Key
// may be a left/right modifier variant; the tracker canonicalizes it.
type Event struct {
	Key     string
	Pressed bool
}

// Tracker folds a raw key-event stream into edge-triggered combo callbacks.
// OnEngage fires exactly once when the full combo becomes held, OnRelease
// exactly once when any combo key is let go. Repeats of an already-held key
// and presses of unrelated keys never refire.
type Tracker struct {
	mu      sync.Mutex
	combo   map[string]bool
	pressed map[string]bool
	engaged bool

	onEngage  func()
	onRelease func()
}

// NewTracker builds a tracker for the given combo. The combo must contain at
// least one key after canonicalization.
func NewTracker(combo []string, onEngage, onRelease func()) (*Tracker, error) {
	keys := NormalizeCombo(combo)
	if len(keys) == 0 {
		return nil, fmt.Errorf("hotkey combo is empty")
	}
	t := &Tracker{
		combo:     make(map[string]bool, len(keys)),
		pressed:   make(map[string]bool),
		onEngage:  onEngage,
		onRelease: onRelease,
	}
	for _, k := range keys {
		t.combo[k] = true
	}
	return t, nil
}

// Combo returns the canonical combo keys.
func (t *Tracker) Combo() []string {
	keys := make([]string, 0, len(t.combo))
	for k := range t.combo {
		keys = append(keys, k)
	}
	return keys
}

// Handle applies one raw event. Callbacks run on the caller's goroutine.
func (t *Tracker) Handle(ev Event) {
	key := Normalize(ev.Key)
	if key == "" {
		return
	}

	t.mu.Lock()
	if ev.Pressed {
		t.pressed[key] = true
	} else {
		delete(t.pressed, key)
	}

	now := true
	for k := range t.combo {
		if !t.pressed[k] {
			now = false
			break
		}
	}

	var fire func()
	if now != t.engaged {
		t.engaged = now
		if now {
			fire = t.onEngage
		} else {
			fire = t.onRelease
		}
	}
	t.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// Reset clears the pressed-key set without firing callbacks. Used when the
// listener restarts and held-key state is unknown.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pressed = make(map[string]bool)
	t.engaged = false
	t.mu.Unlock()
}
