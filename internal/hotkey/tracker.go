package hotkey

import "sync"

// Tracker maintains the set of currently held keys. Press and Release are
// driven from the event loop; Clear may also be called from worker
// goroutines after pipeline failures, so access is guarded.
type Tracker struct {
	mu      sync.Mutex
	pressed map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pressed: make(map[string]bool)}
}

// Press records a key as held. Repeats while held are no-ops.
func (t *Tracker) Press(sym string) {
	if sym == "" {
		return
	}
	t.mu.Lock()
	t.pressed[sym] = true
	t.mu.Unlock()
}

// Release removes a key from the held set. Releasing a key that was never
// pressed is a no-op.
func (t *Tracker) Release(sym string) {
	t.mu.Lock()
	delete(t.pressed, sym)
	t.mu.Unlock()
}

// Clear empties the held set. Used to recover after errors, when release
// events may have been missed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.pressed = make(map[string]bool)
	t.mu.Unlock()
}

// Held reports whether a key is currently down.
func (t *Tracker) Held(sym string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pressed[sym]
}

// Satisfied reports whether every key in the combination is currently down.
// An empty combination is never satisfied.
func (t *Tracker) Satisfied(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		if !t.pressed[k] {
			return false
		}
	}
	return true
}

// Len returns the number of currently held keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pressed)
}
