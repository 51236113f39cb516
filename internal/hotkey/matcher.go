package hotkey

// Combination is a named set of keys that must all be held at once.
type Combination struct {
	Name string
	Keys []string
}

// EdgeType classifies a matcher transition.
type EdgeType int

const (
	// EdgeStart fires when a combination becomes fully held.
	EdgeStart EdgeType = iota
	// EdgeStop fires when the active combination is no longer fully held.
	EdgeStop
	// EdgeCancel fires when a cancel key goes down while a combination is
	// active.
	EdgeCancel
)

func (e EdgeType) String() string {
	switch e {
	case EdgeStart:
		return "start"
	case EdgeStop:
		return "stop"
	case EdgeCancel:
		return "cancel"
	}
	return "unknown"
}

// Edge is one transition produced by the Matcher.
type Edge struct {
	Type  EdgeType
	Combo string
}

// Matcher turns a stream of key press/release events into start, stop and
// cancel edges. A combination fires a start edge exactly once per hold: it
// must drop out of the held state before it can fire again. Only one
// combination can be active at a time. Handle is called from a single
// goroutine.
type Matcher struct {
	combos  []Combination
	cancel  []string
	tracker *Tracker

	satisfied []bool
	cancelSat bool
	active    int
}

// NewMatcher builds a Matcher over the given combinations, cancel keys and
// shared key tracker. Key symbols are normalized.
func NewMatcher(combos []Combination, cancelKeys []string, tracker *Tracker) *Matcher {
	cs := make([]Combination, len(combos))
	for i, c := range combos {
		cs[i] = Combination{Name: c.Name, Keys: NormalizeAll(c.Keys)}
	}
	return &Matcher{
		combos:    cs,
		cancel:    NormalizeAll(cancelKeys),
		tracker:   tracker,
		satisfied: make([]bool, len(cs)),
		active:    -1,
	}
}

// Handle feeds one key event through the tracker and returns the edges it
// produced, in the order they occurred.
func (m *Matcher) Handle(sym string, down bool) []Edge {
	sym = Normalize(sym)
	if sym == "" {
		return nil
	}
	if down {
		m.tracker.Press(sym)
	} else {
		m.tracker.Release(sym)
	}

	var edges []Edge

	// stop the active combination first so a shared key released and
	// re-pressed in one burst cannot produce start-before-stop
	if m.active >= 0 && !m.tracker.Satisfied(m.combos[m.active].Keys) {
		edges = append(edges, Edge{Type: EdgeStop, Combo: m.combos[m.active].Name})
		m.active = -1
	}

	cancelNow := m.cancelHeld()
	if cancelNow && !m.cancelSat && m.active >= 0 {
		edges = append(edges, Edge{Type: EdgeCancel, Combo: m.combos[m.active].Name})
		m.active = -1
	}
	m.cancelSat = cancelNow

	for i := range m.combos {
		now := m.tracker.Satisfied(m.combos[i].Keys)
		if now && !m.satisfied[i] && m.active < 0 && !cancelNow {
			edges = append(edges, Edge{Type: EdgeStart, Combo: m.combos[i].Name})
			m.active = i
		}
		m.satisfied[i] = now
	}

	return edges
}

func (m *Matcher) cancelHeld() bool {
	for _, k := range m.cancel {
		if m.tracker.Held(k) {
			return true
		}
	}
	return false
}

// Active returns the name of the currently active combination, or "".
func (m *Matcher) Active() string {
	if m.active < 0 {
		return ""
	}
	return m.combos[m.active].Name
}

// Reset drops the active combination without emitting an edge. Used after a
// failed capture start so the next full hold can trigger again.
func (m *Matcher) Reset() {
	m.active = -1
	for i := range m.satisfied {
		m.satisfied[i] = false
	}
	m.cancelSat = false
}
