package hotkey

import (
	"reflect"
	"testing"
)

func newTestMatcher(cancel ...string) *Matcher {
	combos := []Combination{
		{Name: "main", Keys: []string{"ctrl", "alt"}},
	}
	return NewMatcher(combos, cancel, NewTracker())
}

func feed(t *testing.T, m *Matcher, events ...[2]string) []Edge {
	t.Helper()
	var all []Edge
	for _, ev := range events {
		down := ev[1] == "down"
		all = append(all, m.Handle(ev[0], down)...)
	}
	return all
}

func TestStartFiresOncePerHold(t *testing.T) {
	m := newTestMatcher()
	edges := feed(t, m,
		[2]string{"ctrl", "down"},
		[2]string{"alt", "down"},
		[2]string{"ctrl", "down"}, // auto-repeat while held
		[2]string{"alt", "down"},
	)
	want := []Edge{{Type: EdgeStart, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	if m.Active() != "main" {
		t.Fatalf("active = %q", m.Active())
	}
}

func TestStopOnAnyKeyRelease(t *testing.T) {
	m := newTestMatcher()
	feed(t, m, [2]string{"ctrl", "down"}, [2]string{"alt", "down"})
	edges := feed(t, m, [2]string{"alt", "up"})
	want := []Edge{{Type: EdgeStop, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	// the remaining release produces nothing further
	if edges := feed(t, m, [2]string{"ctrl", "up"}); len(edges) != 0 {
		t.Fatalf("extra edges after stop: %v", edges)
	}
}

func TestRetriggerNeedsFullCycle(t *testing.T) {
	m := newTestMatcher()
	feed(t, m,
		[2]string{"ctrl", "down"},
		[2]string{"alt", "down"},
		[2]string{"alt", "up"},
	)
	edges := feed(t, m, [2]string{"alt", "down"})
	want := []Edge{{Type: EdgeStart, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestCancelWhileActive(t *testing.T) {
	m := newTestMatcher("esc")
	feed(t, m, [2]string{"ctrl", "down"}, [2]string{"alt", "down"})
	edges := feed(t, m, [2]string{"esc", "down"})
	want := []Edge{{Type: EdgeCancel, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	// releasing the combination afterwards does not emit a stop
	edges = feed(t, m,
		[2]string{"esc", "up"},
		[2]string{"ctrl", "up"},
		[2]string{"alt", "up"},
	)
	if len(edges) != 0 {
		t.Fatalf("edges after cancel = %v", edges)
	}
}

func TestCancelInactiveIsNoop(t *testing.T) {
	m := newTestMatcher("esc")
	edges := feed(t, m, [2]string{"esc", "down"}, [2]string{"esc", "up"})
	if len(edges) != 0 {
		t.Fatalf("edges = %v", edges)
	}
}

func TestUnrelatedKeysIgnored(t *testing.T) {
	m := newTestMatcher()
	edges := feed(t, m,
		[2]string{"ctrl", "down"},
		[2]string{"x", "down"},
		[2]string{"x", "up"},
		[2]string{"alt", "down"},
	)
	want := []Edge{{Type: EdgeStart, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestAliasNormalization(t *testing.T) {
	m := newTestMatcher()
	// the hook reports sided names; config uses the generic names
	edges := feed(t, m,
		[2]string{"left ctrl", "down"},
		[2]string{"Right Alt", "down"},
	)
	want := []Edge{{Type: EdgeStart, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestNormalizeSpaceSymbols(t *testing.T) {
	cases := map[string]string{
		" ":         "space",
		"space":     "space",
		"spacebar":  "space",
		"Left Ctrl": "ctrl",
		"ESC":       "esc",
		"":          "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}

	// a combination containing the space bar matches hook events that
	// report it as a blank symbol
	m := NewMatcher([]Combination{{Name: "talk", Keys: []string{"ctrl", "space"}}}, nil, NewTracker())
	var edges []Edge
	edges = append(edges, m.Handle("ctrl", true)...)
	edges = append(edges, m.Handle(" ", true)...)
	want := []Edge{{Type: EdgeStart, Combo: "talk"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestSingleActiveCombination(t *testing.T) {
	tracker := NewTracker()
	m := NewMatcher([]Combination{
		{Name: "a", Keys: []string{"ctrl", "alt"}},
		{Name: "b", Keys: []string{"ctrl", "shift"}},
	}, nil, tracker)

	var edges []Edge
	edges = append(edges, m.Handle("ctrl", true)...)
	edges = append(edges, m.Handle("alt", true)...)
	edges = append(edges, m.Handle("shift", true)...) // b satisfied while a active
	want := []Edge{{Type: EdgeStart, Combo: "a"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestReset(t *testing.T) {
	m := newTestMatcher()
	feed(t, m, [2]string{"ctrl", "down"}, [2]string{"alt", "down"})
	m.Reset()
	if m.Active() != "" {
		t.Fatalf("active after reset = %q", m.Active())
	}
	// keys are still physically held; next event re-arms the start edge
	edges := feed(t, m, [2]string{"ctrl", "down"})
	want := []Edge{{Type: EdgeStart, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}

func TestTrackerClearRecovers(t *testing.T) {
	tracker := NewTracker()
	m := NewMatcher([]Combination{{Name: "main", Keys: []string{"ctrl", "alt"}}}, nil, tracker)
	m.Handle("ctrl", true)
	m.Handle("alt", true)

	// a missed release leaves keys stuck; Clear recovers
	tracker.Clear()
	if tracker.Len() != 0 {
		t.Fatalf("tracker not empty: %d", tracker.Len())
	}
	edges := m.Handle("x", true)
	want := []Edge{{Type: EdgeStop, Combo: "main"}}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
}
