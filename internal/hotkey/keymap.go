package hotkey

import "strings"

// aliases maps the key names users write in config (and the symbols the
// keyboard hook reports) onto canonical symbols, so "left ctrl", "CONTROL"
// and "ctrl" all track as the same key.
var aliases = map[string]string{
	"control":       "ctrl",
	"left ctrl":     "ctrl",
	"right ctrl":    "ctrl",
	"left control":  "ctrl",
	"right control": "ctrl",
	"lctrl":         "ctrl",
	"rctrl":         "ctrl",

	"menu":      "alt",
	"left alt":  "alt",
	"right alt": "alt",
	"lalt":      "alt",
	"ralt":      "alt",

	"left shift":  "shift",
	"right shift": "shift",
	"lshift":      "shift",
	"rshift":      "shift",

	"win":         "cmd",
	"meta":        "cmd",
	"super":       "cmd",
	"left cmd":    "cmd",
	"right cmd":   "cmd",
	"windows":     "cmd",
	"left win":    "cmd",
	"right win":   "cmd",
	"left super":  "cmd",
	"right super": "cmd",

	"escape":   "esc",
	"return":   "enter",
	"spacebar": "space",
}

// Normalize maps a raw key symbol to its canonical form. The hook reports
// the space bar as a literal blank, which trimming would erase.
func Normalize(sym string) string {
	if strings.TrimSpace(sym) == "" && sym != "" {
		return "space"
	}
	s := strings.ToLower(strings.TrimSpace(sym))
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// NormalizeAll normalizes every symbol in a combination.
func NormalizeAll(syms []string) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = Normalize(s)
	}
	return out
}
