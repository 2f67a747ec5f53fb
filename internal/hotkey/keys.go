package hotkey

import "strings"

// Normalize canonicalizes a key identifier: lowercase, left/right modifier
// variants collapsed, common aliases mapped to one name. Combos and the
// pressed-key set are always compared in canonical form, so "ctrl_l" held
// down satisfies a combo configured as "ctrl".
func Normalize(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.TrimSuffix(k, "_l")
	k = strings.TrimSuffix(k, "_r")
	switch k {
	case "ctrl", "control":
		return "ctrl"
	case "cmd", "command", "meta", "super", "win":
		return "cmd"
	case "alt", "option", "menu":
		return "alt"
	case "shift":
		return "shift"
	case "esc", "escape":
		return "esc"
	case "return", "enter":
		return "enter"
	}
	return k
}

// NormalizeCombo canonicalizes every key of a combo, dropping empties and
// duplicates. Order is not significant for matching.
func NormalizeCombo(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		n := Normalize(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
