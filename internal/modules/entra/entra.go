// Package entra implements the Microsoft Entra ID audit modules. Each
// module fetches raw Graph resources and condenses them into the
// payload shape the rule packs evaluate: a "summary" map of headline
// numbers plus row lists for per-object checks.
package entra

import (
	"time"
)

// now is swapped out by tests that pin relative-age calculations.
var now = time.Now

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func num(m map[string]any, key string) float64 {
	n, _ := m[key].(float64)
	return n
}

func object(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func list(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if o, ok := v.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// daysSince parses a Graph timestamp and returns whole days elapsed.
// A missing or unparseable timestamp reports -1, which reads as
// "never signed in" and deliberately does not trip greater-than age
// filters.
func daysSince(timestamp string) int {
	if timestamp == "" {
		return -1
	}
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return -1
	}
	return int(now().Sub(t).Hours() / 24)
}

// daysUntil returns whole days from now to a Graph timestamp,
// negative when it is already past. Missing timestamps report 0.
func daysUntil(timestamp string) int {
	if timestamp == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return 0
	}
	return int(t.Sub(now()).Hours() / 24)
}
