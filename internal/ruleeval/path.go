package ruleeval

import "strings"

// Resolve navigates a nested JSON-like value using a small path language:
//
//   - dot-separated keys descend into maps: "summary.Total Users"
//   - a filter segment "name[Field=Value]" descends into name (which must
//     hold a list of rows) and keeps rows whose Field, rendered as a
//     string, equals Value; surrounding quotes on Value are stripped
//   - a filter segment with an empty name ("[Field=Value]") applies the
//     filter to the current value directly
//
// If a filter matches exactly one row the segment collapses to that row
// so later segments can keep descending by key; zero or multiple matches
// yield the filtered list. Any failed hop resolves the whole path to nil;
// Resolve never panics and never returns an error. A segment containing
// '[' without a trailing ']' is treated as a plain key.
func Resolve(root any, path string) any {
	cur := root
	if path == "" {
		return cur
	}
	for _, part := range strings.Split(path, ".") {
		if i := strings.Index(part, "["); i >= 0 && strings.HasSuffix(part, "]") {
			name := part[:i]
			filter := part[i+1 : len(part)-1]
			if name != "" {
				m, ok := cur.(map[string]any)
				if !ok {
					return nil
				}
				cur = m[name]
				if cur == nil {
					return nil
				}
			}
			rows, ok := asList(cur)
			if !ok {
				return nil
			}
			key, want, ok := strings.Cut(filter, "=")
			if !ok {
				return nil
			}
			key = strings.TrimSpace(key)
			want = strings.Trim(strings.TrimSpace(want), `'"`)

			matches := make([]any, 0, len(rows))
			for _, r := range rows {
				row, ok := r.(map[string]any)
				if !ok {
					continue
				}
				if strings.TrimSpace(stringify(row[key])) == want {
					matches = append(matches, row)
				}
			}
			if len(matches) == 1 {
				cur = matches[0]
			} else {
				cur = matches
			}
			continue
		}

		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// rowGet reads a dotted key out of a single row. Unlike Resolve it has
// no filter-segment support; rows are flat-ish records.
func rowGet(row map[string]any, dotted string) any {
	var cur any = row
	for _, part := range strings.Split(dotted, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
