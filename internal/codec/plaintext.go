package codec

import "strings"

// ExtractField returns the literal bound to name in a record plaintext blob,
// without its visibility annotation. It returns "" when the field is absent;
// callers must treat "" as unknown, never as zero.
//
// The scan is line oriented and order independent: unknown fields, blank
// lines and single-line records are all tolerated.
func ExtractField(plaintext, name string) string {
	if name == "" {
		return ""
	}
	for _, e := range scanEntries(plaintext) {
		if e.key == name && e.depth <= 1 {
			return e.value
		}
	}
	return ""
}

// ParsePlaintext returns every top-level name: literal pair of a record
// plaintext blob. Nested struct members are skipped.
func ParsePlaintext(plaintext string) map[string]string {
	fields := make(map[string]string)
	for _, e := range scanEntries(plaintext) {
		if e.depth > 1 || e.value == "" {
			continue
		}
		if _, seen := fields[e.key]; !seen {
			fields[e.key] = e.value
		}
	}
	return fields
}

type entry struct {
	key   string
	value string
	depth int
}

// scanEntries splits plaintext on newlines and commas and tracks brace depth.
// Record plaintext contains no string literals, so both separators are safe.
func scanEntries(plaintext string) []entry {
	var (
		out   []entry
		depth int
	)
	segments := strings.FieldsFunc(plaintext, func(r rune) bool { return r == '\n' || r == ',' })
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		for strings.HasPrefix(seg, "{") {
			depth++
			seg = strings.TrimSpace(seg[1:])
		}
		closing := 0
		for strings.HasSuffix(seg, "}") {
			closing++
			seg = strings.TrimSpace(seg[:len(seg)-1])
		}

		// A member may open a nested struct on the same line, as in
		// "terms: { amount: 1u64.private"; the rest is scanned one level down.
		for seg != "" {
			key, value, ok := strings.Cut(seg, ":")
			if !ok {
				break
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			entryDepth := depth
			if entryDepth == 0 {
				entryDepth = 1
			}
			if strings.HasPrefix(value, "{") {
				out = append(out, entry{key: key, depth: entryDepth})
				if depth == 0 {
					depth = 1
				}
				depth++
				seg = strings.TrimSpace(value[1:])
				continue
			}
			if key != "" && !strings.ContainsAny(key, " \t{}") {
				out = append(out, entry{key: key, value: literalToken(value), depth: entryDepth})
			}
			break
		}
		depth -= closing
		if depth < 0 {
			depth = 0
		}
	}
	return out
}

// literalToken keeps the first whitespace-delimited token and strips its
// visibility annotation.
func literalToken(value string) string {
	if i := strings.IndexAny(value, " \t\r"); i >= 0 {
		value = value[:i]
	}
	return StripVisibility(value)
}
