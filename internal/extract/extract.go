// SPDX-License-Identifier: Apache-2.0

// Package extract pulls JSON objects out of noisy command output.
//
// Playbook stdout mixes prose, tables and embedded JSON. The scanner below
// is an explicit depth-counting state machine rather than a regex:
// backtracking regexes cannot match nested braces and degrade badly on long
// input. Only {...} spans are considered; bare arrays and scalars at the top
// level are ignored.
package extract

import "encoding/json"

// Objects returns every balanced {...} span in text that parses as a JSON
// object, in left-to-right order. A malformed span is discarded and scanning
// resumes; it never aborts extraction of later spans.
func Objects(text string) []map[string]interface{} {
	var out []map[string]interface{}
	scan(text, func(obj map[string]interface{}) {
		out = append(out, obj)
	})
	return out
}

// Count reports how many objects Objects would return and how many balanced
// candidate spans were discarded as malformed. Used for ingest accounting.
func Count(text string) (valid, skipped int) {
	skipped = scan(text, func(map[string]interface{}) {
		valid++
	})
	return valid, skipped
}

// scan walks text tracking brace depth and string/escape state, so braces
// inside quoted strings do not affect depth. Each span whose depth returns
// to zero is parsed as JSON; emit is called for every span that parses as an
// object. Returns the number of discarded spans. An unterminated open brace
// at end of input yields no candidate.
func scan(text string, emit func(map[string]interface{})) (skipped int) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			// Quotes outside a candidate span are prose.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				var obj map[string]interface{}
				if err := json.Unmarshal([]byte(text[start:i+1]), &obj); err == nil {
					emit(obj)
				} else {
					skipped++
				}
				start = -1
			}
		}
	}

	return skipped
}
