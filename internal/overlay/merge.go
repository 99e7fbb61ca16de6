// SPDX-License-Identifier: Apache-2.0

// Package overlay deep-merges policy documents. The merge is object-level
// recursive with whole-value replacement for scalars and arrays, plus one
// list-aware special case: lists of objects uniformly keyed by "vlan-id" are
// merged entry-by-entry. No general list-diff is attempted.
package overlay

import (
	"fmt"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/apperr"
)

// Document is a parsed policy document.
type Document = map[string]interface{}

const vlanIDKey = "vlan-id"

// Merge applies overlays in order onto base and returns the effective
// document. Inputs are never mutated. Merging [O1, O2] is equivalent to
// merging O1, then merging O2 onto the result.
func Merge(base Document, overlays ...Document) (Document, error) {
	merged := cloneMap(base)
	for _, ov := range overlays {
		out, err := mergeMap(merged, ov, "")
		if err != nil {
			return nil, err
		}
		merged = out
	}
	return merged, nil
}

func mergeMap(dst, src Document, path string) (Document, error) {
	out := make(Document, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}

	for k, sv := range src {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}

		// Merging under a top-level network[] collection is explicitly
		// unsupported; reject instead of silently mis-merging.
		if k == "network" && topLevel(path) {
			if _, isList := out[k].([]interface{}); isList {
				return nil, &apperr.MergeError{
					Path:   childPath + "[]",
					Reason: "overlay would change the shape of the network[] collection",
				}
			}
		}

		dv, exists := out[k]
		if !exists {
			out[k] = cloneValue(sv)
			continue
		}

		merged, err := mergeValue(dv, sv, childPath)
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}

	return out, nil
}

func mergeValue(dst, src interface{}, path string) (interface{}, error) {
	if dm, ok := dst.(Document); ok {
		if sm, ok := src.(Document); ok {
			return mergeMap(dm, sm, path)
		}
	}

	if sl, ok := src.([]interface{}); ok && keyedByVLANID(sl) {
		dl, _ := dst.([]interface{})
		return mergeVLANs(dl, sl, path)
	}

	// Scalars and ordinary lists: the overlay value replaces the base wholly.
	return cloneValue(src), nil
}

// mergeVLANs matches overlay entries to base entries by vlan-id. Matched
// entries are merged recursively, new entries are appended, base entries the
// overlay does not mention are preserved untouched. Two overlay entries with
// the same vlan-id resolve last-wins within that overlay application.
func mergeVLANs(base, ov []interface{}, path string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(base)+len(ov))
	idx := make(map[string]int)

	for _, v := range base {
		if m, ok := v.(Document); ok {
			if vid, ok := vlanID(m); ok {
				idx[vid] = len(out)
			}
		}
		out = append(out, cloneValue(v))
	}

	for _, v := range ov {
		m := v.(Document)
		vid, _ := vlanID(m)
		if i, ok := idx[vid]; ok {
			dm, ok := out[i].(Document)
			if !ok {
				out[i] = cloneValue(m)
				continue
			}
			merged, err := mergeMap(dm, m, path)
			if err != nil {
				return nil, err
			}
			out[i] = merged
			continue
		}
		idx[vid] = len(out)
		out = append(out, cloneValue(m))
	}

	return out, nil
}

// keyedByVLANID reports whether list is non-empty and every element is an
// object carrying a vlan-id field.
func keyedByVLANID(list []interface{}) bool {
	if len(list) == 0 {
		return false
	}
	for _, v := range list {
		m, ok := v.(Document)
		if !ok {
			return false
		}
		if _, ok := vlanID(m); !ok {
			return false
		}
	}
	return true
}

// vlanID normalizes the vlan-id field to a comparable key. YAML yields int,
// JSON yields float64; both must match.
func vlanID(m Document) (string, bool) {
	v, ok := m[vlanIDKey]
	if !ok {
		return "", false
	}
	switch n := v.(type) {
	case int:
		return fmt.Sprintf("%d", n), true
	case int64:
		return fmt.Sprintf("%d", n), true
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n)), true
		}
		return fmt.Sprintf("%v", n), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// topLevel reports whether path refers to the document root, treating the
// ietf-network:networks wrapper as transparent.
func topLevel(path string) bool {
	return path == "" || path == "ietf-network:networks"
}

func cloneMap(m Document) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
