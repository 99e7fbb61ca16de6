// SPDX-License-Identifier: Apache-2.0

package extract_test

import (
	"strings"
	"testing"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []map[string]interface{}
	}{
		{
			name: "single object",
			text: `{"a":1}`,
			want: []map[string]interface{}{{"a": float64(1)}},
		},
		{
			name: "object surrounded by prose",
			text: `PLAY RECAP ok=1 {"host":"r1"} changed=0`,
			want: []map[string]interface{}{{"host": "r1"}},
		},
		{
			name: "malformed span does not halt later extraction",
			text: `noise {"a":1} more {bad json} end {"b":{"c":2}}`,
			want: []map[string]interface{}{
				{"a": float64(1)},
				{"b": map[string]interface{}{"c": float64(2)}},
			},
		},
		{
			name: "braces inside quoted strings do not affect depth",
			text: `{"msg":"open { and close }","n":2}`,
			want: []map[string]interface{}{{"msg": "open { and close }", "n": float64(2)}},
		},
		{
			name: "escaped quote inside string",
			text: `{"msg":"say \"{\" loudly"}`,
			want: []map[string]interface{}{{"msg": `say "{" loudly`}},
		},
		{
			name: "unterminated open brace yields nothing",
			text: `tail {"a": 1`,
			want: nil,
		},
		{
			name: "stray closing brace is ignored",
			text: `} {"a":1}`,
			want: []map[string]interface{}{{"a": float64(1)}},
		},
		{
			name: "bare array is ignored",
			text: `[1,2,3]`,
			want: nil,
		},
		{
			name: "nested nulls numbers arrays",
			text: `{"peers":[{"ip":"10.0.0.1","as":null}],"total":1}`,
			want: []map[string]interface{}{{
				"peers": []interface{}{map[string]interface{}{"ip": "10.0.0.1", "as": nil}},
				"total": float64(1),
			}},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extract.Objects(tc.text)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestObjectsOrderAndRepeatability(t *testing.T) {
	text := `a {"n":1} b {"n":2} c {"n":3}`

	first := extract.Objects(text)
	require.Len(t, first, 3)
	for i, obj := range first {
		assert.Equal(t, float64(i+1), obj["n"])
	}

	// Re-computed from scratch on each call.
	second := extract.Objects(text)
	assert.Equal(t, first, second)
}

func TestCount(t *testing.T) {
	valid, skipped := extract.Count(`{"a":1} {oops} {"b":2} {also bad}`)
	assert.Equal(t, 2, valid)
	assert.Equal(t, 2, skipped)
}

func TestObjectsLongInput(t *testing.T) {
	// A pathological prose run with stray braces should stay linear and
	// still find the trailing object.
	var sb strings.Builder
	for i := 0; i < 10000; i++ {
		sb.WriteString("{ ")
	}
	sb.WriteString(`{"ok":true}`)

	got := extract.Objects(sb.String())
	// All the stray opens swallow the trailing object into one unterminated
	// span, so nothing is produced. The point is termination, not recovery.
	assert.Nil(t, got)
}
