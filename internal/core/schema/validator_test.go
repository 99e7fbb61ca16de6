// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hostSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"host"},
	"properties": map[string]interface{}{
		"host":   map[string]interface{}{"type": "string"},
		"detail": map[string]interface{}{"type": "boolean"},
	},
}

func TestValidateArgsAccepts(t *testing.T) {
	issues, err := ValidateArgs(hostSchema, map[string]interface{}{"host": "r1"})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateArgsCollectsViolations(t *testing.T) {
	issues, err := ValidateArgs(hostSchema, map[string]interface{}{"detail": "yes"})
	require.NoError(t, err)
	assert.Len(t, issues, 2) // missing host, detail not a boolean
}

func TestValidateArgsNilSchemaAcceptsAnything(t *testing.T) {
	issues, err := ValidateArgs(nil, map[string]interface{}{"whatever": 1})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = ValidateArgs(map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateArgsNilArgs(t *testing.T) {
	issues, err := ValidateArgs(hostSchema, nil)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestMergeVarsVarsWin(t *testing.T) {
	merged := MergeVars(
		map[string]interface{}{"host": "r2"},
		map[string]interface{}{"host": "r1", "detail": true},
	)
	assert.Equal(t, map[string]interface{}{"host": "r2", "detail": true}, merged)
}

func TestMergeVarsEmptyInputs(t *testing.T) {
	assert.Empty(t, MergeVars(nil, nil))
	assert.Equal(t, map[string]interface{}{"a": 1}, MergeVars(map[string]interface{}{"a": 1}, nil))
}
