// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateArgs validates arguments against a JSON schema and returns the
// violations as plain strings. Violations are data, not failures: the caller
// decides what to do with them. The returned error is reserved for a schema
// that cannot be processed at all. A nil or empty schema accepts anything.
func ValidateArgs(schema map[string]interface{}, args map[string]interface{}) ([]string, error) {
	if len(schema) == 0 {
		return nil, nil
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: failed to serialize schema: %w", err)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: failed to serialize args: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(argsBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		issues = append(issues, resErr.String())
	}
	return issues, nil
}

// MergeVars merges vars with default values; vars win.
func MergeVars(vars map[string]interface{}, defaults map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(vars)+len(defaults))

	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range vars {
		result[k] = v
	}

	return result
}
