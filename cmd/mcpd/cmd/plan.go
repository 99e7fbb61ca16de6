// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
)

var (
	planHint string
	planVars []string
)

var planCmd = &cobra.Command{
	Use:   "plan \"<intent>\"",
	Short: "Plan which procedure an intent maps to, without running anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadCatalog()
		if err != nil {
			return err
		}

		intent := strings.Join(args, " ")
		var hints *models.PlanHints
		if planHint != "" || len(planVars) > 0 {
			vars, err := parseVars(planVars)
			if err != nil {
				return err
			}
			hints = &models.PlanHints{CandidateHint: planHint, ExtraVars: vars}
		}

		decision := newPlanner(ix).Plan(intent, hints)
		return printJSON(cmd, decision)
	},
}

func init() {
	planCmd.Flags().StringVar(&planHint, "hint", "", "procedure id to seed as the top candidate")
	planCmd.Flags().StringArrayVar(&planVars, "var", nil, "extra variable as key=value (repeatable)")
	rootCmd.AddCommand(planCmd)
}

// parseVars turns repeated key=value flags into a vars map. Values that
// parse as JSON keep their type; everything else stays a string.
func parseVars(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vars[key] = v
	}
	return vars, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
