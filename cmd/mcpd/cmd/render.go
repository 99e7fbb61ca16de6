// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/format"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/policy"
)

var (
	renderBase     string
	renderOverlays []string
	renderOut      string
	renderAsJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Merge policy overlays onto a base document",
	Long: `Render applies overlay documents to a base document in order and
prints the effective configuration. Objects merge recursively, scalars and
plain lists are replaced, and VLAN lists merge entry by entry keyed on
vlan-id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderBase == "" {
			return fmt.Errorf("--base is required")
		}

		effective, err := policy.RenderFiles(renderBase, renderOverlays...)
		if err != nil {
			return err
		}

		if renderOut != "" {
			return format.WriteFile(renderOut, effective)
		}
		out, err := format.FormatData(effective, !renderAsJSON)
		if err != nil {
			return fmt.Errorf("error formatting output: %w", err)
		}
		cmd.Println(out)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderBase, "base", "", "base document (YAML or JSON)")
	renderCmd.Flags().StringArrayVar(&renderOverlays, "overlay", nil, "overlay document, applied in order (repeatable)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the result to a file instead of stdout")
	renderCmd.Flags().BoolVar(&renderAsJSON, "json", false, "print JSON instead of YAML")
	rootCmd.AddCommand(renderCmd)
}
