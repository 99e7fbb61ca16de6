// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the procedure catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List procedures and their feature mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadCatalog()
		if err != nil {
			return err
		}
		for _, p := range ix.Procedures() {
			cmd.Printf("%-40s %s\n", p.ID, p.Title)
		}
		cmd.Println()
		for _, feature := range ix.Features() {
			cmd.Printf("feature %s:\n", feature)
			for _, entry := range ix.Lookup(feature) {
				cmd.Printf("  %-8s %s\n", entry.Role, entry.ProcedureID)
			}
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one procedure's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadCatalog()
		if err != nil {
			return err
		}
		meta, err := ix.Describe(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, meta)
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	rootCmd.AddCommand(catalogCmd)
}
