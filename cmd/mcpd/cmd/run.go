// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	runLimit string
	runVars  []string
	runToken string
)

var runCmd = &cobra.Command{
	Use:   "run <procedure>",
	Short: "Run a catalog procedure through the execution gate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadCatalog()
		if err != nil {
			return err
		}

		procedure := args[0]
		credential := runToken
		if credential == "" {
			credential = cfg.Token
		}
		if err := newGate().Authorize(procedure, credential); err != nil {
			return err
		}

		playbook := procedure
		if meta, err := ix.Describe(procedure); err == nil && meta.Path != "" {
			playbook = meta.Path
		}

		vars, err := parseVars(runVars)
		if err != nil {
			return err
		}

		result, err := newExecutor().Run(cmd.Context(), playbook, vars, runLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runLimit, "limit", "l", "", "limit the run to one host")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "extra variable as key=value (repeatable)")
	runCmd.Flags().StringVar(&runToken, "token", "", "bearer credential (default is MCP_TOKEN)")
	rootCmd.AddCommand(runCmd)
}
