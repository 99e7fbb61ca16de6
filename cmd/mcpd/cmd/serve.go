// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/inventory"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/server"
)

const hostListProcedure = "playbooks/routers_list.yml"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning and execution API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ix, err := loadCatalog()
		if err != nil {
			return err
		}

		exec := newExecutor()

		// Host discovery only makes sense when the catalog carries the
		// listing procedure.
		var enum *inventory.Enumerator
		if ix.Has(hostListProcedure) {
			enum = inventory.New(exec.Run, hostListProcedure, cfg.EnumFallback, cfg.EnumTTL, logger)
		} else if len(cfg.EnumFallback) > 0 {
			enum = inventory.New(nil, "", cfg.EnumFallback, cfg.EnumTTL, logger)
		}

		srv := server.New(ix, newPlanner(ix), newGate(), exec, enum, logger)
		return srv.ListenAndServe(cfg.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
