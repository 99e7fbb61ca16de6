// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/catalog"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/config"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/executor"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/gate"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/logging"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/planner"
)

var (
	debug       bool
	catalogPath string
	cmdbPath    string
	dryRun      bool

	// Loaded in PersistentPreRunE, shared by all verbs.
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mcpd",
	Short: "Network automation decision layer",
	Long: `mcpd plans, gates and executes Ansible procedures for a lab network.
It maps natural-language intents to catalog procedures, enforces an
allow-list and bearer token on execution, merges policy overlays, and
ingests routing telemetry into a SQLite CMDB.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		if catalogPath != "" {
			cfg.CatalogPath = catalogPath
		}
		if cmdbPath != "" {
			cfg.CMDBPath = cmdbPath
		}

		logger, err = logging.New(debug)
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file (default is MCP_CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&cmdbPath, "cmdb", "", "CMDB database file (default is CMDB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry", false, "never invoke ansible-playbook, echo the invocation instead")
}

func loadCatalog() (*catalog.Index, error) {
	ix, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog %s: %w", cfg.CatalogPath, err)
	}
	return ix, nil
}

func newPlanner(ix *catalog.Index) *planner.Planner {
	return planner.New(ix, cfg.PlanThreshold, cfg.HintBoost)
}

func newGate() *gate.Gate {
	return gate.New(cfg.AllowPatterns, cfg.Token, cfg.RequireAuth)
}

func newExecutor() *executor.Executor {
	return executor.New(cfg.AnsibleBin, cfg.AnsibleInventory, 5*time.Minute, logger).
		WithDryMode(dryRun)
}
