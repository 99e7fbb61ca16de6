// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/store"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/telemetry"
)

var ingestHost string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest raw playbook output into the CMDB",
	Long: `Ingest scans raw ansible-playbook output for embedded JSON telemetry,
normalizes BGP peer and OSPF neighbor records, and upserts them into the
CMDB together with a per-host routing summary. Reads stdin when no file is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestHost == "" {
			return fmt.Errorf("--host is required")
		}

		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}

		st, err := store.Open(cfg.CMDBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := telemetry.New(st, logger).Ingest(string(raw), ingestHost, time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestHost, "host", "", "host the output was collected from")
	rootCmd.AddCommand(ingestCmd)
}
