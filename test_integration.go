//go:build integration
// +build integration

// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/catalog"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/executor"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/gate"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/overlay"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/planner"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/store"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/telemetry"
)

// TestDecisionWorkflow walks the shipped catalog through plan, gate,
// dry-run execution and telemetry ingestion end-to-end.
func TestDecisionWorkflow(t *testing.T) {
	tempDir := t.TempDir()

	// 1. Catalog loading and referential integrity
	ix, err := catalog.Load("knowledge/playbook_index.yaml")
	require.NoError(t, err)

	t.Run("CatalogLoad", func(t *testing.T) {
		assert.True(t, ix.Has("playbooks/show_bgp.yml"))
		assert.True(t, ix.Has("playbooks/routers_list.yml"))
		assert.NotEmpty(t, ix.Features())

		fmt.Printf("✓ Catalog loaded (%d procedures)\n", len(ix.Procedures()))
	})

	// 2. Intent planning
	var decision models.Decision
	t.Run("Planning", func(t *testing.T) {
		p := planner.New(ix, 0.6, 0.25)
		decision = p.Plan("show bgp summary on r1", nil)

		require.NotEmpty(t, decision.Candidates)
		assert.Equal(t, models.DecisionRun, decision.Decision)
		assert.Equal(t, "playbooks/show_bgp.yml", decision.Candidates[0].ProcedureID)
		assert.Equal(t, "r1", decision.ChosenArgs["host"])

		fmt.Printf("✓ Planned intent → %s (%s)\n",
			decision.Candidates[0].ProcedureID, decision.Decision)
	})

	// 3. Execution gating
	t.Run("Gating", func(t *testing.T) {
		g := gate.New([]string{"playbooks/*.yml"}, "secret", true)

		require.NoError(t, g.Authorize("playbooks/show_bgp.yml", "secret"))
		assert.Error(t, g.Authorize("playbooks/show_bgp.yml", "wrong"))
		assert.Error(t, g.Authorize("../../etc/passwd", "secret"))

		fmt.Printf("✓ Gate allows only catalog playbooks with the right token\n")
	})

	// 4. Dry-run execution
	var raw string
	t.Run("DryRun", func(t *testing.T) {
		exec := executor.New("ansible-playbook", "inventory.ini", time.Minute, zap.NewNop()).
			WithDryMode(true)

		result, err := exec.Run(context.Background(),
			"playbooks/show_bgp.yml", decision.ChosenArgs, "r1")
		require.NoError(t, err)
		assert.Equal(t, executor.ModeDry, result.Mode)
		assert.True(t, result.OK)

		// Simulated device output for the ingestion step below.
		raw = `ok: [r1] => {"peer_ip": "10.0.0.2", "state": "Established", "remoteAs": 65002}
ok: [r1] => {"peer_ip": "10.0.0.3", "state": "Idle", "remoteAs": 65003}
ok: [r1] => {"neighbor_id": "2.2.2.2", "iface": "eth0", "state": "Full/DR"}`

		fmt.Printf("✓ Dry run: %s\n", result.Stdout)
	})

	// 5. Telemetry ingestion into the CMDB
	t.Run("Ingestion", func(t *testing.T) {
		st, err := store.Open(filepath.Join(tempDir, "rag.db"))
		require.NoError(t, err)
		defer st.Close()

		report, err := telemetry.New(st, zap.NewNop()).Ingest(raw, "r1", time.Now())
		require.NoError(t, err)
		assert.Equal(t, "ok", report.Status)
		assert.Equal(t, 2, report.BGPPeers)
		assert.Equal(t, 1, report.OSPFNeighbors)

		summary, err := st.Summary("r1")
		require.NoError(t, err)
		assert.Equal(t, 2, summary.PeersTotal)
		assert.Equal(t, 1, summary.PeersEstablished)

		fmt.Printf("✓ Ingested %d peers, %d neighbors (status %s)\n",
			report.BGPPeers, report.OSPFNeighbors, report.Status)
	})

	// 6. Policy overlay merge
	t.Run("OverlayMerge", func(t *testing.T) {
		base := overlay.Document{
			"system": map[string]interface{}{"hostname": "r1", "mtu": 1500},
			"vlans": []interface{}{
				map[string]interface{}{"vlan-id": 10, "name": "users"},
			},
		}
		patch := overlay.Document{
			"system": map[string]interface{}{"mtu": 9000},
			"vlans": []interface{}{
				map[string]interface{}{"vlan-id": 10, "name": "staff"},
				map[string]interface{}{"vlan-id": 20, "name": "voice"},
			},
		}

		effective, err := overlay.Merge(base, patch)
		require.NoError(t, err)

		system := effective["system"].(map[string]interface{})
		assert.Equal(t, "r1", system["hostname"])
		assert.Equal(t, 9000, system["mtu"])
		vlans := effective["vlans"].([]interface{})
		require.Len(t, vlans, 2)

		fmt.Printf("✓ Overlay merged (%d vlans)\n", len(vlans))
	})
}
