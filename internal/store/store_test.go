// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"path/filepath"
	"testing"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cmdb", "rag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func peer(host, ip, state string, pfx int64) models.BGPPeer {
	return models.BGPPeer{
		Host: host, PeerIP: ip, PeerAS: 65001, State: state,
		PrefixesReceived: pfx, CollectedAt: "2026-09-01T00:00:00Z", Source: "ansible-mcp",
	}
}

func TestApplyIngestIdempotent(t *testing.T) {
	s := openStore(t)

	peers := []models.BGPPeer{
		peer("r1", "10.0.0.2", "Established", 12),
		peer("r1", "10.0.0.3", "Idle", 0),
	}
	sum := models.RoutingSummary{
		Host: "r1", LastCollectedAt: "2026-09-01T00:00:00Z",
		PeersTotal: 2, PeersEstablished: 1, Status: "ok",
	}

	require.NoError(t, s.ApplyIngest(peers, nil, sum))
	require.NoError(t, s.ApplyIngest(peers, nil, sum))

	got, err := s.BGPPeers("r1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Established", got[0].State)
}

func TestApplyIngestOverwritesByNaturalKey(t *testing.T) {
	s := openStore(t)

	first := peer("r1", "10.0.0.2", "Idle", 0)
	require.NoError(t, s.ApplyIngest([]models.BGPPeer{first}, nil,
		models.RoutingSummary{Host: "r1", Status: "ok"}))

	// Same natural key, new field values: overwrite, not duplicate.
	second := peer("r1", "10.0.0.2", "Established", 42)
	require.NoError(t, s.ApplyIngest([]models.BGPPeer{second}, nil,
		models.RoutingSummary{Host: "r1", Status: "ok"}))

	got, err := s.BGPPeers("r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Established", got[0].State)
	assert.Equal(t, int64(42), got[0].PrefixesReceived)
}

func TestSummaryLastWriteWins(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.UpsertSummary(models.RoutingSummary{
		Host: "r1", PeersTotal: 5, PeersEstablished: 3, Status: "ok",
	}))
	require.NoError(t, s.UpsertSummary(models.RoutingSummary{
		Host: "r1", PeersTotal: 5, PeersEstablished: 4, Status: "ok",
	}))

	got, err := s.Summary("r1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.PeersTotal)
	assert.Equal(t, 4, got.PeersEstablished)
}

func TestSummaryNotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.Summary("ghost")
	assert.ErrorIs(t, err, store.ErrNoSummary)
}

func TestOSPFNeighbors(t *testing.T) {
	s := openStore(t)

	n := models.OSPFNeighbor{
		Host: "r2", NeighborID: "10.255.0.1", Iface: "eth0", State: "Full",
		DeadTimeRaw: "38.123s", Address: "10.0.1.1", CollectedAt: "2026-09-01T00:00:00Z",
	}
	require.NoError(t, s.ApplyIngest(nil, []models.OSPFNeighbor{n},
		models.RoutingSummary{Host: "r2", OSPFNeighbors: 1, Status: "ok"}))

	got, err := s.OSPFNeighbors("r2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Full", got[0].State)
}

func TestHostsIsolated(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.ApplyIngest([]models.BGPPeer{peer("r1", "10.0.0.2", "Established", 1)}, nil,
		models.RoutingSummary{Host: "r1", PeersTotal: 1, Status: "ok"}))
	require.NoError(t, s.ApplyIngest([]models.BGPPeer{peer("r2", "10.0.0.9", "Idle", 0)}, nil,
		models.RoutingSummary{Host: "r2", PeersTotal: 1, Status: "ok"}))

	r1, err := s.BGPPeers("r1")
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, "10.0.0.2", r1[0].PeerIP)
}
