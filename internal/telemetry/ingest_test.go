// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/store"
)

func newTestIngestor(t *testing.T) (*Ingestor, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, zap.NewNop()), st
}

var collected = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestIngestMixedOutput(t *testing.T) {
	ing, st := newTestIngestor(t)

	raw := `PLAY [gather] *****
TASK [debug] *****
ok: [r1] => {"peer_ip": "10.0.0.2", "state": "Established", "remoteAs": 65002, "pfxRcd": 12}
ok: [r1] => {"peer_ip": "10.0.0.3", "state": "Idle", "remoteAs": 65003}
ok: [r1] => {"neighbor_id": "2.2.2.2", "iface": "eth0", "state": "Full/DR", "dead_time_raw": "32.1s"}
PLAY RECAP *****`

	report, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)

	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, 3, report.ObjectsExtracted)
	assert.Equal(t, 2, report.BGPPeers)
	assert.Equal(t, 1, report.OSPFNeighbors)

	summary, err := st.Summary("r1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PeersTotal)
	assert.Equal(t, 1, summary.PeersEstablished)
	assert.Equal(t, 1, summary.OSPFNeighbors)
	assert.Equal(t, "ok", summary.Status)
	assert.Equal(t, "2026-08-30T12:00:00Z", summary.LastCollectedAt)

	peers, err := st.BGPPeers("r1")
	require.NoError(t, err)
	require.Len(t, peers, 2)
	assert.Equal(t, "10.0.0.2", peers[0].PeerIP)
	assert.Equal(t, int64(65002), peers[0].PeerAS)
	assert.Equal(t, int64(12), peers[0].PrefixesReceived)
}

func TestIngestNoRecords(t *testing.T) {
	ing, st := newTestIngestor(t)

	report, err := ing.Ingest("PLAY RECAP ***** no json here", "r2", collected)
	require.NoError(t, err)

	assert.Equal(t, "error", report.Status)
	assert.Equal(t, "no records extracted", report.LastError)
	assert.Zero(t, report.BGPPeers)

	summary, err := st.Summary("r2")
	require.NoError(t, err)
	assert.Equal(t, "error", summary.Status)
	assert.Equal(t, "no records extracted", summary.LastError)
	assert.Zero(t, summary.PeersTotal)
}

func TestIngestObjectsButNoRecords(t *testing.T) {
	ing, st := newTestIngestor(t)

	report, err := ing.Ingest(`{"changed": false, "failed": false}`, "r2", collected)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ObjectsExtracted)
	assert.Equal(t, "error", report.Status)
	assert.Equal(t, "no records extracted", report.LastError)

	summary, err := st.Summary("r2")
	require.NoError(t, err)
	assert.Equal(t, "error", summary.Status)
}

func TestIngestNestedPeerMap(t *testing.T) {
	ing, st := newTestIngestor(t)

	raw := `{"bgp": {"peers": {
		"10.0.0.2": {"state": "Established", "remoteAs": 65002},
		"10.0.0.3": {"peerState": "OK", "remoteAs": 65003},
		"10.0.0.4": {"sessionState": "Active"}
	}}}`

	report, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)
	assert.Equal(t, 3, report.BGPPeers)

	summary, err := st.Summary("r1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PeersTotal)
	assert.Equal(t, 2, summary.PeersEstablished)

	peers, err := st.BGPPeers("r1")
	require.NoError(t, err)
	require.Len(t, peers, 3)
	assert.Equal(t, "10.0.0.2", peers[0].PeerIP)
}

func TestIngestNestedNeighborList(t *testing.T) {
	ing, _ := newTestIngestor(t)

	raw := `{"ospf": {"neighbors": [
		{"routerId": "2.2.2.2", "adjState": "Full", "ifaceName": "eth0"},
		{"routerId": "3.3.3.3", "adjState": "Init"}
	]}}`

	report, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)
	assert.Equal(t, 2, report.OSPFNeighbors)
	assert.Zero(t, report.BGPPeers)
}

func TestIngestUnwrapsDebugMsg(t *testing.T) {
	ing, _ := newTestIngestor(t)

	raw := `{"msg": "{\"peer_ip\": \"10.0.0.9\", \"state\": \"Established\"}"}`

	report, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BGPPeers)
}

func TestIngestHostFromRecordWinsOverDefault(t *testing.T) {
	ing, st := newTestIngestor(t)

	raw := `{"host": "r9", "peer_ip": "10.9.0.1", "state": "Established"}`

	_, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)

	peers, err := st.BGPPeers("r9")
	require.NoError(t, err)
	require.Len(t, peers, 1)

	// The summary still belongs to the host the run targeted.
	summary, err := st.Summary("r1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PeersTotal)
}

func TestIngestIdempotent(t *testing.T) {
	ing, st := newTestIngestor(t)

	raw := `{"peer_ip": "10.0.0.2", "state": "Established"}`

	_, err := ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)
	_, err = ing.Ingest(raw, "r1", collected)
	require.NoError(t, err)

	peers, err := st.BGPPeers("r1")
	require.NoError(t, err)
	assert.Len(t, peers, 1)
}

func TestEstablishedStates(t *testing.T) {
	cases := []struct {
		state string
		up    bool
	}{
		{"Established", true},
		{"established", true},
		{"OK", true},
		{"ok", true},
		{"Idle", false},
		{"Active", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.up, established(tc.state), tc.state)
	}
}
