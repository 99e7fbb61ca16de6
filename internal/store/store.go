// SPDX-License-Identifier: Apache-2.0

// Package store persists normalized telemetry rows in a SQLite CMDB. The
// ingest path only relies on upsert-by-primary-key semantics, so any engine
// with ON CONFLICT upserts could back it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
)

// ErrNoSummary is returned when a host has no routing summary row.
var ErrNoSummary = errors.New("no routing summary for host")

// Store wraps the CMDB database handle.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at the given path, creating the
// directory and tables as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS routing_bgp_peer(
		host TEXT, peer_ip TEXT, peer_as INTEGER, state TEXT, uptime_sec INTEGER,
		prefixes_received INTEGER, collected_at TEXT, source TEXT,
		PRIMARY KEY(host, peer_ip, collected_at)
	);
	CREATE TABLE IF NOT EXISTS routing_ospf_neighbor(
		host TEXT, neighbor_id TEXT, iface TEXT, state TEXT, dead_time_raw TEXT,
		address TEXT, collected_at TEXT,
		PRIMARY KEY(host, neighbor_id, collected_at)
	);
	CREATE TABLE IF NOT EXISTS routing_summary(
		host TEXT PRIMARY KEY,
		last_collected_at TEXT,
		peers_total INTEGER DEFAULT 0,
		peers_established INTEGER DEFAULT 0,
		ospf_neighbors INTEGER DEFAULT 0,
		status TEXT,
		last_error TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const upsertBGP = `
	INSERT INTO routing_bgp_peer (host, peer_ip, peer_as, state, uptime_sec, prefixes_received, collected_at, source)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(host, peer_ip, collected_at) DO UPDATE SET
		peer_as = excluded.peer_as,
		state = excluded.state,
		uptime_sec = excluded.uptime_sec,
		prefixes_received = excluded.prefixes_received,
		source = excluded.source`

const upsertOSPF = `
	INSERT INTO routing_ospf_neighbor (host, neighbor_id, iface, state, dead_time_raw, address, collected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(host, neighbor_id, collected_at) DO UPDATE SET
		iface = excluded.iface,
		state = excluded.state,
		dead_time_raw = excluded.dead_time_raw,
		address = excluded.address`

const upsertSummary = `
	INSERT INTO routing_summary (host, last_collected_at, peers_total, peers_established, ospf_neighbors, status, last_error)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(host) DO UPDATE SET
		last_collected_at = excluded.last_collected_at,
		peers_total = excluded.peers_total,
		peers_established = excluded.peers_established,
		ospf_neighbors = excluded.ospf_neighbors,
		status = excluded.status,
		last_error = excluded.last_error`

// ApplyIngest writes one ingestion run for a host in a single transaction:
// row upserts plus the summary overwrite. Either everything lands or
// nothing does, which keeps retried runs idempotent.
func (s *Store) ApplyIngest(peers []models.BGPPeer, neighbors []models.OSPFNeighbor, summary models.RoutingSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range peers {
		if _, err := tx.Exec(upsertBGP,
			p.Host, p.PeerIP, p.PeerAS, p.State, p.UptimeSec, p.PrefixesReceived, p.CollectedAt, p.Source); err != nil {
			return fmt.Errorf("upsert bgp peer %s/%s: %w", p.Host, p.PeerIP, err)
		}
	}
	for _, n := range neighbors {
		if _, err := tx.Exec(upsertOSPF,
			n.Host, n.NeighborID, n.Iface, n.State, n.DeadTimeRaw, n.Address, n.CollectedAt); err != nil {
			return fmt.Errorf("upsert ospf neighbor %s/%s: %w", n.Host, n.NeighborID, err)
		}
	}
	if _, err := tx.Exec(upsertSummary,
		summary.Host, summary.LastCollectedAt, summary.PeersTotal, summary.PeersEstablished,
		summary.OSPFNeighbors, summary.Status, summary.LastError); err != nil {
		return fmt.Errorf("upsert summary %s: %w", summary.Host, err)
	}

	return tx.Commit()
}

// UpsertSummary overwrites a host's routing summary outside a batch.
func (s *Store) UpsertSummary(summary models.RoutingSummary) error {
	_, err := s.db.Exec(upsertSummary,
		summary.Host, summary.LastCollectedAt, summary.PeersTotal, summary.PeersEstablished,
		summary.OSPFNeighbors, summary.Status, summary.LastError)
	return err
}

// Summary returns a host's routing summary.
func (s *Store) Summary(host string) (models.RoutingSummary, error) {
	var sum models.RoutingSummary
	err := s.db.QueryRow(`
		SELECT host, last_collected_at, peers_total, peers_established, ospf_neighbors, status, last_error
		FROM routing_summary WHERE host = ?`, host).
		Scan(&sum.Host, &sum.LastCollectedAt, &sum.PeersTotal, &sum.PeersEstablished,
			&sum.OSPFNeighbors, &sum.Status, &sum.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoutingSummary{}, fmt.Errorf("%w: %s", ErrNoSummary, host)
	}
	if err != nil {
		return models.RoutingSummary{}, err
	}
	return sum, nil
}

// BGPPeers returns all peer rows for a host ordered by peer address.
func (s *Store) BGPPeers(host string) ([]models.BGPPeer, error) {
	rows, err := s.db.Query(`
		SELECT host, peer_ip, peer_as, state, uptime_sec, prefixes_received, collected_at, source
		FROM routing_bgp_peer WHERE host = ? ORDER BY peer_ip, collected_at`, host)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BGPPeer
	for rows.Next() {
		var p models.BGPPeer
		if err := rows.Scan(&p.Host, &p.PeerIP, &p.PeerAS, &p.State, &p.UptimeSec,
			&p.PrefixesReceived, &p.CollectedAt, &p.Source); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// OSPFNeighbors returns all neighbor rows for a host ordered by neighbor id.
func (s *Store) OSPFNeighbors(host string) ([]models.OSPFNeighbor, error) {
	rows, err := s.db.Query(`
		SELECT host, neighbor_id, iface, state, dead_time_raw, address, collected_at
		FROM routing_ospf_neighbor WHERE host = ? ORDER BY neighbor_id, collected_at`, host)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OSPFNeighbor
	for rows.Next() {
		var n models.OSPFNeighbor
		if err := rows.Scan(&n.Host, &n.NeighborID, &n.Iface, &n.State, &n.DeadTimeRaw,
			&n.Address, &n.CollectedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
