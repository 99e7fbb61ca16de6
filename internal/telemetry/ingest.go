// SPDX-License-Identifier: Apache-2.0

// Package telemetry turns raw executor output into normalized CMDB rows.
// Extraction issues are absorbed per span; only store write failures are
// fatal to an ingestion call.
package telemetry

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/extract"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/store"
)

// Field aliases seen across FRR, IOS and vyos flavored output. The first
// present, non-empty key wins.
var (
	peerIPKeys     = []string{"peer_ip", "peerIp", "neighbor", "ip"}
	peerStateKeys  = []string{"state", "peerState", "sessionState", "bgpState"}
	peerASKeys     = []string{"remoteAs", "peer_as", "as"}
	peerPfxKeys    = []string{"pfxRcd", "prefixes_received", "prefixReceivedCount"}
	peerUptimeKeys = []string{"uptime_sec", "peerUptimeSec"}

	neighborIDKeys   = []string{"neighbor_id", "routerId", "id"}
	neighborIfKeys   = []string{"iface", "interface", "ifaceName"}
	neighborStKeys   = []string{"state", "adjState"}
	neighborDeadKeys = []string{"dead_time_raw", "deadTime"}
	neighborAddrKeys = []string{"address", "ifaceAddress"}

	hostKeys = []string{"host", "device", "router", "hostname", "node", "target", "inventory_hostname"}
)

// Ingestor extracts telemetry records from raw output and upserts them.
type Ingestor struct {
	store  *store.Store
	logger *zap.Logger

	// Summary writes for one host must not race; different hosts may.
	mu    sync.Mutex
	hosts map[string]*sync.Mutex
}

// New creates an ingestor writing through the given store.
func New(st *store.Store, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: st, logger: logger, hosts: map[string]*sync.Mutex{}}
}

// Ingest scans rawOutput for embedded JSON records, normalizes them into
// typed rows and upserts them keyed by their natural keys, then overwrites
// the host's routing summary. Zero extracted records is not a failure: it is
// recorded on the summary as status=error and reported back, and the caller
// decides whether that is fatal. Only a store write failure returns an error.
func (ing *Ingestor) Ingest(rawOutput, host string, collectedAt time.Time) (models.IngestReport, error) {
	ts := collectedAt.UTC().Format(time.RFC3339)

	objs := extract.Objects(rawOutput)
	if _, skipped := extract.Count(rawOutput); skipped > 0 {
		ing.logger.Warn("skipped malformed JSON spans",
			zap.String("host", host), zap.Int("skipped", skipped))
	}

	var peers []models.BGPPeer
	var neighbors []models.OSPFNeighbor
	for _, obj := range objs {
		obj = unwrapMsg(obj)
		rowHost := pickHost(obj, host)

		if p, ok := asBGPPeer(obj, rowHost, ts); ok {
			peers = append(peers, p)
			continue
		}
		if ns, ok := asBGPPeerSet(obj, rowHost, ts); ok {
			peers = append(peers, ns...)
			continue
		}
		if n, ok := asOSPFNeighbor(obj, rowHost, ts); ok {
			neighbors = append(neighbors, n)
			continue
		}
		if ns, ok := asOSPFNeighborSet(obj, rowHost, ts); ok {
			neighbors = append(neighbors, ns...)
		}
	}

	summary := models.RoutingSummary{
		Host:            host,
		LastCollectedAt: ts,
		PeersTotal:      len(peers),
	}
	for _, p := range peers {
		if established(p.State) {
			summary.PeersEstablished++
		}
	}
	summary.OSPFNeighbors = len(neighbors)

	report := models.IngestReport{
		Host:             host,
		ObjectsExtracted: len(objs),
		BGPPeers:         len(peers),
		OSPFNeighbors:    len(neighbors),
		CollectedAt:      collectedAt,
	}

	if len(peers) == 0 && len(neighbors) == 0 {
		summary.Status = "error"
		summary.LastError = "no records extracted"
	} else {
		summary.Status = "ok"
	}
	report.Status = summary.Status
	report.LastError = summary.LastError

	lock := ing.hostLock(host)
	lock.Lock()
	defer lock.Unlock()

	if err := ing.store.ApplyIngest(peers, neighbors, summary); err != nil {
		return report, err
	}

	ing.logger.Info("ingest complete",
		zap.String("host", host),
		zap.Int("bgp_peers", len(peers)),
		zap.Int("ospf_neighbors", len(neighbors)),
		zap.String("status", summary.Status))

	return report, nil
}

func (ing *Ingestor) hostLock(host string) *sync.Mutex {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if l, ok := ing.hosts[host]; ok {
		return l
	}
	l := &sync.Mutex{}
	ing.hosts[host] = l
	return l
}

// unwrapMsg handles the Ansible debug-module shape {"msg": "{...}"}.
func unwrapMsg(obj map[string]interface{}) map[string]interface{} {
	raw, ok := obj["msg"].(string)
	if !ok {
		return obj
	}
	var inner map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &inner); err != nil {
		return obj
	}
	return inner
}

func pickHost(obj map[string]interface{}, def string) string {
	if h := firstString(obj, hostKeys); h != "" {
		return h
	}
	for _, metaKey := range []string{"meta", "_meta", "context", "details", "ansible"} {
		if meta, ok := obj[metaKey].(map[string]interface{}); ok {
			if h := firstString(meta, hostKeys); h != "" {
				return h
			}
		}
	}
	return def
}

func asBGPPeer(obj map[string]interface{}, host, ts string) (models.BGPPeer, bool) {
	if !hasAny(obj, "peer_ip", "peerIp", "neighbor") || !hasAny(obj, "state", "peerState", "sessionState") {
		return models.BGPPeer{}, false
	}
	return buildPeer(obj, firstString(obj, peerIPKeys), host, ts), true
}

// asBGPPeerSet handles container shapes: bgp.peers / bgp.neighbors /
// ipv4Unicast.peers, either maps keyed by peer address or lists.
func asBGPPeerSet(obj map[string]interface{}, host, ts string) ([]models.BGPPeer, bool) {
	var container interface{}
	if bgp, ok := obj["bgp"].(map[string]interface{}); ok {
		container = bgp["peers"]
		if container == nil {
			container = bgp["neighbors"]
		}
	}
	if container == nil {
		if v4, ok := obj["ipv4Unicast"].(map[string]interface{}); ok {
			container = v4["peers"]
		}
	}

	switch peers := container.(type) {
	case map[string]interface{}:
		out := make([]models.BGPPeer, 0, len(peers))
		for _, ip := range sortedKeys(peers) {
			p, ok := peers[ip].(map[string]interface{})
			if !ok {
				continue
			}
			out = append(out, buildPeer(p, ip, host, ts))
		}
		return out, true
	case []interface{}:
		var out []models.BGPPeer
		for _, e := range peers {
			p, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			out = append(out, buildPeer(p, firstString(p, peerIPKeys), host, ts))
		}
		return out, true
	default:
		return nil, false
	}
}

func buildPeer(p map[string]interface{}, ip, host, ts string) models.BGPPeer {
	if ip == "" {
		ip = "-"
	}
	state := firstString(p, peerStateKeys)
	if state == "" {
		state = "-"
	}
	return models.BGPPeer{
		Host:             host,
		PeerIP:           ip,
		PeerAS:           firstInt(p, peerASKeys),
		State:            state,
		UptimeSec:        firstInt(p, peerUptimeKeys),
		PrefixesReceived: firstInt(p, peerPfxKeys),
		CollectedAt:      ts,
		Source:           "ansible-mcp",
	}
}

func asOSPFNeighbor(obj map[string]interface{}, host, ts string) (models.OSPFNeighbor, bool) {
	if !hasAny(obj, "neighbor_id", "routerId") || !hasAny(obj, "state", "adjState") {
		return models.OSPFNeighbor{}, false
	}
	return buildNeighbor(obj, host, ts), true
}

func asOSPFNeighborSet(obj map[string]interface{}, host, ts string) ([]models.OSPFNeighbor, bool) {
	var list []interface{}
	if ospf, ok := obj["ospf"].(map[string]interface{}); ok {
		list, _ = ospf["neighbors"].([]interface{})
	}
	if list == nil {
		list, _ = obj["neighbors"].([]interface{})
	}
	if list == nil {
		list, _ = obj["adjacencies"].([]interface{})
	}
	if list == nil {
		return nil, false
	}

	var out []models.OSPFNeighbor
	for _, e := range list {
		n, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, buildNeighbor(n, host, ts))
	}
	return out, true
}

func buildNeighbor(n map[string]interface{}, host, ts string) models.OSPFNeighbor {
	id := firstString(n, neighborIDKeys)
	if id == "" {
		id = "-"
	}
	state := firstString(n, neighborStKeys)
	if state == "" {
		state = "-"
	}
	return models.OSPFNeighbor{
		Host:        host,
		NeighborID:  id,
		Iface:       firstString(n, neighborIfKeys),
		State:       state,
		DeadTimeRaw: firstString(n, neighborDeadKeys),
		Address:     firstString(n, neighborAddrKeys),
		CollectedAt: ts,
	}
}

// established treats Established/OK in any case as an up session.
func established(state string) bool {
	s := strings.ToLower(strings.TrimSpace(state))
	return s == "established" || s == "ok"
}

func hasAny(obj map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func firstString(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			case int:
				return strconv.Itoa(t)
			}
		}
	}
	return ""
}

func firstInt(obj map[string]interface{}, keys []string) int64 {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case float64:
			return int64(v)
		case int:
			return int64(v)
		case int64:
			return v
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
