// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// ProcedureMeta describes one automation procedure (an Ansible playbook)
// known to the catalog. Loaded once at startup and never mutated.
type ProcedureMeta struct {
	ID           string                 `yaml:"id" json:"id"`
	Title        string                 `yaml:"title" json:"title"`
	Description  string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Tags         []string               `yaml:"tags,omitempty" json:"tags,omitempty"`
	InputsSchema map[string]interface{} `yaml:"inputs_schema,omitempty" json:"inputs_schema,omitempty"`
	Examples     []string               `yaml:"examples,omitempty" json:"examples,omitempty"`
	Path         string                 `yaml:"path,omitempty" json:"path,omitempty"`
	Version      string                 `yaml:"version,omitempty" json:"version,omitempty"`
}

// MappingRole marks an entry in a feature's fallback chain.
type MappingRole string

const (
	RolePrimary  MappingRole = "primary"
	RoleFallback MappingRole = "fallback"
)

// MappingEntry is one element of a feature's ordered fallback chain.
// When is an optional CEL expression over {intent, vars}; a non-matching
// entry is skipped during planning.
type MappingEntry struct {
	ProcedureID string      `yaml:"procedure" json:"procedure"`
	Role        MappingRole `yaml:"role" json:"role"`
	When        string      `yaml:"when,omitempty" json:"when,omitempty"`
}

// Candidate is a scored procedure proposal produced per planning call.
type Candidate struct {
	ProcedureID string  `json:"procedure_id"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
}

// DecisionKind is the planner's verdict for an intent.
type DecisionKind string

const (
	DecisionRun     DecisionKind = "run"
	DecisionConfirm DecisionKind = "confirm"
	DecisionReject  DecisionKind = "reject"
)

// Decision is the planning output. ValidationErrors carries schema issues
// for the top candidate's arguments; they never abort planning.
type Decision struct {
	Decision         DecisionKind           `json:"decision"`
	Feature          string                 `json:"feature,omitempty"`
	Host             string                 `json:"host,omitempty"`
	Candidates       []Candidate            `json:"candidates"`
	ChosenArgs       map[string]interface{} `json:"chosen_args,omitempty"`
	ValidationErrors []string               `json:"validation_errors,omitempty"`
}

// PlanHints are caller-supplied nudges for the planner.
type PlanHints struct {
	CandidateHint string                 `json:"candidate_hint,omitempty"`
	ExtraVars     map[string]interface{} `json:"extra_vars,omitempty"`
}

// BGPPeer is one BGP session row keyed by (host, peer_ip, collected_at).
type BGPPeer struct {
	Host             string
	PeerIP           string
	PeerAS           int64
	State            string
	UptimeSec        int64
	PrefixesReceived int64
	CollectedAt      string
	Source           string
}

// OSPFNeighbor is one OSPF adjacency row keyed by (host, neighbor_id, collected_at).
type OSPFNeighbor struct {
	Host        string
	NeighborID  string
	Iface       string
	State       string
	DeadTimeRaw string
	Address     string
	CollectedAt string
}

// RoutingSummary is the per-host aggregate; always overwritten, never
// accumulated across ingestion runs.
type RoutingSummary struct {
	Host             string
	LastCollectedAt  string
	PeersTotal       int
	PeersEstablished int
	OSPFNeighbors    int
	Status           string
	LastError        string
}

// IngestReport summarizes one ingestion run for a host.
type IngestReport struct {
	Host             string    `json:"host"`
	ObjectsExtracted int       `json:"objects_extracted"`
	BGPPeers         int       `json:"bgp_peers"`
	OSPFNeighbors    int       `json:"ospf_neighbors"`
	CollectedAt      time.Time `json:"collected_at"`
	Status           string    `json:"status"`
	LastError        string    `json:"last_error,omitempty"`
}

// RunResult is what the executor reports back for one procedure run.
type RunResult struct {
	OK         bool                   `json:"ok"`
	Mode       string                 `json:"mode"`
	Playbook   string                 `json:"playbook"`
	Vars       map[string]interface{} `json:"vars,omitempty"`
	Stdout     string                 `json:"stdout"`
	Stderr     string                 `json:"stderr"`
	ExitCode   int                    `json:"exit_code"`
	ElapsedSec float64                `json:"elapsed_sec"`
}
