// SPDX-License-Identifier: Apache-2.0

package planner_test

import (
	"testing"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/catalog"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	ix, err := catalog.New(&catalog.File{
		Procedures: []models.ProcedureMeta{
			{
				ID:          "playbooks/show_bgp.yml",
				Title:       "Show BGP",
				Description: "Show BGP summary for a given host",
				Tags:        []string{"routing", "bgp", "status"},
				Examples:    []string{"show bgp summary on r1"},
				InputsSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"host"},
					"properties": map[string]interface{}{
						"host": map[string]interface{}{"type": "string"},
					},
				},
			},
			{
				ID:          "playbooks/show_ospf.yml",
				Title:       "Show OSPF",
				Description: "Show OSPF neighbors for a given host",
				Tags:        []string{"routing", "ospf", "status"},
				Examples:    []string{"show ospf neighbors on r2"},
			},
			{
				ID:          "playbooks/network_overview.yml",
				Title:       "Network overview",
				Description: "Summarize lab topology",
				Tags:        []string{"inventory", "count"},
			},
		},
		Features: map[string][]models.MappingEntry{
			"bgp": {
				{ProcedureID: "playbooks/show_bgp.yml", Role: models.RolePrimary},
				{ProcedureID: "playbooks/network_overview.yml", Role: models.RoleFallback},
			},
			"ospf": {
				{ProcedureID: "playbooks/show_ospf.yml", Role: models.RolePrimary},
			},
		},
		Aliases: map[string]map[string][]string{
			"host": {"r1": {"router1"}, "r2": {"router2"}},
		},
		Defaults: map[string]string{"host": "r1"},
	})
	require.NoError(t, err)
	return ix
}

func TestPlanRunsPrimaryForBGPIntent(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.25)

	d := p.Plan("show bgp summary on r1", nil)

	require.NotEmpty(t, d.Candidates)
	assert.Equal(t, "playbooks/show_bgp.yml", d.Candidates[0].ProcedureID)
	assert.Equal(t, models.DecisionRun, d.Decision)
	assert.Equal(t, "bgp", d.Feature)
	assert.Equal(t, "r1", d.Host)
	assert.Equal(t, "r1", d.ChosenArgs["host"])
	assert.Empty(t, d.ValidationErrors)
}

func TestPlanConfirmBelowThreshold(t *testing.T) {
	// Same intent, impossible bar: candidates exist but cannot reach it.
	p := planner.New(testIndex(t), 0.99, 0.0)

	d := p.Plan("show bgp summary on r1", nil)

	assert.Equal(t, models.DecisionConfirm, d.Decision)
	assert.NotEmpty(t, d.Candidates)
}

func TestPlanRejectUnknownIntent(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.25)

	d := p.Plan("make me a sandwich", nil)

	assert.Equal(t, models.DecisionReject, d.Decision)
	assert.Empty(t, d.Candidates)
}

func TestPlanValidationErrorsFlowIntoDecision(t *testing.T) {
	p := planner.New(testIndex(t), 0.1, 0.25)

	// host must be a string; a number fails schema validation but the plan
	// call still returns a Decision.
	d := p.Plan("show bgp summary on r1", &models.PlanHints{
		ExtraVars: map[string]interface{}{"host": 42},
	})

	assert.Equal(t, models.DecisionConfirm, d.Decision)
	assert.NotEmpty(t, d.ValidationErrors)
}

func TestPlanHintSeedsTopCandidate(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.5)

	d := p.Plan("show bgp summary on r1", &models.PlanHints{
		CandidateHint: "playbooks/network_overview.yml",
	})

	require.NotEmpty(t, d.Candidates)
	assert.Equal(t, "playbooks/network_overview.yml", d.Candidates[0].ProcedureID)
	assert.Equal(t, "caller hint", d.Candidates[0].Reason)
}

func TestPlanUnknownHintIgnored(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.5)

	d := p.Plan("show bgp summary on r1", &models.PlanHints{
		CandidateHint: "playbooks/nope.yml",
	})

	require.NotEmpty(t, d.Candidates)
	assert.Equal(t, "playbooks/show_bgp.yml", d.Candidates[0].ProcedureID)
}

func TestPlanPrimaryNeverBelowFallback(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.25)

	// An inventory-shaped intent routed through bgp's chain: the overview
	// fallback matches the text better, but the primary keeps the floor.
	d := p.Plan("bgp lab topology overview", nil)

	require.NotEmpty(t, d.Candidates)
	var primary, fallback *models.Candidate
	for i := range d.Candidates {
		switch d.Candidates[i].ProcedureID {
		case "playbooks/show_bgp.yml":
			primary = &d.Candidates[i]
		case "playbooks/network_overview.yml":
			fallback = &d.Candidates[i]
		}
	}
	require.NotNil(t, primary)
	require.NotNil(t, fallback)
	assert.GreaterOrEqual(t, primary.Score, fallback.Score)
}

func TestPlanDeterministic(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 0.25)

	first := p.Plan("show ospf neighbors on router2", nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Plan("show ospf neighbors on router2", nil))
	}
	assert.Equal(t, "r2", first.Host)
}

func TestPlanScoresWithinUnitInterval(t *testing.T) {
	p := planner.New(testIndex(t), 0.5, 1.0)

	d := p.Plan("show bgp summary on r1", &models.PlanHints{
		CandidateHint: "playbooks/show_bgp.yml",
	})

	for _, c := range d.Candidates {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}
