// SPDX-License-Identifier: Apache-2.0

// Package planner maps a free-text intent onto a ranked list of catalog
// procedures and decides whether the top candidate may run. Planning is a
// pure function of (intent, hints, catalog, config): no wall clock, no
// randomness, no shared mutable state.
package planner

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/catalog"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/schema"
)

// hostToken matches bare lab device names (r1, r2, l2a ...) in an intent.
var hostToken = regexp.MustCompile(`^(r\d+|l2[a-z])$`)

// Planner scores intents against the loaded catalog. Threshold and boost
// come in as explicit configuration so tests can exercise several cutoffs in
// one process.
type Planner struct {
	catalog   *catalog.Index
	threshold float64
	hintBoost float64
}

// New creates a planner over a loaded catalog.
func New(ix *catalog.Index, threshold, hintBoost float64) *Planner {
	return &Planner{catalog: ix, threshold: threshold, hintBoost: hintBoost}
}

// Plan produces a Decision for an intent. Validation issues for the top
// candidate's arguments are carried in the Decision, never raised.
func (p *Planner) Plan(intent string, hints *models.PlanHints) models.Decision {
	norm := normalize(intent)
	tokens := strings.Fields(norm)
	intentBag := bow(tokens)

	var extraVars map[string]interface{}
	hint := ""
	if hints != nil {
		extraVars = hints.ExtraVars
		hint = hints.CandidateHint
	}

	feature := p.detectFeature(norm, tokens)

	candidates := p.resolveChain(feature, intent, intentBag, extraVars)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return p.catalog.DeclIndex(candidates[i].ProcedureID) < p.catalog.DeclIndex(candidates[j].ProcedureID)
	})

	// A caller-declared tentative choice is honored as the top candidate
	// with a score boost; it still goes through validation below.
	if hint != "" && p.catalog.Has(hint) {
		candidates = seedHint(candidates, hint, p.scoreProcedure(intentBag, hint)+p.hintBoost)
	}

	if len(candidates) == 0 {
		return models.Decision{
			Decision:   models.DecisionReject,
			Feature:    feature,
			Candidates: []models.Candidate{},
		}
	}

	host := p.extractHost(norm, tokens)
	chosenArgs := chooseArgs(extraVars, host)

	var validationErrors []string
	if meta, err := p.catalog.Describe(candidates[0].ProcedureID); err == nil {
		issues, verr := schema.ValidateArgs(meta.InputsSchema, chosenArgs)
		if verr != nil {
			validationErrors = append(validationErrors, verr.Error())
		}
		validationErrors = append(validationErrors, issues...)
	}

	decision := models.DecisionConfirm
	if candidates[0].Score >= p.threshold && len(validationErrors) == 0 {
		decision = models.DecisionRun
	}

	return models.Decision{
		Decision:         decision,
		Feature:          feature,
		Host:             host,
		Candidates:       candidates,
		ChosenArgs:       chosenArgs,
		ValidationErrors: validationErrors,
	}
}

// detectFeature picks the feature label whose tags and label text best cover
// the intent. Ties break on the lexically smaller label to stay
// deterministic across map iteration order.
func (p *Planner) detectFeature(norm string, tokens []string) string {
	features := p.catalog.Features()
	sort.Strings(features)

	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	best := ""
	bestScore := 0.0
	for _, f := range features {
		score := 0.0
		if tokenSet[f] {
			score += 1.0
		} else if strings.Contains(norm, f) {
			score += 0.5
		}
		for _, entry := range p.catalog.Lookup(f) {
			meta, err := p.catalog.Describe(entry.ProcedureID)
			if err != nil {
				continue
			}
			for _, tag := range meta.Tags {
				if tokenSet[normalize(tag)] {
					score += 0.25
				}
			}
		}
		if score > bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

// resolveChain turns a feature's fallback chain into scored candidates.
// Entries whose CEL condition does not match are skipped; a failing
// condition is absorbed as a non-match rather than aborting the plan. A
// primary entry never scores below any fallback entry of the same feature.
func (p *Planner) resolveChain(feature, intent string, intentBag map[string]float64, vars map[string]interface{}) []models.Candidate {
	if feature == "" {
		return nil
	}

	var out []models.Candidate
	maxFallback := 0.0
	primaryAt := -1

	for _, entry := range p.catalog.Lookup(feature) {
		ok, err := p.catalog.EntryMatches(feature, entry, intent, vars)
		if err != nil || !ok {
			continue
		}

		score := p.scoreProcedure(intentBag, entry.ProcedureID)
		reason := "fallback for feature " + feature
		if entry.Role == models.RolePrimary {
			reason = "primary for feature " + feature
		}
		out = append(out, models.Candidate{ProcedureID: entry.ProcedureID, Score: score, Reason: reason})

		if entry.Role == models.RolePrimary && primaryAt < 0 {
			primaryAt = len(out) - 1
		} else if entry.Role == models.RoleFallback && score > maxFallback {
			maxFallback = score
		}
	}

	if primaryAt >= 0 && out[primaryAt].Score < maxFallback {
		out[primaryAt].Score = maxFallback
	}

	return out
}

// scoreProcedure is a lightweight lexical score: cosine similarity between
// the intent bag-of-words and the procedure's title, description, tags and
// examples. Not NLP, by intent.
func (p *Planner) scoreProcedure(intentBag map[string]float64, procedureID string) float64 {
	meta, err := p.catalog.Describe(procedureID)
	if err != nil {
		return 0
	}

	parts := []string{meta.Title, meta.Description}
	parts = append(parts, meta.Tags...)
	parts = append(parts, meta.Examples...)
	procBag := bow(strings.Fields(normalize(strings.Join(parts, " "))))

	return cosine(intentBag, procBag)
}

// extractHost resolves the target device from the intent: canonical alias
// table first, then bare device tokens, then the catalog default.
func (p *Planner) extractHost(norm string, tokens []string) string {
	aliases := p.catalog.HostAliases()

	canons := make([]string, 0, len(aliases))
	for c := range aliases {
		canons = append(canons, c)
	}
	sort.Strings(canons)

	for _, canon := range canons {
		if strings.Contains(norm, normalize(canon)) {
			return canon
		}
		for _, alias := range aliases[canon] {
			if strings.Contains(norm, normalize(alias)) {
				return canon
			}
		}
	}

	for _, t := range tokens {
		if hostToken.MatchString(t) {
			return t
		}
	}

	return p.catalog.DefaultHost()
}

// seedHint moves the hinted procedure to the front of an already-sorted
// candidate list, lifting its score so the boost is visible but never above
// the unit interval or below the previous leader.
func seedHint(candidates []models.Candidate, hint string, score float64) []models.Candidate {
	if len(candidates) > 0 && candidates[0].Score > score {
		score = candidates[0].Score
	}
	if score > 1 {
		score = 1
	}

	seeded := models.Candidate{ProcedureID: hint, Score: score, Reason: "caller hint"}
	out := make([]models.Candidate, 0, len(candidates)+1)
	out = append(out, seeded)
	for _, c := range candidates {
		if c.ProcedureID != hint {
			out = append(out, c)
		}
	}
	return out
}

func chooseArgs(extraVars map[string]interface{}, host string) map[string]interface{} {
	defaults := map[string]interface{}{}
	if host != "" {
		defaults["host"] = host
	}
	args := schema.MergeVars(extraVars, defaults)
	if len(args) == 0 {
		return nil
	}
	return args
}

func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func bow(tokens []string) map[string]float64 {
	bag := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		bag[t]++
	}
	return bag
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for k, av := range a {
		dot += av * b[k]
	}
	na := 0.0
	for _, v := range a {
		na += v * v
	}
	nb := 0.0
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
