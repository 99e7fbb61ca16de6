// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the loaded procedure metadata and the feature to
// procedure mapping. All feature resolution flows through Lookup so there is
// exactly one place to add or remove procedures.
package catalog

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/apperr"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/format"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
)

// File is the on-disk catalog shape (YAML or JSON).
type File struct {
	Procedures []models.ProcedureMeta            `yaml:"procedures" json:"procedures"`
	Features   map[string][]models.MappingEntry  `yaml:"features" json:"features"`
	Aliases    map[string]map[string][]string    `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Defaults   map[string]string                 `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// Index is the loaded, immutable catalog. Safe for concurrent readers.
type Index struct {
	procedures map[string]models.ProcedureMeta
	order      map[string]int
	list       []models.ProcedureMeta
	features   map[string][]models.MappingEntry
	conditions map[string]cel.Program
	aliases    map[string][]string
	defaults   map[string]string
	evaluator  *Evaluator
}

// Load reads a catalog file and validates referential integrity: every
// mapping entry must reference a loaded procedure, roles must be known, and
// every CEL condition must compile. Any violation fails the load.
func Load(path string) (*Index, error) {
	var file File
	if err := format.ParseFile(path, &file); err != nil {
		return nil, fmt.Errorf("error loading catalog: %w", err)
	}
	return New(&file)
}

// New builds an Index from an already-parsed catalog file.
func New(file *File) (*Index, error) {
	evaluator, err := NewEvaluator()
	if err != nil {
		return nil, err
	}

	ix := &Index{
		procedures: make(map[string]models.ProcedureMeta, len(file.Procedures)),
		order:      make(map[string]int, len(file.Procedures)),
		list:       make([]models.ProcedureMeta, 0, len(file.Procedures)),
		features:   make(map[string][]models.MappingEntry, len(file.Features)),
		conditions: make(map[string]cel.Program),
		aliases:    map[string][]string{},
		defaults:   file.Defaults,
		evaluator:  evaluator,
	}

	for i, p := range file.Procedures {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog procedure #%d has empty id", i)
		}
		if _, dup := ix.procedures[p.ID]; dup {
			return nil, fmt.Errorf("duplicate procedure id: %s", p.ID)
		}
		if p.Path == "" {
			p.Path = p.ID
		}
		ix.procedures[p.ID] = p
		ix.order[p.ID] = i
		ix.list = append(ix.list, p)
	}

	for feature, entries := range file.Features {
		for j, entry := range entries {
			if _, ok := ix.procedures[entry.ProcedureID]; !ok {
				return nil, fmt.Errorf("feature %q entry #%d references unknown procedure %q",
					feature, j, entry.ProcedureID)
			}
			switch entry.Role {
			case models.RolePrimary, models.RoleFallback:
			case "":
				// First entry defaults to primary, the rest to fallback.
				if j == 0 {
					entry.Role = models.RolePrimary
				} else {
					entry.Role = models.RoleFallback
				}
				entries[j] = entry
			default:
				return nil, fmt.Errorf("feature %q entry #%d has unknown role %q",
					feature, j, entry.Role)
			}
			if entry.When != "" {
				program, err := evaluator.Compile(entry.When)
				if err != nil {
					return nil, fmt.Errorf("feature %q entry %q condition: %w",
						feature, entry.ProcedureID, err)
				}
				ix.conditions[feature+"\x00"+entry.When] = program
			}
		}
		ix.features[feature] = entries
	}

	if hosts, ok := file.Aliases["host"]; ok {
		for canon, vals := range hosts {
			ix.aliases[canon] = vals
		}
	}

	return ix, nil
}

// Lookup returns the ordered fallback chain for a feature, or an empty
// sequence when the feature is unknown.
func (ix *Index) Lookup(feature string) []models.MappingEntry {
	return ix.features[feature]
}

// Describe returns the metadata for one procedure.
func (ix *Index) Describe(id string) (models.ProcedureMeta, error) {
	p, ok := ix.procedures[id]
	if !ok {
		return models.ProcedureMeta{}, &apperr.NotFoundError{Kind: "procedure", ID: id}
	}
	return p, nil
}

// Has reports whether the catalog knows a procedure id.
func (ix *Index) Has(id string) bool {
	_, ok := ix.procedures[id]
	return ok
}

// Procedures returns all metadata in catalog declaration order.
func (ix *Index) Procedures() []models.ProcedureMeta {
	out := make([]models.ProcedureMeta, len(ix.list))
	copy(out, ix.list)
	return out
}

// DeclIndex returns the declaration position of a procedure, used as the
// stable tie-breaker for equal scores. Unknown ids sort last.
func (ix *Index) DeclIndex(id string) int {
	if i, ok := ix.order[id]; ok {
		return i
	}
	return len(ix.order)
}

// Features lists the known feature labels.
func (ix *Index) Features() []string {
	out := make([]string, 0, len(ix.features))
	for f := range ix.features {
		out = append(out, f)
	}
	return out
}

// HostAliases returns the canonical-host alias table.
func (ix *Index) HostAliases() map[string][]string {
	return ix.aliases
}

// DefaultHost returns the configured default target host, if any.
func (ix *Index) DefaultHost() string {
	return ix.defaults["host"]
}

// EntryMatches evaluates a mapping entry's condition for an intent. Entries
// without a condition always match.
func (ix *Index) EntryMatches(feature string, entry models.MappingEntry, intent string, vars map[string]interface{}) (bool, error) {
	if entry.When == "" {
		return true, nil
	}
	program, ok := ix.conditions[feature+"\x00"+entry.When]
	if !ok {
		// Conditions are compiled at load; a miss here is a programming error.
		return false, fmt.Errorf("uncompiled condition for feature %q", feature)
	}
	return ix.evaluator.Evaluate(program, intent, vars)
}
