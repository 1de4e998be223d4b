/*
distribution.go - Percentage key snapshots and issue-key parsing

PURPOSE:
  A KeySet is an immutable snapshot of how each issue-key prefix splits
  its hours, in two independent dimensions: billing (invoice projects)
  and sections (organizational units). Aggregation and ledger writes
  both resolve prefixes against a KeySet passed in by the caller, so the
  engine never reaches for ambient configuration.

INVARIANT:
  For every project and every dimension that has shares at all, the
  percentages sum to exactly 100. NewKeySet enforces this at load time;
  lookups never re-check it.

LOOKUP SEMANTICS:
  - Unknown prefix: (nil, false). Write paths turn this into a hard
    rejection; report paths count it and move on.
  - Known prefix with no shares in a dimension: (nil, true). The lookup
    itself is total.

SEE ALSO:
  - allocate.go: Consumes shares to fold entries into destinations
  - ledger.go: Uses Known() to gate writes
*/
package engine

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

// Dimension selects which family of percentage keys an operation uses.
type Dimension int

const (
	// DimensionBilling routes hours to invoice projects.
	DimensionBilling Dimension = iota
	// DimensionSection routes hours to organizational sections.
	DimensionSection
)

func (d Dimension) String() string {
	switch d {
	case DimensionBilling:
		return "billing"
	case DimensionSection:
		return "section"
	default:
		return "unknown"
	}
}

// =============================================================================
// ISSUE KEY PARSING
// =============================================================================

// ExtractProjectKey returns the prefix of an issue key: everything
// before the last dash. "AFP-123" yields "AFP"; "SUB-PROJ-9" yields
// "SUB-PROJ". Keys without a dash, or with the dash first, are invalid.
func ExtractProjectKey(issue IssueKey) (ProjectKey, error) {
	dash := strings.LastIndex(string(issue), "-")
	if dash <= 0 {
		return "", &IssueKeyError{Issue: issue}
	}
	return ProjectKey(issue[:dash]), nil
}

// =============================================================================
// KEY SET - Immutable per-prefix share snapshot
// =============================================================================

// Share routes a percentage of a project's hours to one destination.
type Share struct {
	Destination DestinationID
	Percentage  decimal.Decimal
}

// ProjectKeys is the full key configuration for one issue-key prefix.
type ProjectKeys struct {
	Key      ProjectKey
	Billing  []Share
	Sections []Share
}

// KeySet is a validated, immutable snapshot of all projects' shares.
type KeySet struct {
	projects map[ProjectKey]ProjectKeys
}

var hundred = decimal.NewFromInt(100)

// NewKeySet builds a snapshot from per-project configurations.
// A dimension with no shares is allowed (a project may have billing keys
// and no section keys); a dimension with shares must sum to exactly 100.
func NewKeySet(projects []ProjectKeys) (*KeySet, error) {
	ks := &KeySet{projects: make(map[ProjectKey]ProjectKeys, len(projects))}
	for _, p := range projects {
		if err := validateShares(p.Key, DimensionBilling, p.Billing); err != nil {
			return nil, err
		}
		if err := validateShares(p.Key, DimensionSection, p.Sections); err != nil {
			return nil, err
		}
		ks.projects[p.Key] = ProjectKeys{
			Key:      p.Key,
			Billing:  append([]Share(nil), p.Billing...),
			Sections: append([]Share(nil), p.Sections...),
		}
	}
	return ks, nil
}

func validateShares(project ProjectKey, dim Dimension, shares []Share) error {
	if len(shares) == 0 {
		return nil
	}
	sum := decimal.Zero
	seen := make(map[DestinationID]bool, len(shares))
	for _, s := range shares {
		if s.Percentage.IsNegative() || s.Percentage.GreaterThan(hundred) {
			return &ConfigError{Project: project, Dimension: dim, Sum: s.Percentage.String()}
		}
		if seen[s.Destination] {
			return &ConfigError{Project: project, Dimension: dim, Sum: "duplicate destination"}
		}
		seen[s.Destination] = true
		sum = sum.Add(s.Percentage)
	}
	if !sum.Equal(hundred) {
		return &ConfigError{Project: project, Dimension: dim, Sum: sum.String()}
	}
	return nil
}

// Known reports whether a prefix has any configured project.
func (ks *KeySet) Known(project ProjectKey) bool {
	_, ok := ks.projects[project]
	return ok
}

// Shares returns a prefix's shares in one dimension. The second return
// distinguishes "unknown prefix" (false) from "known prefix without
// shares in this dimension" (true with an empty slice).
func (ks *KeySet) Shares(project ProjectKey, dim Dimension) ([]Share, bool) {
	p, ok := ks.projects[project]
	if !ok {
		return nil, false
	}
	switch dim {
	case DimensionSection:
		return p.Sections, true
	default:
		return p.Billing, true
	}
}

// Destinations returns every destination referenced by any project in
// one dimension, sorted ascending. Used to seed fixed destination sets
// so zero-hour destinations still appear in allocations.
func (ks *KeySet) Destinations(dim Dimension) []DestinationID {
	seen := make(map[DestinationID]bool)
	for _, p := range ks.projects {
		shares := p.Billing
		if dim == DimensionSection {
			shares = p.Sections
		}
		for _, s := range shares {
			seen[s.Destination] = true
		}
	}
	out := make([]DestinationID, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Projects returns the configured prefixes, sorted.
func (ks *KeySet) Projects() []ProjectKey {
	out := make([]ProjectKey, 0, len(ks.projects))
	for k := range ks.projects {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
