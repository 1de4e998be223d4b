/*
allocate.go - Folding time entries into per-destination allocations

PURPOSE:
  Allocate is the aggregation step: it takes the entries of one grouping
  context (one day, one month, one consultant-day - whatever the caller
  chose), weights each entry's hours by its project's percentage shares,
  and reconciles the per-destination sums to cent-exact rounded values.

CONTEXT INDEPENDENCE:
  Rounding is never additive across contexts. A caller that needs both
  per-day and per-month figures calls Allocate once per day AND once for
  the month; the daily rounded values are not expected to sum to the
  monthly rounded value, and each context is exact against its own raw
  total.

UNKNOWN PREFIXES:
  Entries whose prefix is not in the KeySet (or whose issue key cannot
  be parsed at all) contribute zero and are reported in Skipped. The
  write path rejects such entries up front, so Skipped is normally only
  populated when configuration changed after the entries were stored.

SEE ALSO:
  - rounding.go: The reconciliation step
  - distribution.go: Share lookup
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocation is the result of aggregating one grouping context.
type Allocation struct {
	// Rows is one row per destination, sorted by destination id.
	Rows []AllocationRow
	// Skipped lists the issue keys of entries that contributed nothing
	// because their prefix was unknown or malformed. One element per
	// skipped entry, so len(Skipped) is the skip count.
	Skipped []IssueKey
}

// Total returns the reconciled total of the context.
func (a Allocation) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range a.Rows {
		sum = sum.Add(r.Rounded)
	}
	return sum
}

// Row returns the row for one destination, if present.
func (a Allocation) Row(dest DestinationID) (AllocationRow, bool) {
	for _, r := range a.Rows {
		if r.Destination == dest {
			return r, true
		}
	}
	return AllocationRow{}, false
}

// Allocate folds entries into per-destination hours for one dimension
// and reconciles the result. Pure function of its inputs.
//
// Destinations listed in universe are seeded with zero so they appear
// in the output even when nothing routes to them; destinations reached
// by any resolved entry are always included.
func Allocate(entries []TimeEntry, keys *KeySet, dim Dimension, universe ...DestinationID) Allocation {
	raw := make(map[DestinationID]decimal.Decimal, len(universe))
	for _, d := range universe {
		raw[d] = decimal.Zero
	}

	var skipped []IssueKey
	for _, e := range entries {
		project := e.Project
		if project == "" {
			p, err := ExtractProjectKey(e.Issue)
			if err != nil {
				skipped = append(skipped, e.Issue)
				continue
			}
			project = p
		}
		shares, known := keys.Shares(project, dim)
		if !known {
			skipped = append(skipped, e.Issue)
			continue
		}
		for _, s := range shares {
			portion := e.Hours.Mul(s.Percentage).Div(hundred)
			raw[s.Destination] = raw[s.Destination].Add(portion)
		}
	}

	rounded := Reconcile(raw)

	rows := make([]AllocationRow, 0, len(raw))
	for dest, r := range raw {
		rows = append(rows, AllocationRow{Destination: dest, Raw: r, Rounded: rounded[dest]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Destination < rows[j].Destination })

	return Allocation{Rows: rows, Skipped: skipped}
}
