/*
Package engine is the time allocation and reconciliation core.

PURPOSE:
  This package contains the pure domain types and algorithms for routing
  consultant hours from issue keys to billing destinations. Hours logged
  against an issue like "AFP-123" are split by configured percentage keys
  across invoice projects and organizational sections, aggregated, and
  rounded so that the rounded parts always sum to the rounded total.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: One consultant/issue/day hours record (the ledger unit)
  - AllocationRow: A per-destination slice of allocated hours (derived)
  - Hours helpers: decimal constructors for hour quantities
  - Typed IDs: ConsultantID, DestinationID, ProjectKey, IssueKey

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Purity: Allocation and reconciliation are functions of their inputs;
     configuration is passed in as a snapshot, never looked up ambiently
  3. Type Safety: Strong typing for IDs prevents mixing consultant ids
     with destination ids

SEE ALSO:
  - rounding.go: Largest-remainder reconciliation
  - distribution.go: Percentage key snapshots and issue-key parsing
  - allocate.go: Entry folding and per-destination aggregation
  - ledger.go: Upsert-by-natural-key time entry ledger
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ConsultantID int64

// DestinationID identifies an allocation target. Depending on the
// dimension it is either an invoice project id or a section id.
type DestinationID int64

type EntryID int64

// ProjectKey is an issue-key prefix such as "AFP". Each configured
// project owns exactly one prefix.
type ProjectKey string

// IssueKey is a full tracker reference of the form PREFIX-NUMBER.
type IssueKey string

// =============================================================================
// HOURS - decimal constructors
// =============================================================================

// MaxDailyHours caps a single time entry. An entry of exactly zero hours
// is valid when stored explicitly; treating zero as delete is a caller
// convention, not a ledger rule.
var MaxDailyHours = decimal.NewFromInt(24)

func HoursFromFloat(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func HoursFromString(s string) (decimal.Decimal, error) { return decimal.NewFromString(s) }

func MustHours(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ValidHours reports whether h is an acceptable stored value: finite,
// non-negative and at most 24.
func ValidHours(h decimal.Decimal) bool {
	return !h.IsNegative() && h.LessThanOrEqual(MaxDailyHours)
}

// =============================================================================
// TIME ENTRY - Ledger unit
// =============================================================================

// TimeEntry is one consultant's hours against one issue on one day.
// Natural key: (Consultant, Issue, Date). At most one row per key.
type TimeEntry struct {
	ID         EntryID
	Consultant ConsultantID
	Issue      IssueKey
	Project    ProjectKey // resolved prefix of Issue
	Date       Date
	Hours      decimal.Decimal
}

// NaturalKey identifies an entry independent of its surrogate id.
type NaturalKey struct {
	Consultant ConsultantID
	Issue      IssueKey
	Date       Date
}

func (e TimeEntry) NaturalKey() NaturalKey {
	return NaturalKey{Consultant: e.Consultant, Issue: e.Issue, Date: e.Date}
}

// =============================================================================
// ALLOCATION ROW - Derived, never persisted
// =============================================================================

// AllocationRow is one destination's slice of an allocation context.
// Raw carries the exact weighted sum; Rounded is the reconciled
// 2-decimal value. Rows for one context always satisfy
// sum(Rounded) == round(sum(Raw), 2).
type AllocationRow struct {
	Destination DestinationID
	Raw         decimal.Decimal
	Rounded     decimal.Decimal
}
