package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
)

// =============================================================================
// TIMESHEET - One consultant's month as an issue-by-day grid
// =============================================================================

// TimesheetRow is one issue's hours across the days of the month.
// Days is keyed by day-of-month; absent days carry no entry.
type TimesheetRow struct {
	Issue engine.IssueKey
	Days  map[int]decimal.Decimal
	Total decimal.Decimal
}

// Timesheet is the grid plus the month's per-destination splits.
// Grid cells are the stored values verbatim; only the Billing and
// Sections splits go through reconciliation, each against the month
// total independently.
type Timesheet struct {
	Consultant engine.ConsultantID
	Month      engine.Month
	Rows       []TimesheetRow
	DayTotals  map[int]decimal.Decimal
	Total      decimal.Decimal

	Billing  []engine.AllocationRow
	Sections []engine.AllocationRow
	Skipped  []engine.IssueKey
}

// BuildTimesheet lays out one consultant's month. The entries must all
// belong to the consultant and month; sectionIDs seeds the section
// split so every section column appears even at zero.
func BuildTimesheet(
	c engine.ConsultantID,
	month engine.Month,
	entries []engine.TimeEntry,
	keys *engine.KeySet,
	sectionIDs []engine.DestinationID,
) Timesheet {
	ts := Timesheet{
		Consultant: c,
		Month:      month,
		DayTotals:  make(map[int]decimal.Decimal),
		Total:      decimal.Zero,
	}

	byIssue := make(map[engine.IssueKey]*TimesheetRow)
	for _, e := range entries {
		row, ok := byIssue[e.Issue]
		if !ok {
			row = &TimesheetRow{Issue: e.Issue, Days: make(map[int]decimal.Decimal), Total: decimal.Zero}
			byIssue[e.Issue] = row
		}
		day := e.Date.Day
		row.Days[day] = row.Days[day].Add(e.Hours)
		row.Total = row.Total.Add(e.Hours)
		ts.DayTotals[day] = ts.DayTotals[day].Add(e.Hours)
		ts.Total = ts.Total.Add(e.Hours)
	}

	issues := make([]engine.IssueKey, 0, len(byIssue))
	for issue := range byIssue {
		issues = append(issues, issue)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i] < issues[j] })
	for _, issue := range issues {
		ts.Rows = append(ts.Rows, *byIssue[issue])
	}

	billing := engine.Allocate(entries, keys, engine.DimensionBilling)
	sections := engine.Allocate(entries, keys, engine.DimensionSection, sectionIDs...)
	ts.Billing = billing.Rows
	ts.Sections = sections.Rows
	ts.Skipped = billing.Skipped

	return ts
}
