/*
Package report builds the tabular models consumed by exporters.

PURPOSE:
  Reporting collaborators (spreadsheet, PDF, JSON) render tables of
  allocated hours with consultant subtotals and grand totals. This
  package computes those tables from ledger entries and a distribution
  key snapshot, using the engine's reconciled values verbatim - totals
  are sums of already-rounded numbers, never re-derived, so the
  sum-preservation guarantee holds end-to-end.

MODELS:
  MonthlyReport: One invoice project's month. Rows per (consultant,
                 issue) with billing-weighted hours and per-row section
                 splits, each row's sections reconciled against the row
                 total.
  Timesheet:     One consultant's month as an issue-by-day grid with
                 per-destination monthly splits for display.
  Summary:       Per-consultant total hours for one month.

  Rendering (cell layout, fonts, file formats) is out of scope; these
  models are what a renderer consumes.

SEE ALSO:
  - engine/allocate.go: The aggregation these models are built on
*/
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
)

// Consultant and Section carry the display data reports need. Callers
// map their catalog records into these.
type Consultant struct {
	ID   engine.ConsultantID
	Name string
}

type Section struct {
	ID        engine.DestinationID
	Name      string
	ShortName string
}

// =============================================================================
// MONTHLY INVOICE REPORT
// =============================================================================

// Row is one (consultant, issue) line of a monthly report.
type Row struct {
	Issue engine.IssueKey
	// Hours is the billing-weighted, reconciled share of this issue's
	// hours routed to the report's invoice project.
	Hours decimal.Decimal
	// Sections splits Hours across sections, reconciled against Hours.
	Sections map[engine.DestinationID]decimal.Decimal
}

// ConsultantBlock groups one consultant's rows with subtotals.
type ConsultantBlock struct {
	Consultant   engine.ConsultantID
	Name         string
	Rows         []Row
	Total        decimal.Decimal
	SectionTotal map[engine.DestinationID]decimal.Decimal
}

// MonthlyReport is one invoice project's month.
type MonthlyReport struct {
	InvoiceProject engine.DestinationID
	Month          engine.Month
	Blocks         []ConsultantBlock
	Total          decimal.Decimal
	SectionTotal   map[engine.DestinationID]decimal.Decimal
	// Skipped lists entries whose prefix had no configuration; they
	// contribute nothing to any destination.
	Skipped []engine.IssueKey
}

// BuildMonthlyReport computes one invoice project's monthly table from
// the given month's entries (all consultants). Pure function.
func BuildMonthlyReport(
	month engine.Month,
	invoiceProject engine.DestinationID,
	entries []engine.TimeEntry,
	keys *engine.KeySet,
	consultants []Consultant,
	sections []Section,
) MonthlyReport {
	names := make(map[engine.ConsultantID]string, len(consultants))
	for _, c := range consultants {
		names[c.ID] = c.Name
	}
	sectionIDs := make([]engine.DestinationID, len(sections))
	for i, s := range sections {
		sectionIDs[i] = s.ID
	}

	rep := MonthlyReport{
		InvoiceProject: invoiceProject,
		Month:          month,
		Total:          decimal.Zero,
		SectionTotal:   zeroByDestination(sectionIDs),
	}

	// Raw billing-weighted hours per (consultant, issue).
	perConsultant := make(map[engine.ConsultantID]map[engine.IssueKey]decimal.Decimal)
	for _, e := range entries {
		shares, known := keys.Shares(e.Project, engine.DimensionBilling)
		if !known {
			rep.Skipped = append(rep.Skipped, e.Issue)
			continue
		}
		for _, s := range shares {
			if s.Destination != invoiceProject {
				continue
			}
			raw := perConsultant[e.Consultant]
			if raw == nil {
				raw = make(map[engine.IssueKey]decimal.Decimal)
				perConsultant[e.Consultant] = raw
			}
			raw[e.Issue] = raw[e.Issue].Add(e.Hours.Mul(s.Percentage).Div(decimal.NewFromInt(100)))
		}
	}

	ids := make([]engine.ConsultantID, 0, len(perConsultant))
	for id := range perConsultant {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := names[ids[i]], names[ids[j]]
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		raw := perConsultant[id]
		// Drop issues that route nothing to this invoice project.
		for issue, hours := range raw {
			if hours.IsZero() {
				delete(raw, issue)
			}
		}
		if len(raw) == 0 {
			continue
		}

		// Reconcile the consultant's rows so they sum to the rounded
		// consultant total.
		rounded := engine.Reconcile(raw)

		block := ConsultantBlock{
			Consultant:   id,
			Name:         names[id],
			Total:        decimal.Zero,
			SectionTotal: zeroByDestination(sectionIDs),
		}

		issues := make([]engine.IssueKey, 0, len(rounded))
		for issue := range rounded {
			issues = append(issues, issue)
		}
		sort.Slice(issues, func(i, j int) bool { return issues[i] < issues[j] })

		for _, issue := range issues {
			hours := rounded[issue]
			row := Row{
				Issue:    issue,
				Hours:    hours,
				Sections: sectionSplit(issue, hours, keys, sectionIDs),
			}
			block.Rows = append(block.Rows, row)
			block.Total = block.Total.Add(hours)
			for dest, v := range row.Sections {
				block.SectionTotal[dest] = block.SectionTotal[dest].Add(v)
			}
		}

		rep.Blocks = append(rep.Blocks, block)
		rep.Total = rep.Total.Add(block.Total)
		for dest, v := range block.SectionTotal {
			rep.SectionTotal[dest] = rep.SectionTotal[dest].Add(v)
		}
	}

	return rep
}

// sectionSplit distributes one row's hours across sections and
// reconciles the parts against the row total.
func sectionSplit(issue engine.IssueKey, hours decimal.Decimal, keys *engine.KeySet, sectionIDs []engine.DestinationID) map[engine.DestinationID]decimal.Decimal {
	entry := engine.TimeEntry{Issue: issue, Hours: hours}
	if p, err := engine.ExtractProjectKey(issue); err == nil {
		entry.Project = p
	}
	alloc := engine.Allocate([]engine.TimeEntry{entry}, keys, engine.DimensionSection, sectionIDs...)

	out := make(map[engine.DestinationID]decimal.Decimal, len(alloc.Rows))
	for _, row := range alloc.Rows {
		out[row.Destination] = row.Rounded
	}
	return out
}

func zeroByDestination(ids []engine.DestinationID) map[engine.DestinationID]decimal.Decimal {
	out := make(map[engine.DestinationID]decimal.Decimal, len(ids))
	for _, id := range ids {
		out[id] = decimal.Zero
	}
	return out
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// SummaryLine is one consultant's total entered hours for a month.
type SummaryLine struct {
	Consultant engine.ConsultantID
	Name       string
	Total      decimal.Decimal
}

// BuildSummary totals entered hours per consultant. The values are
// exact sums of stored entries; nothing is weighted or rounded.
func BuildSummary(entries []engine.TimeEntry, consultants []Consultant) []SummaryLine {
	names := make(map[engine.ConsultantID]string, len(consultants))
	for _, c := range consultants {
		names[c.ID] = c.Name
	}

	totals := make(map[engine.ConsultantID]decimal.Decimal)
	for _, e := range entries {
		totals[e.Consultant] = totals[e.Consultant].Add(e.Hours)
	}

	lines := make([]SummaryLine, 0, len(totals))
	for id, total := range totals {
		lines = append(lines, SummaryLine{Consultant: id, Name: names[id], Total: total})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Name != lines[j].Name {
			return lines[i].Name < lines[j].Name
		}
		return lines[i].Consultant < lines[j].Consultant
	})
	return lines
}
