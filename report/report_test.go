package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturo/timereg/engine"
	"github.com/fakturo/timereg/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var march = engine.NewMonth(2026, time.March)

func dec(s string) decimal.Decimal { return engine.MustHours(s) }

// testKeys routes AFP 60/40 to invoice projects 1 and 2, and 50/50 to
// sections 10 and 20. OPS routes everything to invoice project 2.
func testKeys(t *testing.T) *engine.KeySet {
	t.Helper()
	ks, err := engine.NewKeySet([]engine.ProjectKeys{
		{
			Key: "AFP",
			Billing: []engine.Share{
				{Destination: 1, Percentage: dec("60")},
				{Destination: 2, Percentage: dec("40")},
			},
			Sections: []engine.Share{
				{Destination: 10, Percentage: dec("50")},
				{Destination: 20, Percentage: dec("50")},
			},
		},
		{
			Key:      "OPS",
			Billing:  []engine.Share{{Destination: 2, Percentage: dec("100")}},
			Sections: []engine.Share{{Destination: 10, Percentage: dec("100")}},
		},
	})
	require.NoError(t, err)
	return ks
}

func testConsultants() []report.Consultant {
	return []report.Consultant{
		{ID: 1, Name: "Ada"},
		{ID: 2, Name: "Liskov"},
	}
}

func testSections() []report.Section {
	return []report.Section{
		{ID: 10, Name: "Development", ShortName: "DEV"},
		{ID: 20, Name: "Operations", ShortName: "OPS"},
	}
}

func entry(c engine.ConsultantID, issue string, day int, hours string) engine.TimeEntry {
	project, _ := engine.ExtractProjectKey(engine.IssueKey(issue))
	return engine.TimeEntry{
		Consultant: c,
		Issue:      engine.IssueKey(issue),
		Project:    project,
		Date:       engine.NewDate(2026, time.March, day),
		Hours:      dec(hours),
	}
}

// =============================================================================
// MONTHLY REPORT
// =============================================================================

func TestBuildMonthlyReport_BillingWeightedRows(t *testing.T) {
	// GIVEN: 10h on AFP-1 by Ada, keys routing 60% to invoice project 1
	// WHEN: Building project 1's report
	// THEN: One block for Ada with a 6.00h row

	entries := []engine.TimeEntry{entry(1, "AFP-1", 3, "10")}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	require.Len(t, rep.Blocks, 1)
	block := rep.Blocks[0]
	assert.Equal(t, "Ada", block.Name)
	require.Len(t, block.Rows, 1)
	assert.Equal(t, engine.IssueKey("AFP-1"), block.Rows[0].Issue)
	assert.True(t, block.Rows[0].Hours.Equal(dec("6.00")))
	assert.True(t, rep.Total.Equal(dec("6.00")))
}

func TestBuildMonthlyReport_BlockTotalEqualsSumOfRows(t *testing.T) {
	// GIVEN: Awkward thirds across three AFP issues
	// WHEN: Building the report
	// THEN: The consultant total is exactly the sum of the displayed rows

	third := dec("10").Div(dec("3"))
	entries := []engine.TimeEntry{
		{Consultant: 1, Issue: "AFP-1", Project: "AFP", Date: engine.NewDate(2026, time.March, 2), Hours: third},
		{Consultant: 1, Issue: "AFP-2", Project: "AFP", Date: engine.NewDate(2026, time.March, 3), Hours: third},
		{Consultant: 1, Issue: "AFP-3", Project: "AFP", Date: engine.NewDate(2026, time.March, 4), Hours: third},
	}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	require.Len(t, rep.Blocks, 1)
	block := rep.Blocks[0]
	sum := decimal.Zero
	for _, row := range block.Rows {
		sum = sum.Add(row.Hours)
	}
	assert.True(t, block.Total.Equal(sum))
	// 60% of 10h, rounded once.
	assert.True(t, block.Total.Equal(dec("6.00")), "total %s", block.Total)
}

func TestBuildMonthlyReport_RowSectionsSumToRowHours(t *testing.T) {
	// Each row's section split reconciles against that row's hours.
	entries := []engine.TimeEntry{entry(1, "AFP-1", 3, "5.55")}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	require.Len(t, rep.Blocks, 1)
	row := rep.Blocks[0].Rows[0]
	sum := decimal.Zero
	for _, v := range row.Sections {
		sum = sum.Add(v)
	}
	assert.True(t, sum.Equal(row.Hours), "sections sum %s, row %s", sum, row.Hours)
}

func TestBuildMonthlyReport_ConsultantsSortedByName(t *testing.T) {
	entries := []engine.TimeEntry{
		entry(2, "AFP-1", 3, "4"),
		entry(1, "AFP-1", 3, "4"),
	}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	require.Len(t, rep.Blocks, 2)
	assert.Equal(t, "Ada", rep.Blocks[0].Name)
	assert.Equal(t, "Liskov", rep.Blocks[1].Name)
}

func TestBuildMonthlyReport_ZeroRoutedIssuesDropped(t *testing.T) {
	// OPS routes nothing to invoice project 1, so an OPS-only consultant
	// has no block in project 1's report.
	entries := []engine.TimeEntry{
		entry(1, "OPS-1", 3, "8"),
		entry(2, "AFP-1", 3, "4"),
	}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	require.Len(t, rep.Blocks, 1)
	assert.Equal(t, engine.ConsultantID(2), rep.Blocks[0].Consultant)
}

func TestBuildMonthlyReport_UnknownPrefixSkipped(t *testing.T) {
	entries := []engine.TimeEntry{
		entry(1, "AFP-1", 3, "4"),
		{Consultant: 1, Issue: "ZZZ-1", Project: "ZZZ", Date: engine.NewDate(2026, time.March, 3), Hours: dec("4")},
	}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	assert.Equal(t, []engine.IssueKey{"ZZZ-1"}, rep.Skipped)
	assert.True(t, rep.Total.Equal(dec("2.40")), "total %s", rep.Total)
}

func TestBuildMonthlyReport_GrandTotalsAreSumsOfBlocks(t *testing.T) {
	entries := []engine.TimeEntry{
		entry(1, "AFP-1", 3, "3.33"),
		entry(2, "AFP-2", 4, "6.67"),
	}

	rep := report.BuildMonthlyReport(march, 1, entries, testKeys(t), testConsultants(), testSections())

	blockSum := decimal.Zero
	sectionSum := decimal.Zero
	for _, b := range rep.Blocks {
		blockSum = blockSum.Add(b.Total)
		for _, v := range b.SectionTotal {
			sectionSum = sectionSum.Add(v)
		}
	}
	assert.True(t, rep.Total.Equal(blockSum))

	repSectionSum := decimal.Zero
	for _, v := range rep.SectionTotal {
		repSectionSum = repSectionSum.Add(v)
	}
	assert.True(t, repSectionSum.Equal(sectionSum))
}

func TestBuildMonthlyReport_EmptyMonth(t *testing.T) {
	rep := report.BuildMonthlyReport(march, 1, nil, testKeys(t), testConsultants(), testSections())

	assert.Empty(t, rep.Blocks)
	assert.True(t, rep.Total.IsZero())
}

// =============================================================================
// TIMESHEET
// =============================================================================

func TestBuildTimesheet_GridUsesStoredValuesVerbatim(t *testing.T) {
	// GIVEN: Entries on two issues across three days
	// WHEN: Building the timesheet
	// THEN: Cells carry the stored hours unmodified and day totals add up

	entries := []engine.TimeEntry{
		entry(1, "AFP-1", 2, "7.5"),
		entry(1, "AFP-1", 3, "4"),
		entry(1, "AFP-2", 2, "0.25"),
	}

	ts := report.BuildTimesheet(1, march, entries, testKeys(t), []engine.DestinationID{10, 20})

	require.Len(t, ts.Rows, 2)
	assert.Equal(t, engine.IssueKey("AFP-1"), ts.Rows[0].Issue)
	assert.True(t, ts.Rows[0].Days[2].Equal(dec("7.5")))
	assert.True(t, ts.Rows[0].Days[3].Equal(dec("4")))
	assert.True(t, ts.Rows[0].Total.Equal(dec("11.5")))
	assert.True(t, ts.DayTotals[2].Equal(dec("7.75")))
	assert.True(t, ts.Total.Equal(dec("11.75")))
}

func TestBuildTimesheet_SplitsReconcileAgainstMonthTotal(t *testing.T) {
	entries := []engine.TimeEntry{
		entry(1, "AFP-1", 2, "2.5"),
		entry(1, "AFP-2", 3, "4.17"),
	}

	ts := report.BuildTimesheet(1, march, entries, testKeys(t), []engine.DestinationID{10, 20})

	billingSum := decimal.Zero
	for _, r := range ts.Billing {
		billingSum = billingSum.Add(r.Rounded)
	}
	assert.True(t, billingSum.Equal(dec("6.67")))

	sectionSum := decimal.Zero
	for _, r := range ts.Sections {
		sectionSum = sectionSum.Add(r.Rounded)
	}
	assert.True(t, sectionSum.Equal(dec("6.67")))
}

func TestBuildTimesheet_SectionUniverseSeedsZeroColumns(t *testing.T) {
	// OPS routes only to section 10; section 20 still appears at zero.
	entries := []engine.TimeEntry{entry(1, "OPS-1", 2, "8")}

	ts := report.BuildTimesheet(1, march, entries, testKeys(t), []engine.DestinationID{10, 20})

	require.Len(t, ts.Sections, 2)
	assert.True(t, ts.Sections[0].Rounded.Equal(dec("8.00")))
	assert.True(t, ts.Sections[1].Rounded.IsZero())
}

func TestBuildTimesheet_Empty(t *testing.T) {
	ts := report.BuildTimesheet(1, march, nil, testKeys(t), []engine.DestinationID{10, 20})

	assert.Empty(t, ts.Rows)
	assert.True(t, ts.Total.IsZero())
	require.Len(t, ts.Sections, 2)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestBuildSummary_ExactPerConsultantTotals(t *testing.T) {
	entries := []engine.TimeEntry{
		entry(1, "AFP-1", 2, "7.5"),
		entry(1, "OPS-1", 3, "0.25"),
		entry(2, "AFP-2", 2, "8"),
	}

	lines := report.BuildSummary(entries, testConsultants())

	require.Len(t, lines, 2)
	assert.Equal(t, "Ada", lines[0].Name)
	assert.True(t, lines[0].Total.Equal(dec("7.75")))
	assert.Equal(t, "Liskov", lines[1].Name)
	assert.True(t, lines[1].Total.Equal(dec("8")))
}

func TestBuildSummary_Empty(t *testing.T) {
	assert.Empty(t, report.BuildSummary(nil, testConsultants()))
}
