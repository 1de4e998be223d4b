package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturo/timereg/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func sixtyFortyKeys(t *testing.T) *engine.KeySet {
	t.Helper()
	ks, err := engine.NewKeySet([]engine.ProjectKeys{
		{
			Key: "AFP",
			Billing: []engine.Share{
				{Destination: 1, Percentage: dec("60")},
				{Destination: 2, Percentage: dec("40")},
			},
			Sections: []engine.Share{
				{Destination: 100, Percentage: dec("100")},
			},
		},
	})
	require.NoError(t, err)
	return ks
}

func entry(issue string, day int, hours string) engine.TimeEntry {
	return engine.TimeEntry{
		Consultant: 1,
		Issue:      engine.IssueKey(issue),
		Date:       engine.NewDate(2026, time.March, day),
		Hours:      dec(hours),
	}
}

// =============================================================================
// ALLOCATION
// =============================================================================

func TestAllocate_SixtyFortySplitSumsExactly(t *testing.T) {
	// GIVEN: 6.67h on AFP issues split 60/40 between two invoice projects
	// WHEN: Allocating the billing dimension
	// THEN: The two destinations sum to exactly 6.67 despite neither
	//       raw part being representable in cents

	entries := []engine.TimeEntry{
		entry("AFP-1", 3, "2.5"),
		entry("AFP-2", 4, "4.17"),
	}

	alloc := engine.Allocate(entries, sixtyFortyKeys(t), engine.DimensionBilling)

	require.Len(t, alloc.Rows, 2)
	assert.True(t, alloc.Total().Equal(dec("6.67")), "total %s", alloc.Total())

	row1, ok := alloc.Row(1)
	require.True(t, ok)
	row2, ok := alloc.Row(2)
	require.True(t, ok)
	assert.True(t, row1.Rounded.Add(row2.Rounded).Equal(dec("6.67")))
	// 60% of 6.67 = 4.002; within a cent after reconciliation.
	assert.True(t, row1.Rounded.Sub(dec("4.002")).Abs().LessThanOrEqual(dec("0.01")))
}

func TestAllocate_UnknownPrefixSkipped(t *testing.T) {
	// GIVEN: One resolvable entry and one with an unconfigured prefix
	// WHEN: Allocating
	// THEN: The unknown entry is skipped and reported, not an error

	entries := []engine.TimeEntry{
		entry("AFP-1", 3, "2"),
		entry("ZZZ-9", 3, "5"),
	}

	alloc := engine.Allocate(entries, sixtyFortyKeys(t), engine.DimensionBilling)

	assert.True(t, alloc.Total().Equal(dec("2.00")))
	assert.Equal(t, []engine.IssueKey{"ZZZ-9"}, alloc.Skipped)
}

func TestAllocate_MalformedKeySkipped(t *testing.T) {
	entries := []engine.TimeEntry{
		entry("nodash", 3, "5"),
	}

	alloc := engine.Allocate(entries, sixtyFortyKeys(t), engine.DimensionBilling)

	assert.True(t, alloc.Total().IsZero())
	assert.Equal(t, []engine.IssueKey{"nodash"}, alloc.Skipped)
}

func TestAllocate_UniverseSeedsZeroRows(t *testing.T) {
	// GIVEN: A fixed destination universe wider than what the entries reach
	// WHEN: Allocating sections
	// THEN: Unreached destinations still appear with zero hours

	entries := []engine.TimeEntry{
		entry("AFP-1", 3, "4"),
	}

	alloc := engine.Allocate(entries, sixtyFortyKeys(t), engine.DimensionSection, 100, 200, 300)

	require.Len(t, alloc.Rows, 3)
	row, ok := alloc.Row(200)
	require.True(t, ok)
	assert.True(t, row.Rounded.IsZero())
	row, ok = alloc.Row(100)
	require.True(t, ok)
	assert.True(t, row.Rounded.Equal(dec("4.00")))
}

func TestAllocate_RowsSortedByDestination(t *testing.T) {
	entries := []engine.TimeEntry{
		entry("AFP-1", 3, "1"),
	}

	alloc := engine.Allocate(entries, sixtyFortyKeys(t), engine.DimensionBilling, 9, 2, 1)

	ids := make([]engine.DestinationID, len(alloc.Rows))
	for i, r := range alloc.Rows {
		ids[i] = r.Destination
	}
	assert.Equal(t, []engine.DestinationID{1, 2, 9}, ids)
}

func TestAllocate_EmptyEntries(t *testing.T) {
	alloc := engine.Allocate(nil, sixtyFortyKeys(t), engine.DimensionBilling)
	assert.Empty(t, alloc.Rows)
	assert.Empty(t, alloc.Skipped)
}

func TestAllocate_PreresolvedProjectWins(t *testing.T) {
	// Entries resolved at write time carry their prefix; it is used as-is.
	e := entry("AFP-1", 3, "3")
	e.Project = "AFP"

	alloc := engine.Allocate([]engine.TimeEntry{e}, sixtyFortyKeys(t), engine.DimensionBilling)
	assert.True(t, alloc.Total().Equal(dec("3.00")))
}

func TestAllocate_PerContextRoundingIsIndependent(t *testing.T) {
	// GIVEN: Three days of 1/3h each on a 100% destination
	// WHEN: Allocating each day alone versus the whole month
	// THEN: Daily totals round per day (0.33 each) while the monthly
	//       context reconciles against the month total

	third := dec("1").Div(dec("3"))
	ks, err := engine.NewKeySet([]engine.ProjectKeys{
		{Key: "AFP", Billing: []engine.Share{{Destination: 1, Percentage: dec("100")}}},
	})
	require.NoError(t, err)

	days := []engine.TimeEntry{
		{Consultant: 1, Issue: "AFP-1", Date: engine.NewDate(2026, time.March, 2), Hours: third},
		{Consultant: 1, Issue: "AFP-1", Date: engine.NewDate(2026, time.March, 3), Hours: third},
		{Consultant: 1, Issue: "AFP-1", Date: engine.NewDate(2026, time.March, 4), Hours: third},
	}

	for _, d := range days {
		daily := engine.Allocate([]engine.TimeEntry{d}, ks, engine.DimensionBilling)
		assert.True(t, daily.Total().Equal(dec("0.33")))
	}

	monthly := engine.Allocate(days, ks, engine.DimensionBilling)
	assert.True(t, monthly.Total().Equal(dec("1.00")))
}
