/*
ledger.go - Time entry ledger with upsert-by-natural-key semantics

PURPOSE:
  The ledger is the single write path for time entries. Every mutation
  validates the issue key locally, resolves its prefix against the
  distribution key snapshot, and checks the monthly lock before touching
  storage. Reads never check locks.

WRITE SEQUENCE (Upsert):
  1. Validate issue key format (local, storage untouched on failure)
  2. Resolve prefix against KeySource -> UnknownProjectError if absent
  3. Check monthly lock -> MonthLockedError if set
  4. Validate hours (0 <= h <= 24; zero is a valid stored value)
  5. Store upsert against the natural key

BULK MONTH REPLACE:
  ReplaceMonth validates every line first, collecting per-line errors,
  then deletes the month and inserts the valid lines in one storage
  transaction. A validation failure in one line never leaves the month
  empty; other valid lines still import.

SEE ALSO:
  - store.go: EntryStore / TxStore contracts
  - lock.go: Lock semantics
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger coordinates entry mutation against the lock gate and the
// configured project set.
type Ledger struct {
	entries EntryStore
	locks   *Locks
	keys    KeySource
}

func NewLedger(entries EntryStore, locks *Locks, keys KeySource) *Ledger {
	return &Ledger{entries: entries, locks: locks, keys: keys}
}

// Upsert inserts or overwrites the entry matching (consultant, issue,
// date). Returns the stored row.
func (l *Ledger) Upsert(ctx context.Context, c ConsultantID, issue IssueKey, date Date, hours decimal.Decimal) (TimeEntry, error) {
	project, err := ExtractProjectKey(issue)
	if err != nil {
		return TimeEntry{}, err
	}

	keys, err := l.keys.KeySet(ctx)
	if err != nil {
		return TimeEntry{}, err
	}
	if !keys.Known(project) {
		return TimeEntry{}, &UnknownProjectError{Project: project}
	}

	if err := l.checkUnlocked(ctx, c, date.MonthOf()); err != nil {
		return TimeEntry{}, err
	}

	if !ValidHours(hours) {
		return TimeEntry{}, fmt.Errorf("%w: %s", ErrInvalidHours, hours)
	}

	return l.entries.UpsertEntry(ctx, TimeEntry{
		Consultant: c,
		Issue:      issue,
		Project:    project,
		Date:       date,
		Hours:      hours,
	})
}

// Delete removes one entry by id, honoring the lock of the entry's month.
func (l *Ledger) Delete(ctx context.Context, id EntryID) error {
	entry, err := l.entries.EntryByID(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrEntryNotFound
	}
	if err := l.checkUnlocked(ctx, entry.Consultant, entry.Date.MonthOf()); err != nil {
		return err
	}
	deleted, err := l.entries.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrEntryNotFound
	}
	return nil
}

// DeleteByIssue removes a consultant's entries for one issue in one
// month. Returns the number of rows removed.
func (l *Ledger) DeleteByIssue(ctx context.Context, c ConsultantID, issue IssueKey, m Month) (int, error) {
	if err := l.checkUnlocked(ctx, c, m); err != nil {
		return 0, err
	}
	return l.entries.DeleteEntriesByIssue(ctx, c, issue, m)
}

// DeleteMonth removes all of a consultant's entries for one month.
func (l *Ledger) DeleteMonth(ctx context.Context, c ConsultantID, m Month) (int, error) {
	if err := l.checkUnlocked(ctx, c, m); err != nil {
		return 0, err
	}
	return l.entries.DeleteEntriesByMonth(ctx, c, m)
}

// Query returns a consultant's entries for one month, ordered by date
// then issue key. Ignores lock state.
func (l *Ledger) Query(ctx context.Context, c ConsultantID, m Month) ([]TimeEntry, error) {
	return l.entries.EntriesByMonth(ctx, c, m)
}

// Entry returns one entry by id.
func (l *Ledger) Entry(ctx context.Context, id EntryID) (*TimeEntry, error) {
	return l.entries.EntryByID(ctx, id)
}

func (l *Ledger) checkUnlocked(ctx context.Context, c ConsultantID, m Month) error {
	locked, err := l.locks.IsLocked(ctx, c, m)
	if err != nil {
		return err
	}
	if locked {
		return &MonthLockedError{Consultant: c, Month: m}
	}
	return nil
}

// =============================================================================
// BULK MONTH REPLACE (import)
// =============================================================================

// ImportLine is one row of a month import.
type ImportLine struct {
	Issue IssueKey
	Date  Date
	Hours decimal.Decimal
}

// ImportError reports why one import line was rejected. Line is the
// zero-based index into the submitted lines.
type ImportError struct {
	Line  int
	Issue IssueKey
	Err   error
}

func (e ImportError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Issue, e.Err)
}

// ImportResult summarizes a month replace.
type ImportResult struct {
	Imported int
	Errors   []ImportError
}

// ReplaceMonth atomically replaces a consultant's month with the given
// lines. Invalid lines are collected as per-line errors and skipped;
// the remaining lines are staged, then the month is deleted and the
// staged rows inserted inside one storage transaction. Requires the
// entry store to implement TxStore.
func (l *Ledger) ReplaceMonth(ctx context.Context, c ConsultantID, m Month, lines []ImportLine) (ImportResult, error) {
	tx, ok := l.entries.(TxStore)
	if !ok {
		return ImportResult{}, ErrStoreRequired
	}

	if err := l.checkUnlocked(ctx, c, m); err != nil {
		return ImportResult{}, err
	}

	keys, err := l.keys.KeySet(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	// Stage: validate everything before touching the store.
	var result ImportResult
	staged := make([]TimeEntry, 0, len(lines))
	for i, line := range lines {
		project, err := ExtractProjectKey(line.Issue)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Line: i, Issue: line.Issue, Err: err})
			continue
		}
		if !keys.Known(project) {
			result.Errors = append(result.Errors, ImportError{Line: i, Issue: line.Issue, Err: &UnknownProjectError{Project: project}})
			continue
		}
		if !line.Date.In(m) {
			result.Errors = append(result.Errors, ImportError{Line: i, Issue: line.Issue,
				Err: fmt.Errorf("date %s outside month %s", line.Date, m)})
			continue
		}
		if !ValidHours(line.Hours) {
			result.Errors = append(result.Errors, ImportError{Line: i, Issue: line.Issue,
				Err: fmt.Errorf("%w: %s", ErrInvalidHours, line.Hours)})
			continue
		}
		staged = append(staged, TimeEntry{
			Consultant: c,
			Issue:      line.Issue,
			Project:    project,
			Date:       line.Date,
			Hours:      line.Hours,
		})
	}

	// Commit: delete + insert as one atomic unit.
	err = tx.WithTx(ctx, func(store EntryStore) error {
		if _, err := store.DeleteEntriesByMonth(ctx, c, m); err != nil {
			return err
		}
		for _, entry := range staged {
			if _, err := store.UpsertEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	result.Imported = len(staged)
	return result, nil
}
