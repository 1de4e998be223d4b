/*
store.go - Persistence interfaces for the ledger and locks

PURPOSE:
  Defines the boundary between the engine and storage. The engine is
  pure computation plus read-modify-write against these interfaces;
  SQLite, PostgreSQL, or an in-memory map can all sit behind them.

KEY INTERFACES:
  EntryStore:  Natural-key upsert and queries for time entries
  LockStore:   Monthly lock rows (existence = locked)
  KeySource:   Loads the distribution key snapshot
  TxStore:     Atomic multi-write scope for bulk month replace

UPSERT CONTRACT:
  UpsertEntry must be atomic with respect to the natural-key uniqueness
  check: two racing upserts for the same (consultant, issue, date) must
  serialize into one row, never two. Implementations back this with a
  unique constraint or a transaction.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store: In-memory store for tests and dev

SEE ALSO:
  - ledger.go: Higher-level write path over these interfaces
*/
package engine

import "context"

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists time entries keyed by their natural key.
type EntryStore interface {
	// UpsertEntry inserts or overwrites the row matching the entry's
	// natural key and returns the stored row with its id set.
	UpsertEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)

	// EntryByID returns one entry, or nil if absent.
	EntryByID(ctx context.Context, id EntryID) (*TimeEntry, error)

	// EntriesByMonth returns a consultant's entries for one month,
	// ordered by date then issue key.
	EntriesByMonth(ctx context.Context, c ConsultantID, m Month) ([]TimeEntry, error)

	// EntriesForMonth returns every consultant's entries for one month,
	// ordered by consultant, date, issue key. Report input.
	EntriesForMonth(ctx context.Context, m Month) ([]TimeEntry, error)

	// DeleteEntry removes one entry by id. Returns false if absent.
	DeleteEntry(ctx context.Context, id EntryID) (bool, error)

	// DeleteEntriesByIssue removes a consultant's entries for one issue
	// within one month. Returns the number of rows removed.
	DeleteEntriesByIssue(ctx context.Context, c ConsultantID, issue IssueKey, m Month) (int, error)

	// DeleteEntriesByMonth removes all of a consultant's entries for one
	// month. Returns the number of rows removed.
	DeleteEntriesByMonth(ctx context.Context, c ConsultantID, m Month) (int, error)
}

// =============================================================================
// LOCK STORE
// =============================================================================

// LockStore persists monthly lock rows. Row presence is the only state.
type LockStore interface {
	// GetLock returns the lock row, or nil when the month is unlocked.
	GetLock(ctx context.Context, c ConsultantID, m Month) (*MonthlyLock, error)

	// AcquireLock stores the lock unless one already exists, in which
	// case the existing row is returned unchanged. The existence check
	// and insert must be atomic.
	AcquireLock(ctx context.Context, lock MonthlyLock) (MonthlyLock, error)

	// ReleaseLock deletes the lock. Returns true if one existed.
	ReleaseLock(ctx context.Context, c ConsultantID, m Month) (bool, error)

	// LocksByMonth returns all locks for one month across consultants.
	LocksByMonth(ctx context.Context, m Month) ([]MonthlyLock, error)
}

// =============================================================================
// CONFIGURATION SOURCE
// =============================================================================

// KeySource supplies the distribution key snapshot the ledger validates
// against. The snapshot is loaded per operation so the engine itself
// holds no configuration state.
type KeySource interface {
	KeySet(ctx context.Context) (*KeySet, error)
}

// StaticKeys adapts an already-built KeySet into a KeySource.
// Handy in tests and for callers that manage their own snapshots.
type StaticKeys struct{ Keys *KeySet }

func (s StaticKeys) KeySet(context.Context) (*KeySet, error) { return s.Keys, nil }

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore adds an atomic scope over an EntryStore. Bulk month replace
// (delete-then-reinsert) runs inside WithTx so a failed import never
// leaves a month half-empty.
type TxStore interface {
	EntryStore

	// WithTx executes fn against a transactional view of the store.
	// fn returning an error rolls every write back.
	WithTx(ctx context.Context, fn func(EntryStore) error) error
}
