/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the engine's persistence boundary (EntryStore, LockStore,
  TxStore, KeySource) plus the configuration catalog: consultants,
  invoice projects, sections, and tracker projects with their
  distribution keys. The same patterns apply to PostgreSQL with minor
  dialect changes.

KEY TABLES:
  time_entries:      The ledger. UNIQUE(consultant_id, issue_key, date)
                     backs the natural-key upsert so racing writers
                     serialize into one row.
  monthly_locks:     Existence = locked. UNIQUE(consultant, year, month).
  projects:          Issue-key prefixes ("AFP") with display names.
  distribution_keys: Per-project billing percentages.
  section_keys:      Per-project section percentages.

INVARIANT ENFORCEMENT:
  CreateProject/UpdateProject validate the 100%-sum invariant through
  engine.NewKeySet before writing, and replace a project's keys as a
  unit inside one transaction. The engine consumes snapshots via
  KeySet() and never re-validates.

WAL MODE:
  The database is opened with WAL for concurrent readers and better
  crash recovery.

USAGE:
  store, err := sqlite.New("./data/timereg.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := engine.NewLedger(store, engine.NewLocks(store), store)

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would open a second,
	// empty database. Writes are serialized through the store mutex
	// anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS consultants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoice_projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_number TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		short_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS distribution_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		invoice_project_id INTEGER NOT NULL,
		percentage TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_distribution_keys_project
		ON distribution_keys(project_id);

	CREATE TABLE IF NOT EXISTS section_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		section_id INTEGER NOT NULL,
		percentage TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_section_keys_project
		ON section_keys(project_id);

	-- The ledger. The unique index IS the natural key; racing upserts
	-- for the same (consultant, issue, date) serialize into one row.
	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		consultant_id INTEGER NOT NULL,
		issue_key TEXT NOT NULL,
		project_key TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		UNIQUE(consultant_id, issue_key, date)
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_consultant_date
		ON time_entries(consultant_id, date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_date
		ON time_entries(date);

	-- Row presence is the only lock state.
	CREATE TABLE IF NOT EXISTS monthly_locks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		consultant_id INTEGER NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		locked_at TEXT NOT NULL,
		UNIQUE(consultant_id, year, month)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx for queries that run either
// standalone or inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ENTRY STORE (engine.EntryStore interface)
// =============================================================================

// UpsertEntry inserts or overwrites the row matching the natural key.
func (s *Store) UpsertEntry(ctx context.Context, entry engine.TimeEntry) (engine.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return upsertEntry(ctx, s.db, entry)
}

func upsertEntry(ctx context.Context, db dbtx, entry engine.TimeEntry) (engine.TimeEntry, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO time_entries (consultant_id, issue_key, project_key, date, hours)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(consultant_id, issue_key, date)
		DO UPDATE SET hours = excluded.hours, project_key = excluded.project_key`,
		entry.Consultant, entry.Issue, entry.Project, entry.Date.String(), entry.Hours.String(),
	)
	if err != nil {
		return engine.TimeEntry{}, fmt.Errorf("failed to upsert time entry: %w", err)
	}

	var id engine.EntryID
	err = db.QueryRowContext(ctx, `
		SELECT id FROM time_entries
		WHERE consultant_id = ? AND issue_key = ? AND date = ?`,
		entry.Consultant, entry.Issue, entry.Date.String(),
	).Scan(&id)
	if err != nil {
		return engine.TimeEntry{}, fmt.Errorf("failed to read upserted entry id: %w", err)
	}

	entry.ID = id
	return entry, nil
}

// EntryByID returns one entry, or nil if absent.
func (s *Store) EntryByID(ctx context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return entryByID(ctx, s.db, id)
}

func entryByID(ctx context.Context, db dbtx, id engine.EntryID) (*engine.TimeEntry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, consultant_id, issue_key, project_key, date, hours
		FROM time_entries WHERE id = ?`, id)

	entry, err := scanEntryRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// EntriesByMonth returns a consultant's entries ordered by date then issue key.
func (s *Store) EntriesByMonth(ctx context.Context, c engine.ConsultantID, m engine.Month) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return entriesByMonth(ctx, s.db, c, m)
}

func entriesByMonth(ctx context.Context, db dbtx, c engine.ConsultantID, m engine.Month) ([]engine.TimeEntry, error) {
	return queryEntries(ctx, db, `
		SELECT id, consultant_id, issue_key, project_key, date, hours
		FROM time_entries
		WHERE consultant_id = ? AND date >= ? AND date <= ?
		ORDER BY date, issue_key`,
		c, m.First().String(), m.Last().String())
}

// EntriesForMonth returns every consultant's entries for one month.
func (s *Store) EntriesForMonth(ctx context.Context, m engine.Month) ([]engine.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return entriesForMonth(ctx, s.db, m)
}

func entriesForMonth(ctx context.Context, db dbtx, m engine.Month) ([]engine.TimeEntry, error) {
	return queryEntries(ctx, db, `
		SELECT id, consultant_id, issue_key, project_key, date, hours
		FROM time_entries
		WHERE date >= ? AND date <= ?
		ORDER BY consultant_id, date, issue_key`,
		m.First().String(), m.Last().String())
}

// DeleteEntry removes one entry by id.
func (s *Store) DeleteEntry(ctx context.Context, id engine.EntryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteEntry(ctx, s.db, id)
}

func deleteEntry(ctx context.Context, db dbtx, id engine.EntryID) (bool, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM time_entries WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete time entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteEntriesByIssue removes a consultant's entries for one issue in one month.
func (s *Store) DeleteEntriesByIssue(ctx context.Context, c engine.ConsultantID, issue engine.IssueKey, m engine.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteEntriesByIssue(ctx, s.db, c, issue, m)
}

func deleteEntriesByIssue(ctx context.Context, db dbtx, c engine.ConsultantID, issue engine.IssueKey, m engine.Month) (int, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM time_entries
		WHERE consultant_id = ? AND issue_key = ? AND date >= ? AND date <= ?`,
		c, issue, m.First().String(), m.Last().String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries by issue: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteEntriesByMonth removes all of a consultant's entries for one month.
func (s *Store) DeleteEntriesByMonth(ctx context.Context, c engine.ConsultantID, m engine.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return deleteEntriesByMonth(ctx, s.db, c, m)
}

func deleteEntriesByMonth(ctx context.Context, db dbtx, c engine.ConsultantID, m engine.Month) (int, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM time_entries
		WHERE consultant_id = ? AND date >= ? AND date <= ?`,
		c, m.First().String(), m.Last().String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries by month: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]engine.TimeEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.TimeEntry
	for rows.Next() {
		entry, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row rowScanner) (engine.TimeEntry, error) {
	var (
		entry engine.TimeEntry
		date  string
		hours string
	)
	err := row.Scan(&entry.ID, &entry.Consultant, &entry.Issue, &entry.Project, &date, &hours)
	if err != nil {
		return entry, err
	}

	entry.Date, err = engine.ParseDate(date)
	if err != nil {
		return entry, fmt.Errorf("failed to parse stored date: %w", err)
	}
	entry.Hours, err = decimal.NewFromString(hours)
	if err != nil {
		return entry, fmt.Errorf("failed to parse stored hours: %w", err)
	}
	return entry, nil
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(engine.EntryStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txEntryStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txEntryStore struct {
	tx *sql.Tx
}

func (ts *txEntryStore) UpsertEntry(ctx context.Context, entry engine.TimeEntry) (engine.TimeEntry, error) {
	return upsertEntry(ctx, ts.tx, entry)
}

func (ts *txEntryStore) EntryByID(ctx context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	return entryByID(ctx, ts.tx, id)
}

func (ts *txEntryStore) EntriesByMonth(ctx context.Context, c engine.ConsultantID, m engine.Month) ([]engine.TimeEntry, error) {
	return entriesByMonth(ctx, ts.tx, c, m)
}

func (ts *txEntryStore) EntriesForMonth(ctx context.Context, m engine.Month) ([]engine.TimeEntry, error) {
	return entriesForMonth(ctx, ts.tx, m)
}

func (ts *txEntryStore) DeleteEntry(ctx context.Context, id engine.EntryID) (bool, error) {
	return deleteEntry(ctx, ts.tx, id)
}

func (ts *txEntryStore) DeleteEntriesByIssue(ctx context.Context, c engine.ConsultantID, issue engine.IssueKey, m engine.Month) (int, error) {
	return deleteEntriesByIssue(ctx, ts.tx, c, issue, m)
}

func (ts *txEntryStore) DeleteEntriesByMonth(ctx context.Context, c engine.ConsultantID, m engine.Month) (int, error) {
	return deleteEntriesByMonth(ctx, ts.tx, c, m)
}

// =============================================================================
// LOCK STORE (engine.LockStore interface)
// =============================================================================

// GetLock returns the lock row, or nil when the month is unlocked.
func (s *Store) GetLock(ctx context.Context, c engine.ConsultantID, m engine.Month) (*engine.MonthlyLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getLock(ctx, c, m)
}

func (s *Store) getLock(ctx context.Context, c engine.ConsultantID, m engine.Month) (*engine.MonthlyLock, error) {
	var lockedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT locked_at FROM monthly_locks
		WHERE consultant_id = ? AND year = ? AND month = ?`,
		c, m.Year, int(m.Month),
	).Scan(&lockedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly lock: %w", err)
	}

	at, err := time.Parse(time.RFC3339, lockedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lock timestamp: %w", err)
	}
	return &engine.MonthlyLock{Consultant: c, Month: m, LockedAt: at}, nil
}

// AcquireLock inserts the lock unless one exists; the stored row wins.
func (s *Store) AcquireLock(ctx context.Context, lock engine.MonthlyLock) (engine.MonthlyLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO monthly_locks (consultant_id, year, month, locked_at)
		VALUES (?, ?, ?, ?)`,
		lock.Consultant, lock.Month.Year, int(lock.Month.Month), lock.LockedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return engine.MonthlyLock{}, fmt.Errorf("failed to acquire monthly lock: %w", err)
	}

	stored, err := s.getLock(ctx, lock.Consultant, lock.Month)
	if err != nil {
		return engine.MonthlyLock{}, err
	}
	return *stored, nil
}

// ReleaseLock deletes the lock. Returns true if one existed.
func (s *Store) ReleaseLock(ctx context.Context, c engine.ConsultantID, m engine.Month) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM monthly_locks
		WHERE consultant_id = ? AND year = ? AND month = ?`,
		c, m.Year, int(m.Month))
	if err != nil {
		return false, fmt.Errorf("failed to release monthly lock: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// LocksByMonth returns all locks for one month across consultants.
func (s *Store) LocksByMonth(ctx context.Context, m engine.Month) ([]engine.MonthlyLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT consultant_id, locked_at FROM monthly_locks
		WHERE year = ? AND month = ?
		ORDER BY consultant_id`,
		m.Year, int(m.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly locks: %w", err)
	}
	defer rows.Close()

	var locks []engine.MonthlyLock
	for rows.Next() {
		var (
			c        engine.ConsultantID
			lockedAt string
		)
		if err := rows.Scan(&c, &lockedAt); err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339, lockedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse lock timestamp: %w", err)
		}
		locks = append(locks, engine.MonthlyLock{Consultant: c, Month: m, LockedAt: at})
	}
	return locks, rows.Err()
}

// =============================================================================
// KEY SOURCE (engine.KeySource interface)
// =============================================================================

// KeySet loads the current distribution key snapshot.
func (s *Store) KeySet(ctx context.Context) (*engine.KeySet, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}

	configs := make([]engine.ProjectKeys, 0, len(projects))
	for _, p := range projects {
		configs = append(configs, engine.ProjectKeys{
			Key:      p.Key,
			Billing:  p.Billing,
			Sections: p.Sections,
		})
	}
	return engine.NewKeySet(configs)
}
