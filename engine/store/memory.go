// Package store provides in-memory implementations of the engine's
// storage interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fakturo/timereg/engine"
)

// =============================================================================
// MEMORY STORE - EntryStore + LockStore + TxStore
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	nextID  engine.EntryID
	entries map[engine.EntryID]engine.TimeEntry
	byKey   map[engine.NaturalKey]engine.EntryID
	locks   map[lockKey]engine.MonthlyLock
}

type lockKey struct {
	Consultant engine.ConsultantID
	Month      engine.Month
}

func NewMemory() *Memory {
	return &Memory{
		nextID:  1,
		entries: make(map[engine.EntryID]engine.TimeEntry),
		byKey:   make(map[engine.NaturalKey]engine.EntryID),
		locks:   make(map[lockKey]engine.MonthlyLock),
	}
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (m *Memory) UpsertEntry(_ context.Context, entry engine.TimeEntry) (engine.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(entry), nil
}

func (m *Memory) upsertLocked(entry engine.TimeEntry) engine.TimeEntry {
	if id, ok := m.byKey[entry.NaturalKey()]; ok {
		entry.ID = id
	} else {
		entry.ID = m.nextID
		m.nextID++
		m.byKey[entry.NaturalKey()] = entry.ID
	}
	m.entries[entry.ID] = entry
	return entry
}

func (m *Memory) EntryByID(_ context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *Memory) EntriesByMonth(_ context.Context, c engine.ConsultantID, month engine.Month) ([]engine.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.TimeEntry
	for _, e := range m.entries {
		if e.Consultant == c && e.Date.In(month) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *Memory) EntriesForMonth(_ context.Context, month engine.Month) ([]engine.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.TimeEntry
	for _, e := range m.entries {
		if e.Date.In(month) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func sortEntries(entries []engine.TimeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Consultant != b.Consultant {
			return a.Consultant < b.Consultant
		}
		if !a.Date.Time().Equal(b.Date.Time()) {
			return a.Date.Before(b.Date)
		}
		return a.Issue < b.Issue
	})
}

func (m *Memory) DeleteEntry(_ context.Context, id engine.EntryID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	delete(m.entries, id)
	delete(m.byKey, entry.NaturalKey())
	return true, nil
}

func (m *Memory) DeleteEntriesByIssue(_ context.Context, c engine.ConsultantID, issue engine.IssueKey, month engine.Month) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, e := range m.entries {
		if e.Consultant == c && e.Issue == issue && e.Date.In(month) {
			delete(m.entries, id)
			delete(m.byKey, e.NaturalKey())
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) DeleteEntriesByMonth(_ context.Context, c engine.ConsultantID, month engine.Month) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteMonthLocked(c, month), nil
}

func (m *Memory) deleteMonthLocked(c engine.ConsultantID, month engine.Month) int {
	deleted := 0
	for id, e := range m.entries {
		if e.Consultant == c && e.Date.In(month) {
			delete(m.entries, id)
			delete(m.byKey, e.NaturalKey())
			deleted++
		}
	}
	return deleted
}

// =============================================================================
// LOCK STORE
// =============================================================================

func (m *Memory) GetLock(_ context.Context, c engine.ConsultantID, month engine.Month) (*engine.MonthlyLock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lock, ok := m.locks[lockKey{Consultant: c, Month: month}]
	if !ok {
		return nil, nil
	}
	return &lock, nil
}

func (m *Memory) AcquireLock(_ context.Context, lock engine.MonthlyLock) (engine.MonthlyLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := lockKey{Consultant: lock.Consultant, Month: lock.Month}
	if existing, ok := m.locks[k]; ok {
		return existing, nil
	}
	m.locks[k] = lock
	return lock, nil
}

func (m *Memory) ReleaseLock(_ context.Context, c engine.ConsultantID, month engine.Month) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := lockKey{Consultant: c, Month: month}
	if _, ok := m.locks[k]; !ok {
		return false, nil
	}
	delete(m.locks, k)
	return true, nil
}

func (m *Memory) LocksByMonth(_ context.Context, month engine.Month) ([]engine.MonthlyLock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.MonthlyLock
	for k, lock := range m.locks {
		if k.Month == month {
			result = append(result, lock)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Consultant < result[j].Consultant })
	return result, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx simulates a transaction with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(engine.EntryStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	view := &txMemoryView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextID  engine.EntryID
	entries map[engine.EntryID]engine.TimeEntry
	byKey   map[engine.NaturalKey]engine.EntryID
}

func (m *Memory) snapshot() memorySnapshot {
	entries := make(map[engine.EntryID]engine.TimeEntry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	byKey := make(map[engine.NaturalKey]engine.EntryID, len(m.byKey))
	for k, v := range m.byKey {
		byKey[k] = v
	}
	return memorySnapshot{nextID: m.nextID, entries: entries, byKey: byKey}
}

func (m *Memory) restore(s memorySnapshot) {
	m.nextID = s.nextID
	m.entries = s.entries
	m.byKey = s.byKey
}

// txMemoryView writes directly against the already-locked parent.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) UpsertEntry(_ context.Context, entry engine.TimeEntry) (engine.TimeEntry, error) {
	return tv.parent.upsertLocked(entry), nil
}

func (tv *txMemoryView) EntryByID(_ context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	entry, ok := tv.parent.entries[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (tv *txMemoryView) EntriesByMonth(_ context.Context, c engine.ConsultantID, month engine.Month) ([]engine.TimeEntry, error) {
	var result []engine.TimeEntry
	for _, e := range tv.parent.entries {
		if e.Consultant == c && e.Date.In(month) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (tv *txMemoryView) EntriesForMonth(_ context.Context, month engine.Month) ([]engine.TimeEntry, error) {
	var result []engine.TimeEntry
	for _, e := range tv.parent.entries {
		if e.Date.In(month) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (tv *txMemoryView) DeleteEntry(_ context.Context, id engine.EntryID) (bool, error) {
	entry, ok := tv.parent.entries[id]
	if !ok {
		return false, nil
	}
	delete(tv.parent.entries, id)
	delete(tv.parent.byKey, entry.NaturalKey())
	return true, nil
}

func (tv *txMemoryView) DeleteEntriesByIssue(_ context.Context, c engine.ConsultantID, issue engine.IssueKey, month engine.Month) (int, error) {
	deleted := 0
	for id, e := range tv.parent.entries {
		if e.Consultant == c && e.Issue == issue && e.Date.In(month) {
			delete(tv.parent.entries, id)
			delete(tv.parent.byKey, e.NaturalKey())
			deleted++
		}
	}
	return deleted, nil
}

func (tv *txMemoryView) DeleteEntriesByMonth(_ context.Context, c engine.ConsultantID, month engine.Month) (int, error) {
	return tv.parent.deleteMonthLocked(c, month), nil
}
