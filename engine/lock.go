/*
lock.go - Monthly lock state machine

PURPOSE:
  A consultant marks a month "done"; from then on every mutating ledger
  call for that (consultant, month) fails until the month is unlocked.
  The lock is a binary existence flag with a timestamp - no partial
  states, no expiry.

STATES:
  Unlocked (no stored row) -> Locked (row with timestamp) -> Unlocked.
  Re-locking a locked month is idempotent and returns the original
  timestamp. Locks gate writes only; reads and reports never consult
  them.

SEE ALSO:
  - store.go: LockStore persistence interface
  - ledger.go: The write path that honors the lock
*/
package engine

import (
	"context"
	"time"
)

// MonthlyLock marks one consultant's month as closed for mutation.
type MonthlyLock struct {
	Consultant ConsultantID
	Month      Month
	LockedAt   time.Time
}

// Locks wraps a LockStore with the month-lock semantics.
type Locks struct {
	store LockStore
	now   func() time.Time
}

func NewLocks(store LockStore) *Locks {
	return &Locks{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source. Test hook.
func (l *Locks) WithClock(now func() time.Time) *Locks {
	l.now = now
	return l
}

// IsLocked reports whether the month is locked for the consultant.
func (l *Locks) IsLocked(ctx context.Context, c ConsultantID, m Month) (bool, error) {
	lock, err := l.store.GetLock(ctx, c, m)
	if err != nil {
		return false, err
	}
	return lock != nil, nil
}

// Lock marks the month done. Idempotent: if the month is already
// locked, the existing lock (with its original timestamp) is returned.
func (l *Locks) Lock(ctx context.Context, c ConsultantID, m Month) (MonthlyLock, error) {
	return l.store.AcquireLock(ctx, MonthlyLock{Consultant: c, Month: m, LockedAt: l.now()})
}

// Unlock removes the lock. Returns true if a lock existed.
func (l *Locks) Unlock(ctx context.Context, c ConsultantID, m Month) (bool, error) {
	return l.store.ReleaseLock(ctx, c, m)
}

// Get returns the lock row, or nil when unlocked.
func (l *Locks) Get(ctx context.Context, c ConsultantID, m Month) (*MonthlyLock, error) {
	return l.store.GetLock(ctx, c, m)
}

// ByMonth lists every consultant's lock for one month.
func (l *Locks) ByMonth(ctx context.Context, m Month) ([]MonthlyLock, error) {
	return l.store.LocksByMonth(ctx, m)
}
