/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All engine error kinds in one place. Callers distinguish "reject this
  one row" (imports collect per-row errors and keep going) from "reject
  the whole operation" (single upsert, lock toggle) with errors.Is/As.

ERROR CATEGORIES:
  1. Validation errors - malformed issue keys, out-of-range hours
  2. Configuration errors - unknown projects, broken percentage sums
  3. Ledger errors - locked months, missing rows, store capabilities

SEE ALSO:
  - ledger.go: Returns these on the write path
  - distribution.go: Returns ErrConfigInvariant at snapshot load
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidIssueKey is returned when an issue key has no dash
	// separator or the separator is the first character. Always local
	// validation; storage is never touched.
	ErrInvalidIssueKey = errors.New("invalid issue key format")

	// ErrUnknownProject is returned on the write path when an issue key's
	// prefix has no configured project. Read/report paths never fail on
	// it; they count the entry as zero contribution instead.
	ErrUnknownProject = errors.New("unknown project key")

	// ErrMonthLocked is returned by any mutating ledger call against a
	// month a consultant has marked done. Reads ignore locks entirely.
	ErrMonthLocked = errors.New("month is locked")

	// ErrConfigInvariant is returned when a project's percentage shares
	// in one dimension do not sum to exactly 100.
	ErrConfigInvariant = errors.New("distribution percentages must sum to 100")

	// ErrInvalidHours is returned for negative hours or more than 24
	// hours on a single entry.
	ErrInvalidHours = errors.New("hours must be between 0 and 24")

	// ErrEntryNotFound is returned when a referenced time entry does not exist.
	ErrEntryNotFound = errors.New("time entry not found")

	// ErrStoreRequired is returned when an operation needs a capability
	// the configured store does not provide (e.g. atomic month replace
	// on a store without transactions).
	ErrStoreRequired = errors.New("operation requires transactional store")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IssueKeyError reports a malformed issue key.
type IssueKeyError struct {
	Issue IssueKey
}

func (e *IssueKeyError) Error() string {
	return fmt.Sprintf("invalid issue key %q: expected PREFIX-NUMBER", e.Issue)
}

func (e *IssueKeyError) Unwrap() error { return ErrInvalidIssueKey }

// UnknownProjectError reports an unconfigured issue-key prefix.
type UnknownProjectError struct {
	Project ProjectKey
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project key: %s", e.Project)
}

func (e *UnknownProjectError) Unwrap() error { return ErrUnknownProject }

// MonthLockedError reports a write against a locked month.
type MonthLockedError struct {
	Consultant ConsultantID
	Month      Month
}

func (e *MonthLockedError) Error() string {
	return fmt.Sprintf("month %s is locked for consultant %d", e.Month, e.Consultant)
}

func (e *MonthLockedError) Unwrap() error { return ErrMonthLocked }

// ConfigError reports a broken percentage-sum invariant for one project
// and dimension.
type ConfigError struct {
	Project   ProjectKey
	Dimension Dimension
	Sum       string // the offending sum, for the message
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("project %s: %s percentages sum to %s, want 100", e.Project, e.Dimension, e.Sum)
}

func (e *ConfigError) Unwrap() error { return ErrConfigInvariant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine or storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidIssueKey) ||
		errors.Is(err, ErrUnknownProject) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrConfigInvariant)
}

// IsConflict returns true if the error reflects a state conflict the
// caller can resolve (unlock the month, retry after the race settles).
func IsConflict(err error) bool {
	return errors.Is(err, ErrMonthLocked)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}
