/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Maps between JSON wire shapes and domain types. Hours and percentages
  cross the wire as JSON numbers; internally everything is decimal.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
	"github.com/fakturo/timereg/report"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// TimeEntryDTO represents a stored time entry.
type TimeEntryDTO struct {
	ID           int64   `json:"id"`
	ConsultantID int64   `json:"consultant_id"`
	IssueKey     string  `json:"issue_key"`
	ProjectKey   string  `json:"project_key"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
}

// UpsertTimeEntryRequest creates or overwrites one entry.
type UpsertTimeEntryRequest struct {
	ConsultantID int64   `json:"consultant_id"`
	IssueKey     string  `json:"issue_key"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
}

// MonthExportDTO is the JSON month export/import envelope.
type MonthExportDTO struct {
	ConsultantID int64            `json:"consultant_id"`
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	ExportedAt   string           `json:"exported_at,omitempty"`
	Entries      []ExportEntryDTO `json:"entries"`
}

type ExportEntryDTO struct {
	IssueKey string  `json:"issue_key"`
	Date     string  `json:"date"`
	Hours    float64 `json:"hours"`
}

// ImportResultDTO summarizes a month import.
type ImportResultDTO struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// =============================================================================
// MONTHLY LOCKS
// =============================================================================

type MonthlyLockDTO struct {
	ConsultantID int64  `json:"consultant_id"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	LockedAt     string `json:"locked_at"`
}

// LockStatusDTO reports whether one consultant's month is locked.
type LockStatusDTO struct {
	Locked   bool   `json:"locked"`
	LockedAt string `json:"locked_at,omitempty"`
}

// ToggleLockRequest locks or unlocks a consultant's month.
type ToggleLockRequest struct {
	ConsultantID int64 `json:"consultant_id"`
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	Locked       bool  `json:"locked"`
}

// =============================================================================
// CATALOG
// =============================================================================

type ConsultantDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type InvoiceProjectDTO struct {
	ID            int64  `json:"id"`
	ProjectNumber string `json:"project_number"`
	Name          string `json:"name"`
}

type SectionDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// ShareDTO is one percentage route to a destination.
type ShareDTO struct {
	DestinationID int64   `json:"destination_id"`
	Percentage    float64 `json:"percentage"`
}

// ProjectDTO is an issue-key prefix with its keys in both dimensions.
type ProjectDTO struct {
	ID          int64      `json:"id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Billing     []ShareDTO `json:"distribution_keys"`
	SectionKeys []ShareDTO `json:"section_keys"`
}

// =============================================================================
// REPORTS
// =============================================================================

type ReportRowDTO struct {
	IssueKey string             `json:"issue_key"`
	Hours    float64            `json:"hours"`
	Sections map[string]float64 `json:"sections"`
}

type ReportBlockDTO struct {
	ConsultantID int64              `json:"consultant_id"`
	Name         string             `json:"name"`
	Rows         []ReportRowDTO     `json:"rows"`
	Total        float64            `json:"total"`
	Sections     map[string]float64 `json:"sections"`
}

type MonthlyReportDTO struct {
	InvoiceProjectID int64              `json:"invoice_project_id"`
	Year             int                `json:"year"`
	Month            int                `json:"month"`
	Consultants      []ReportBlockDTO   `json:"consultants"`
	Total            float64            `json:"total"`
	Sections         map[string]float64 `json:"sections"`
	SkippedIssues    []string           `json:"skipped_issues,omitempty"`
}

type TimesheetRowDTO struct {
	IssueKey string          `json:"issue_key"`
	Days     map[int]float64 `json:"days"`
	Total    float64         `json:"total"`
}

type AllocationRowDTO struct {
	DestinationID int64   `json:"destination_id"`
	Hours         float64 `json:"hours"`
}

type TimesheetDTO struct {
	ConsultantID  int64              `json:"consultant_id"`
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	Rows          []TimesheetRowDTO  `json:"rows"`
	DayTotals     map[int]float64    `json:"day_totals"`
	Total         float64            `json:"total"`
	Billing       []AllocationRowDTO `json:"billing"`
	Sections      []AllocationRowDTO `json:"sections"`
	SkippedIssues []string           `json:"skipped_issues,omitempty"`
}

type SummaryLineDTO struct {
	ConsultantID int64   `json:"consultant_id"`
	Name         string  `json:"name"`
	Total        float64 `json:"total"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTimeEntryDTO(e engine.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:           int64(e.ID),
		ConsultantID: int64(e.Consultant),
		IssueKey:     string(e.Issue),
		ProjectKey:   string(e.Project),
		Date:         e.Date.String(),
		Hours:        e.Hours.InexactFloat64(),
	}
}

func toAllocationRowDTOs(rows []engine.AllocationRow) []AllocationRowDTO {
	out := make([]AllocationRowDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, AllocationRowDTO{
			DestinationID: int64(r.Destination),
			Hours:         r.Rounded.InexactFloat64(),
		})
	}
	return out
}

func toShareDTOs(shares []engine.Share) []ShareDTO {
	out := make([]ShareDTO, 0, len(shares))
	for _, s := range shares {
		out = append(out, ShareDTO{
			DestinationID: int64(s.Destination),
			Percentage:    s.Percentage.InexactFloat64(),
		})
	}
	return out
}

func fromShareDTOs(dtos []ShareDTO) []engine.Share {
	out := make([]engine.Share, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, engine.Share{
			Destination: engine.DestinationID(d.DestinationID),
			Percentage:  decimal.NewFromFloat(d.Percentage),
		})
	}
	return out
}

func toSectionMap(m map[engine.DestinationID]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for dest, v := range m {
		out[strconv.FormatInt(int64(dest), 10)] = v.InexactFloat64()
	}
	return out
}

func issueKeyStrings(keys []engine.IssueKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func toMonthlyReportDTO(rep report.MonthlyReport) MonthlyReportDTO {
	dto := MonthlyReportDTO{
		InvoiceProjectID: int64(rep.InvoiceProject),
		Year:             rep.Month.Year,
		Month:            int(rep.Month.Month),
		Total:            rep.Total.InexactFloat64(),
		Sections:         toSectionMap(rep.SectionTotal),
		SkippedIssues:    issueKeyStrings(rep.Skipped),
	}
	for _, block := range rep.Blocks {
		b := ReportBlockDTO{
			ConsultantID: int64(block.Consultant),
			Name:         block.Name,
			Total:        block.Total.InexactFloat64(),
			Sections:     toSectionMap(block.SectionTotal),
		}
		for _, row := range block.Rows {
			b.Rows = append(b.Rows, ReportRowDTO{
				IssueKey: string(row.Issue),
				Hours:    row.Hours.InexactFloat64(),
				Sections: toSectionMap(row.Sections),
			})
		}
		dto.Consultants = append(dto.Consultants, b)
	}
	return dto
}

func toTimesheetDTO(ts report.Timesheet) TimesheetDTO {
	dto := TimesheetDTO{
		ConsultantID:  int64(ts.Consultant),
		Year:          ts.Month.Year,
		Month:         int(ts.Month.Month),
		DayTotals:     make(map[int]float64, len(ts.DayTotals)),
		Total:         ts.Total.InexactFloat64(),
		Billing:       toAllocationRowDTOs(ts.Billing),
		Sections:      toAllocationRowDTOs(ts.Sections),
		SkippedIssues: issueKeyStrings(ts.Skipped),
	}
	for day, v := range ts.DayTotals {
		dto.DayTotals[day] = v.InexactFloat64()
	}
	for _, row := range ts.Rows {
		r := TimesheetRowDTO{
			IssueKey: string(row.Issue),
			Days:     make(map[int]float64, len(row.Days)),
			Total:    row.Total.InexactFloat64(),
		}
		for day, v := range row.Days {
			r.Days[day] = v.InexactFloat64()
		}
		dto.Rows = append(dto.Rows, r)
	}
	return dto
}
