/*
handlers.go - HTTP API handlers for the time registration system

PURPOSE:
  Exposes the allocation engine and its ledger over REST. Handles HTTP
  request/response and JSON mapping, delegates everything else to the
  engine, report builders, and store.

ENDPOINTS:
  Time entries:
    GET    /api/time-entries              One consultant's month
    PUT    /api/time-entries              Upsert one entry
    DELETE /api/time-entries/{id}         Delete one entry
    DELETE /api/time-entries/by-issue     Delete an issue's month
    GET    /api/time-entries/export       JSON month export
    POST   /api/time-entries/import       Atomic month replace

  Monthly locks:
    GET    /api/monthly-locks             Lock status for one month
    PUT    /api/monthly-locks             Toggle a lock
    GET    /api/monthly-locks/by-month    All locks for a month

  Catalog:
    GET/POST /api/consultants, /api/invoice-projects, /api/sections
    GET/POST /api/projects, PUT/DELETE /api/projects/{id}

  Reports:
    GET /api/reports/monthly              Invoice project month table
    GET /api/reports/timesheet            Consultant month grid
    GET /api/monthly-summary              Per-consultant totals

ERROR HANDLING:
  Engine errors map to status codes via the engine's predicates:
  - 400: invalid issue keys, unknown projects, bad percentages, bad input
  - 404: missing rows
  - 409: month locked
  - 500: storage failures

SEE ALSO:
  - dto.go: Wire shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
	"github.com/fakturo/timereg/report"
	"github.com/fakturo/timereg/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Ledger *engine.Ledger
	Locks  *engine.Locks
}

// NewHandler wires the engine on top of the given store.
func NewHandler(store *sqlite.Store) *Handler {
	locks := engine.NewLocks(store)
	return &Handler{
		Store:  store,
		Ledger: engine.NewLedger(store, locks, store),
		Locks:  locks,
	}
}

// =============================================================================
// TIME ENTRY ENDPOINTS
// =============================================================================

// ListTimeEntries returns one consultant's entries for a month.
// GET /api/time-entries?consultant_id=&year=&month=
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	consultant, month, ok := consultantMonthParams(w, r)
	if !ok {
		return
	}

	entries, err := h.Ledger.Query(r.Context(), consultant, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query time entries", err)
		return
	}

	dtos := make([]TimeEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toTimeEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertTimeEntry creates or overwrites the entry for one natural key.
// PUT /api/time-entries
func (h *Handler) UpsertTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req UpsertTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	entry, err := h.Ledger.Upsert(r.Context(),
		engine.ConsultantID(req.ConsultantID),
		engine.IssueKey(req.IssueKey),
		date,
		decimal.NewFromFloat(req.Hours))
	if err != nil {
		writeEngineError(w, "Failed to upsert time entry", err)
		return
	}

	writeJSON(w, http.StatusOK, toTimeEntryDTO(entry))
}

// DeleteTimeEntry removes one entry by id.
// DELETE /api/time-entries/{id}
func (h *Handler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry id", err)
		return
	}

	if err := h.Ledger.Delete(r.Context(), engine.EntryID(id)); err != nil {
		writeEngineError(w, "Failed to delete time entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTimeEntriesByIssue removes one issue's entries for a month.
// DELETE /api/time-entries/by-issue?consultant_id=&issue_key=&year=&month=
func (h *Handler) DeleteTimeEntriesByIssue(w http.ResponseWriter, r *http.Request) {
	consultant, month, ok := consultantMonthParams(w, r)
	if !ok {
		return
	}
	issue := engine.IssueKey(r.URL.Query().Get("issue_key"))
	if issue == "" {
		writeError(w, http.StatusBadRequest, "Missing issue_key", nil)
		return
	}

	deleted, err := h.Ledger.DeleteByIssue(r.Context(), consultant, issue, month)
	if err != nil {
		writeEngineError(w, "Failed to delete time entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// ExportMonth returns one consultant's month as a JSON document.
// GET /api/time-entries/export?consultant_id=&year=&month=
func (h *Handler) ExportMonth(w http.ResponseWriter, r *http.Request) {
	consultant, month, ok := consultantMonthParams(w, r)
	if !ok {
		return
	}

	entries, err := h.Ledger.Query(r.Context(), consultant, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query time entries", err)
		return
	}

	export := MonthExportDTO{
		ConsultantID: int64(consultant),
		Year:         month.Year,
		Month:        int(month.Month),
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Entries:      make([]ExportEntryDTO, 0, len(entries)),
	}
	for _, e := range entries {
		export.Entries = append(export.Entries, ExportEntryDTO{
			IssueKey: string(e.Issue),
			Date:     e.Date.String(),
			Hours:    e.Hours.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, export)
}

// ImportMonth atomically replaces one consultant's month. Invalid lines
// are reported per line; valid lines still import.
// POST /api/time-entries/import
func (h *Handler) ImportMonth(w http.ResponseWriter, r *http.Request) {
	var req MonthExportDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month := engine.NewMonth(req.Year, time.Month(req.Month))
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid year/month", nil)
		return
	}

	lines := make([]engine.ImportLine, 0, len(req.Entries))
	var parseErrors []string
	for _, e := range req.Entries {
		date, err := engine.ParseDate(e.Date)
		if err != nil {
			parseErrors = append(parseErrors, err.Error())
			continue
		}
		lines = append(lines, engine.ImportLine{
			Issue: engine.IssueKey(e.IssueKey),
			Date:  date,
			Hours: decimal.NewFromFloat(e.Hours),
		})
	}

	result, err := h.Ledger.ReplaceMonth(r.Context(),
		engine.ConsultantID(req.ConsultantID), month, lines)
	if err != nil {
		writeEngineError(w, "Failed to import month", err)
		return
	}

	dto := ImportResultDTO{Imported: result.Imported, Errors: parseErrors}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	if dto.Errors == nil {
		dto.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// MONTHLY LOCK ENDPOINTS
// =============================================================================

// GetLockStatus reports whether a consultant's month is locked.
// GET /api/monthly-locks?consultant_id=&year=&month=
func (h *Handler) GetLockStatus(w http.ResponseWriter, r *http.Request) {
	consultant, month, ok := consultantMonthParams(w, r)
	if !ok {
		return
	}

	lock, err := h.Locks.Get(r.Context(), consultant, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query lock", err)
		return
	}

	status := LockStatusDTO{Locked: lock != nil}
	if lock != nil {
		status.LockedAt = lock.LockedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

// ToggleLock locks or unlocks a consultant's month. Locking an already
// locked month keeps the original timestamp.
// PUT /api/monthly-locks
func (h *Handler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	var req ToggleLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month := engine.NewMonth(req.Year, time.Month(req.Month))
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid year/month", nil)
		return
	}
	consultant := engine.ConsultantID(req.ConsultantID)

	if req.Locked {
		lock, err := h.Locks.Lock(r.Context(), consultant, month)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to lock month", err)
			return
		}
		writeJSON(w, http.StatusOK, MonthlyLockDTO{
			ConsultantID: int64(lock.Consultant),
			Year:         lock.Month.Year,
			Month:        int(lock.Month.Month),
			LockedAt:     lock.LockedAt.Format(time.RFC3339),
		})
		return
	}

	removed, err := h.Locks.Unlock(r.Context(), consultant, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unlock month", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unlocked": removed})
}

// ListLocksByMonth returns every consultant's lock for one month.
// GET /api/monthly-locks/by-month?year=&month=
func (h *Handler) ListLocksByMonth(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParams(w, r)
	if !ok {
		return
	}

	locks, err := h.Locks.ByMonth(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query locks", err)
		return
	}

	dtos := make([]MonthlyLockDTO, 0, len(locks))
	for _, lock := range locks {
		dtos = append(dtos, MonthlyLockDTO{
			ConsultantID: int64(lock.Consultant),
			Year:         lock.Month.Year,
			Month:        int(lock.Month.Month),
			LockedAt:     lock.LockedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListConsultants returns all consultants.
// GET /api/consultants
func (h *Handler) ListConsultants(w http.ResponseWriter, r *http.Request) {
	consultants, err := h.Store.Consultants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list consultants", err)
		return
	}
	dtos := make([]ConsultantDTO, 0, len(consultants))
	for _, c := range consultants {
		dtos = append(dtos, ConsultantDTO{ID: int64(c.ID), Name: c.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateConsultant adds a consultant.
// POST /api/consultants
func (h *Handler) CreateConsultant(w http.ResponseWriter, r *http.Request) {
	var dto ConsultantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	saved, err := h.Store.SaveConsultant(r.Context(), sqlite.Consultant{
		ID:   engine.ConsultantID(dto.ID),
		Name: dto.Name,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save consultant", err)
		return
	}
	writeJSON(w, http.StatusCreated, ConsultantDTO{ID: int64(saved.ID), Name: saved.Name})
}

// ListInvoiceProjects returns all billing destinations.
// GET /api/invoice-projects
func (h *Handler) ListInvoiceProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.InvoiceProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoice projects", err)
		return
	}
	dtos := make([]InvoiceProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, InvoiceProjectDTO{
			ID:            int64(p.ID),
			ProjectNumber: p.ProjectNumber,
			Name:          p.Name,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInvoiceProject adds a billing destination.
// POST /api/invoice-projects
func (h *Handler) CreateInvoiceProject(w http.ResponseWriter, r *http.Request) {
	var dto InvoiceProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	saved, err := h.Store.SaveInvoiceProject(r.Context(), sqlite.InvoiceProject{
		ID:            engine.DestinationID(dto.ID),
		ProjectNumber: dto.ProjectNumber,
		Name:          dto.Name,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save invoice project", err)
		return
	}
	writeJSON(w, http.StatusCreated, InvoiceProjectDTO{
		ID:            int64(saved.ID),
		ProjectNumber: saved.ProjectNumber,
		Name:          saved.Name,
	})
}

// ListSections returns all sections.
// GET /api/sections
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.Store.Sections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sections", err)
		return
	}
	dtos := make([]SectionDTO, 0, len(sections))
	for _, s := range sections {
		dtos = append(dtos, SectionDTO{ID: int64(s.ID), Name: s.Name, ShortName: s.ShortName})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSection adds a section.
// POST /api/sections
func (h *Handler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var dto SectionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	saved, err := h.Store.SaveSection(r.Context(), sqlite.Section{
		ID:        engine.DestinationID(dto.ID),
		Name:      dto.Name,
		ShortName: dto.ShortName,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save section", err)
		return
	}
	writeJSON(w, http.StatusCreated, SectionDTO{ID: int64(saved.ID), Name: saved.Name, ShortName: saved.ShortName})
}

// ListProjects returns all projects with their distribution keys.
// GET /api/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.Projects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject adds a project with its keys. The percentage sums are
// validated before anything is written.
// POST /api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Store.CreateProject(r.Context(), fromProjectDTO(dto))
	if err != nil {
		writeEngineError(w, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(saved))
}

// UpdateProject replaces a project's name and keys.
// PUT /api/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id", err)
		return
	}
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	project := fromProjectDTO(dto)
	project.ID = id
	found, err := h.Store.UpdateProject(r.Context(), project)
	if err != nil {
		writeEngineError(w, "Failed to update project", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(project))
}

// DeleteProject removes a project and its keys.
// DELETE /api/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id", err)
		return
	}
	found, err := h.Store.DeleteProject(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete project", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportProjects returns the full project configuration as a JSON
// document suitable for re-import on another instance.
// GET /api/projects/export
func (h *Handler) ExportProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.Projects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ImportProjects upserts projects by key: existing keys are replaced,
// new keys created. Each project is validated before it is written.
// POST /api/projects/import
func (h *Handler) ImportProjects(w http.ResponseWriter, r *http.Request) {
	var dtos []ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	imported := 0
	var importErrors []string
	for _, dto := range dtos {
		project := fromProjectDTO(dto)
		existing, err := h.Store.ProjectByKey(ctx, project.Key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to import projects", err)
			return
		}
		if existing != nil {
			project.ID = existing.ID
			_, err = h.Store.UpdateProject(ctx, project)
		} else {
			_, err = h.Store.CreateProject(ctx, project)
		}
		if err != nil {
			if engine.IsClientError(err) {
				importErrors = append(importErrors, fmt.Sprintf("%s: %v", project.Key, err))
				continue
			}
			writeError(w, http.StatusInternalServerError, "Failed to import projects", err)
			return
		}
		imported++
	}
	if importErrors == nil {
		importErrors = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": imported,
		"errors":   importErrors,
	})
}

func toProjectDTO(p sqlite.Project) ProjectDTO {
	return ProjectDTO{
		ID:          p.ID,
		Key:         string(p.Key),
		Name:        p.Name,
		Billing:     toShareDTOs(p.Billing),
		SectionKeys: toShareDTOs(p.Sections),
	}
}

func fromProjectDTO(dto ProjectDTO) sqlite.Project {
	return sqlite.Project{
		ID:       dto.ID,
		Key:      engine.ProjectKey(dto.Key),
		Name:     dto.Name,
		Billing:  fromShareDTOs(dto.Billing),
		Sections: fromShareDTOs(dto.SectionKeys),
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// MonthlyReport returns one invoice project's monthly table.
// GET /api/reports/monthly?year=&month=&invoice_project_id=
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParams(w, r)
	if !ok {
		return
	}
	invoiceProjectID, err := strconv.ParseInt(r.URL.Query().Get("invoice_project_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice_project_id", err)
		return
	}

	ctx := r.Context()
	entries, err := h.Store.EntriesForMonth(ctx, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query time entries", err)
		return
	}
	keys, err := h.Store.KeySet(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load distribution keys", err)
		return
	}
	consultants, sections, err := h.reportCatalog(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}

	rep := report.BuildMonthlyReport(month, engine.DestinationID(invoiceProjectID),
		entries, keys, consultants, sections)
	writeJSON(w, http.StatusOK, toMonthlyReportDTO(rep))
}

// Timesheet returns one consultant's month grid with splits.
// GET /api/reports/timesheet?consultant_id=&year=&month=
func (h *Handler) Timesheet(w http.ResponseWriter, r *http.Request) {
	consultant, month, ok := consultantMonthParams(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	entries, err := h.Ledger.Query(ctx, consultant, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query time entries", err)
		return
	}
	keys, err := h.Store.KeySet(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load distribution keys", err)
		return
	}
	sections, err := h.Store.Sections(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sections", err)
		return
	}
	sectionIDs := make([]engine.DestinationID, len(sections))
	for i, s := range sections {
		sectionIDs[i] = s.ID
	}

	ts := report.BuildTimesheet(consultant, month, entries, keys, sectionIDs)
	writeJSON(w, http.StatusOK, toTimesheetDTO(ts))
}

// MonthlySummary returns per-consultant entered-hour totals.
// GET /api/monthly-summary?year=&month=
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParams(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	entries, err := h.Store.EntriesForMonth(ctx, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query time entries", err)
		return
	}
	consultants, _, err := h.reportCatalog(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}

	lines := report.BuildSummary(entries, consultants)
	dtos := make([]SummaryLineDTO, 0, len(lines))
	for _, line := range lines {
		dtos = append(dtos, SummaryLineDTO{
			ConsultantID: int64(line.Consultant),
			Name:         line.Name,
			Total:        line.Total.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) reportCatalog(r *http.Request) ([]report.Consultant, []report.Section, error) {
	ctx := r.Context()
	consultants, err := h.Store.Consultants(ctx)
	if err != nil {
		return nil, nil, err
	}
	sections, err := h.Store.Sections(ctx)
	if err != nil {
		return nil, nil, err
	}

	rc := make([]report.Consultant, 0, len(consultants))
	for _, c := range consultants {
		rc = append(rc, report.Consultant{ID: c.ID, Name: c.Name})
	}
	rs := make([]report.Section, 0, len(sections))
	for _, s := range sections {
		rs = append(rs, report.Section{ID: s.ID, Name: s.Name, ShortName: s.ShortName})
	}
	return rc, rs, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func consultantMonthParams(w http.ResponseWriter, r *http.Request) (engine.ConsultantID, engine.Month, bool) {
	consultant, err := strconv.ParseInt(r.URL.Query().Get("consultant_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid consultant_id", err)
		return 0, engine.Month{}, false
	}
	month, ok := monthParams(w, r)
	if !ok {
		return 0, engine.Month{}, false
	}
	return engine.ConsultantID(consultant), month, true
}

func monthParams(w http.ResponseWriter, r *http.Request) (engine.Month, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return engine.Month{}, false
	}
	monthNum, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return engine.Month{}, false
	}
	month := engine.NewMonth(year, time.Month(monthNum))
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid year/month", nil)
		return engine.Month{}, false
	}
	return month, true
}

func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
