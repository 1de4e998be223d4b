package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturo/timereg/api"
	"github.com/fakturo/timereg/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store)))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store
}

func seedCatalog(t *testing.T, srv *httptest.Server) {
	t.Helper()

	doJSON(t, srv, http.MethodPost, "/api/consultants",
		map[string]any{"name": "Ada"}, http.StatusCreated)
	doJSON(t, srv, http.MethodPost, "/api/invoice-projects",
		map[string]any{"project_number": "P-100", "name": "Platform"}, http.StatusCreated)
	doJSON(t, srv, http.MethodPost, "/api/invoice-projects",
		map[string]any{"project_number": "P-200", "name": "Support"}, http.StatusCreated)
	doJSON(t, srv, http.MethodPost, "/api/sections",
		map[string]any{"name": "Development", "short_name": "DEV"}, http.StatusCreated)

	doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"key":  "AFP",
		"name": "Platform work",
		"distribution_keys": []map[string]any{
			{"destination_id": 1, "percentage": 60},
			{"destination_id": 2, "percentage": 40},
		},
		"section_keys": []map[string]any{
			{"destination_id": 1, "percentage": 100},
		},
	}, http.StatusCreated)
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, wantStatus int) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantStatus, resp.StatusCode, "%s %s", method, path)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func getJSONList(t *testing.T, srv *httptest.Server, path string) []map[string]any {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET %s", path)

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// TIME ENTRY ENDPOINTS
// =============================================================================

func TestAPI_UpsertAndListTimeEntries(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	created := doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-123",
		"date":          "2026-03-10",
		"hours":         7.5,
	}, http.StatusOK)
	assert.Equal(t, "AFP", created["project_key"])
	assert.NotZero(t, created["id"])

	// Same natural key overwrites in place.
	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-123",
		"date":          "2026-03-10",
		"hours":         6,
	}, http.StatusOK)

	list := getJSONList(t, srv, "/api/time-entries?consultant_id=1&year=2026&month=3")
	require.Len(t, list, 1)
	assert.Equal(t, float64(6), list[0]["hours"])
}

func TestAPI_UpsertRejectsUnknownProject(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "ZZZ-1",
		"date":          "2026-03-10",
		"hours":         4,
	}, http.StatusBadRequest)
}

func TestAPI_UpsertRejectsBadDate(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "10/03/2026",
		"hours":         4,
	}, http.StatusBadRequest)
}

func TestAPI_DeleteTimeEntry(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	created := doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         4,
	}, http.StatusOK)

	doJSON(t, srv, http.MethodDelete,
		fmt.Sprintf("/api/time-entries/%v", created["id"]), nil, http.StatusNoContent)
	doJSON(t, srv, http.MethodDelete,
		fmt.Sprintf("/api/time-entries/%v", created["id"]), nil, http.StatusNotFound)
}

// =============================================================================
// LOCK ENDPOINTS
// =============================================================================

func TestAPI_LockedMonthRejectsWritesWith409(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/monthly-locks", map[string]any{
		"consultant_id": 1, "year": 2026, "month": 3, "locked": true,
	}, http.StatusOK)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         4,
	}, http.StatusConflict)

	// Unlock, then the write goes through.
	doJSON(t, srv, http.MethodPut, "/api/monthly-locks", map[string]any{
		"consultant_id": 1, "year": 2026, "month": 3, "locked": false,
	}, http.StatusOK)
	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         4,
	}, http.StatusOK)
}

func TestAPI_LockStatusRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	status := doJSON(t, srv, http.MethodGet,
		"/api/monthly-locks?consultant_id=1&year=2026&month=3", nil, http.StatusOK)
	assert.Equal(t, false, status["locked"])

	locked := doJSON(t, srv, http.MethodPut, "/api/monthly-locks", map[string]any{
		"consultant_id": 1, "year": 2026, "month": 3, "locked": true,
	}, http.StatusOK)
	assert.NotEmpty(t, locked["locked_at"])

	status = doJSON(t, srv, http.MethodGet,
		"/api/monthly-locks?consultant_id=1&year=2026&month=3", nil, http.StatusOK)
	assert.Equal(t, true, status["locked"])
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

func TestAPI_ImportReplacesMonthAndReportsRowErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         4,
	}, http.StatusOK)

	result := doJSON(t, srv, http.MethodPost, "/api/time-entries/import", map[string]any{
		"consultant_id": 1,
		"year":          2026,
		"month":         3,
		"entries": []map[string]any{
			{"issue_key": "AFP-2", "date": "2026-03-11", "hours": 8},
			{"issue_key": "ZZZ-1", "date": "2026-03-12", "hours": 8},
		},
	}, http.StatusOK)

	assert.Equal(t, float64(1), result["imported"])
	assert.Len(t, result["errors"], 1)

	list := getJSONList(t, srv, "/api/time-entries?consultant_id=1&year=2026&month=3")
	require.Len(t, list, 1)
	assert.Equal(t, "AFP-2", list[0]["issue_key"])
}

func TestAPI_ImportLockedMonthRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/monthly-locks", map[string]any{
		"consultant_id": 1, "year": 2026, "month": 3, "locked": true,
	}, http.StatusOK)

	doJSON(t, srv, http.MethodPost, "/api/time-entries/import", map[string]any{
		"consultant_id": 1,
		"year":          2026,
		"month":         3,
		"entries": []map[string]any{
			{"issue_key": "AFP-1", "date": "2026-03-10", "hours": 8},
		},
	}, http.StatusConflict)
}

func TestAPI_ExportRoundTripsThroughImport(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         7.5,
	}, http.StatusOK)

	export := doJSON(t, srv, http.MethodGet,
		"/api/time-entries/export?consultant_id=1&year=2026&month=3", nil, http.StatusOK)
	entries, ok := export["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)

	result := doJSON(t, srv, http.MethodPost, "/api/time-entries/import", export, http.StatusOK)
	assert.Equal(t, float64(1), result["imported"])
	assert.Empty(t, result["errors"])
}

// =============================================================================
// PROJECT CONFIGURATION
// =============================================================================

func TestAPI_CreateProjectValidatesPercentages(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/projects", map[string]any{
		"key":  "BAD",
		"name": "Broken",
		"distribution_keys": []map[string]any{
			{"destination_id": 1, "percentage": 60},
			{"destination_id": 2, "percentage": 30},
		},
	}, http.StatusBadRequest)

	assert.Empty(t, getJSONList(t, srv, "/api/projects"))
}

func TestAPI_ProjectCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	projects := getJSONList(t, srv, "/api/projects")
	require.Len(t, projects, 1)
	id := projects[0]["id"]

	doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/projects/%v", id), map[string]any{
		"key":  "AFP",
		"name": "Renamed",
		"distribution_keys": []map[string]any{
			{"destination_id": 1, "percentage": 100},
		},
	}, http.StatusOK)

	projects = getJSONList(t, srv, "/api/projects")
	require.Len(t, projects, 1)
	assert.Equal(t, "Renamed", projects[0]["name"])

	doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/projects/%v", id), nil, http.StatusNoContent)
	assert.Empty(t, getJSONList(t, srv, "/api/projects"))
}

func TestAPI_ProjectExportImportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	exported := getJSONList(t, srv, "/api/projects/export")
	require.Len(t, exported, 1)

	// Re-importing the export upserts by key; nothing is duplicated.
	result := doJSON(t, srv, http.MethodPost, "/api/projects/import",
		exported, http.StatusOK)
	assert.Equal(t, float64(1), result["imported"])
	assert.Empty(t, result["errors"])

	projects := getJSONList(t, srv, "/api/projects")
	require.Len(t, projects, 1)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAPI_MonthlyReportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         10,
	}, http.StatusOK)

	rep := doJSON(t, srv, http.MethodGet,
		"/api/reports/monthly?year=2026&month=3&invoice_project_id=1", nil, http.StatusOK)

	// 60% of 10h lands on invoice project 1.
	assert.Equal(t, float64(6), rep["total"])
	blocks, ok := rep["consultants"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 1)
}

func TestAPI_TimesheetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         7.5,
	}, http.StatusOK)

	ts := doJSON(t, srv, http.MethodGet,
		"/api/reports/timesheet?consultant_id=1&year=2026&month=3", nil, http.StatusOK)

	assert.Equal(t, float64(7.5), ts["total"])
	rows, ok := ts["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
}

func TestAPI_MonthlySummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedCatalog(t, srv)

	doJSON(t, srv, http.MethodPut, "/api/time-entries", map[string]any{
		"consultant_id": 1,
		"issue_key":     "AFP-1",
		"date":          "2026-03-10",
		"hours":         7.5,
	}, http.StatusOK)

	resp, err := srv.Client().Get(srv.URL + "/api/monthly-summary?year=2026&month=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lines []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "Ada", lines[0]["name"])
	assert.Equal(t, float64(7.5), lines[0]["total"])
}

// =============================================================================
// PARAMETER VALIDATION
// =============================================================================

func TestAPI_InvalidMonthRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	doJSON(t, srv, http.MethodGet,
		"/api/time-entries?consultant_id=1&year=2026&month=13", nil, http.StatusBadRequest)
	doJSON(t, srv, http.MethodGet,
		"/api/time-entries?consultant_id=abc&year=2026&month=3", nil, http.StatusBadRequest)
}
