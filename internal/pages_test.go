package internal

import (
	"bytes"
	"context"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func seedAccess(t *testing.T, fb *testutil.FakeBackend) {
	t.Helper()
	fb.SeedJSON(t, backend.EntityEmployee,
		map[string]any{"id": 1, "first": "Ada", "last": "Lovelace", "branch": "London", "jobTitle": "Engineer",
			"startDate": "2020-01-02T00:00:00", "endDate": nil, "created": "2020-01-01T00:00:00"},
		map[string]any{"id": 2, "first": "Charles", "last": "Babbage", "branch": "London", "jobTitle": "Analyst",
			"startDate": "2019-05-01T00:00:00", "endDate": "2023-01-31T00:00:00", "created": "2019-05-01T00:00:00"},
	)
	fb.SeedJSON(t, backend.EntityResourceCategory,
		map[string]any{"id": 1, "name": "Software", "active": 1},
		map[string]any{"id": 2, "name": "Retired", "active": 0},
	)
	fb.SeedJSON(t, backend.EntityAccessLevel,
		map[string]any{"id": 1, "name": "Admin", "active": 1},
		map[string]any{"id": 2, "name": "Guest", "active": 0},
	)
	fb.SeedJSON(t, backend.EntityResource,
		map[string]any{"id": 10, "name": "VPN", "categoryId": 1, "accessLevelId": 1},
		map[string]any{"id": 11, "name": "Wiki", "categoryId": 1, "accessLevelId": 1},
	)
	fb.SeedJSON(t, backend.EntityAssociation,
		map[string]any{"id": 100, "resourceId": 11, "employeeId": 1,
			"granted": "2024-01-01T00:00:00Z", "revoked": nil, "created": "2024-01-01T00:00:00Z"},
	)
}

func adaForm(extra ...string) url.Values {
	v := url.Values{
		"first":     {"Ada"},
		"last":      {"Lovelace"},
		"branch":    {"London"},
		"jobTitle":  {"Engineer"},
		"startDate": {"2020-01-02"},
		"endDate":   {""},
	}
	for i := 0; i+1 < len(extra); i += 2 {
		v.Set(extra[i], extra[i+1])
	}
	return v
}

func associations(t *testing.T, fb *testutil.FakeBackend) []models.ResourceAssociation {
	t.Helper()
	var out []models.ResourceAssociation
	fb.Decode(t, backend.EntityAssociation, &out)
	return out
}

func TestEmployeesListAndStatusFilter(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.get("/manage/Employee")
	assert.Contains(t, body, "1 of 1 employees")
	assert.Contains(t, body, "Ada Lovelace")
	assert.NotContains(t, body, "Charles Babbage")

	_, body = b.get("/manage/Employee?status=all")
	assert.Contains(t, body, "2 of 2 employees")

	_, body = b.get("/manage/Employee?status=inactive&q=bab")
	assert.Contains(t, body, "1 of 1 employees")
	assert.Contains(t, body, "Charles Babbage")
	assert.Contains(t, body, "2023-01-31")
}

func TestEmployeeDetailShowsAccess(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.get("/manage/Employee/select?id=1")
	assert.Contains(t, body, `<tr class="selected">`)
	assert.Contains(t, body, "<h2>Ada Lovelace</h2>")
	assert.Contains(t, body, "VPN")
	assert.Contains(t, body, `value="11:revoke"`)
	assert.Contains(t, body, `value="10:grant"`)
	assert.Contains(t, body, `value="2020-01-02"`)
	// Inactive categories and levels are not offered as filters.
	assert.NotContains(t, body, "Retired")
	assert.NotContains(t, body, "Guest")

	_, body = b.get("/manage/Employee?access=granted")
	assert.Contains(t, body, `value="11:revoke"`)
	assert.NotContains(t, body, `value="10:grant"`)

	// Selecting the same employee closes the detail view.
	_, body = b.get("/manage/Employee/select?id=1")
	assert.NotContains(t, body, "<h2>Ada Lovelace</h2>")
}

func TestEmployeeGrantAccess(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.get("/manage/Employee/select?id=1")
	_, body := b.post("/manage/Employee/stage", adaForm("stage", "10:grant", "branch", "Paris"))
	assert.Contains(t, body, "(pending)")
	assert.Contains(t, body, "1 pending change(s).")
	// Field edits survive staging.
	assert.Contains(t, body, `value="Paris"`)
	assert.Empty(t, associations(t, fb)[1:])

	_, body = b.post("/manage/Employee/save", adaForm("after_save", "clear"))
	assert.Contains(t, body, "Saved: 1 access change(s) applied")
	assert.NotContains(t, body, "<h2>Ada Lovelace</h2>")

	assocs := associations(t, fb)
	require.Len(t, assocs, 2)
	assert.Equal(t, 10, assocs[1].ResourceID)
	assert.Equal(t, 1, assocs[1].EmployeeID)
	assert.True(t, assocs[1].InEffect())

	recent, err := srv.Activity.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, "grant", recent[0].Action)
}

func TestEmployeeRevokeAccessAndReview(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.get("/manage/Employee/select?id=1")
	b.post("/manage/Employee/stage", adaForm("stage", "11:revoke"))
	_, body := b.post("/manage/Employee/save", adaForm("after_save", "review"))
	assert.Contains(t, body, "Saved: 1 access change(s) applied")
	// Review keeps the employee open with a fresh access table.
	assert.Contains(t, body, "<h2>Ada Lovelace</h2>")
	assert.Contains(t, body, `value="11:grant"`)
	assert.Contains(t, body, "0 pending change(s).")

	assocs := associations(t, fb)
	require.Len(t, assocs, 1)
	assert.False(t, assocs[0].InEffect())
	assert.Equal(t, 1, countRequests(fb, "PUT", "/api/"+backend.EntityAssociation))
}

func TestEmployeeStageTwiceCancels(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.get("/manage/Employee/select?id=1")
	b.post("/manage/Employee/stage", adaForm("stage", "10:grant"))
	_, body := b.post("/manage/Employee/stage", adaForm("stage", "10:revoke"))
	assert.Contains(t, body, "0 pending change(s).")

	_, body = b.post("/manage/Employee/save", adaForm())
	assert.Contains(t, body, "No changes to save")
	assert.Len(t, associations(t, fb), 1)
}

func TestEmployeeFieldUpdate(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.get("/manage/Employee/select?id=1")
	_, body := b.post("/manage/Employee/save", adaForm("branch", "Paris", "endDate", "2025-06-30"))
	assert.Contains(t, body, "Saved: employee updated")

	var emps []models.Employee
	fb.Decode(t, backend.EntityEmployee, &emps)
	require.Len(t, emps, 2)
	assert.Equal(t, "Paris", emps[0].Branch)
	assert.False(t, emps[0].Active())

	recent, err := srv.Activity.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "branch, endDate", recent[0].Detail)
}

func TestEmployeeSaveWithoutSelection(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.post("/manage/Employee/save", adaForm())
	assert.Contains(t, body, "Select an employee first")
}

func TestEmployeePartialSaveKeepsPending(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	fb.FailWith("POST", "/api/"+backend.EntityAssociation, http.StatusInternalServerError)
	b := newBrowser(t, srv)

	b.get("/manage/Employee/select?id=1")
	b.post("/manage/Employee/stage", adaForm("stage", "10:grant"))
	_, body := b.post("/manage/Employee/save", adaForm("branch", "Paris"))
	assert.Contains(t, body, "Some changes were not saved")
	assert.Contains(t, body, "1 pending change(s).")
	assert.Contains(t, body, `value="Paris"`)

	var emps []models.Employee
	fb.Decode(t, backend.EntityEmployee, &emps)
	assert.Equal(t, "Paris", emps[0].Branch)
}

func TestCreateEmployee(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.get("/manage/Employee/new")
	assert.Contains(t, body, "<h2>New employee</h2>")

	_, body = b.post("/manage/Employee/new", url.Values{"first": {"Grace"}, "last": {"Hopper"}})
	assert.Contains(t, body, "missing required employee fields")
	assert.Len(t, fb.Rows(backend.EntityEmployee), 2)

	_, body = b.post("/manage/Employee/new", url.Values{
		"first": {"Grace"}, "last": {"Hopper"}, "branch": {"Arlington"}, "jobTitle": {"Admiral"},
	})
	assert.Contains(t, body, "Employee Grace Hopper added")
	assert.NotContains(t, body, "<h2>New employee</h2>")
	assert.Contains(t, body, "2 of 2 employees")

	var emps []models.Employee
	fb.Decode(t, backend.EntityEmployee, &emps)
	require.Len(t, emps, 3)
	assert.NotEmpty(t, emps[2].StartDate)
	assert.True(t, emps[2].Active())
}

func TestExportEmployeesUsesFilters(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.get("/manage/Employee?status=all")
	req, err := http.NewRequest(http.MethodGet, b.base+"/manage/Employee/export.csv", nil)
	require.NoError(t, err)
	resp, body := b.do(req)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "employees.csv")
	lines, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestExportRecords(t *testing.T) {
	srv, fb := newTestServer(t)
	seedItems(fb, 12)
	b := newBrowser(t, srv)

	b.get("/manage/Item?q=item+1")
	req, err := http.NewRequest(http.MethodGet, b.base+"/manage/Item/export.csv", nil)
	require.NoError(t, err)
	resp, body := b.do(req)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="items.csv"`)
	lines, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	// Header plus Item 10, 11 and 12.
	require.Len(t, lines, 4)
	assert.Equal(t, "Item 10", lines[1][1])

	req, err = http.NewRequest(http.MethodGet, b.base+"/manage/Item/export.xlsx", nil)
	require.NoError(t, err)
	resp, body = b.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))

	wb, err := xlsx.OpenBinary([]byte(body))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, 4, wb.Sheets[0].MaxRow)
}

func TestExportSearchWithoutMatchesKeepsHeader(t *testing.T) {
	srv, fb := newTestServer(t)
	seedItems(fb, 3)
	b := newBrowser(t, srv)

	_, body := b.get("/manage/Item?q=nothing")
	assert.Contains(t, body, "No records")
	assert.Contains(t, body, ">Serial Number</a>")

	req, err := http.NewRequest(http.MethodGet, b.base+"/manage/Item/export.csv", nil)
	require.NoError(t, err)
	resp, body := b.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "name", "serialNumber"}}, lines)
}

func itemsWorkbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Items")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func (b *browser) upload(path string, fields map[string]string, filename string, content []byte) string {
	b.t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(b.t, err)
	_, err = fw.Write(content)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, b.base+path, body)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	_, page := b.do(req)
	return page
}

func TestImportWorkbook(t *testing.T) {
	srv, fb := newTestServer(t)
	fb.Seed(backend.EntityItem, models.NewRecord("id", 1, "name", "Desk", "serialNumber", "SN-01"))
	b := newBrowser(t, srv)
	book := itemsWorkbook(t,
		[]string{"Name", "Serial"},
		[]string{"Desk", "SN-01"},
		[]string{"Chair", "SN-99"},
	)

	body := b.upload("/manage/Item/import", map[string]string{"dry_run": "true"}, "items.xlsx", book)
	assert.Contains(t, body, "Dry run: 1 would be added, 1 updated, 0 skipped, 0 errors")
	assert.Len(t, fb.Rows(backend.EntityItem), 1)

	body = b.upload("/manage/Item/import", nil, "items.xlsx", book)
	assert.Contains(t, body, "Imported 1 new and 1 updated records, 0 skipped, 0 errors")
	assert.Contains(t, body, "2 of 2 records")
	assert.Len(t, fb.Rows(backend.EntityItem), 2)

	body = b.upload("/manage/Item/import", nil, "items.csv", []byte("name\nDesk\n"))
	assert.Contains(t, body, "Import failed: only .xlsx files are accepted")
}

func TestSettingsNamedPanels(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.get("/settings")
	assert.Contains(t, body, "Access Levels")
	assert.Contains(t, body, "Resource Categories")
	assert.NotContains(t, body, "Admin")

	_, body = b.get("/settings/access-levels")
	assert.Contains(t, body, "Admin")
	assert.NotContains(t, body, "Guest")

	_, body = b.post("/settings/access-levels/add", url.Values{"name": {"Editor"}})
	assert.Contains(t, body, "Added access level Editor")
	assert.Contains(t, body, "<li>Editor")

	_, body = b.post("/settings/access-levels/add", url.Values{"name": {" admin "}})
	assert.Contains(t, body, "This access level already exists and is active")

	_, body = b.post("/settings/access-levels/add", url.Values{"name": {"guest"}})
	assert.Contains(t, body, "Reactivated access level guest")
	assert.Len(t, fb.Rows(backend.EntityAccessLevel), 3)

	_, body = b.post("/settings/access-levels/add", url.Values{"name": {""}})
	assert.Contains(t, body, "Please enter a name")

	_, body = b.post("/settings/access-levels/remove", url.Values{"id": {"1"}})
	assert.Contains(t, body, "Removed access level Admin")
	var levels []models.AccessLevel
	fb.Decode(t, backend.EntityAccessLevel, &levels)
	assert.Equal(t, 0, levels[0].Active)
}

func TestSettingsResources(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	_, body := b.post("/settings/resources/add", url.Values{"name": {"CRM"}, "accessLevelId": {"1"}})
	assert.Contains(t, body, "Please select a resource category for this resource")

	_, body = b.post("/settings/resources/add", url.Values{"name": {"CRM"}, "categoryId": {"1"}})
	assert.Contains(t, body, "Please select an access level for this resource")

	_, body = b.post("/settings/resources/add", url.Values{"name": {"CRM"}, "categoryId": {"1"}, "accessLevelId": {"1"}})
	assert.Contains(t, body, "Added resource CRM")
	assert.Contains(t, body, "<h3>Software</h3>")
	assert.Len(t, fb.Rows(backend.EntityResource), 3)

	_, body = b.post("/settings/resources/remove", url.Values{"id": {"10"}})
	assert.Contains(t, body, "Resource removed")
	assert.Len(t, fb.Rows(backend.EntityResource), 2)
}

func TestSettingsDevices(t *testing.T) {
	srv, fb := newTestServer(t)
	fb.SeedJSON(t, backend.EntityDevice,
		map[string]any{"id": 1, "name": "Router", "ipv4": "10.0.0.1"},
	)
	b := newBrowser(t, srv)

	_, body := b.get("/settings/devices")
	assert.Contains(t, body, "<td>Router</td><td>10.0.0.1</td>")
	assert.Contains(t, body, `name="ipv4"`)

	_, body = b.post("/settings/devices/add", url.Values{"name": {"Switch"}, "ipv4": {"10.0.0.300"}})
	assert.Contains(t, body, "Please enter a valid IPv4 address")
	assert.Len(t, fb.Rows(backend.EntityDevice), 1)

	_, body = b.post("/settings/devices/add", url.Values{"name": {"Switch"}, "ipv4": {"10.0.0.1"}})
	assert.Contains(t, body, "This device already exists")

	_, body = b.post("/settings/devices/add", url.Values{"name": {"Switch"}, "ipv4": {"10.0.0.2"}})
	assert.Contains(t, body, "Added device Switch (10.0.0.2)")
	assert.Contains(t, body, "<td>Switch</td><td>10.0.0.2</td>")
	assert.Len(t, fb.Rows(backend.EntityDevice), 2)

	_, body = b.post("/settings/devices/remove", url.Values{"id": {"1"}})
	assert.Contains(t, body, "Device removed")
	assert.Len(t, fb.Rows(backend.EntityDevice), 1)

	_, body = b.post("/settings/devices/remove", url.Values{"id": {"1"}})
	assert.Contains(t, body, "This device no longer exists")

	b.post("/settings/devices/remove", url.Values{"id": {"2"}})
	_, body = b.get("/settings/devices")
	assert.Contains(t, body, "Device list empty")
}

func TestSettingsMessageStaysOnItsPanel(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	b := newBrowser(t, srv)

	b.post("/settings/access-levels/add", url.Values{"name": {"Editor"}})
	_, body := b.get("/settings/resource-categories")
	assert.NotContains(t, body, "Added access level Editor")
}

func TestDashboard(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	fb.Seed(backend.EntityItem,
		models.NewRecord("id", 1, "name", "Desk", "serialNumber", "SN-01"),
		models.NewRecord("id", 2, "name", "Chair", "serialNumber", nil),
		models.NewRecord("id", 3, "name", "Lamp", "serialNumber", "SN-03"),
	)
	b := newBrowser(t, srv)

	_, body := b.get("/")
	assert.Contains(t, body, "<strong>3</strong> total")
	assert.Contains(t, body, "<strong>2</strong> total")
	assert.Contains(t, body, "Active: 1 (50%)")
	assert.Contains(t, body, "No changes yet.")

	b.get("/manage/Item/select?row=0&id=1")
	b.post("/manage/Item/delete", nil)
	_, body = b.get("/")
	assert.Contains(t, body, "<strong>2</strong> total")
	assert.Contains(t, body, "<td>delete</td><td>Item</td><td>1</td>")
}

func TestSystemLog(t *testing.T) {
	srv, fb := newTestServer(t)
	seedAccess(t, fb)
	seedItems(fb, 2)
	b := newBrowser(t, srv)

	_, body := b.get("/dev")
	assert.Contains(t, body, "Backend status: Checking")
	assert.Contains(t, body, "No activity recorded.")
	assert.Contains(t, body, "Item (2)")
	assert.Contains(t, body, "Vendor (0)")
	assert.Contains(t, body, backend.EntityAssociation+" (1)")
	assert.Contains(t, body, "Device (0)")

	srv.Health.Check(context.Background())
	b.post("/manage/Vendor/save", url.Values{"mode": {"create"}})
	_, body = b.get("/dev")
	assert.Contains(t, body, "Backend status: Connected, last checked")
	assert.NotContains(t, body, "No activity recorded.")
}
