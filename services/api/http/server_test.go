package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upande/sprayplan/services/api/config"
	"github.com/upande/sprayplan/services/api/erp"
	"github.com/upande/sprayplan/services/api/session"
)

const erpBaseURL = "http://erp.test"

const scoutingBody = `{"message": {
	"scouting_entries": [
		{"name": "SE-001", "bed": "Bed 1", "zone": 1,
		 "diseases_scouting_entry": [{"name": "Botrytis", "count": 1, "stage": "Vegetative", "plant_section": "Top"}]},
		{"name": "SE-002", "bed": "Bed 2", "zone": 3,
		 "pests_scouting_entry": [{"name": "Thrips", "count": 4}]}
	],
	"varieties": [{"name": "VarA"}],
	"susceptibility": [
		{"observation": "Botrytis", "type": "disease", "requirement_by_variety": {"VarA": "high"}}
	],
	"spray_team_team": [{"name": "Team A"}],
	"boms": [{"name": "BOM-SPRAY-001", "custom_water_ph": 6.5, "custom_water_hardness": 120}],
	"bom_items": [{"parent": "BOM-SPRAY-001", "item_name": "Mancozeb", "qty": 10, "uom": "gram"}],
	"all_chemicals": ["Mancozeb", "Abamectin"],
	"bed_data": [
		{"bed": "1", "bed__area": 100, "variety": "VarA", "total_variety_area": 140},
		{"bed": "2", "bed__area": 40, "variety": "VarA", "total_variety_area": 140}
	]
}}`

// newTestServer wires a server against a mocked ERP. The ERP client's
// transport falls back to http.DefaultTransport, which httpmock.Activate
// replaces.
func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.get_scouting_report.getScoutingData",
		httpmock.NewStringResponder(http.StatusOK, scoutingBody))

	cfg.ERPBaseURL = erpBaseURL
	client := erp.NewClient(cfg.ERPBaseURL, cfg.ERPAPIKey, 5*time.Second)
	manager := session.NewManager(10 * time.Millisecond)
	return New(cfg, client, manager)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func openSession(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session",
		map[string]string{"greenhouse": "GH-01", "date": "2026-08-30"})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	id, ok := data["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestOpenSessionSnapshot(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session",
		map[string]string{"greenhouse": "GH-01", "date": "2026-08-30"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "GH-01", data["greenhouse"])
	assert.Equal(t, false, data["empty"])
	assert.Equal(t, []any{"VarA"}, data["varieties"])
	assert.Equal(t, true, data["has_susceptibility"])
	assert.Equal(t, []any{"Botrytis", "Thrips"}, data["targets"])
}

func TestOpenSessionRequiresGreenhouse(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionNotFound(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := doJSON(t, s, http.MethodGet, "/api/v1/session/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGridWithDefaultFilters(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/grid",
		map[string]any{"variety": "VarA"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	cells := body["data"].([]any)
	// 2 beds x 3 zones
	assert.Len(t, cells, 6)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(6), meta["count"])
	assert.Equal(t, true, meta["thresholds_available"])
	alerts := meta["alerts"].(map[string]any)
	assert.Equal(t, float64(1), alerts["high"])
}

func TestGridExplicitFiltersOverrideDefaults(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/grid", map[string]any{
		"observations_by_type": map[string][]string{
			"diseases_scouting_entry": {},
			"pests_scouting_entry":    {},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, raw := range decodeBody(t, rec)["data"].([]any) {
		cell := raw.(map[string]any)
		assert.NotEqual(t, "observed", cell["status"])
	}
}

func TestAreaEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/area",
		map[string]any{"scope": "Specific Bed(s)", "bed_spec": "1-2"})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "0.0140", data["area_display"])
	assert.Equal(t, "14.00", data["volume_display"])

	rec = doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/area",
		map[string]any{"scope": "Whole Farm"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.get_bom_stock_balances.getBomStockBalances",
		httpmock.NewStringResponder(http.StatusOK, `{"message": {
			"stock_balances": {"Mancozeb": {"Main Store": 40}, "Abamectin": {"Main Store": 0}},
			"item_uom_map": {"Mancozeb": "gram"}
		}}`))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/stock", map[string]any{
		"plan_rows": []map[string]any{
			{"chemical": "Mancozeb", "application_rate": 10},
			{"chemical": "Abamectin", "application_rate": 5},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	summaries := body["data"].([]any)
	require.Len(t, summaries, 2)
	first := summaries[0].(map[string]any)
	assert.Equal(t, "Abamectin", first["chemical"])
	assert.Equal(t, true, first["insufficient"])
}

func TestStockEndpointNoChemicals(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/stock", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	meta := decodeBody(t, rec)["meta"].(map[string]any)
	assert.Equal(t, "no chemicals to check", meta["message"])
}

func TestStockSourceChoice(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPut, "/api/v1/session/"+id+"/stock/source",
		map[string]string{"chemical": "Mancozeb", "warehouse": "Main Store"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/session/"+id+"/stock/source",
		map[string]string{"warehouse": "Main Store"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBOMDetail(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/session/"+id+"/bom/BOM-SPRAY-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "BOM-SPRAY-001", data["name"])
	chemicals := data["chemicals"].([]any)
	require.Len(t, chemicals, 1)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/session/"+id+"/bom/BOM-MISSING", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBOM(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.create_bom.createBOM",
		httpmock.NewStringResponder(http.StatusOK,
			`{"message": {"status": "success", "bom_name": "BOM-SPRAY-002"}}`))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/bom", map[string]any{
		"name":           "Spray Mix 2",
		"water_ph":       6.5,
		"water_hardness": 120,
		"chemicals": []map[string]any{
			{"chemical": "Mancozeb", "application_rate": 10, "uom": "gram"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "BOM-SPRAY-002", data["bom_name"])
}

func TestCreateBOMRejectsIncompleteRequest(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"water_ph": 6.5, "water_hardness": 120}},
		{"missing ph", map[string]any{"name": "Mix", "water_hardness": 120}},
		{"missing hardness", map[string]any{"name": "Mix", "water_ph": 6.5}},
		{"no valid chemicals", map[string]any{
			"name": "Mix", "water_ph": 6.5, "water_hardness": 120,
			"chemicals": []map[string]any{{"chemical": "Mancozeb", "application_rate": 0}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/bom", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitWorkOrder(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.validate_frac_irac_guidelines.validateGuidelines",
		httpmock.NewStringResponder(http.StatusOK, `{"message": {"valid": true}}`))
	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.create_application_work_order.createApplicationWorkOrder",
		httpmock.NewStringResponder(http.StatusOK,
			`{"message": {"status": "success", "work_order_name": "WO-0042"}}`))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/workorder", map[string]any{
		"variety":        "VarA",
		"targets":        []string{"Botrytis"},
		"stages":         []string{"Vegetative"},
		"sections":       []string{"Top"},
		"spray_type":     "Foliar",
		"kit":            "Kit-1",
		"scope":          "Full Greenhouse",
		"bom":            "BOM-SPRAY-001",
		"water_ph":       6.5,
		"water_hardness": 120,
		"chemicals": []map[string]any{
			{"chemical": "Mancozeb", "application_rate": 10, "uom": "gram", "source_warehouse": "Main Store"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "succeeded", data["state"])
	assert.Equal(t, "/app/work-order/WO-0042", data["redirect_path"])
}

func TestSubmitWorkOrderBlockedByGuidelines(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.validate_frac_irac_guidelines.validateGuidelines",
		httpmock.NewStringResponder(http.StatusOK,
			`{"message": {"valid": false, "errors": ["FRAC group conflict"]}}`))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/workorder", map[string]any{
		"variety":        "VarA",
		"targets":        []string{"Botrytis"},
		"stages":         []string{"Vegetative"},
		"sections":       []string{"Top"},
		"spray_type":     "Foliar",
		"kit":            "Kit-1",
		"scope":          "Full Greenhouse",
		"bom":            "BOM-SPRAY-001",
		"water_ph":       6.5,
		"water_hardness": 120,
		"chemicals": []map[string]any{
			{"chemical": "Mancozeb", "application_rate": 10, "uom": "gram", "source_warehouse": "Main Store"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "blocked", data["state"])
	assert.Equal(t, []any{"FRAC group conflict"}, data["errors"])
}

func TestSubmitWorkOrderIncompleteForm(t *testing.T) {
	s := newTestServer(t, config.Config{})
	id := openSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/"+id+"/workorder",
		map[string]any{"variety": "VarA"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "missing required fields")
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t, config.Config{})

	httpmock.RegisterResponder(http.MethodPost,
		erpBaseURL+"/api/method/scp.serverscripts.create_bom.getAllChemicals",
		httpmock.NewStringResponder(http.StatusOK, `{"message": {
			"chemicals": ["Mancozeb", "Abamectin"],
			"item_uom_map": {"Mancozeb": "gram"}
		}}`))

	rec := doJSON(t, s, http.MethodGet, "/api/v1/catalog/chemicals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, []any{"Abamectin", "Mancozeb"}, data["chemicals"])

	// The catalog fetch primed the UOM cache; no UOM responder is needed.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/catalog/chemicals/Mancozeb/uom", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "gram", data["uom"])
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(t, config.Config{BearerToken: "sekrit"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
