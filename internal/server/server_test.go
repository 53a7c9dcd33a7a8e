package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vcms/internal/extraction"
	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/monitoring"
	"github.com/sells-group/vcms/internal/pipeline"
	"github.com/sells-group/vcms/internal/store"
)

const cardURL = "https://cdn.example.com/card.jpg"

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "vcms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	ex := extraction.NewFixtureExtractor([]extraction.FixtureCard{{
		URL: cardURL,
		Candidate: model.ExtractionCandidate{
			Status:  model.ExtractionValidated,
			Contact: model.Contact{FirstName: "Ana", Email: "ANA@ACME.COM"},
			Company: model.Company{CompanyName: "Acme"},
		},
	}})

	reg := prometheus.NewRegistry()
	orch := pipeline.New(st, ex, pipeline.WithMetrics(monitoring.NewMetrics(reg)))
	srv := New(st, orch, reg, []string{"https://app.example.com"})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, method, url, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProcessFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, ts.URL+"/media", `{"id":"m1","url":"`+cardURL+`"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/media/m1/process", "", map[string]string{UserHeader: "user-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	vendorID, _ := body["vendor_id"].(string)
	require.NotEmpty(t, vendorID)

	resp, body = do(t, http.MethodPost, ts.URL+"/media/m1/process", "", map[string]string{UserHeader: "user-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, vendorID, body["vendor_id"])
	assert.Equal(t, true, body["replayed"])

	resp, body = do(t, http.MethodGet, ts.URL+"/vendors/"+vendorID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@acme.com", body["email"])
	assert.Equal(t, "VALIDATED", body["validation_status"])
	assert.Equal(t, "user-1", body["created_by"])

	resp, _ = do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcess_RequiresUser(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/media/m1/process", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], UserHeader)
}

func TestProcess_UnknownMedia(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/media/ghost/process", "", map[string]string{UserHeader: "u"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "MEDIA_NOT_FOUND", body["state"])
}

func TestRegisterMedia_Validation(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := do(t, http.MethodPost, ts.URL+"/media", `{"id":"m1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/media", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVendor_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := do(t, http.MethodGet, ts.URL+"/vendors/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListVendors(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertMediaAsset(ctx, &model.MediaAsset{ID: "m1", URL: cardURL}))
	_, err := st.CommitVendor(ctx, &model.VendorProfile{
		FirstName: "Ana", ValidationStatus: model.ValidationAmbiguous, SourceMediaID: "m1",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/vendors?status=AMBIGUOUS&limit=10", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vendors []model.VendorProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vendors))
	require.Len(t, vendors, 1)
	assert.Equal(t, "m1", vendors[0].SourceMediaID)

	bad, _ := do(t, http.MethodGet, ts.URL+"/vendors?status=MAYBE", "", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	bad, _ = do(t, http.MethodGet, ts.URL+"/vendors?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestListVendors_EmptyIsArray(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/vendors")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw))
}

func TestScore(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"quality":{"star_rating":5,"review_count":99},"reliability":{"internal_rating":5,"total_jobs":10},"compliance":{"has_coi":true,"has_contract":true}}`
	resp, out := do(t, http.MethodPost, ts.URL+"/score", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 40.0, out["final_score"])

	resp, out = do(t, http.MethodPost, ts.URL+"/score", `{"quality":{"star_rating":7}}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out["error"], "star_rating")
}

func TestStats(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, out := do(t, http.MethodGet, ts.URL+"/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, out["total"])
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/vendors", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, http.StatusCreated, resultStatus(pipeline.Result{Success: true}))
	assert.Equal(t, http.StatusOK, resultStatus(pipeline.Result{Success: true, Replayed: true}))
	assert.Equal(t, http.StatusNotFound, resultStatus(pipeline.Result{State: pipeline.StateMediaNotFound}))
	assert.Equal(t, http.StatusConflict, resultStatus(pipeline.Result{State: pipeline.StateStart, Err: pipeline.ErrInProgress}))
	assert.Equal(t, http.StatusInternalServerError, resultStatus(pipeline.Result{State: pipeline.StatePersistFailed}))
}
