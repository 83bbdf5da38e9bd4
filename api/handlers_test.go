package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/affiliate-engine/affiliate"
	"github.com/warp/affiliate-engine/api"
	"github.com/warp/affiliate-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store)))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerAffiliate(t *testing.T, srv *httptest.Server, id string, conversionRate float64) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/affiliates", map[string]any{
		"id":              id,
		"name":            "Partner " + id,
		"email":           id + "@example.com",
		"conversion_rate": conversionRate,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func recordConversion(t *testing.T, srv *httptest.Server, affiliateID, conversionID, ctype, value string) *http.Response {
	t.Helper()
	return postJSON(t, srv.URL+"/api/commissions", map[string]string{
		"affiliate_id":  affiliateID,
		"conversion_id": conversionID,
		"type":          ctype,
		"value":         value,
	})
}

// seedTrailingPerformance writes APPROVED commissions strong enough for
// SILVER over the trailing window (monthly averages 1100 and 5).
func seedTrailingPerformance(t *testing.T, store *sqlite.Store, affiliateID string) {
	t.Helper()
	base := time.Now().UTC().AddDate(0, 0, -30)
	for i := 0; i < 15; i++ {
		err := store.AppendCommission(context.Background(), affiliate.CommissionRecord{
			ID:          fmt.Sprintf("seed-%s-%d", affiliateID, i),
			AffiliateID: affiliateID,
			Amount:      affiliate.MustDecimal("220"),
			Status:      affiliate.StatusApproved,
			Type:        affiliate.ConversionConsultation,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
}

// =============================================================================
// AFFILIATE ENDPOINT TESTS
// =============================================================================

func TestAPI_RegisterAndFetchAffiliate(t *testing.T) {
	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)

	resp, err := http.Get(srv.URL + "/api/affiliates/aff-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decode[map[string]any](t, resp)
	assert.Equal(t, "aff-1", dto["id"])
	// New registrations always start at the floor tier.
	assert.Equal(t, "BRONZE", dto["tier"])
	assert.Equal(t, "ACTIVE", dto["status"])
	assert.Equal(t, 2.5, dto["conversion_rate"])
	assert.Equal(t, "0", dto["total_earnings"])
}

func TestAPI_GetUnknownAffiliateReturns404(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/affiliates/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateAffiliateRequiresIDAndName(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/affiliates", map[string]string{"email": "x@example.com"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// COMMISSION ENDPOINT TESTS
// =============================================================================

func TestAPI_RecordConversionComputesCommission(t *testing.T) {
	// GIVEN: A BRONZE affiliate and a 1000 consultation (rate 0.15)
	// WHEN: Recording the conversion
	// THEN: A PENDING ledger entry of 150 is created

	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)

	resp := recordConversion(t, srv, "aff-1", "conv-100", "consultation", "1000")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decode[map[string]any](t, resp)
	assert.Equal(t, "comm-conv-100", dto["id"])
	assert.Equal(t, "150", dto["amount"])
	assert.Equal(t, "PENDING", dto["status"])
}

func TestAPI_DuplicateConversionReturns409(t *testing.T) {
	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)

	first := recordConversion(t, srv, "aff-1", "conv-1", "consultation", "1000")
	first.Body.Close()
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second := recordConversion(t, srv, "aff-1", "conv-1", "consultation", "1000")
	defer second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)
}

func TestAPI_RejectsNegativeConversionValue(t *testing.T) {
	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)

	resp := recordConversion(t, srv, "aff-1", "conv-1", "consultation", "-50")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ApproveThenPayFollowsStatusChain(t *testing.T) {
	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)
	recordConversion(t, srv, "aff-1", "conv-1", "consultation", "1000").Body.Close()

	approve := postJSON(t, srv.URL+"/api/commissions/comm-conv-1/approve", nil)
	require.Equal(t, http.StatusOK, approve.StatusCode)
	approved := decode[map[string]any](t, approve)
	assert.Equal(t, "APPROVED", approved["status"])

	pay := postJSON(t, srv.URL+"/api/commissions/comm-conv-1/pay", nil)
	require.Equal(t, http.StatusOK, pay.StatusCode)
	paid := decode[map[string]any](t, pay)
	assert.Equal(t, "PAID", paid["status"])

	// Backward transition is a conflict, not a server error.
	again := postJSON(t, srv.URL+"/api/commissions/comm-conv-1/approve", nil)
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestAPI_LedgerHistoryListsRecordedCommissions(t *testing.T) {
	srv, _ := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)
	recordConversion(t, srv, "aff-1", "conv-1", "consultation", "1000").Body.Close()
	recordConversion(t, srv, "aff-1", "conv-2", "subscription", "200").Body.Close()

	resp, err := http.Get(srv.URL + "/api/affiliates/aff-1/commissions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recs := decode[[]map[string]any](t, resp)
	assert.Len(t, recs, 2)
}

// =============================================================================
// EVALUATION AND TIER ENDPOINT TESTS
// =============================================================================

func TestAPI_EvaluationIsDryRun(t *testing.T) {
	// GIVEN: An affiliate whose history supports no change
	// WHEN: Requesting the evaluation endpoint
	// THEN: The response carries the recommendation and the tier is untouched

	srv, store := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 1.0)

	resp, err := http.Get(srv.URL + "/api/affiliates/aff-1/evaluation")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	eval := decode[map[string]any](t, resp)
	assert.Equal(t, "BRONZE", eval["current_tier"])
	assert.Equal(t, "BRONZE", eval["recommended_tier"])
	assert.Equal(t, false, eval["tier_changed"])

	changes, err := store.ListTierChanges(context.Background(), "aff-1")
	require.NoError(t, err)
	assert.Empty(t, changes, "a dry-run evaluation must not write tier changes")
}

func TestAPI_TierTableListsAllTiers(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/tiers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tiers := decode[[]map[string]any](t, resp)
	require.Len(t, tiers, 5)
	assert.Equal(t, "BRONZE", tiers[0]["tier"])
	assert.Equal(t, "DIAMOND", tiers[4]["tier"])
}

// =============================================================================
// ADMIN BATCH ENDPOINT TESTS
// =============================================================================

func TestAPI_TierRunPromotesAndRecordsHistory(t *testing.T) {
	// GIVEN: An affiliate with promotion-worthy trailing performance
	// WHEN: Triggering the tier batch
	// THEN: The change is applied and shows up in tier history

	srv, store := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)
	seedTrailingPerformance(t, store, "aff-1")

	resp := postJSON(t, srv.URL+"/api/admin/tier-run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), summary["evaluated"])
	assert.Equal(t, float64(1), summary["promoted"])

	hist, err := http.Get(srv.URL + "/api/affiliates/aff-1/tier-history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, hist.StatusCode)
	changes := decode[[]map[string]any](t, hist)
	require.NotEmpty(t, changes)
	assert.Equal(t, "BRONZE", changes[0]["from"])
	assert.Equal(t, "SILVER", changes[0]["to"])
}

func TestAPI_BonusRunValidatesMonth(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/admin/bonus-run", map[string]int{"year": 2025, "month": 13})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_BonusRunPostsEligibleBonuses(t *testing.T) {
	// GIVEN: An affiliate meeting BRONZE bonus criteria (500/3) last month
	// WHEN: Running the bonus batch for that month
	// THEN: One bonus is posted and appears in the ledger

	srv, store := setupServer(t)
	registerAffiliate(t, srv, "aff-1", 2.5)

	lastMonth := time.Now().UTC().AddDate(0, -1, 0)
	first := time.Date(lastMonth.Year(), lastMonth.Month(), 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		err := store.AppendCommission(context.Background(), affiliate.CommissionRecord{
			ID:          fmt.Sprintf("c-%d", i),
			AffiliateID: "aff-1",
			Amount:      affiliate.MustDecimal("200"),
			Status:      affiliate.StatusApproved,
			Type:        affiliate.ConversionConsultation,
			CreatedAt:   first.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	resp := postJSON(t, srv.URL+"/api/admin/bonus-run", map[string]int{
		"year":  first.Year(),
		"month": int(first.Month()),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), summary["processed"])
	// 800 earned at the 5% BRONZE rate.
	assert.Equal(t, "40", summary["total_bonus"])

	rec, err := store.GetCommission(context.Background(),
		affiliate.BonusCommissionID("aff-1", first.Year(), first.Month()))
	require.NoError(t, err)
	assert.Equal(t, affiliate.StatusPending, rec.Status)
}
