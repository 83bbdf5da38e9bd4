package affiliate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/affiliate-engine/affiliate"
	"github.com/warp/affiliate-engine/affiliate/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	return store.NewMemory()
}

func seedAffiliate(t *testing.T, s *store.Memory, id string, tier affiliate.Tier, conversionRate float64) {
	t.Helper()
	err := s.CreateAffiliate(context.Background(), affiliate.Affiliate{
		ID:              id,
		Name:            "Affiliate " + id,
		Email:           id + "@example.com",
		Tier:            tier,
		Status:          affiliate.StatusActive,
		ConversionRate:  conversionRate,
		TotalEarnings:   decimal.Zero,
		PendingEarnings: decimal.Zero,
		CreatedAt:       testNow.AddDate(-1, 0, 0),
	})
	require.NoError(t, err)
}

func seedCommissions(t *testing.T, s *store.Memory, affiliateID string, status affiliate.CommissionStatus, createdAt time.Time, amounts ...string) {
	t.Helper()
	for i, amt := range amounts {
		err := s.AppendCommission(context.Background(), affiliate.CommissionRecord{
			ID:          fmt.Sprintf("%s-%s-%d-%d", affiliateID, status, createdAt.Unix(), i),
			AffiliateID: affiliateID,
			Amount:      affiliate.MustDecimal(amt),
			Status:      status,
			Type:        affiliate.ConversionConsultation,
			CreatedAt:   createdAt,
		})
		require.NoError(t, err)
	}
}

func newEvaluator(s *store.Memory) *affiliate.TierEvaluator {
	e := affiliate.NewTierEvaluator(s)
	e.Now = func() time.Time { return testNow }
	return e
}

// =============================================================================
// TIER EVALUATION TESTS
// =============================================================================

func TestTierEvaluator_RecommendsSilverFromTrailingPerformance(t *testing.T) {
	// GIVEN: A BRONZE affiliate with 3300 earned over 15 conversions in
	//        the trailing 90 days and a 2.5% conversion rate
	// WHEN: Evaluating
	// THEN: Monthly averages are 1100 and 5, meeting SILVER (1000/5/2.0)
	//       but not GOLD (3000/15/3.0)

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-a", affiliate.TierBronze, 2.5)

	inWindow := testNow.AddDate(0, 0, -30)
	// 15 records of 220 each = 3300
	for i := 0; i < 15; i++ {
		seedCommissions(t, s, "aff-a", affiliate.StatusApproved, inWindow.Add(time.Duration(i)*time.Hour), "220")
	}

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-a")
	require.NoError(t, err)

	assert.True(t, eval.MonthlyEarnings.Equal(decimal.NewFromInt(1100)),
		"monthly earnings should be 1100, got %s", eval.MonthlyEarnings)
	assert.Equal(t, float64(5), eval.MonthlyConversions)
	assert.Equal(t, affiliate.TierSilver, eval.RecommendedTier)
	assert.True(t, eval.TierChanged)
	assert.Equal(t, affiliate.DirectionUp, eval.Direction)
}

func TestTierEvaluator_ZeroHistoryRecommendsBronze(t *testing.T) {
	// GIVEN: An affiliate with no trailing conversions and no earnings
	// WHEN: Evaluating
	// THEN: BRONZE is the floor

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-new", affiliate.TierBronze, 0)

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-new")
	require.NoError(t, err)

	assert.Equal(t, affiliate.TierBronze, eval.RecommendedTier)
	assert.False(t, eval.TierChanged)
	assert.Equal(t, affiliate.DirectionNone, eval.Direction)
}

func TestTierEvaluator_TierChangedFalseIffTiersEqual(t *testing.T) {
	// GIVEN: A SILVER affiliate whose performance still supports SILVER
	// WHEN: Evaluating
	// THEN: TierChanged is false exactly because the tiers match

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-s", affiliate.TierSilver, 2.5)
	for i := 0; i < 15; i++ {
		seedCommissions(t, s, "aff-s", affiliate.StatusPaid, testNow.AddDate(0, 0, -20).Add(time.Duration(i)*time.Hour), "220")
	}

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-s")
	require.NoError(t, err)

	assert.Equal(t, eval.CurrentTier, eval.RecommendedTier)
	assert.False(t, eval.TierChanged)
}

func TestTierEvaluator_DemotionFlagsDownwardDirection(t *testing.T) {
	// GIVEN: A GOLD affiliate whose trailing window no longer supports GOLD
	// WHEN: Evaluating
	// THEN: TierChanged is true with Direction down (demotion uses the
	//       same flag as promotion)

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-g", affiliate.TierGold, 2.5)
	for i := 0; i < 15; i++ {
		seedCommissions(t, s, "aff-g", affiliate.StatusApproved, testNow.AddDate(0, 0, -10).Add(time.Duration(i)*time.Hour), "220")
	}

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-g")
	require.NoError(t, err)

	assert.Equal(t, affiliate.TierSilver, eval.RecommendedTier)
	assert.True(t, eval.TierChanged)
	assert.Equal(t, affiliate.DirectionDown, eval.Direction)
}

func TestTierEvaluator_IgnoresPendingAndOutOfWindowRecords(t *testing.T) {
	// GIVEN: Large PENDING commissions in the window and large APPROVED
	//        commissions outside the 90-day window
	// WHEN: Evaluating
	// THEN: Neither counts; the affiliate stays at the BRONZE floor

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-p", affiliate.TierBronze, 5.0)

	seedCommissions(t, s, "aff-p", affiliate.StatusPending, testNow.AddDate(0, 0, -5),
		"5000", "5000", "5000", "5000", "5000", "5000")
	seedCommissions(t, s, "aff-p", affiliate.StatusApproved, testNow.AddDate(0, 0, -120),
		"5000", "5000", "5000", "5000", "5000", "5000")

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-p")
	require.NoError(t, err)

	assert.True(t, eval.MonthlyEarnings.IsZero(), "got monthly earnings %s", eval.MonthlyEarnings)
	assert.Equal(t, affiliate.TierBronze, eval.RecommendedTier)
}

func TestTierEvaluator_UnknownAffiliateIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := newEvaluator(s).Evaluate(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, affiliate.IsNotFound(err))
}

func TestTierEvaluator_ConversionRateGatesPromotion(t *testing.T) {
	// GIVEN: Earnings and volume that support SILVER but a conversion
	//        rate below SILVER's 2.0%
	// WHEN: Evaluating
	// THEN: The rate dimension blocks the promotion

	s := newTestStore(t)
	seedAffiliate(t, s, "aff-r", affiliate.TierBronze, 1.5)
	for i := 0; i < 15; i++ {
		seedCommissions(t, s, "aff-r", affiliate.StatusApproved, testNow.AddDate(0, 0, -30).Add(time.Duration(i)*time.Hour), "220")
	}

	eval, err := newEvaluator(s).Evaluate(context.Background(), "aff-r")
	require.NoError(t, err)

	assert.Equal(t, affiliate.TierBronze, eval.RecommendedTier)
}
