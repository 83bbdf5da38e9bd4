package affiliate_test

import (
	"testing"

	"github.com/warp/affiliate-engine/affiliate"
)

func TestTierRequirements_MonotonicallyNonDecreasing(t *testing.T) {
	// GIVEN: The fixed tier requirement table
	// WHEN: Walking BRONZE -> DIAMOND
	// THEN: Every threshold is non-decreasing in all three dimensions

	reqs := affiliate.AllRequirements()
	if len(reqs) != len(affiliate.TiersAscending) {
		t.Fatalf("expected %d requirement rows, got %d", len(affiliate.TiersAscending), len(reqs))
	}

	for i := 1; i < len(reqs); i++ {
		prev, cur := reqs[i-1], reqs[i]
		if cur.MinMonthlyEarnings.LessThan(prev.MinMonthlyEarnings) {
			t.Errorf("%s earnings threshold %s below %s's %s",
				cur.Tier, cur.MinMonthlyEarnings, prev.Tier, prev.MinMonthlyEarnings)
		}
		if cur.MinMonthlyConversions < prev.MinMonthlyConversions {
			t.Errorf("%s conversion threshold %v below %s's %v",
				cur.Tier, cur.MinMonthlyConversions, prev.Tier, prev.MinMonthlyConversions)
		}
		if cur.MinConversionRate < prev.MinConversionRate {
			t.Errorf("%s rate threshold %v below %s's %v",
				cur.Tier, cur.MinConversionRate, prev.Tier, prev.MinConversionRate)
		}
	}
}

func TestTierRequirements_BronzeIsZeroFloor(t *testing.T) {
	req, ok := affiliate.RequirementFor(affiliate.TierBronze)
	if !ok {
		t.Fatal("BRONZE requirement missing")
	}
	if !req.MinMonthlyEarnings.IsZero() || req.MinMonthlyConversions != 0 || req.MinConversionRate != 0 {
		t.Errorf("BRONZE must have zero thresholds, got %+v", req)
	}
}

func TestBonusCriteria_DistinctFromTierRequirements(t *testing.T) {
	// The bonus table has its own thresholds; SILVER's bonus minimum
	// (1500) is not SILVER's tier requirement (1000).
	criteria, ok := affiliate.BonusCriteriaFor(affiliate.TierSilver)
	if !ok {
		t.Fatal("SILVER bonus criteria missing")
	}
	req, _ := affiliate.RequirementFor(affiliate.TierSilver)
	if criteria.MinEarnings.Equal(req.MinMonthlyEarnings) {
		t.Error("bonus criteria should not mirror tier requirements")
	}
}

func TestStatusChain_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to affiliate.CommissionStatus
		allowed  bool
	}{
		{affiliate.StatusPending, affiliate.StatusApproved, true},
		{affiliate.StatusPending, affiliate.StatusPaid, true},
		{affiliate.StatusApproved, affiliate.StatusPaid, true},
		{affiliate.StatusApproved, affiliate.StatusPending, false},
		{affiliate.StatusPaid, affiliate.StatusApproved, false},
		{affiliate.StatusPaid, affiliate.StatusPending, false},
		{affiliate.StatusPending, affiliate.StatusCancelled, true},
		{affiliate.StatusCancelled, affiliate.StatusApproved, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}
