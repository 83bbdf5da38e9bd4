/*
evaluator.go - Trailing-window tier evaluation

PURPOSE:
  Decides which tier an affiliate's recent performance supports. The
  evaluator aggregates APPROVED/PAID ledger entries in a 90-day rolling
  window ending now, derives monthly averages, and scans the tier table
  from DIAMOND down to BRONZE for the first tier whose thresholds are
  all met.

AVERAGING:
  The 90-day window is treated as exactly three months:
  monthlyEarnings = sum / 3, monthlyConversions = count / 3. The fixed
  divisor is deliberate; calendar-accurate month counting would shift
  results against established payout expectations.

DIRECTION:
  TierChanged is true for both promotions and demotions; the same
  downstream action (persist + notify) runs for either. Direction makes
  the movement explicit for callers that care.

SEE ALSO:
  - requirements.go: The threshold table
  - promoter.go: Applies the recommended change
*/
package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TrailingWindowDays is the evaluation lookback period.
const TrailingWindowDays = 90

// trailingMonths is the fixed divisor for monthly averages over the window.
var trailingMonths = decimal.NewFromInt(3)

// =============================================================================
// EVALUATION RESULT
// =============================================================================

type TierDirection string

const (
	DirectionUp   TierDirection = "up"
	DirectionDown TierDirection = "down"
	DirectionNone TierDirection = "none"
)

// TierEvaluation is the outcome of evaluating one affiliate.
type TierEvaluation struct {
	AffiliateID     string
	CurrentTier     Tier
	RecommendedTier Tier

	// TierChanged is true for any difference between current and
	// recommended tier, upward or downward.
	TierChanged bool
	Direction   TierDirection

	// Inputs to the decision, exposed for display and audit.
	MonthlyEarnings    decimal.Decimal
	MonthlyConversions float64
	ConversionRate     float64

	// Requirements of the recommended tier.
	Requirements TierRequirement
}

// =============================================================================
// TIER EVALUATOR
// =============================================================================

// TierEvaluator computes tier recommendations from trailing performance.
// Now is injectable for tests; nil means time.Now.
type TierEvaluator struct {
	Store Store
	Now   func() time.Time
}

func NewTierEvaluator(store Store) *TierEvaluator {
	return &TierEvaluator{Store: store}
}

func (e *TierEvaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Evaluate loads the affiliate and determines whether its tier should
// change. Returns ErrAffiliateNotFound if the id is unknown; batch
// callers log and continue rather than aborting the run.
func (e *TierEvaluator) Evaluate(ctx context.Context, affiliateID string) (*TierEvaluation, error) {
	aff, err := e.Store.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	to := e.now()
	from := to.AddDate(0, 0, -TrailingWindowDays)

	agg, err := e.Store.AggregateCommissions(ctx, affiliateID, EarnedStatuses, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate trailing commissions for %s: %w", affiliateID, err)
	}

	monthlyEarnings := agg.Total.Div(trailingMonths)
	monthlyConversions := float64(agg.Count) / 3

	recommended := recommendTier(monthlyEarnings, monthlyConversions, aff.ConversionRate)
	req, _ := RequirementFor(recommended)

	return &TierEvaluation{
		AffiliateID:        affiliateID,
		CurrentTier:        aff.Tier,
		RecommendedTier:    recommended,
		TierChanged:        recommended != aff.Tier,
		Direction:          direction(aff.Tier, recommended),
		MonthlyEarnings:    monthlyEarnings,
		MonthlyConversions: monthlyConversions,
		ConversionRate:     aff.ConversionRate,
		Requirements:       req,
	}, nil
}

// recommendTier returns the highest tier whose three thresholds are all
// satisfied. BRONZE's zero thresholds make it the guaranteed floor.
func recommendTier(monthlyEarnings decimal.Decimal, monthlyConversions, conversionRate float64) Tier {
	for _, tier := range TiersDescending {
		req := tierRequirements[tier]
		if monthlyEarnings.GreaterThanOrEqual(req.MinMonthlyEarnings) &&
			monthlyConversions >= req.MinMonthlyConversions &&
			conversionRate >= req.MinConversionRate {
			return tier
		}
	}
	return TierBronze
}

func direction(current, recommended Tier) TierDirection {
	switch {
	case recommended.Above(current):
		return DirectionUp
	case current.Above(recommended):
		return DirectionDown
	default:
		return DirectionNone
	}
}
