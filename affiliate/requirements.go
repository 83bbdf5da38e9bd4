/*
requirements.go - Tier requirement and monthly bonus criteria tables

PURPOSE:
  Two distinct static tables, both keyed by tier:

  TierRequirement:
    The minimum trailing performance needed to HOLD a tier. Used by the
    evaluator against 90-day trailing monthly averages. Thresholds are
    monotonically non-decreasing from BRONZE to DIAMOND in all three
    dimensions (earnings, conversions, conversion rate).

  BonusCriteria:
    The per-calendar-month thresholds and bonus rate for the monthly
    performance bonus. A SEPARATE table from TierRequirement with its
    own numbers; the two must not be conflated.

  Both are plain code-embedded configuration with no dynamic dispatch.

SEE ALSO:
  - evaluator.go: Consumes TierRequirement
  - bonus.go: Consumes BonusCriteria
*/
package affiliate

import "github.com/shopspring/decimal"

// =============================================================================
// TIER REQUIREMENTS - Trailing performance needed to hold a tier
// =============================================================================

// TierRequirement lists the minimum trailing-90-day monthly averages
// required to hold a tier. Benefits are informational only.
type TierRequirement struct {
	Tier                  Tier
	MinMonthlyEarnings    decimal.Decimal
	MinMonthlyConversions float64
	MinConversionRate     float64 // percentage
	Benefits              []string
}

// tierRequirements holds the fixed requirement table. BRONZE is the floor:
// zero thresholds, always satisfied.
var tierRequirements = map[Tier]TierRequirement{
	TierBronze: {
		Tier:                  TierBronze,
		MinMonthlyEarnings:    decimal.Zero,
		MinMonthlyConversions: 0,
		MinConversionRate:     0,
		Benefits:              []string{"base commission rates", "monthly payout"},
	},
	TierSilver: {
		Tier:                  TierSilver,
		MinMonthlyEarnings:    dec("1000"),
		MinMonthlyConversions: 5,
		MinConversionRate:     2.0,
		Benefits:              []string{"higher commission rates", "priority support"},
	},
	TierGold: {
		Tier:                  TierGold,
		MinMonthlyEarnings:    dec("3000"),
		MinMonthlyConversions: 15,
		MinConversionRate:     3.0,
		Benefits:              []string{"premium commission rates", "dedicated manager", "co-marketing material"},
	},
	TierPlatinum: {
		Tier:                  TierPlatinum,
		MinMonthlyEarnings:    dec("8000"),
		MinMonthlyConversions: 35,
		MinConversionRate:     4.0,
		Benefits:              []string{"top commission rates", "quarterly business review", "early feature access"},
	},
	TierDiamond: {
		Tier:                  TierDiamond,
		MinMonthlyEarnings:    dec("20000"),
		MinMonthlyConversions: 80,
		MinConversionRate:     5.0,
		Benefits:              []string{"maximum commission rates", "custom payout terms", "annual summit invite"},
	},
}

// RequirementFor returns the requirement row for a tier.
func RequirementFor(tier Tier) (TierRequirement, bool) {
	req, ok := tierRequirements[tier]
	return req, ok
}

// AllRequirements returns the requirement rows in ascending tier order.
// Exposed for display and for monotonicity verification.
func AllRequirements() []TierRequirement {
	out := make([]TierRequirement, 0, len(TiersAscending))
	for _, t := range TiersAscending {
		out = append(out, tierRequirements[t])
	}
	return out
}

// =============================================================================
// BONUS CRITERIA - Calendar-month performance bonus thresholds
// =============================================================================

// BonusCriteria defines when a tier earns a monthly bonus and at what rate.
// Thresholds are inclusive: meeting a minimum exactly qualifies.
type BonusCriteria struct {
	Tier           Tier
	MinEarnings    decimal.Decimal // monthly APPROVED/PAID sum
	MinConversions int             // monthly APPROVED/PAID count
	BonusRate      decimal.Decimal // fraction of the monthly sum
}

var bonusCriteria = map[Tier]BonusCriteria{
	TierBronze:   {Tier: TierBronze, MinEarnings: dec("500"), MinConversions: 3, BonusRate: dec("0.05")},
	TierSilver:   {Tier: TierSilver, MinEarnings: dec("1500"), MinConversions: 8, BonusRate: dec("0.08")},
	TierGold:     {Tier: TierGold, MinEarnings: dec("4000"), MinConversions: 20, BonusRate: dec("0.10")},
	TierPlatinum: {Tier: TierPlatinum, MinEarnings: dec("10000"), MinConversions: 45, BonusRate: dec("0.12")},
	TierDiamond:  {Tier: TierDiamond, MinEarnings: dec("25000"), MinConversions: 100, BonusRate: dec("0.15")},
}

// BonusCriteriaFor returns the bonus criteria row for a tier.
// ok=false means the tier earns no monthly bonus ("invalid tier").
func BonusCriteriaFor(tier Tier) (BonusCriteria, bool) {
	c, ok := bonusCriteria[tier]
	return c, ok
}
