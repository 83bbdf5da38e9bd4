/*
rates.go - Static commission rate table

PURPOSE:
  Maps (tier, conversion type) to a commission rate, with optional
  minimum/maximum clamps and an optional fixed bonus addend. This is
  code-embedded configuration, not persisted state: plain immutable
  data, looked up by a simple key tuple.

FALLBACK:
  Every (tier, conversion type) pair used at runtime must resolve to a
  rule or fall back to the documented default rate of 10%. The fallback
  carries no clamps and no bonus, so commission calculation never fails
  on unmapped inputs.

RATE SHAPE:
  Rates rise with tier for every conversion type. Clamps exist where a
  conversion's value varies widely (visa processes) and where payouts
  need a ceiling (subscriptions at the top tier).

SEE ALSO:
  - calculator.go: Applies these rules to conversion values
  - requirements.go: The separate tier requirement and bonus tables
*/
package affiliate

import "github.com/shopspring/decimal"

// =============================================================================
// RATE RULE
// =============================================================================

// RateRule is the commission configuration for one (tier, type) pair.
type RateRule struct {
	Rate         decimal.Decimal  // fraction of conversion value
	MinimumValue *decimal.Decimal // raise amount to this floor if below
	MaximumValue *decimal.Decimal // cap amount at this ceiling if above
	Bonus        *decimal.Decimal // fixed addend applied after clamping
}

// DefaultRate is applied when no rule exists for a (tier, type) pair.
var DefaultRate = MustDecimal("0.10")

type rateKey struct {
	Tier Tier
	Type ConversionType
}

func dec(s string) decimal.Decimal { return MustDecimal(s) }

func decPtr(s string) *decimal.Decimal {
	d := MustDecimal(s)
	return &d
}

// rateTable is the full (tier, conversion type) rate matrix.
// ConversionBonus entries are intentionally absent: bonus ledger rows are
// computed from the bonus criteria table, never from this matrix.
var rateTable = map[rateKey]RateRule{
	// Consultations: flat percentage, no clamps.
	{TierBronze, ConversionConsultation}:   {Rate: dec("0.15")},
	{TierSilver, ConversionConsultation}:   {Rate: dec("0.20")},
	{TierGold, ConversionConsultation}:     {Rate: dec("0.25")},
	{TierPlatinum, ConversionConsultation}: {Rate: dec("0.30")},
	{TierDiamond, ConversionConsultation}:  {Rate: dec("0.35")},

	// Visa processes: high-value conversions with a payout floor, and a
	// fixed loyalty addend at the top tier.
	{TierBronze, ConversionVisaProcess}:   {Rate: dec("0.10"), MinimumValue: decPtr("25")},
	{TierSilver, ConversionVisaProcess}:   {Rate: dec("0.12"), MinimumValue: decPtr("30")},
	{TierGold, ConversionVisaProcess}:     {Rate: dec("0.15"), MinimumValue: decPtr("50")},
	{TierPlatinum, ConversionVisaProcess}: {Rate: dec("0.18"), MinimumValue: decPtr("60")},
	{TierDiamond, ConversionVisaProcess}:  {Rate: dec("0.20"), MinimumValue: decPtr("75"), Bonus: decPtr("50")},

	// Subscriptions: recurring revenue, capped at the top tier.
	{TierBronze, ConversionSubscription}:   {Rate: dec("0.08")},
	{TierSilver, ConversionSubscription}:   {Rate: dec("0.10")},
	{TierGold, ConversionSubscription}:     {Rate: dec("0.12")},
	{TierPlatinum, ConversionSubscription}: {Rate: dec("0.15")},
	{TierDiamond, ConversionSubscription}:  {Rate: dec("0.18"), MaximumValue: decPtr("500")},
}

// LookupRate returns the rate rule for (tier, conversionType) and whether
// an explicit rule exists. Callers that receive ok=false must use
// DefaultRate with no clamps and no bonus.
func LookupRate(tier Tier, conversionType ConversionType) (RateRule, bool) {
	rule, ok := rateTable[rateKey{tier, conversionType}]
	return rule, ok
}
