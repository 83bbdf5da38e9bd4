/*
calculator.go - Commission calculation for a single conversion

PURPOSE:
  Pure computation of the payout for one conversion event. No side
  effects, no error conditions: unmapped (tier, type) pairs fall back
  to the documented 10% default rather than failing.

ORDER OF OPERATIONS:
  1. amount = value * rate
  2. raise to MinimumValue if below
  3. cap at MaximumValue if above
  4. add fixed Bonus if defined

SEE ALSO:
  - rates.go: The rule table and fallback
*/
package affiliate

import "github.com/shopspring/decimal"

// CommissionResult is the outcome of a commission calculation.
type CommissionResult struct {
	Rate     decimal.Decimal
	Amount   decimal.Decimal
	Fallback bool // true when no explicit rule matched and DefaultRate applied
}

// CalculateCommission computes the payout for one conversion.
// Always returns a result; never fails. For value >= 0 the amount is >= 0.
func CalculateCommission(tier Tier, conversionType ConversionType, value decimal.Decimal) CommissionResult {
	rule, ok := LookupRate(tier, conversionType)
	if !ok {
		return CommissionResult{
			Rate:     DefaultRate,
			Amount:   value.Mul(DefaultRate),
			Fallback: true,
		}
	}

	amount := value.Mul(rule.Rate)

	// Clamp floor before ceiling.
	if rule.MinimumValue != nil && amount.LessThan(*rule.MinimumValue) {
		amount = *rule.MinimumValue
	}
	if rule.MaximumValue != nil && amount.GreaterThan(*rule.MaximumValue) {
		amount = *rule.MaximumValue
	}
	if rule.Bonus != nil {
		amount = amount.Add(*rule.Bonus)
	}

	return CommissionResult{Rate: rule.Rate, Amount: amount}
}
