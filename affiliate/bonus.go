/*
bonus.go - Monthly performance bonus calculation and batch posting

PURPOSE:
  Computes whether an affiliate earned a performance bonus for a FIXED
  calendar month (unlike the evaluator's rolling window) and posts the
  eligible bonuses as new ledger entries.

ELIGIBILITY:
  The affiliate's tier selects a row from the bonus criteria table
  (distinct from tier requirements). Both thresholds are inclusive:
  earnings exactly at the minimum and conversions exactly at the
  minimum qualify. bonus = monthly APPROVED/PAID sum * tier bonus rate.

FAILURE MODEL:
  Business ineligibility is a normal result, never an error. Store
  failures surface as errors so callers can distinguish "ineligible"
  from "evaluation failed"; the batch collects them and continues.

IDEMPOTENCY:
  Bonus ledger ids are deterministic per (affiliate, month). Re-running
  a month skips affiliates whose bonus row already exists instead of
  double-posting.

SEE ALSO:
  - requirements.go: BonusCriteria table
  - runner.go: The analogous tier batch
*/
package affiliate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BONUS EVALUATION
// =============================================================================

// BonusEvaluation is the outcome of evaluating one affiliate for one month.
type BonusEvaluation struct {
	AffiliateID string
	Tier        Tier
	Year        int
	Month       time.Month

	Eligible    bool
	Reason      string
	BonusAmount decimal.Decimal
	BonusRate   decimal.Decimal

	MonthlyEarnings    decimal.Decimal
	MonthlyConversions int
}

// =============================================================================
// MONTHLY BONUS CALCULATOR
// =============================================================================

// MonthlyBonusCalculator evaluates bonus eligibility for a calendar month.
type MonthlyBonusCalculator struct {
	Store Store
}

func NewMonthlyBonusCalculator(store Store) *MonthlyBonusCalculator {
	return &MonthlyBonusCalculator{Store: store}
}

// Calculate evaluates one affiliate for (month, year). A non-nil error
// means the evaluation itself failed (missing affiliate, store failure);
// it never means business ineligibility.
func (c *MonthlyBonusCalculator) Calculate(ctx context.Context, affiliateID string, year int, month time.Month) (*BonusEvaluation, error) {
	aff, err := c.Store.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	agg, err := c.Store.AggregateCommissions(ctx, affiliateID, EarnedStatuses, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s %d commissions for %s: %w", month, year, affiliateID, err)
	}

	eval := &BonusEvaluation{
		AffiliateID:        affiliateID,
		Tier:               aff.Tier,
		Year:               year,
		Month:              month,
		MonthlyEarnings:    agg.Total,
		MonthlyConversions: agg.Count,
	}

	criteria, ok := BonusCriteriaFor(aff.Tier)
	if !ok {
		eval.Reason = "invalid tier"
		return eval, nil
	}

	// Inclusive thresholds: exactly meeting both minimums qualifies.
	if agg.Total.LessThan(criteria.MinEarnings) {
		eval.Reason = fmt.Sprintf("earnings below minimum: %s/%s",
			agg.Total, criteria.MinEarnings)
		return eval, nil
	}
	if agg.Count < criteria.MinConversions {
		eval.Reason = fmt.Sprintf("conversions below minimum: %d/%d",
			agg.Count, criteria.MinConversions)
		return eval, nil
	}

	eval.Eligible = true
	eval.BonusRate = criteria.BonusRate
	eval.BonusAmount = agg.Total.Mul(criteria.BonusRate)
	eval.Reason = fmt.Sprintf("monthly performance bonus at %s%% of %s earned in %s %d",
		criteria.BonusRate.Mul(decimal.NewFromInt(100)), agg.Total, month, year)
	return eval, nil
}

// =============================================================================
// BATCH BONUS PROCESSOR
// =============================================================================

// BonusAward records one posted bonus.
type BonusAward struct {
	AffiliateID string
	Amount      decimal.Decimal
}

// BonusRunSummary is the result of a monthly bonus batch.
type BonusRunSummary struct {
	Year       int
	Month      time.Month
	Evaluated  int
	Processed  int
	TotalBonus decimal.Decimal
	Bonuses    []BonusAward
	Failures   []BatchFailure
}

// BatchBonusProcessor posts bonuses for all active affiliates for a month.
type BatchBonusProcessor struct {
	Store      Store
	Calculator *MonthlyBonusCalculator
	Notifier   Notifier
	Now        func() time.Time
}

func NewBatchBonusProcessor(store Store, notifier Notifier) *BatchBonusProcessor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BatchBonusProcessor{
		Store:      store,
		Calculator: NewMonthlyBonusCalculator(store),
		Notifier:   notifier,
	}
}

func (p *BatchBonusProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Process evaluates every ACTIVE affiliate for (month, year) and posts a
// bonus ledger entry for each eligible one. Per-affiliate failures are
// collected; only the affiliate listing aborts the run.
func (p *BatchBonusProcessor) Process(ctx context.Context, year int, month time.Month) (*BonusRunSummary, error) {
	affiliates, err := p.Store.ListAffiliates(ctx, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active affiliates: %w", err)
	}

	summary := &BonusRunSummary{Year: year, Month: month, TotalBonus: decimal.Zero}
	for _, aff := range affiliates {
		eval, err := p.Calculator.Calculate(ctx, aff.ID, year, month)
		if err != nil {
			log.Printf("[BonusBatch] %s: %v", aff.ID, err)
			summary.Failures = append(summary.Failures, BatchFailure{AffiliateID: aff.ID, Err: err})
			continue
		}
		summary.Evaluated++
		if !eval.Eligible {
			continue
		}

		if err := p.post(ctx, aff, eval); err != nil {
			if IsDuplicate(err) {
				// Bonus for this month already posted on a previous run.
				log.Printf("[BonusBatch] %s: bonus for %s %d already posted", aff.ID, month, year)
				continue
			}
			log.Printf("[BonusBatch] %s: %v", aff.ID, err)
			summary.Failures = append(summary.Failures, BatchFailure{AffiliateID: aff.ID, Err: err})
			continue
		}

		summary.Processed++
		summary.TotalBonus = summary.TotalBonus.Add(eval.BonusAmount)
		summary.Bonuses = append(summary.Bonuses, BonusAward{AffiliateID: aff.ID, Amount: eval.BonusAmount})
		p.Notifier.BonusAwarded(ctx, aff, eval.BonusAmount, month, year)
	}

	log.Printf("[BonusBatch] %s %d completed: %d evaluated, %d bonuses (%s total), %d failed",
		month, year, summary.Evaluated, summary.Processed, summary.TotalBonus, len(summary.Failures))
	return summary, nil
}

func (p *BatchBonusProcessor) post(ctx context.Context, aff Affiliate, eval *BonusEvaluation) error {
	rec := CommissionRecord{
		ID:          BonusCommissionID(aff.ID, eval.Year, eval.Month),
		AffiliateID: aff.ID,
		Amount:      eval.BonusAmount,
		Status:      StatusPending,
		Type:        ConversionBonus,
		Description: eval.Reason,
		// Bonuses are payable on the 15th of the following month.
		DueDate:   time.Date(eval.Year, eval.Month+1, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt: p.now(),
	}

	if err := p.Store.AppendCommission(ctx, rec); err != nil {
		return err
	}
	if err := p.Store.AddEarnings(ctx, aff.ID, eval.BonusAmount); err != nil {
		return fmt.Errorf("increment earnings for %s: %w", aff.ID, err)
	}
	return nil
}

// BonusCommissionID builds the deterministic ledger id for a monthly bonus.
func BonusCommissionID(affiliateID string, year int, month time.Month) string {
	return fmt.Sprintf("bonus-%s-%04d%02d", affiliateID, year, int(month))
}
