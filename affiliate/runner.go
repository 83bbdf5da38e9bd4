/*
runner.go - Batch tier evaluation over all active affiliates

PURPOSE:
  Iterates every ACTIVE affiliate, evaluates its tier, and applies any
  recommended change. Per-affiliate failures are collected in the
  summary and the loop continues; only a failure to list affiliates at
  all aborts the run.

FAILURE VISIBILITY:
  Each failed affiliate appears in Summary.Failures with its error, so
  callers can tell WHICH affiliates failed rather than only counts.

SEE ALSO:
  - evaluator.go / promoter.go: Per-affiliate steps
  - bonus.go: The analogous monthly bonus batch
*/
package affiliate

import (
	"context"
	"fmt"
	"log"
)

// =============================================================================
// RUN SUMMARY
// =============================================================================

// TierChange records one applied tier movement.
type TierChange struct {
	AffiliateID string
	From        Tier
	To          Tier
	Direction   TierDirection
}

// BatchFailure records one affiliate the batch could not process.
type BatchFailure struct {
	AffiliateID string
	Err         error
}

// TierRunSummary is the result of a full batch run.
type TierRunSummary struct {
	Evaluated  int
	Promoted   int
	Promotions []TierChange
	Failures   []BatchFailure
}

// =============================================================================
// BATCH TIER RUNNER
// =============================================================================

// BatchTierRunner evaluates and promotes all active affiliates.
type BatchTierRunner struct {
	Store     Store
	Evaluator *TierEvaluator
	Promoter  *TierPromoter
}

func NewBatchTierRunner(store Store, notifier Notifier) *BatchTierRunner {
	return &BatchTierRunner{
		Store:     store,
		Evaluator: NewTierEvaluator(store),
		Promoter:  NewTierPromoter(store, notifier),
	}
}

// Run evaluates every ACTIVE affiliate. Returns an error only when the
// affiliate listing itself fails; everything else is per-item.
func (r *BatchTierRunner) Run(ctx context.Context) (*TierRunSummary, error) {
	affiliates, err := r.Store.ListAffiliates(ctx, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active affiliates: %w", err)
	}

	summary := &TierRunSummary{}
	for _, aff := range affiliates {
		change, err := r.processOne(ctx, aff.ID)
		if err != nil {
			log.Printf("[TierBatch] %s: %v", aff.ID, err)
			summary.Failures = append(summary.Failures, BatchFailure{AffiliateID: aff.ID, Err: err})
			continue
		}
		summary.Evaluated++
		if change != nil {
			summary.Promoted++
			summary.Promotions = append(summary.Promotions, *change)
		}
	}

	log.Printf("[TierBatch] completed: %d evaluated, %d changed, %d failed",
		summary.Evaluated, summary.Promoted, len(summary.Failures))
	return summary, nil
}

func (r *BatchTierRunner) processOne(ctx context.Context, affiliateID string) (*TierChange, error) {
	eval, err := r.Evaluator.Evaluate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	if !eval.TierChanged {
		return nil, nil
	}

	if err := r.Promoter.Promote(ctx, affiliateID, eval.RecommendedTier, ""); err != nil {
		return nil, err
	}

	return &TierChange{
		AffiliateID: affiliateID,
		From:        eval.CurrentTier,
		To:          eval.RecommendedTier,
		Direction:   eval.Direction,
	}, nil
}
