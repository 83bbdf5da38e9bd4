/*
promoter.go - Applying tier changes

PURPOSE:
  Persists a tier change with a human-readable reason and notifies the
  affiliate afterwards. Promotion and demotion take the same path.

FAILURE MODEL:
  No rollback path: a store failure propagates to the caller as a hard
  error. The batch runner catches per-affiliate and continues.

SEE ALSO:
  - evaluator.go: Produces the recommendation this applies
  - runner.go: Batch orchestration
*/
package affiliate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPromotionReason is logged when no reason is supplied.
const DefaultPromotionReason = "automatic evaluation based on performance"

// TierPromoter applies tier changes to persisted affiliate state.
type TierPromoter struct {
	Store    Store
	Notifier Notifier
}

func NewTierPromoter(store Store, notifier Notifier) *TierPromoter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &TierPromoter{Store: store, Notifier: notifier}
}

// Promote persists the tier change and notifies the affiliate.
// reason may be empty; DefaultPromotionReason is recorded instead.
func (p *TierPromoter) Promote(ctx context.Context, affiliateID string, newTier Tier, reason string) error {
	if !newTier.Valid() {
		return fmt.Errorf("promote %s: unknown tier %q", affiliateID, newTier)
	}
	if reason == "" {
		reason = DefaultPromotionReason
	}

	aff, err := p.Store.GetAffiliate(ctx, affiliateID)
	if err != nil {
		return err
	}

	if err := p.Store.UpdateTier(ctx, affiliateID, newTier, reason); err != nil {
		return fmt.Errorf("update tier for %s: %w", affiliateID, err)
	}

	log.Printf("[Promoter] %s: %s -> %s (%s)", affiliateID, aff.Tier, newTier, reason)
	p.Notifier.TierChanged(ctx, *aff, aff.Tier, newTier)
	return nil
}

// =============================================================================
// LOG NOTIFIER - Default notification sink
// =============================================================================

// LogNotifier writes notifications to the standard logger. Production
// deployments replace it with a real sender.
type LogNotifier struct{}

func (LogNotifier) TierChanged(_ context.Context, aff Affiliate, from, to Tier) {
	log.Printf("[Notify] %s (%s): tier changed %s -> %s", aff.Name, aff.ID, from, to)
}

func (LogNotifier) BonusAwarded(_ context.Context, aff Affiliate, amount decimal.Decimal, month time.Month, year int) {
	log.Printf("[Notify] %s (%s): bonus %s awarded for %s %d", aff.Name, aff.ID, amount, month, year)
}
