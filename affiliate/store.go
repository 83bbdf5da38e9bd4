/*
store.go - Persistence interface for affiliates and the commission ledger

PURPOSE:
  Defines the single seam between the engine and the database. The
  engine is written against Store; production uses the SQLite adapter,
  tests use the in-memory implementation.

KEY INTERFACES:
  Store:      The operations the engine itself needs (lookups, ledger
              aggregation, appends, tier/balance updates)
  AdminStore: Store plus the management operations the admin surface
              needs (create affiliate, list ledger, status transitions)

LEDGER CONTRACT:
  AppendCommission is the only way ledger rows are created. Amount and
  type are immutable after that; UpdateCommissionStatus moves status
  forward only, enforced via CommissionStatus.CanTransitionTo.

CONCURRENCY:
  The engine runs as a single-threaded batch. Implementations must
  serialize writes per affiliate id; across different affiliates the
  batch loops share no mutable state.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - affiliate/store/memory.go: In-memory for testing

SEE ALSO:
  - evaluator.go, bonus.go: Aggregate readers
  - promoter.go, runner.go: Writers
*/
package affiliate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - What the engine needs from persistence
// =============================================================================

type Store interface {
	// GetAffiliate returns the affiliate or ErrAffiliateNotFound.
	GetAffiliate(ctx context.Context, id string) (*Affiliate, error)

	// ListAffiliates returns all affiliates with the given status.
	ListAffiliates(ctx context.Context, status AffiliateStatus) ([]Affiliate, error)

	// AggregateCommissions returns SUM(amount) and COUNT(*) over ledger
	// entries for the affiliate with status in statuses and creation
	// timestamp in [from, to].
	AggregateCommissions(ctx context.Context, affiliateID string, statuses []CommissionStatus, from, to time.Time) (CommissionAggregate, error)

	// AppendCommission creates a new ledger row. Returns
	// ErrDuplicateCommission if the id already exists.
	AppendCommission(ctx context.Context, rec CommissionRecord) error

	// UpdateTier persists a tier change with a human-readable reason.
	UpdateTier(ctx context.Context, affiliateID string, tier Tier, reason string) error

	// AddEarnings increments both TotalEarnings and PendingEarnings.
	AddEarnings(ctx context.Context, affiliateID string, amount decimal.Decimal) error
}

// =============================================================================
// ADMIN STORE - Management operations for the HTTP surface
// =============================================================================

type AdminStore interface {
	Store

	// CreateAffiliate inserts a new affiliate record.
	CreateAffiliate(ctx context.Context, a Affiliate) error

	// ListCommissions returns an affiliate's ledger entries, newest first.
	ListCommissions(ctx context.Context, affiliateID string) ([]CommissionRecord, error)

	// GetCommission returns a ledger entry or ErrCommissionNotFound.
	GetCommission(ctx context.Context, id string) (*CommissionRecord, error)

	// UpdateCommissionStatus moves a ledger entry's status forward.
	// Returns a TransitionError for backward or out-of-terminal moves.
	// Transitioning to PAID releases the amount from PendingEarnings.
	UpdateCommissionStatus(ctx context.Context, id string, status CommissionStatus) error
}

// =============================================================================
// NOTIFIER - Side-effect collaborator
// =============================================================================

// Notifier is invoked after tier changes and bonus postings. The engine
// defines no delivery contract; production wires email/webhook senders.
type Notifier interface {
	TierChanged(ctx context.Context, affiliate Affiliate, from, to Tier)
	BonusAwarded(ctx context.Context, affiliate Affiliate, amount decimal.Decimal, month time.Month, year int)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) TierChanged(context.Context, Affiliate, Tier, Tier) {}
func (NopNotifier) BonusAwarded(context.Context, Affiliate, decimal.Decimal, time.Month, int) {
}
