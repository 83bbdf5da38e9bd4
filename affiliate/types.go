/*
Package affiliate provides the core commission-tier and payout-bonus engine.

PURPOSE:
  This package contains the domain types and algorithms for an affiliate
  program: commission calculation per conversion, tier promotion/demotion
  based on trailing performance, and monthly performance bonuses. It is a
  library invoked by a scheduler or an admin action; it has no network
  surface of its own.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tier: An affiliate's performance rank (BRONZE..DIAMOND), ordered
  - ConversionType: The kind of billable event a commission is paid for
  - Affiliate: The partner record with tier, status, and running balances
  - CommissionRecord: An append-only ledger entry for money owed/paid

DESIGN PRINCIPLES:
  1. Immutability: Ledger amounts and types are never modified; only the
     status moves forward (PENDING -> APPROVED -> PAID)
  2. Precision: Uses decimal.Decimal for all money to avoid float errors
  3. One seam: All persistence goes through the Store interface (store.go)

USAGE:
  calc := affiliate.CalculateCommission(affiliate.TierGold,
      affiliate.ConversionConsultation, decimal.NewFromInt(1000))
  fmt.Println(calc.Amount) // 250

SEE ALSO:
  - rates.go: Static commission rate table
  - requirements.go: Tier requirement and bonus criteria tables
  - evaluator.go: Trailing-window tier evaluation
*/
package affiliate

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER - Ordered performance rank
// =============================================================================

type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

// TiersAscending lists all tiers from lowest to highest benefit level.
var TiersAscending = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

// TiersDescending lists all tiers from highest to lowest.
// Tier evaluation scans in this order and returns the first match.
var TiersDescending = []Tier{TierDiamond, TierPlatinum, TierGold, TierSilver, TierBronze}

var tierRank = map[Tier]int{
	TierBronze:   0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
	TierDiamond:  4,
}

// Rank returns the tier's position in the ascending order (BRONZE=0).
// Unknown tiers rank below BRONZE.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// Above reports whether t is a higher tier than other.
func (t Tier) Above(other Tier) bool { return t.Rank() > other.Rank() }

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool { return t.Rank() >= 0 }

// =============================================================================
// CONVERSION TYPE - What kind of event earned the commission
// =============================================================================

type ConversionType string

const (
	ConversionConsultation ConversionType = "consultation"
	ConversionVisaProcess  ConversionType = "visa_process"
	ConversionSubscription ConversionType = "subscription"

	// ConversionBonus tags ledger entries created by the monthly bonus
	// processor. It has no rate-table entry; bonuses are computed from
	// the bonus criteria table, not from conversion values.
	ConversionBonus ConversionType = "bonus"
)

// =============================================================================
// COMMISSION STATUS - Forward-only chain
// =============================================================================

type CommissionStatus string

const (
	StatusPending   CommissionStatus = "PENDING"
	StatusApproved  CommissionStatus = "APPROVED"
	StatusPaid      CommissionStatus = "PAID"
	StatusCancelled CommissionStatus = "CANCELLED"
)

// statusOrder encodes the forward-only chain PENDING -> APPROVED -> PAID.
// CANCELLED is a terminal side-exit reachable from PENDING or APPROVED.
var statusOrder = map[CommissionStatus]int{
	StatusPending:  0,
	StatusApproved: 1,
	StatusPaid:     2,
}

// CanTransitionTo reports whether a status change is allowed.
// Status never moves backward, and PAID/CANCELLED are terminal.
func (s CommissionStatus) CanTransitionTo(next CommissionStatus) bool {
	if s == StatusPaid || s == StatusCancelled {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// EarnedStatuses are the ledger statuses that count toward performance:
// money that has been approved or already paid out.
var EarnedStatuses = []CommissionStatus{StatusApproved, StatusPaid}

// =============================================================================
// AFFILIATE - Partner record
// =============================================================================

type AffiliateStatus string

const (
	StatusActive   AffiliateStatus = "ACTIVE"
	StatusInactive AffiliateStatus = "INACTIVE"
)

// Affiliate is the partner record. The tier is mutated only by the
// TierPromoter; balances are mutated only by commission/bonus postings.
// ConversionRate is a trailing percentage maintained externally and
// read-only to this engine.
type Affiliate struct {
	ID              string
	Name            string
	Email           string
	Tier            Tier
	Status          AffiliateStatus
	ConversionRate  float64
	TotalEarnings   decimal.Decimal
	PendingEarnings decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// =============================================================================
// COMMISSION RECORD - Append-only ledger entry
// =============================================================================

// CommissionRecord is one ledger row: money owed or paid to an affiliate
// for a single conversion or bonus.
//
// INVARIANTS:
//   - Append-only: amount and type are immutable once created
//   - Status only moves forward (see CommissionStatus.CanTransitionTo)
type CommissionRecord struct {
	ID           string
	AffiliateID  string
	ConversionID string // empty for bonus-only entries
	Amount       decimal.Decimal
	Status       CommissionStatus
	Type         ConversionType
	Description  string
	DueDate      time.Time
	CreatedAt    time.Time
}

// CommissionAggregate is the result of a SUM/COUNT over ledger entries.
type CommissionAggregate struct {
	Total decimal.Decimal
	Count int
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustDecimal parses a decimal string, returning zero on failure.
// Used for code-embedded configuration tables only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
