// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/affiliate-engine/affiliate"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	affiliates  map[string]affiliate.Affiliate
	commissions map[string]affiliate.CommissionRecord
	tierLog     []TierLogEntry
}

// TierLogEntry records one applied tier change with its reason.
type TierLogEntry struct {
	AffiliateID string
	From        affiliate.Tier
	To          affiliate.Tier
	Reason      string
	At          time.Time
}

func NewMemory() *Memory {
	return &Memory{
		affiliates:  make(map[string]affiliate.Affiliate),
		commissions: make(map[string]affiliate.CommissionRecord),
	}
}

var _ affiliate.AdminStore = (*Memory)(nil)

func (m *Memory) GetAffiliate(_ context.Context, id string) (*affiliate.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	aff, ok := m.affiliates[id]
	if !ok {
		return nil, affiliate.ErrAffiliateNotFound
	}
	return &aff, nil
}

func (m *Memory) ListAffiliates(_ context.Context, status affiliate.AffiliateStatus) ([]affiliate.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []affiliate.Affiliate
	for _, aff := range m.affiliates {
		if aff.Status == status {
			result = append(result, aff)
		}
	}
	// Deterministic iteration for batch summaries and tests.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) AggregateCommissions(_ context.Context, affiliateID string, statuses []affiliate.CommissionStatus, from, to time.Time) (affiliate.CommissionAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[affiliate.CommissionStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	agg := affiliate.CommissionAggregate{Total: decimal.Zero}
	for _, rec := range m.commissions {
		if rec.AffiliateID != affiliateID || !wanted[rec.Status] {
			continue
		}
		if rec.CreatedAt.Before(from) || rec.CreatedAt.After(to) {
			continue
		}
		agg.Total = agg.Total.Add(rec.Amount)
		agg.Count++
	}
	return agg, nil
}

func (m *Memory) AppendCommission(_ context.Context, rec affiliate.CommissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.commissions[rec.ID]; exists {
		return affiliate.ErrDuplicateCommission
	}
	m.commissions[rec.ID] = rec
	return nil
}

func (m *Memory) UpdateTier(_ context.Context, affiliateID string, tier affiliate.Tier, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	aff, ok := m.affiliates[affiliateID]
	if !ok {
		return affiliate.ErrAffiliateNotFound
	}

	m.tierLog = append(m.tierLog, TierLogEntry{
		AffiliateID: affiliateID,
		From:        aff.Tier,
		To:          tier,
		Reason:      reason,
		At:          time.Now(),
	})

	aff.Tier = tier
	aff.UpdatedAt = time.Now()
	m.affiliates[affiliateID] = aff
	return nil
}

func (m *Memory) AddEarnings(_ context.Context, affiliateID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	aff, ok := m.affiliates[affiliateID]
	if !ok {
		return affiliate.ErrAffiliateNotFound
	}

	aff.TotalEarnings = aff.TotalEarnings.Add(amount)
	aff.PendingEarnings = aff.PendingEarnings.Add(amount)
	aff.UpdatedAt = time.Now()
	m.affiliates[affiliateID] = aff
	return nil
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

func (m *Memory) CreateAffiliate(_ context.Context, a affiliate.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.affiliates[a.ID] = a
	return nil
}

func (m *Memory) ListCommissions(_ context.Context, affiliateID string) ([]affiliate.CommissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []affiliate.CommissionRecord
	for _, rec := range m.commissions {
		if rec.AffiliateID == affiliateID {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) GetCommission(_ context.Context, id string) (*affiliate.CommissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.commissions[id]
	if !ok {
		return nil, affiliate.ErrCommissionNotFound
	}
	return &rec, nil
}

func (m *Memory) UpdateCommissionStatus(_ context.Context, id string, status affiliate.CommissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.commissions[id]
	if !ok {
		return affiliate.ErrCommissionNotFound
	}
	if !rec.Status.CanTransitionTo(status) {
		return &affiliate.TransitionError{CommissionID: id, From: rec.Status, To: status}
	}

	// Paying out releases the amount from the pending balance.
	if status == affiliate.StatusPaid {
		if aff, ok := m.affiliates[rec.AffiliateID]; ok {
			aff.PendingEarnings = aff.PendingEarnings.Sub(rec.Amount)
			m.affiliates[rec.AffiliateID] = aff
		}
	}

	rec.Status = status
	m.commissions[id] = rec
	return nil
}

// TierLog returns the applied tier changes, oldest first. Test helper.
func (m *Memory) TierLog() []TierLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TierLogEntry(nil), m.tierLog...)
}
