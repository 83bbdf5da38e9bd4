/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.
  Money crosses the wire as strings to preserve decimal precision.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/affiliate-engine/affiliate"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AffiliateDTO represents an affiliate in API responses.
type AffiliateDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Tier            string  `json:"tier"`
	Status          string  `json:"status"`
	ConversionRate  float64 `json:"conversion_rate"`
	TotalEarnings   string  `json:"total_earnings"`
	PendingEarnings string  `json:"pending_earnings"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// CreateAffiliateRequest is the request to register an affiliate.
// ConversionRate is the partner's observed conversion percentage,
// maintained by the upstream tracking system.
type CreateAffiliateRequest struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ConversionRate float64 `json:"conversion_rate"`
}

// CommissionDTO represents a ledger entry in API responses.
type CommissionDTO struct {
	ID           string `json:"id"`
	AffiliateID  string `json:"affiliate_id"`
	ConversionID string `json:"conversion_id,omitempty"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateCommissionRequest records a conversion for an affiliate.
// The commission amount is computed from the rate table; the caller
// supplies the raw conversion value.
type CreateCommissionRequest struct {
	AffiliateID  string `json:"affiliate_id"`
	ConversionID string `json:"conversion_id"`
	Type         string `json:"type"`
	Value        string `json:"value"` // decimal string
}

// EvaluationDTO is a dry-run tier evaluation result.
type EvaluationDTO struct {
	AffiliateID        string  `json:"affiliate_id"`
	CurrentTier        string  `json:"current_tier"`
	RecommendedTier    string  `json:"recommended_tier"`
	TierChanged        bool    `json:"tier_changed"`
	Direction          string  `json:"direction"`
	MonthlyEarnings    string  `json:"monthly_earnings"`
	MonthlyConversions float64 `json:"monthly_conversions"`
	ConversionRate     float64 `json:"conversion_rate"`
}

// TierRequirementDTO is one row of the tier requirement table.
type TierRequirementDTO struct {
	Tier                  string   `json:"tier"`
	MinMonthlyEarnings    string   `json:"min_monthly_earnings"`
	MinMonthlyConversions float64  `json:"min_monthly_conversions"`
	MinConversionRate     float64  `json:"min_conversion_rate"`
	Benefits              []string `json:"benefits"`
}

// TierChangeDTO is one applied tier movement.
type TierChangeDTO struct {
	AffiliateID string `json:"affiliate_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Direction   string `json:"direction,omitempty"`
	Reason      string `json:"reason,omitempty"`
	At          string `json:"at,omitempty"`
}

// BatchFailureDTO is one affiliate a batch could not process.
type BatchFailureDTO struct {
	AffiliateID string `json:"affiliate_id"`
	Error       string `json:"error"`
}

// TierRunSummaryDTO is the result of a batch tier run.
type TierRunSummaryDTO struct {
	Evaluated  int               `json:"evaluated"`
	Promoted   int               `json:"promoted"`
	Promotions []TierChangeDTO   `json:"promotions"`
	Failures   []BatchFailureDTO `json:"failures"`
}

// BonusRunRequest selects the month for a bonus batch.
type BonusRunRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// BonusAwardDTO is one posted bonus.
type BonusAwardDTO struct {
	AffiliateID string `json:"affiliate_id"`
	Amount      string `json:"amount"`
}

// BonusRunSummaryDTO is the result of a monthly bonus batch.
type BonusRunSummaryDTO struct {
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Evaluated  int               `json:"evaluated"`
	Processed  int               `json:"processed"`
	TotalBonus string            `json:"total_bonus"`
	Bonuses    []BonusAwardDTO   `json:"bonuses"`
	Failures   []BatchFailureDTO `json:"failures"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAffiliateDTO(a affiliate.Affiliate) AffiliateDTO {
	return AffiliateDTO{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Tier:            string(a.Tier),
		Status:          string(a.Status),
		ConversionRate:  a.ConversionRate,
		TotalEarnings:   a.TotalEarnings.String(),
		PendingEarnings: a.PendingEarnings.String(),
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
}

func toCommissionDTO(rec affiliate.CommissionRecord) CommissionDTO {
	dto := CommissionDTO{
		ID:           rec.ID,
		AffiliateID:  rec.AffiliateID,
		ConversionID: rec.ConversionID,
		Amount:       rec.Amount.String(),
		Status:       string(rec.Status),
		Type:         string(rec.Type),
		Description:  rec.Description,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if !rec.DueDate.IsZero() {
		dto.DueDate = rec.DueDate.Format("2006-01-02")
	}
	return dto
}

func toCommissionDTOs(recs []affiliate.CommissionRecord) []CommissionDTO {
	dtos := make([]CommissionDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toCommissionDTO(rec)
	}
	return dtos
}

func toTierRunSummaryDTO(s *affiliate.TierRunSummary) TierRunSummaryDTO {
	dto := TierRunSummaryDTO{
		Evaluated:  s.Evaluated,
		Promoted:   s.Promoted,
		Promotions: []TierChangeDTO{},
		Failures:   []BatchFailureDTO{},
	}
	for _, p := range s.Promotions {
		dto.Promotions = append(dto.Promotions, TierChangeDTO{
			AffiliateID: p.AffiliateID,
			From:        string(p.From),
			To:          string(p.To),
			Direction:   string(p.Direction),
		})
	}
	for _, f := range s.Failures {
		dto.Failures = append(dto.Failures, BatchFailureDTO{AffiliateID: f.AffiliateID, Error: f.Err.Error()})
	}
	return dto
}

func toBonusRunSummaryDTO(s *affiliate.BonusRunSummary) BonusRunSummaryDTO {
	dto := BonusRunSummaryDTO{
		Year:       s.Year,
		Month:      int(s.Month),
		Evaluated:  s.Evaluated,
		Processed:  s.Processed,
		TotalBonus: s.TotalBonus.String(),
		Bonuses:    []BonusAwardDTO{},
		Failures:   []BatchFailureDTO{},
	}
	for _, b := range s.Bonuses {
		dto.Bonuses = append(dto.Bonuses, BonusAwardDTO{AffiliateID: b.AffiliateID, Amount: b.Amount.String()})
	}
	for _, f := range s.Failures {
		dto.Failures = append(dto.Failures, BatchFailureDTO{AffiliateID: f.AffiliateID, Error: f.Err.Error()})
	}
	return dto
}
