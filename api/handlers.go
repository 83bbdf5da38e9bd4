/*
handlers.go - HTTP API handlers for the affiliate commission engine

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Affiliates:
    GET    /api/affiliates                      List active affiliates
    POST   /api/affiliates                      Register affiliate
    GET    /api/affiliates/{id}                 Get affiliate details
    GET    /api/affiliates/{id}/commissions     Ledger history
    GET    /api/affiliates/{id}/evaluation      Dry-run tier evaluation
    GET    /api/affiliates/{id}/tier-history    Applied tier changes

  Commissions:
    POST   /api/commissions                     Record a conversion
    POST   /api/commissions/{id}/approve        PENDING -> APPROVED
    POST   /api/commissions/{id}/pay            APPROVED -> PAID

  Tiers:
    GET    /api/tiers                           Requirement table

  Admin:
    POST   /api/admin/tier-run                  Run the tier batch now
    POST   /api/admin/bonus-run                 Run a monthly bonus batch

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Affiliate or commission not found
  - 409: Conflict (duplicate ledger id, backward status transition)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are
  public. Front with an authenticating proxy in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/affiliate-engine/affiliate"
	"github.com/warp/affiliate-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Evaluator  *affiliate.TierEvaluator
	TierRunner *affiliate.BatchTierRunner
	BonusBatch *affiliate.BatchBonusProcessor
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	notifier := affiliate.LogNotifier{}
	return &Handler{
		Store:      store,
		Evaluator:  affiliate.NewTierEvaluator(store),
		TierRunner: affiliate.NewBatchTierRunner(store, notifier),
		BonusBatch: affiliate.NewBatchBonusProcessor(store, notifier),
	}
}

// =============================================================================
// AFFILIATE HANDLERS
// =============================================================================

// ListAffiliates returns all active affiliates.
func (h *Handler) ListAffiliates(w http.ResponseWriter, r *http.Request) {
	status := affiliate.AffiliateStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = affiliate.StatusActive
	}

	affiliates, err := h.Store.ListAffiliates(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list affiliates", err)
		return
	}

	dtos := make([]AffiliateDTO, len(affiliates))
	for i, a := range affiliates {
		dtos[i] = toAffiliateDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAffiliate registers a new affiliate at the BRONZE floor.
func (h *Handler) CreateAffiliate(w http.ResponseWriter, r *http.Request) {
	var req CreateAffiliateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.ConversionRate < 0 {
		writeError(w, http.StatusBadRequest, "conversion_rate must be non-negative", nil)
		return
	}

	now := time.Now()
	aff := affiliate.Affiliate{
		ID:              req.ID,
		Name:            req.Name,
		Email:           req.Email,
		Tier:            affiliate.TierBronze,
		Status:          affiliate.StatusActive,
		ConversionRate:  req.ConversionRate,
		TotalEarnings:   decimal.Zero,
		PendingEarnings: decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.Store.CreateAffiliate(r.Context(), aff); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create affiliate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAffiliateDTO(aff))
}

// GetAffiliate returns a single affiliate.
func (h *Handler) GetAffiliate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	aff, err := h.Store.GetAffiliate(r.Context(), id)
	if affiliate.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Affiliate not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return
	}
	writeJSON(w, http.StatusOK, toAffiliateDTO(*aff))
}

// GetCommissions returns an affiliate's ledger history.
func (h *Handler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recs, err := h.Store.ListCommissions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTOs(recs))
}

// GetEvaluation runs a dry-run tier evaluation without applying it.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	eval, err := h.Evaluator.Evaluate(r.Context(), id)
	if affiliate.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Affiliate not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Evaluation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, EvaluationDTO{
		AffiliateID:        eval.AffiliateID,
		CurrentTier:        string(eval.CurrentTier),
		RecommendedTier:    string(eval.RecommendedTier),
		TierChanged:        eval.TierChanged,
		Direction:          string(eval.Direction),
		MonthlyEarnings:    eval.MonthlyEarnings.StringFixed(2),
		MonthlyConversions: eval.MonthlyConversions,
		ConversionRate:     eval.ConversionRate,
	})
}

// GetTierHistory returns the applied tier changes for an affiliate.
func (h *Handler) GetTierHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changes, err := h.Store.ListTierChanges(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tier changes", err)
		return
	}

	dtos := make([]TierChangeDTO, len(changes))
	for i, c := range changes {
		dtos[i] = TierChangeDTO{
			AffiliateID: c.AffiliateID,
			From:        string(c.FromTier),
			To:          string(c.ToTier),
			Reason:      c.Reason,
			At:          c.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// CreateCommission records a conversion: the commission amount is
// computed from the rate table for the affiliate's current tier.
func (h *Handler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req CreateCommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AffiliateID == "" || req.ConversionID == "" {
		writeError(w, http.StatusBadRequest, "affiliate_id and conversion_id are required", nil)
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil || value.IsNegative() {
		writeError(w, http.StatusBadRequest, "value must be a non-negative decimal", err)
		return
	}

	aff, err := h.Store.GetAffiliate(r.Context(), req.AffiliateID)
	if affiliate.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Affiliate not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return
	}

	calc := affiliate.CalculateCommission(aff.Tier, affiliate.ConversionType(req.Type), value)
	rec := affiliate.CommissionRecord{
		ID:           fmt.Sprintf("comm-%s", req.ConversionID),
		AffiliateID:  req.AffiliateID,
		ConversionID: req.ConversionID,
		Amount:       calc.Amount,
		Status:       affiliate.StatusPending,
		Type:         affiliate.ConversionType(req.Type),
		Description:  fmt.Sprintf("commission at rate %s for conversion %s", calc.Rate, req.ConversionID),
		CreatedAt:    time.Now(),
	}

	if err := h.Store.AppendCommission(r.Context(), rec); err != nil {
		if affiliate.IsDuplicate(err) {
			writeError(w, http.StatusConflict, "Conversion already recorded", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to record commission", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommissionDTO(rec))
}

// ApproveCommission moves a ledger entry PENDING -> APPROVED.
func (h *Handler) ApproveCommission(w http.ResponseWriter, r *http.Request) {
	h.transitionCommission(w, r, affiliate.StatusApproved)
}

// PayCommission moves a ledger entry APPROVED -> PAID and releases the
// amount from the affiliate's pending balance.
func (h *Handler) PayCommission(w http.ResponseWriter, r *http.Request) {
	h.transitionCommission(w, r, affiliate.StatusPaid)
}

func (h *Handler) transitionCommission(w http.ResponseWriter, r *http.Request, status affiliate.CommissionStatus) {
	id := chi.URLParam(r, "id")
	err := h.Store.UpdateCommissionStatus(r.Context(), id, status)
	if affiliate.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Commission not found", err)
		return
	}
	if err != nil {
		if affiliate.IsClientError(err) {
			writeError(w, http.StatusConflict, "Invalid status transition", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}

	rec, err := h.Store.GetCommission(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(*rec))
}

// =============================================================================
// TIER TABLE HANDLER
// =============================================================================

// ListTiers returns the tier requirement table.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	reqs := affiliate.AllRequirements()
	dtos := make([]TierRequirementDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = TierRequirementDTO{
			Tier:                  string(req.Tier),
			MinMonthlyEarnings:    req.MinMonthlyEarnings.String(),
			MinMonthlyConversions: req.MinMonthlyConversions,
			MinConversionRate:     req.MinConversionRate,
			Benefits:              req.Benefits,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunTierBatch evaluates and promotes all active affiliates now.
func (h *Handler) RunTierBatch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.TierRunner.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Tier batch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toTierRunSummaryDTO(summary))
}

// RunBonusBatch posts monthly bonuses for the requested month.
func (h *Handler) RunBonusBatch(w http.ResponseWriter, r *http.Request) {
	var req BonusRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 2000 {
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year plausible", nil)
		return
	}

	summary, err := h.BonusBatch.Process(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Bonus batch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusRunSummaryDTO(summary))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
