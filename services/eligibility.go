package services

import (
	"elevation-league-system/models"
)

// ActivationRequest is a participant's attempt to play a bonus card.
type ActivationRequest struct {
	ParticipantID string           `json:"participant_id"`
	BonusType     models.BonusType `json:"bonus_type"`
	Round         int              `json:"round"`
	TargetID      *string          `json:"target_id,omitempty"`
	CriteriaID    *string          `json:"criteria_id,omitempty"`
	DayIndex      *int             `json:"day_index,omitempty"`
}

// RoundContext carries the calendar flags the validator itself cannot know.
// Derived from League state by the caller.
type RoundContext struct {
	IsFinalDay   bool
	IsFinalRound bool
}

// ActivationApproval is the token handed to the orchestration step once all
// checks pass. Validation never mutates state.
type ActivationApproval struct {
	Request ActivationRequest
	Config  models.BonusConfig
}

// validateActivation runs the eligibility checks in order, short-circuiting on
// the first failure:
//  1. type known to the catalog
//  2. remaining stock > 0
//  3. no prior non-cancelled usage for (participant, type, round)
//  4. type-specific structural parameters
//  5. temporal restrictions from the round context
func validateActivation(catalog *BonusCatalog, req ActivationRequest, stock models.StockState, prior *models.BonusUsage, rctx RoundContext) (*ActivationApproval, error) {
	cfg, err := catalog.ConfigFor(req.BonusType)
	if err != nil {
		return nil, err
	}

	if stock[req.BonusType] <= 0 {
		return nil, ErrInsufficientStock
	}

	if prior != nil {
		return nil, ErrAlreadyUsedThisRound
	}

	switch req.BonusType {
	case models.BonusDuel:
		if req.TargetID == nil || *req.TargetID == "" || req.CriteriaID == nil || *req.CriteriaID == "" {
			return nil, ErrMissingDuelParameters
		}
	case models.BonusSabotage:
		if req.TargetID == nil || *req.TargetID == "" {
			return nil, ErrMissingTarget
		}
	case models.BonusMultiplier:
		if req.DayIndex == nil || *req.DayIndex < 0 || *req.DayIndex > 4 {
			return nil, ErrInvalidDayIndex
		}
	case models.BonusShield:
		// no structural parameters
	}

	if cfg.NotUsableOnFinalDay && rctx.IsFinalDay {
		return nil, ErrBonusNotUsableNow
	}
	if cfg.NotUsableInFinalRound && rctx.IsFinalRound {
		return nil, ErrBonusNotUsableNow
	}

	return &ActivationApproval{Request: req, Config: cfg}, nil
}
