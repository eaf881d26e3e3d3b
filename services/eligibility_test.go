package services

import (
	"testing"

	"elevation-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateActivation(t *testing.T) {
	catalog := DefaultBonusCatalog()
	fullStock := catalog.InitialStock()

	tests := []struct {
		name    string
		req     ActivationRequest
		stock   models.StockState
		prior   *models.BonusUsage
		rctx    RoundContext
		wantErr error
	}{
		{
			name:    "unknown bonus type",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: "teleport", Round: 1},
			stock:   fullStock,
			wantErr: ErrUnknownBonusType,
		},
		{
			name:    "insufficient stock",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusShield, Round: 1},
			stock:   models.StockState{models.BonusShield: 0},
			wantErr: ErrInsufficientStock,
		},
		{
			name:  "already used this round",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusShield, Round: 1},
			stock: fullStock,
			prior: &models.BonusUsage{
				ParticipantID: "p1",
				BonusType:     models.BonusShield,
				Round:         1,
				Status:        models.UsageStatusActive,
			},
			wantErr: ErrAlreadyUsedThisRound,
		},
		{
			name:    "duel without target",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusDuel, Round: 1, CriteriaID: strPtr("elevation")},
			stock:   fullStock,
			wantErr: ErrMissingDuelParameters,
		},
		{
			name:    "duel without criteria",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusDuel, Round: 1, TargetID: strPtr("p2")},
			stock:   fullStock,
			wantErr: ErrMissingDuelParameters,
		},
		{
			name:    "duel with empty target",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusDuel, Round: 1, TargetID: strPtr(""), CriteriaID: strPtr("elevation")},
			stock:   fullStock,
			wantErr: ErrMissingDuelParameters,
		},
		{
			name:  "valid duel",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusDuel, Round: 1, TargetID: strPtr("p2"), CriteriaID: strPtr("elevation")},
			stock: fullStock,
		},
		{
			name:    "sabotage without target",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusSabotage, Round: 1},
			stock:   fullStock,
			wantErr: ErrMissingTarget,
		},
		{
			name:  "valid sabotage",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusSabotage, Round: 1, TargetID: strPtr("p2")},
			stock: fullStock,
		},
		{
			name:    "multiplier without day index",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusMultiplier, Round: 1},
			stock:   fullStock,
			wantErr: ErrInvalidDayIndex,
		},
		{
			name:    "multiplier day index out of range",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusMultiplier, Round: 1, DayIndex: intPtr(5)},
			stock:   fullStock,
			wantErr: ErrInvalidDayIndex,
		},
		{
			name:    "multiplier negative day index",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusMultiplier, Round: 1, DayIndex: intPtr(-1)},
			stock:   fullStock,
			wantErr: ErrInvalidDayIndex,
		},
		{
			name:  "valid multiplier",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusMultiplier, Round: 1, DayIndex: intPtr(2)},
			stock: fullStock,
		},
		{
			name:  "valid shield",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusShield, Round: 1},
			stock: fullStock,
		},
		{
			name:    "duel on final day",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusDuel, Round: 1, TargetID: strPtr("p2"), CriteriaID: strPtr("elevation")},
			stock:   fullStock,
			rctx:    RoundContext{IsFinalDay: true},
			wantErr: ErrBonusNotUsableNow,
		},
		{
			name:  "sabotage on final day allowed",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusSabotage, Round: 1, TargetID: strPtr("p2")},
			stock: fullStock,
			rctx:  RoundContext{IsFinalDay: true},
		},
		{
			name:    "shield in final round",
			req:     ActivationRequest{ParticipantID: "p1", BonusType: models.BonusShield, Round: 3},
			stock:   fullStock,
			rctx:    RoundContext{IsFinalRound: true},
			wantErr: ErrBonusNotUsableNow,
		},
		{
			name:  "multiplier in final round allowed",
			req:   ActivationRequest{ParticipantID: "p1", BonusType: models.BonusMultiplier, Round: 3, DayIndex: intPtr(0)},
			stock: fullStock,
			rctx:  RoundContext{IsFinalRound: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approval, err := validateActivation(catalog, tt.req, tt.stock, tt.prior, tt.rctx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, approval)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, approval)
			assert.Equal(t, tt.req.BonusType, approval.Config.Type)
		})
	}
}

func TestValidateActivation_StockCheckedBeforeDuplicate(t *testing.T) {
	catalog := DefaultBonusCatalog()
	prior := &models.BonusUsage{ParticipantID: "p1", BonusType: models.BonusShield, Round: 1}

	_, err := validateActivation(catalog,
		ActivationRequest{ParticipantID: "p1", BonusType: models.BonusShield, Round: 1},
		models.StockState{models.BonusShield: 0}, prior, RoundContext{})

	// Both fail; stock runs first.
	require.ErrorIs(t, err, ErrInsufficientStock)
}
