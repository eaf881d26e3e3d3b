package services

import (
	"errors"
	"fmt"
	"time"

	"elevation-league-system/models"

	"gorm.io/gorm"
)

// findActiveOrResolved returns the existing non-cancelled usage for a
// (participant, type, round) tuple, or nil if the card hasn't been played
// this round. Backs the one-use-per-round-per-type invariant.
func (s *BonusService) findActiveOrResolved(tx *gorm.DB, participantID string, t models.BonusType, round int) (*models.BonusUsage, error) {
	var usage models.BonusUsage
	err := tx.Where("participant_id = ? AND bonus_type = ? AND round = ? AND status <> ?",
		participantID, t, round, models.UsageStatusCancelled).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &usage, nil
}

// recordUsage appends a new usage record inside the caller's transaction.
// The validator already guaranteed uniqueness, but re-check defensively —
// the window between validation and write is exactly what bit the old system.
func (s *BonusService) recordUsage(tx *gorm.DB, usage *models.BonusUsage) error {
	existing, err := s.findActiveOrResolved(tx, usage.ParticipantID, usage.BonusType, usage.Round)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateUsage
	}
	if err := tx.Create(usage).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// ActiveForRound returns every active usage of a round in activation order.
// This is the resolver's input; cancelled records never reach it.
func (s *BonusService) ActiveForRound(round int) ([]models.BonusUsage, error) {
	var usages []models.BonusUsage
	err := s.DB.Where("round = ? AND status = ?", round, models.UsageStatusActive).
		Order("created_at ASC").
		Find(&usages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return usages, nil
}

// ResolveUsageByID stores the real-world outcome of a bonus. Re-resolving
// overwrites the previous result on purpose: resolution is an administrative
// correction tool, not a one-shot event.
func (s *BonusService) ResolveUsageByID(usageID, result string) (*models.BonusUsage, error) {
	var usage models.BonusUsage
	if err := s.DB.First(&usage, "id = ?", usageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	now := time.Now()
	usage.Resolved = true
	usage.ResolvedAt = &now
	usage.Result = result
	if err := s.DB.Save(&usage).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &usage, nil
}

// CancelUsageByID administratively voids a usage record. The record stays in
// the table; a cancelled card no longer counts toward the per-round limit and
// never reaches the resolver. Stock is NOT refunded here.
func (s *BonusService) CancelUsageByID(usageID string) (*models.BonusUsage, error) {
	var usage models.BonusUsage
	if err := s.DB.First(&usage, "id = ?", usageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	usage.Status = models.UsageStatusCancelled
	if err := s.DB.Save(&usage).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &usage, nil
}

// UsagesForLeague lists all usage records of a league's participants, newest first.
func (s *BonusService) UsagesForLeague(leagueID string) ([]models.BonusUsage, error) {
	var usages []models.BonusUsage
	err := s.DB.
		Where("participant_id IN (?)",
			s.DB.Model(&models.Participant{}).Select("id").Where("league_id = ?", leagueID)).
		Order("created_at DESC").
		Find(&usages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return usages, nil
}
