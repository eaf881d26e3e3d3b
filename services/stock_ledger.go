package services

import (
	"errors"
	"fmt"
	"log"

	"elevation-league-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetStock assembles a participant's current stock. Types without a persisted
// row default to the catalog's initial count — reading never creates rows.
func (s *BonusService) GetStock(participantID string) (models.StockState, error) {
	var rows []models.BonusStock
	if err := s.DB.Where("participant_id = ?", participantID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	stock := s.Catalog.InitialStock()
	for _, row := range rows {
		if s.Catalog.Knows(row.BonusType) {
			stock[row.BonusType] = row.Count
		}
	}
	return stock, nil
}

// SetStockState administratively overwrites a participant's stock. Every key
// must be a known bonus type and every count within [0, MaxStockPerType].
func (s *BonusService) SetStockState(participantID string, stock models.StockState) (models.StockState, error) {
	for t, count := range stock {
		if !s.Catalog.Knows(t) {
			return nil, fmt.Errorf("%w: unrecognized bonus type %q", ErrValidation, t)
		}
		if count < 0 || count > models.MaxStockPerType {
			return nil, fmt.Errorf("%w: count %d for %q outside [0,%d]", ErrValidation, count, t, models.MaxStockPerType)
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for t, count := range stock {
			row := models.BonusStock{
				ID:            uuid.NewString(),
				ParticipantID: participantID,
				BonusType:     t,
				Count:         count,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "participant_id"}, {Name: "bonus_type"}},
				DoUpdates: clause.AssignmentColumns([]string{"count"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return s.GetStock(participantID)
}

// ResetAllStock deletes the persisted counters for every participant of a
// league, dropping everyone back to the catalog defaults. Returns the number
// of participants affected.
func (s *BonusService) ResetAllStock(leagueID string) (int, error) {
	var participantIDs []string
	if err := s.DB.Model(&models.Participant{}).
		Where("league_id = ?", leagueID).
		Pluck("id", &participantIDs).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(participantIDs) == 0 {
		return 0, nil
	}

	if err := s.DB.Where("participant_id IN ?", participantIDs).
		Delete(&models.BonusStock{}).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	log.Printf("[STOCK] Reset bonus stock for %d participant(s) in league %s", len(participantIDs), leagueID)
	return len(participantIDs), nil
}

// decrementStock reduces one counter by exactly 1 inside the caller's
// transaction, locking the row so concurrent activations serialize. Only the
// activation path calls this, and only after validation approved the request.
func (s *BonusService) decrementStock(tx *gorm.DB, participantID string, t models.BonusType) (int, error) {
	q := tx
	// SQLite has no SELECT ... FOR UPDATE; its writes serialize on the db lock.
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row models.BonusStock
	err := q.Where("participant_id = ? AND bonus_type = ?", participantID, t).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First use of this type: materialize the counter from the catalog.
		cfg, cfgErr := s.Catalog.ConfigFor(t)
		if cfgErr != nil {
			return 0, cfgErr
		}
		if cfg.InitialStock <= 0 {
			return 0, ErrInsufficientStock
		}
		row = models.BonusStock{
			ID:            uuid.NewString(),
			ParticipantID: participantID,
			BonusType:     t,
			Count:         cfg.InitialStock - 1,
		}
		if err := tx.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return row.Count, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if row.Count <= 0 {
		return 0, ErrInsufficientStock
	}
	row.Count--
	if err := tx.Save(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return row.Count, nil
}
