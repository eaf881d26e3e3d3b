package services

import (
	"errors"
	"log"

	"elevation-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RankingService builds ranking snapshots from the per-day elevation source and
// runs them through the bonus resolver. It is the "aggregation step" that owns
// multiplier scaling and shield protection — the resolver itself only ever sees
// already-aggregated totals.
type RankingService struct {
	DB      *gorm.DB
	Catalog *BonusCatalog
	Bonuses *BonusService
}

func NewRankingService(db *gorm.DB, catalog *BonusCatalog, bonuses *BonusService) *RankingService {
	return &RankingService{DB: db, Catalog: catalog, Bonuses: bonuses}
}

// BuildRoundSnapshot aggregates a league's per-day elevations for one round
// into a ranking snapshot, and returns the round's active usages with
// shield-protected duels/sabotages already filtered out.
//
// Entries come back in participant join order; position assignment happens in
// the resolver, ties keeping this insertion order.
func (r *RankingService) BuildRoundSnapshot(leagueID string, round int) ([]models.RankingEntry, []models.BonusUsage, error) {
	var participants []models.Participant
	if err := r.DB.Where("league_id = ?", leagueID).Order("created_at ASC").Find(&participants).Error; err != nil {
		return nil, nil, ErrStorageUnavailable
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}

	var totals []models.RoundTotal
	if len(ids) > 0 {
		if err := r.DB.Where("round = ? AND participant_id IN ?", round, ids).Find(&totals).Error; err != nil {
			return nil, nil, ErrStorageUnavailable
		}
	}
	totalsByParticipant := make(map[string]models.RoundTotal, len(totals))
	for _, t := range totals {
		totalsByParticipant[t.ParticipantID] = t
	}

	allUsages, err := r.Bonuses.ActiveForRound(round)
	if err != nil {
		return nil, nil, err
	}
	// Scope to this league's participants.
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	usages := allUsages[:0:0]
	for _, u := range allUsages {
		if member[u.ParticipantID] {
			usages = append(usages, u)
		}
	}

	// Multipliers scale one sub-day's contribution before aggregation.
	multiplierDay := make(map[string]int)
	for _, u := range usages {
		if u.BonusType == models.BonusMultiplier && u.DayIndex != nil {
			multiplierDay[u.ParticipantID] = *u.DayIndex
		}
	}
	factor := DefaultMultiplierFactor
	if cfg, cfgErr := r.Catalog.ConfigFor(models.BonusMultiplier); cfgErr == nil {
		factor = cfg.Factor
	}

	entries := make([]models.RankingEntry, 0, len(participants))
	for _, p := range participants {
		days := totalsByParticipant[p.ID].Days()
		total := 0.0
		boosted, hasBoost := multiplierDay[p.ID]
		for d, elevation := range days {
			if hasBoost && d == boosted {
				elevation *= factor
			}
			total += elevation
		}
		entries = append(entries, models.RankingEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Total:         total,
		})
	}

	// Shields protect their holder: duels and sabotages aimed at a shield
	// holder are dropped here so the resolver never applies them.
	shielded := make(map[string]bool)
	for _, u := range usages {
		if u.BonusType == models.BonusShield {
			shielded[u.ParticipantID] = true
		}
	}
	filtered := usages[:0:0]
	for _, u := range usages {
		if (u.BonusType == models.BonusDuel || u.BonusType == models.BonusSabotage) &&
			u.TargetID != nil && shielded[*u.TargetID] {
			continue
		}
		filtered = append(filtered, u)
	}

	return entries, filtered, nil
}

// --- Fiber handlers ---

// GetRoundStandings handles GET /leagues/:id/rounds/:round/standings
func (r *RankingService) GetRoundStandings(c *fiber.Ctx) error {
	leagueID := c.Params("id")
	round, err := c.ParamsInt("round")
	if err != nil || round < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "round must be a positive integer"})
	}

	var league models.League
	if err := r.DB.First(&league, "id = ?", leagueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error fetching league"})
	}

	entries, usages, err := r.BuildRoundSnapshot(leagueID, round)
	if err != nil {
		return bonusError(c, err)
	}

	ranking, effects := ApplyBonusEffects(entries, usages, r.Catalog)
	return c.JSON(fiber.Map{
		"league_id": leagueID,
		"round":     round,
		"ranking":   ranking,
		"effects":   effects,
	})
}

// GetLeagueStandings handles GET /leagues/:id/standings — cumulative elevation
// across all rounds, no bonus adjustment.
func (r *RankingService) GetLeagueStandings(c *fiber.Ctx) error {
	leagueID := c.Params("id")

	var participants []models.Participant
	if err := r.DB.Where("league_id = ?", leagueID).
		Order("total_elevation DESC, created_at ASC").
		Find(&participants).Error; err != nil {
		log.Printf("[RANKING] Failed to fetch league standings for %s: %v", leagueID, err)
		participants = []models.Participant{}
	}

	entries := make([]models.RankingEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, models.RankingEntry{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Total:         p.TotalElevation,
			Position:      i + 1,
		})
	}
	return c.JSON(fiber.Map{"league_id": leagueID, "ranking": entries})
}

// SubmitRoundTotals handles PUT /admin/participants/:id/rounds/:round/totals —
// manual override of the per-day elevation source (normally fed by the
// activity poll worker).
func (r *RankingService) SubmitRoundTotals(c *fiber.Ctx) error {
	participantID := c.Params("id")
	round, err := c.ParamsInt("round")
	if err != nil || round < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "round must be a positive integer"})
	}

	var req struct {
		Days []float64 `json:"days"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if len(req.Days) > 5 {
		return c.Status(400).JSON(fiber.Map{"error": "days accepts at most 5 values"})
	}
	for _, d := range req.Days {
		if d < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "day elevations must be non-negative"})
		}
	}

	var participant models.Participant
	if err := r.DB.First(&participant, "id = ?", participantID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "participant not found"})
	}

	total := models.RoundTotal{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Round:         round,
	}
	for i, d := range req.Days {
		total.SetDay(i, d)
	}

	if err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}, {Name: "round"}},
		DoUpdates: clause.AssignmentColumns([]string{"day0", "day1", "day2", "day3", "day4"}),
	}).Create(&total).Error; err != nil {
		log.Printf("[RANKING] Failed to upsert round totals for %s round %d: %v", participantID, round, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to save round totals"})
	}

	return c.JSON(total)
}
