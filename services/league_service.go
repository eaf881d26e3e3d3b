package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"elevation-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type LeagueService struct {
	DB *gorm.DB
}

func NewLeagueService(db *gorm.DB) *LeagueService {
	return &LeagueService{DB: db}
}

// CreateLeague handles POST /admin/leagues
func (s *LeagueService) CreateLeague(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		TotalRounds int    `json:"total_rounds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	if req.TotalRounds < 1 {
		req.TotalRounds = 1
	}

	league := &models.League{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		JoinCode:     slug.Make(fmt.Sprintf("%s %d", req.Name, time.Now().Year())),
		TotalRounds:  req.TotalRounds,
		CurrentRound: 1,
		CurrentDay:   0,
		Status:       "active",
	}

	if err := s.DB.Create(league).Error; err != nil {
		// join code collision → disambiguate with a short uuid suffix
		league.JoinCode = league.JoinCode + "-" + league.ID[:8]
		if err := s.DB.Create(league).Error; err != nil {
			log.Printf("[LEAGUE] Failed to create league %q: %v", req.Name, err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to create league"})
		}
	}

	return c.Status(201).JSON(league)
}

// GetLeague handles GET /leagues/:id
func (s *LeagueService) GetLeague(c *fiber.Ctx) error {
	id := c.Params("id")

	var league models.League
	if err := s.DB.First(&league, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var participantCount int64
	s.DB.Model(&models.Participant{}).Where("league_id = ?", id).Count(&participantCount)

	return c.JSON(fiber.Map{
		"league":            league,
		"participant_count": participantCount,
		"is_final_round":    league.IsFinalRound(),
		"is_final_day":      league.IsFinalDay(),
	})
}

// GetAllLeagues handles GET /leagues
func (s *LeagueService) GetAllLeagues(c *fiber.Ctx) error {
	var leagues []models.League
	if err := s.DB.Order("created_at DESC").Find(&leagues).Error; err != nil {
		log.Printf("[LEAGUE] Failed to list leagues: %v", err)
		leagues = []models.League{}
	}
	return c.JSON(leagues)
}

// AdvanceLeague handles POST /admin/leagues/:id/advance — moves the league
// calendar forward by one sub-day; past day 4 the round increments and the day
// resets, and past the final round the league completes.
func (s *LeagueService) AdvanceLeague(c *fiber.Ctx) error {
	id := c.Params("id")

	var league models.League
	if err := s.DB.First(&league, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "league not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if league.Status != "active" {
		return c.Status(400).JSON(fiber.Map{"error": "league is not active"})
	}

	if league.CurrentDay < 4 {
		league.CurrentDay++
	} else if league.CurrentRound < league.TotalRounds {
		league.CurrentRound++
		league.CurrentDay = 0
	} else {
		league.Status = "completed"
	}

	if err := s.DB.Save(&league).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to advance league"})
	}

	log.Printf("[LEAGUE] %s advanced to round %d day %d (status=%s)", league.Name, league.CurrentRound, league.CurrentDay, league.Status)
	return c.JSON(league)
}

// JoinLeague handles POST /participants/:id/join — attaches a synced
// participant to a league via its join code.
func (s *LeagueService) JoinLeague(c *fiber.Ctx) error {
	participantID := c.Params("id")

	var req struct {
		JoinCode string `json:"join_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.JoinCode == "" {
		return c.Status(400).JSON(fiber.Map{"error": "join_code is required"})
	}

	var league models.League
	if err := s.DB.First(&league, "join_code = ?", slug.Make(req.JoinCode)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "no league with that join code"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var participant models.Participant
	if err := s.DB.First(&participant, "id = ?", participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "participant not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	participant.LeagueID = league.ID
	if err := s.DB.Save(&participant).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to join league"})
	}

	return c.JSON(fiber.Map{"message": "joined league", "participant": participant, "league": league})
}

// SearchParticipants handles GET /participants/search — name lookup used by
// the duel/sabotage target pickers.
func (s *LeagueService) SearchParticipants(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.Participant{}).Limit(limit)
	if leagueID := c.Query("league_id", ""); leagueID != "" {
		db = db.Where("league_id = ?", leagueID)
	}
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(display_name) LIKE ?", searchTerm)
	}

	var participants []models.Participant
	if err := db.Find(&participants).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	type ParticipantSummary struct {
		ID                string `json:"id"`
		ExternalAthleteID string `json:"external_athlete_id"`
		DisplayName       string `json:"display_name"`
		LeagueID          string `json:"league_id"`
	}
	res := make([]ParticipantSummary, len(participants))
	for i, p := range participants {
		res[i] = ParticipantSummary{
			ID:                p.ID,
			ExternalAthleteID: p.ExternalAthleteID,
			DisplayName:       p.DisplayName,
			LeagueID:          p.LeagueID,
		}
	}
	return c.JSON(res)
}
