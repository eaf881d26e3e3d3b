package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"elevation-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// lockTimeout bounds how long an activation waits for a participant's turn
// before failing with ErrBusy instead of blocking.
const lockTimeout = 2 * time.Second

type BonusService struct {
	DB      *gorm.DB
	Catalog *BonusCatalog

	// one weight-1 semaphore per participant id, created lazily
	locks sync.Map
}

func NewBonusService(db *gorm.DB, catalog *BonusCatalog) *BonusService {
	return &BonusService{DB: db, Catalog: catalog}
}

func (s *BonusService) lockFor(participantID string) *semaphore.Weighted {
	v, _ := s.locks.LoadOrStore(participantID, semaphore.NewWeighted(1))
	return v.(*semaphore.Weighted)
}

// Activate runs the full activation sequence for one participant:
// validate → decrement stock → record usage, serialized per participant and
// committed as a single transaction so a failure can never leave stock
// decremented without a usage record (or the reverse).
func (s *BonusService) Activate(req ActivationRequest) (*models.BonusUsage, models.StockState, error) {
	var participant models.Participant
	if err := s.DB.First(&participant, "id = ?", req.ParticipantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, ErrStorageUnavailable
	}

	var league models.League
	if err := s.DB.First(&league, "id = ?", participant.LeagueID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, ErrStorageUnavailable
	}
	if req.Round == 0 {
		req.Round = league.CurrentRound
	}
	rctx := RoundContext{IsFinalDay: league.IsFinalDay(), IsFinalRound: league.IsFinalRound()}

	// Denormalize the target name up front; an unknown target is a client error,
	// not something to discover after mutating state.
	var targetName *string
	if req.TargetID != nil && *req.TargetID != "" {
		var target models.Participant
		if err := s.DB.First(&target, "id = ?", *req.TargetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrNotFound
			}
			return nil, nil, ErrStorageUnavailable
		}
		targetName = &target.DisplayName
	}

	lock := s.lockFor(req.ParticipantID)
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, nil, ErrBusy
	}
	defer lock.Release(1)

	stock, err := s.GetStock(req.ParticipantID)
	if err != nil {
		return nil, nil, err
	}
	prior, err := s.findActiveOrResolved(s.DB, req.ParticipantID, req.BonusType, req.Round)
	if err != nil {
		return nil, nil, err
	}

	approval, err := validateActivation(s.Catalog, req, stock, prior, rctx)
	if err != nil {
		return nil, nil, err
	}

	usage := &models.BonusUsage{
		ID:              uuid.NewString(),
		ParticipantID:   req.ParticipantID,
		ParticipantName: participant.DisplayName,
		BonusType:       approval.Request.BonusType,
		Round:           approval.Request.Round,
		TargetID:        approval.Request.TargetID,
		TargetName:      targetName,
		CriteriaID:      approval.Request.CriteriaID,
		DayIndex:        approval.Request.DayIndex,
		Status:          models.UsageStatusActive,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.decrementStock(tx, req.ParticipantID, req.BonusType); err != nil {
			return err
		}
		return s.recordUsage(tx, usage)
	})
	if err != nil {
		return nil, nil, err
	}

	remaining, err := s.GetStock(req.ParticipantID)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[BONUS] %s (%s) activated %s for round %d", participant.DisplayName, req.ParticipantID, req.BonusType, usage.Round)
	return usage, remaining, nil
}

// --- Fiber handlers ---

// ActivateBonus handles POST /bonuses/activate
func (s *BonusService) ActivateBonus(c *fiber.Ctx) error {
	var req ActivationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.ParticipantID == "" || req.BonusType == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participant_id and bonus_type are required"})
	}

	usage, remaining, err := s.Activate(req)
	if err != nil {
		return bonusError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"usage":           usage,
		"remaining_stock": remaining,
	})
}

// ListBonusState handles GET /leagues/:id/bonuses — full bonus dashboard for a
// league: every participant with their stock, all usages, and the catalog.
// Read-only: partial storage failures degrade to empty collections.
func (s *BonusService) ListBonusState(c *fiber.Ctx) error {
	leagueID := c.Params("id")

	var participants []models.Participant
	if err := s.DB.Where("league_id = ?", leagueID).Order("display_name ASC").Find(&participants).Error; err != nil {
		log.Printf("[BONUS] Failed to list participants for league %s: %v", leagueID, err)
		participants = []models.Participant{}
	}

	type participantState struct {
		models.Participant
		Stock models.StockState `json:"stock"`
	}
	states := make([]participantState, 0, len(participants))
	for _, p := range participants {
		stock, err := s.GetStock(p.ID)
		if err != nil {
			log.Printf("[BONUS] Failed to read stock for %s: %v", p.ID, err)
			stock = s.Catalog.InitialStock()
		}
		states = append(states, participantState{Participant: p, Stock: stock})
	}

	usages, err := s.UsagesForLeague(leagueID)
	if err != nil {
		log.Printf("[BONUS] Failed to list usages for league %s: %v", leagueID, err)
		usages = []models.BonusUsage{}
	}

	return c.JSON(fiber.Map{
		"participants": states,
		"usages":       usages,
		"catalog":      s.Catalog.Configs(),
	})
}

// SetStock handles PUT /admin/participants/:id/stock
func (s *BonusService) SetStock(c *fiber.Ctx) error {
	participantID := c.Params("id")

	var req models.StockState
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	var participant models.Participant
	if err := s.DB.First(&participant, "id = ?", participantID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "participant not found"})
	}

	stock, err := s.SetStockState(participantID, req)
	if err != nil {
		return bonusError(c, err)
	}
	return c.JSON(fiber.Map{"participant_id": participantID, "stock": stock})
}

// ResetStock handles POST /admin/leagues/:id/stock/reset
func (s *BonusService) ResetStock(c *fiber.Ctx) error {
	leagueID := c.Params("id")
	count, err := s.ResetAllStock(leagueID)
	if err != nil {
		return bonusError(c, err)
	}
	return c.JSON(fiber.Map{"message": "stock reset to catalog defaults", "participants_affected": count})
}

// ListActiveForRound handles GET /rounds/:round/bonuses — active usages of a
// round grouped by bonus type.
func (s *BonusService) ListActiveForRound(c *fiber.Ctx) error {
	round, err := c.ParamsInt("round")
	if err != nil || round < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "round must be a positive integer"})
	}

	usages, err := s.ActiveForRound(round)
	if err != nil {
		log.Printf("[BONUS] Failed to list active usages for round %d: %v", round, err)
		usages = []models.BonusUsage{}
	}

	grouped := make(map[models.BonusType][]models.BonusUsage)
	for _, cfg := range s.Catalog.Configs() {
		grouped[cfg.Type] = []models.BonusUsage{}
	}
	for _, u := range usages {
		grouped[u.BonusType] = append(grouped[u.BonusType], u)
	}

	return c.JSON(fiber.Map{"round": round, "bonuses": grouped})
}

// ResolveUsage handles POST /admin/bonuses/:id/resolve
func (s *BonusService) ResolveUsage(c *fiber.Ctx) error {
	usageID := c.Params("id")

	var req struct {
		Result string `json:"result"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	usage, err := s.ResolveUsageByID(usageID, req.Result)
	if err != nil {
		return bonusError(c, err)
	}
	return c.JSON(usage)
}

// CancelUsage handles POST /admin/bonuses/:id/cancel
func (s *BonusService) CancelUsage(c *fiber.Ctx) error {
	usage, err := s.CancelUsageByID(c.Params("id"))
	if err != nil {
		return bonusError(c, err)
	}
	return c.JSON(fiber.Map{"message": "usage cancelled", "usage": usage})
}

// ComputeAdjustedRanking handles POST /rankings/adjusted — applies a round's
// active bonuses to a caller-supplied ranking snapshot.
func (s *BonusService) ComputeAdjustedRanking(c *fiber.Ctx) error {
	var req struct {
		Round   int                   `json:"round"`
		Ranking []models.RankingEntry `json:"ranking"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Round < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "round must be a positive integer"})
	}

	usages, err := s.ActiveForRound(req.Round)
	if err != nil {
		return bonusError(c, err)
	}

	ranking, effects := ApplyBonusEffects(req.Ranking, usages, s.Catalog)
	return c.JSON(models.AdjustedRanking{Ranking: ranking, Effects: effects})
}

// bonusError maps engine error kinds to HTTP responses.
func bonusError(c *fiber.Ctx, err error) error {
	status := 500
	switch {
	case errors.Is(err, ErrUnknownBonusType),
		errors.Is(err, ErrMissingDuelParameters),
		errors.Is(err, ErrMissingTarget),
		errors.Is(err, ErrInvalidDayIndex),
		errors.Is(err, ErrValidation):
		status = 400
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrBonusNotUsableNow):
		status = 403
	case errors.Is(err, ErrNotFound):
		status = 404
	case errors.Is(err, ErrAlreadyUsedThisRound), errors.Is(err, ErrDuplicateUsage):
		status = 409
	case errors.Is(err, ErrBusy):
		status = 429
	case errors.Is(err, ErrStorageUnavailable):
		status = 503
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
