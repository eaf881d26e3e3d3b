package handlers

import (
	"elevation-league-system/middleware"
	"elevation-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBonusRoutes(app *fiber.App, bonusService *services.BonusService, rankingService *services.RankingService) {
	// 🔓 Live usage feed (league-scoped via ?league_id=)
	app.Get("/bonuses/stream", bonusService.StreamBonusUsagesSSE)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Bonus engine — participant-facing
	secured.Post("/bonuses/activate", bonusService.ActivateBonus)
	secured.Get("/rounds/:round/bonuses", bonusService.ListActiveForRound)
	secured.Get("/leagues/:id/bonuses", bonusService.ListBonusState)

	// Standings
	secured.Get("/leagues/:id/standings", rankingService.GetLeagueStandings)
	secured.Get("/leagues/:id/rounds/:round/standings", rankingService.GetRoundStandings)
	secured.Post("/rankings/adjusted", bonusService.ComputeAdjustedRanking)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Put("/participants/:id/stock", bonusService.SetStock)
	admin.Post("/leagues/:id/stock/reset", bonusService.ResetStock)
	admin.Post("/bonuses/:id/resolve", bonusService.ResolveUsage)
	admin.Post("/bonuses/:id/cancel", bonusService.CancelUsage)
	admin.Put("/participants/:id/rounds/:round/totals", rankingService.SubmitRoundTotals)
}
