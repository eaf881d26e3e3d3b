package handlers

import (
	"elevation-league-system/middleware"
	"elevation-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeagueRoutes(app *fiber.App, leagueService *services.LeagueService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/leagues", leagueService.GetAllLeagues)
	secured.Get("/leagues/:id", leagueService.GetLeague)
	secured.Get("/participants/search", leagueService.SearchParticipants)
	secured.Post("/participants/:id/join", leagueService.JoinLeague)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/leagues", leagueService.CreateLeague)
	admin.Post("/leagues/:id/advance", leagueService.AdvanceLeague)
}
