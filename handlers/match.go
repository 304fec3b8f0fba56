package handlers

import (
	"github.com/dedestem/opdevlucht-backend/services"
	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	app.Post("/create-match", matchService.CreateMatch)
	app.Post("/start-match", matchService.StartMatch)
	app.Get("/match-status/:joincode", matchService.GetMatchStatus)
}
