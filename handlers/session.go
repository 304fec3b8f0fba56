package handlers

import (
	"github.com/dedestem/opdevlucht-backend/services"
	"github.com/gofiber/fiber/v2"
)

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService) {
	app.Post("/join-match", sessionService.JoinMatch)
	app.Post("/change-role", sessionService.ChangeRole)
	app.Post("/leave-match", sessionService.LeaveMatch)
	app.Get("/match-players/:joincode", sessionService.GetMatchPlayers)
}
