package handlers

import (
	"github.com/dedestem/opdevlucht-backend/services"
	"github.com/gofiber/fiber/v2"
)

func SetupLocationRoutes(app *fiber.App, locationService *services.LocationService) {
	app.Post("/send-location", locationService.SendLocation)
	app.Get("/get-criminals-locations", locationService.GetCriminalsLocations)
}
