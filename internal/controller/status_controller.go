// FILE: internal/controller/status_controller.go
// Controller for health and journal status endpoints
package controller

import (
	"grace-checkin-bot/internal/pkg/serverutils"
	"grace-checkin-bot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StatusController interface {
	RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler)
}

type statusController struct {
	status service.StatusProvider
}

func NewStatusController(status service.StatusProvider) StatusController {
	return &statusController{status: status}
}

func (c *statusController) RegisterRoutes(api fiber.Router, jwtMiddleware fiber.Handler) {
	api.Get("/health", c.Health)

	admin := api.Group("/journal", jwtMiddleware)
	admin.Get("/status", c.JournalStatus)
}

func (c *statusController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{"status": "up"}))
}

// JournalStatus returns the last commit and record counts, mirroring what
// the status chat command reports.
func (c *statusController) JournalStatus(ctx *fiber.Ctx) error {
	commit, err := c.status.LastCommitShort(ctx.Context())
	if err != nil {
		commit = "unknown"
	}
	plaintext, encrypted := c.status.RecordCounts()

	return ctx.JSON(serverutils.SuccessResponse("Journal status retrieved", fiber.Map{
		"last_commit":       commit,
		"plaintext_records": plaintext,
		"encrypted_records": encrypted,
	}))
}
