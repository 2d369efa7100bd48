package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/truthlens/truthlens/core/config"
	infraValkey "github.com/truthlens/truthlens/infrastructure/valkey"
	"github.com/truthlens/truthlens/pkg/utils"
	"github.com/truthlens/truthlens/verifier"
)

type Health struct {
	Chain  *verifier.Chain
	Valkey *infraValkey.Client
}

func InitRestHealth(app fiber.Router, chain *verifier.Chain, valkey *infraValkey.Client) Health {
	handler := Health{Chain: chain, Valkey: valkey}

	group := app.Group("/api/health")
	group.Get("/status", handler.GetStatus)
	app.Get("/api/app/settings", handler.GetSettings)

	return handler
}

// GetSettings exposes the non-secret runtime configuration.
func (h *Health) GetSettings(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings retrieved",
		Results: config.GetAllSettings(),
	})
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	valkeyStatus := "disabled"
	if h.Valkey != nil {
		valkeyStatus = "disconnected"
		if h.Valkey.IsConnected() {
			valkeyStatus = "connected"
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: fiber.Map{
			"version":   config.Global.App.Version,
			"providers": h.Chain.Providers(),
			"valkey":    valkeyStatus,
		},
	})
}
