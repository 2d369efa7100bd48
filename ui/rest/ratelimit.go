package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/pkg/utils"
)

type RateLimit struct {
	Limiters map[string]*ratelimit.Limiter
}

func InitRestRateLimit(app fiber.Router, limiters map[string]*ratelimit.Limiter) RateLimit {
	handler := RateLimit{Limiters: limiters}
	app.Get("/api/ratelimit/status", handler.GetStatus)

	return handler
}

func (h *RateLimit) GetStatus(c *fiber.Ctx) error {
	status := make(map[string]ratelimit.Status, len(h.Limiters))
	for name, limiter := range h.Limiters {
		status[name] = limiter.Status()
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Rate limit status retrieved",
		Results: status,
	})
}
