package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	domainHistory "github.com/truthlens/truthlens/domains/history"
	"github.com/truthlens/truthlens/pkg/utils"
)

type History struct {
	Service domainHistory.IHistoryUsecase
}

func InitRestHistory(app fiber.Router, service domainHistory.IHistoryUsecase) History {
	handler := History{Service: service}

	group := app.Group("/api/history")
	group.Get("/", handler.List)
	group.Get("/:slug", handler.GetBySlug)
	group.Delete("/:id", handler.Delete)

	return handler
}

func (h *History) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	records, err := h.Service.List(c.UserContext(), limit)
	utils.PanicIfNeeded(err)
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History retrieved",
		Results: records,
	})
}

func (h *History) GetBySlug(c *fiber.Ctx) error {
	record, err := h.Service.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History record retrieved",
		Results: record,
	})
}

func (h *History) Delete(c *fiber.Ctx) error {
	if err := h.Service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History record deleted",
	})
}
