package rest

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	domainSearch "github.com/truthlens/truthlens/domains/search"
	pkgError "github.com/truthlens/truthlens/pkg/error"
	"github.com/truthlens/truthlens/pkg/utils"
)

type Search struct {
	Service domainSearch.ISearchUsecase
}

func InitRestSearch(app fiber.Router, service domainSearch.ISearchUsecase) Search {
	handler := Search{Service: service}
	app.Get("/api/search", handler.Search)

	return handler
}

func (h *Search) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return respondError(c, pkgError.ValidationError("query parameter q is required"))
	}

	results, err := h.Service.Search(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Search completed",
		Results: results,
	})
}
