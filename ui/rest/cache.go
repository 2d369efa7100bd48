package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/utils"
)

type Cache struct {
	Namespaces map[string]*cachestore.Cache
}

func InitRestCache(app fiber.Router, namespaces map[string]*cachestore.Cache) Cache {
	rest := Cache{Namespaces: namespaces}
	app.Get("/api/cache/stats", rest.GetStats)
	app.Post("/api/cache/clear", rest.ClearAll)
	app.Post("/api/cache/:namespace/clear", rest.ClearNamespace)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	stats := make(map[string]cachestore.Stats, len(handler.Namespaces))
	for name, cache := range handler.Namespaces {
		stats[name] = cache.Stats(c.UserContext())
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: stats,
	})
}

func (handler *Cache) ClearAll(c *fiber.Ctx) error {
	for _, cache := range handler.Namespaces {
		cache.Clear(c.UserContext())
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "All caches cleared successfully",
	})
}

func (handler *Cache) ClearNamespace(c *fiber.Ctx) error {
	name := c.Params("namespace")
	cache, ok := handler.Namespaces[name]
	if !ok {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND_ERROR",
			Message: "unknown cache namespace: " + name,
		})
	}
	cache.Clear(c.UserContext())
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache namespace cleared successfully",
	})
}
