package mapping

import (
	"docstream/internal/common/api"
	"docstream/internal/config"
	"docstream/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MappingApi struct {
	controller *MappingController
	config     *config.Config
}

func NewMappingApi(controller *MappingController, config *config.Config) api.Route {
	return &MappingApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all mapping routes
func (h *MappingApi) Setup(app *fiber.App) {
	group := app.Group("/api/event/mappings", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.CreateMapping)
	group.Get("/", h.controller.ListMappings)
	group.Get("/:name", h.controller.GetMapping)
	group.Put("/:name", h.controller.UpdateMapping)
	group.Delete("/:name", h.controller.DeleteMapping)
}
