package doctype

import (
	"docstream/internal/common/api"
	"docstream/internal/config"
	"docstream/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DoctypeApi struct {
	controller *DoctypeController
	config     *config.Config
}

func NewDoctypeApi(controller *DoctypeController, config *config.Config) api.Route {
	return &DoctypeApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all doctype routes
func (h *DoctypeApi) Setup(app *fiber.App) {
	group := app.Group("/api/doctypes", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.CreateDoctype)
	group.Get("/", h.controller.ListDoctypes)
	group.Get("/:name", h.controller.GetDoctype)
	group.Put("/:name", h.controller.UpdateDoctype)
	group.Delete("/:name", h.controller.DeleteDoctype)
}
