package producer

import (
	"docstream/internal/common/api"
	"docstream/internal/config"
	"docstream/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ProducerApi struct {
	controller *ProducerController
	config     *config.Config
}

func NewProducerApi(controller *ProducerController, config *config.Config) api.Route {
	return &ProducerApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all event streaming routes
func (h *ProducerApi) Setup(app *fiber.App) {
	group := app.Group("/api/event", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/producers", h.controller.CreateProducer)
	group.Get("/producers", h.controller.ListProducers)
	group.Get("/producers/:id", h.controller.GetProducer)
	group.Put("/producers/:id", h.controller.UpdateProducer)
	group.Delete("/producers/:id", h.controller.DeleteProducer)
	group.Post("/producers/:id/pull", h.controller.PullProducer)
	group.Post("/notify", h.controller.Notify)
	group.Post("/resync/:logId", h.controller.Resync)
	group.Get("/logs", h.controller.ListLogs)
	group.Get("/logs/export", h.controller.ExportLogs)

	app.Get("/api/event/ws", websocket.New(h.controller.HandleWebSocket))
}
