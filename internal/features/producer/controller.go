package producer

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ProducerController struct {
	Service ProducerService
	Hub     *Hub
}

func NewProducerController(service ProducerService, hub *Hub) *ProducerController {
	return &ProducerController{
		Service: service,
		Hub:     hub,
	}
}

func (ctrl *ProducerController) CreateProducer(c *fiber.Ctx) error {
	var p EventProducer
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateProducer(c.Context(), &p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Event producer registered successfully",
		"data":    p,
	})
}

func (ctrl *ProducerController) ListProducers(c *fiber.Ctx) error {
	producers, err := ctrl.Service.ListProducers(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": producers,
	})
}

func (ctrl *ProducerController) GetProducer(c *fiber.Ctx) error {
	id := c.Params("id")

	p, err := ctrl.Service.GetProducer(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(p)
}

func (ctrl *ProducerController) UpdateProducer(c *fiber.Ctx) error {
	id := c.Params("id")

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.UpdateProducer(c.Context(), id, updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Event producer updated successfully",
	})
}

func (ctrl *ProducerController) DeleteProducer(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.DeleteProducer(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Event producer deleted successfully",
	})
}

func (ctrl *ProducerController) PullProducer(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.PullFromProducer(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Pull completed",
	})
}

func (ctrl *ProducerController) Notify(c *fiber.Ctx) error {
	var body struct {
		ProducerURL string `json:"producer_url"`
	}
	if err := c.BodyParser(&body); err != nil || body.ProducerURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "producer_url is required",
		})
	}

	if err := ctrl.Service.Notify(c.Context(), body.ProducerURL); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Pull scheduled",
	})
}

func (ctrl *ProducerController) Resync(c *fiber.Ctx) error {
	logID := c.Params("logId")

	status, err := ctrl.Service.Resync(c.Context(), logID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": status,
	})
}

func (ctrl *ProducerController) ListLogs(c *fiber.Ctx) error {
	producerURL := c.Query("producer")
	limit := int64(c.QueryInt("limit", 50))

	logs, err := ctrl.Service.ListLogs(c.Context(), producerURL, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": logs,
	})
}

func (ctrl *ProducerController) ExportLogs(c *fiber.Ctx) error {
	producerURL := c.Query("producer")
	limit := int64(c.QueryInt("limit", 1000))

	data, filename, err := ctrl.Service.ExportLogs(c.Context(), producerURL, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// HandleWebSocket streams sync events to the connected client until it
// disconnects.
func (ctrl *ProducerController) HandleWebSocket(c *websocket.Conn) {
	ctrl.Hub.Register(c)
	defer func() {
		ctrl.Hub.Unregister(c)
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
