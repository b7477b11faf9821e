package mapping

import (
	"github.com/gofiber/fiber/v2"
)

type MappingController struct {
	Service Service
}

func NewMappingController(service Service) *MappingController {
	return &MappingController{
		Service: service,
	}
}

func (ctrl *MappingController) CreateMapping(c *fiber.Ctx) error {
	var m DoctypeMapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateMapping(c.Context(), &m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Mapping created successfully",
		"data":    m,
	})
}

func (ctrl *MappingController) ListMappings(c *fiber.Ctx) error {
	mappings, err := ctrl.Service.ListMappings(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": mappings,
	})
}

func (ctrl *MappingController) GetMapping(c *fiber.Ctx) error {
	name := c.Params("name")

	m, err := ctrl.Service.GetMapping(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(m)
}

func (ctrl *MappingController) UpdateMapping(c *fiber.Ctx) error {
	name := c.Params("name")

	var m DoctypeMapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	m.Name = name

	if err := ctrl.Service.UpdateMapping(c.Context(), &m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping updated successfully",
	})
}

func (ctrl *MappingController) DeleteMapping(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := ctrl.Service.DeleteMapping(c.Context(), name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Mapping deleted successfully",
	})
}
