package doctype

import (
	"github.com/gofiber/fiber/v2"
)

type DoctypeController struct {
	Service DoctypeService
}

func NewDoctypeController(service DoctypeService) *DoctypeController {
	return &DoctypeController{
		Service: service,
	}
}

func (ctrl *DoctypeController) CreateDoctype(c *fiber.Ctx) error {
	var dt Doctype
	if err := c.BodyParser(&dt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateDoctype(c.Context(), &dt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Doctype created successfully",
		"data":    dt,
	})
}

func (ctrl *DoctypeController) ListDoctypes(c *fiber.Ctx) error {
	doctypes, err := ctrl.Service.ListDoctypes(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": doctypes,
	})
}

func (ctrl *DoctypeController) GetDoctype(c *fiber.Ctx) error {
	name := c.Params("name")

	dt, err := ctrl.Service.Get(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(dt)
}

func (ctrl *DoctypeController) UpdateDoctype(c *fiber.Ctx) error {
	name := c.Params("name")

	var dt Doctype
	if err := c.BodyParser(&dt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	dt.Name = name

	if err := ctrl.Service.UpdateDoctype(c.Context(), &dt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Doctype updated successfully",
	})
}

func (ctrl *DoctypeController) DeleteDoctype(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := ctrl.Service.DeleteDoctype(c.Context(), name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Doctype deleted successfully",
	})
}
