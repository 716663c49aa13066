package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/services"
)

type ProductHandler struct {
	products *services.ProductService
}

func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var input services.CreateProductInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	product, err := h.products.Create(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// List returns all products, or only those authored by ?userId=.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.products.List(c.Context(), c.Query("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	product, err := h.products.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var input services.UpdateProductInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	product, err := h.products.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	if err := h.products.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "product deleted successfully"})
}

func (h *ProductHandler) AddAuthor(c *fiber.Ctx) error {
	var request struct {
		AuthorID   string `json:"authorId"`
		AuthorName string `json:"authorName"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	product, err := h.products.AddAuthor(c.Context(), c.Params("id"), request.AuthorID, request.AuthorName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) AddRating(c *fiber.Ctx) error {
	var request struct {
		UserID  string `json:"userId"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	product, err := h.products.AddRating(c.Context(), c.Params("id"), request.UserID, request.Rating, request.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}
