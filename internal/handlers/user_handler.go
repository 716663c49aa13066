package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/models"
	"shopapi/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func publicProfile(u models.User) fiber.Map {
	return fiber.Map{
		"id":       u.ID,
		"fullName": u.FullName,
		"phone":    u.Phone,
		"image":    u.Image,
	}
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var request struct {
		Phone    string `json:"phone"`
		FullName string `json:"fullName"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	user, token, err := h.users.Register(c.Context(), request.Phone, request.FullName, request.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "user created successfully",
		"user":    publicProfile(user),
		"token":   token,
	})
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var request struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	user, token, err := h.users.Login(c.Context(), request.Phone, request.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"user":    publicProfile(user),
		"token":   token,
	})
}

// GetMe returns the authenticated caller's profile using the identity the
// auth middleware stored in locals.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) GetAll(c *fiber.Ctx) error {
	users, err := h.users.GetAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var input services.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	user, err := h.users.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) ToggleBlock(c *fiber.Ctx) error {
	user, err := h.users.ToggleBlock(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	message := "user unblocked"
	if user.IsBlocked {
		message = "user blocked"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"user": fiber.Map{
			"id":        user.ID,
			"fullName":  user.FullName,
			"phone":     user.Phone,
			"isBlocked": user.IsBlocked,
		},
	})
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted successfully"})
}
