package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/training_academy/middleware"
	"github.com/anjiri1684/training_academy/models"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=255"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	user := models.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashedPassword),
		Role:     models.RoleCustomer,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
		}
		h.Log.WithError(err).Error("create user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	})
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var user models.User
	err := h.DB.WithContext(c.UserContext()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil || !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	t, err := middleware.IssueToken(h.Config.JWTSecret, user.ID, user.Role, h.Config.JWTTTL, h.Clock.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}
	return c.JSON(fiber.Map{"token": t, "role": user.Role})
}
