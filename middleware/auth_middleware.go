package middleware

import (
	"errors"
	"time"

	"github.com/anjiri1684/training_academy/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var errNoIdentity = errors.New("request carries no user identity")

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// IssueToken signs an HS256 token carrying the user id and role.
func IssueToken(secret string, userID uuid.UUID, role models.Role, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

func CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := claims(c)["user_id"].(string)
	if raw == "" {
		return uuid.Nil, errNoIdentity
	}
	return uuid.Parse(raw)
}

func CurrentRole(c *fiber.Ctx) models.Role {
	role, _ := claims(c)["role"].(string)
	return models.Role(role)
}

// RequireRoles lets the request through when the token's role is one of roles.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := CurrentRole(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: " + string(roles[0]) + " access required",
		})
	}
}

func AdminRequired() fiber.Handler { return RequireRoles(models.RoleAdmin) }

func CoachRequired() fiber.Handler { return RequireRoles(models.RoleCoach, models.RoleAdmin) }
