package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	config "github.com/kibet254/chat_space/configs"
)

func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
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

// CurrentUserID extracts the authenticated profile id from the JWT parsed by
// Protected(). Returns uuid.Nil when the claim is absent or malformed.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return userID
}
