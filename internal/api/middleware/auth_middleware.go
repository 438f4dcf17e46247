package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

type AuthMiddleware struct {
	secretKey  string
	cookieName string
}

func NewAuthMiddleware(secretKey, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{secretKey: secretKey, cookieName: cookieName}
}

// AuthMiddleware accepts the session cookie or an Authorization bearer token.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cookieName)
		if tokenString == "" {
			tokenString = bearerToken(c)
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := utils.ValidateToken(m.secretKey, tokenString)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})

			slog.Info("token validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
