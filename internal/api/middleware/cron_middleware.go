package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const CronSecretHeader = "X-Cron-Secret"

// CronSecret guards the trigger endpoints with a shared secret sent either as a
// bearer token or in the X-Cron-Secret header. An empty secret rejects everything.
func CronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := bearerToken(c)
		if provided == "" {
			provided = c.Get(CronSecretHeader)
		}

		if secret == "" || provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized",
			})
		}
		return c.Next()
	}
}
