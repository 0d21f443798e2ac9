package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

const adminRealm = "TrashMap Admin"

// RequireAdmin gates a route group behind HTTP basic auth. The password is
// checked against a bcrypt hash; without a configured hash every request is
// refused.
func RequireAdmin(cfg config.AdminConfig) fiber.Handler {
	if cfg.PasswordHash == "" {
		log.Warn("[Admin] ADMIN_PASSWORD_HASH not set, admin routes are disabled")
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "admin_disabled",
				"message": "admin access is not configured",
			})
		}
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		log.Errorf("[Admin] ADMIN_PASSWORD_HASH is not a bcrypt hash: %v", err)
	}

	hash := []byte(cfg.PasswordHash)
	user := []byte(cfg.Username)

	return basicauth.New(basicauth.Config{
		Realm: adminRealm,
		Authorizer: func(username, password string) bool {
			userOK := subtle.ConstantTimeCompare([]byte(username), user) == 1
			passOK := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
			return userOK && passOK
		},
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, "Basic realm="+adminRealm)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "admin credentials required",
			})
		},
	})
}
