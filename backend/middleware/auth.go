package middleware

import (
	"github.com/gofiber/fiber/v2"

	"coursehub/backend/config"
	"coursehub/backend/session"
	"coursehub/backend/utils"
)

const sessionKey = "session"

// AuthMiddleware resolves the bearer token into a session, stored both in
// Locals and in the user context handed to the progress core.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID, token, err := utils.ExtractStudentIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		sess := session.New(studentID, token)
		c.Locals(sessionKey, sess)
		c.SetUserContext(session.WithSession(c.UserContext(), sess))
		return c.Next()
	}
}

// Session returns the session set by AuthMiddleware.
func Session(c *fiber.Ctx) (session.Session, bool) {
	sess, ok := c.Locals(sessionKey).(session.Session)
	return sess, ok
}
