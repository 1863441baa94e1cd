package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursehub/backend/apperr"
	"coursehub/backend/middleware"
	"coursehub/backend/session"
)

func currentSession(c *fiber.Ctx) (session.Session, error) {
	sess, ok := middleware.Session(c)
	if !ok {
		return session.Session{}, apperr.Auth("missing session")
	}
	return sess, sess.Validate()
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Invalid("invalid " + name)
	}
	return id, nil
}
