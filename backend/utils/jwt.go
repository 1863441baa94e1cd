package utils

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"coursehub/backend/config"
)

// GenerateJWTToken issues a token for a student. Tokens normally come from the
// hosted auth provider; this is used by local tooling and tests.
func GenerateJWTToken(studentID uuid.UUID, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"sub": studentID.String(),
		"exp": time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ExtractStudentIDFromToken returns the bearer token and the student id in its
// "sub" (or legacy "user_id") claim.
func ExtractStudentIDFromToken(c *fiber.Ctx, cfg *config.Config) (uuid.UUID, string, error) {
	tokenString := strings.TrimSpace(c.Get("Authorization"))
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})

	if err != nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	raw, ok := claims["sub"].(string)
	if !ok {
		raw, ok = claims["user_id"].(string)
	}
	if !ok {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid student ID in token")
	}
	studentID, err := uuid.Parse(raw)
	if err != nil || studentID == uuid.Nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusUnauthorized, "Invalid student ID in token")
	}

	return studentID, tokenString, nil
}
