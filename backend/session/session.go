// Package session carries the authenticated student identity explicitly
// through data-access calls instead of a process-wide auth store.
package session

import (
	"context"

	"github.com/google/uuid"

	"coursehub/backend/apperr"
)

type Session struct {
	StudentID   uuid.UUID
	AccessToken string
}

func New(studentID uuid.UUID, accessToken string) Session {
	return Session{StudentID: studentID, AccessToken: accessToken}
}

// Validate fails with an auth error when no student has been resolved.
func (s Session) Validate() error {
	if s.StudentID == uuid.Nil {
		return apperr.Auth("missing session")
	}
	return nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
