// Package store defines the data-access collaborator the progress core
// talks to. All persistence, auth and querying live in the hosted backend;
// implementations here are thin adapters over it.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"coursehub/backend/models"
	"coursehub/backend/session"
)

// ProgressPatch is applied to the (student, lesson) row. Completion never
// regresses and watched duration never decreases.
type ProgressPatch struct {
	Completed       bool
	WatchedDuration *int
}

type DataAccess interface {
	GetEnrollments(ctx context.Context, sess session.Session) ([]models.Enrollment, error)
	GetCourses(ctx context.Context, sess session.Session) ([]models.Course, error)
	GetCourseByID(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Course, error)
	GetLessons(ctx context.Context, sess session.Session, courseID uuid.UUID) ([]models.Lesson, error)
	GetLessonProgress(ctx context.Context, sess session.Session) ([]models.LessonProgress, error)

	// UpsertLessonProgress keys on (student, lesson). Completing an already
	// completed lesson returns the stored row together with an
	// apperr.ErrConflictIgnored error.
	UpsertLessonProgress(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID, patch ProgressPatch) (*models.LessonProgress, error)

	Enroll(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.Enrollment, error)
	DeactivateEnrollment(ctx context.Context, sess session.Session, courseID uuid.UUID) error
	UpdateEnrollmentProgress(ctx context.Context, sess session.Session, courseID uuid.UUID, percentage int, completedAt *time.Time) error
}

// EnrollmentLister is implemented by stores that can read across students.
type EnrollmentLister interface {
	ListActiveEnrollments(ctx context.Context) ([]models.Enrollment, error)
}

// ClampPercentage keeps a stored percentage inside [0, 100].
func ClampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
