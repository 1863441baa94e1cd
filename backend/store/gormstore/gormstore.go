// Package gormstore implements store.DataAccess on a relational database
// through gorm. Production runs on postgres; tests run on sqlite.
package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

type Store struct {
	db  *gorm.DB
	log *utils.Logger
	now func() time.Time
}

var (
	_ store.DataAccess       = (*Store)(nil)
	_ store.EnrollmentLister = (*Store)(nil)
)

func New(db *gorm.DB, baseLog *utils.Logger) *Store {
	return &Store{db: db, log: baseLog.With("store", "gorm"), now: time.Now}
}

// AutoMigrate creates the tables the progress core reads and writes.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
	)
}

func wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op + ": not found")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return apperr.Network(op, err)
}

func (s *Store) GetEnrollments(ctx context.Context, sess session.Session) ([]models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var results []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("student_id = ?", sess.StudentID).
		Order("enrolled_at ASC").
		Find(&results).Error
	return results, wrap(ctx, "get enrollments", err)
}

func (s *Store) ListActiveEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	var results []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&results).Error
	return results, wrap(ctx, "list enrollments", err)
}

func (s *Store) GetCourses(ctx context.Context, sess session.Session) ([]models.Course, error) {
	var results []models.Course
	err := s.db.WithContext(ctx).Order("title ASC").Find(&results).Error
	return results, wrap(ctx, "get courses", err)
}

func (s *Store) GetCourseByID(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, wrap(ctx, "get course", err)
	}
	return &course, nil
}

func (s *Store) GetLessons(ctx context.Context, sess session.Session, courseID uuid.UUID) ([]models.Lesson, error) {
	var results []models.Lesson
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_index ASC").
		Find(&results).Error
	return results, wrap(ctx, "get lessons", err)
}

func (s *Store) GetLessonProgress(ctx context.Context, sess session.Session) ([]models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var results []models.LessonProgress
	err := s.db.WithContext(ctx).
		Where("student_id = ?", sess.StudentID).
		Find(&results).Error
	return results, wrap(ctx, "get lesson progress", err)
}

// UpsertLessonProgress inserts the row if absent and then applies guarded
// updates, so concurrent writers for the same (student, lesson) converge on
// one row and only one of them observes the completion transition.
func (s *Store) UpsertLessonProgress(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID, patch store.ProgressPatch) (*models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	var (
		row       models.LessonProgress
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson models.Lesson
		if err := tx.Where("id = ? AND course_id = ?", lessonID, courseID).First(&lesson).Error; err != nil {
			return err
		}

		now := s.now()
		seed := models.LessonProgress{
			ID:        uuid.New(),
			StudentID: sess.StudentID,
			CourseID:  courseID,
			LessonID:  lessonID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		scope := tx.Model(&models.LessonProgress{}).
			Where("student_id = ? AND lesson_id = ?", sess.StudentID, lessonID).
			Session(&gorm.Session{})

		if patch.WatchedDuration != nil {
			if err := scope.
				Where("watched_duration < ?", *patch.WatchedDuration).
				Updates(map[string]interface{}{
					"watched_duration": *patch.WatchedDuration,
					"updated_at":       now,
				}).Error; err != nil {
				return err
			}
		}

		if patch.Completed {
			res := scope.
				Where("is_completed = ?", false).
				Updates(map[string]interface{}{
					"is_completed": true,
					"completed_at": now,
					"updated_at":   now,
				})
			if res.Error != nil {
				return res.Error
			}
			completed = res.RowsAffected == 1
		}

		return tx.Where("student_id = ? AND lesson_id = ?", sess.StudentID, lessonID).First(&row).Error
	})
	if err != nil {
		return nil, wrap(ctx, "upsert lesson progress", err)
	}

	if patch.Completed && !completed {
		s.log.Debug("duplicate completion ignored", "student_id", sess.StudentID, "lesson_id", lessonID)
		return &row, apperr.Conflict("lesson already completed")
	}
	return &row, nil
}

func (s *Store) Enroll(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Where("id = ?", courseID).First(&course).Error; err != nil {
			return err
		}
		now := s.now()
		seed := models.Enrollment{
			ID:         uuid.New(),
			StudentID:  sess.StudentID,
			CourseID:   courseID,
			EnrolledAt: now,
			IsActive:   true,
			UpdatedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true, "updated_at": now}),
		}).Create(&seed).Error; err != nil {
			return err
		}
		return tx.Where("student_id = ? AND course_id = ?", sess.StudentID, courseID).First(&enrollment).Error
	})
	if err != nil {
		return nil, wrap(ctx, "enroll", err)
	}
	return &enrollment, nil
}

func (s *Store) DeactivateEnrollment(ctx context.Context, sess session.Session, courseID uuid.UUID) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", sess.StudentID, courseID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": s.now()})
	if res.Error != nil {
		return wrap(ctx, "deactivate enrollment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}

func (s *Store) UpdateEnrollmentProgress(ctx context.Context, sess session.Session, courseID uuid.UUID, percentage int, completedAt *time.Time) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	updates := map[string]interface{}{
		"progress_percentage": store.ClampPercentage(percentage),
		"updated_at":          s.now(),
	}
	if completedAt == nil {
		updates["completed_at"] = nil
	} else {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", *completedAt)
	}
	res := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", sess.StudentID, courseID).
		Updates(updates)
	if res.Error != nil {
		return wrap(ctx, "update enrollment progress", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}
