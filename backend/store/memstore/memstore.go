// Package memstore is an in-memory DataAccess used for local development and
// as the fixture store in tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
)

type progressKey struct {
	student uuid.UUID
	lesson  uuid.UUID
}

type enrollmentKey struct {
	student uuid.UUID
	course  uuid.UUID
}

type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	courses     map[uuid.UUID]models.Course
	lessons     map[uuid.UUID]models.Lesson
	enrollments map[enrollmentKey]models.Enrollment
	progress    map[progressKey]models.LessonProgress

	// FailWrites makes every write return a network failure; tests use it to
	// exercise rollback paths.
	FailWrites error
}

var (
	_ store.DataAccess       = (*Store)(nil)
	_ store.EnrollmentLister = (*Store)(nil)
)

func New() *Store {
	return &Store{
		now:         time.Now,
		courses:     make(map[uuid.UUID]models.Course),
		lessons:     make(map[uuid.UUID]models.Lesson),
		enrollments: make(map[enrollmentKey]models.Enrollment),
		progress:    make(map[progressKey]models.LessonProgress),
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) SetFailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailWrites = err
}

// PutCourse seeds a course and its lessons.
func (s *Store) PutCourse(course models.Course, lessons ...models.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	course.TotalLessons = len(lessons)
	s.courses[course.ID] = course
	for _, l := range lessons {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.CourseID = course.ID
		s.lessons[l.ID] = l
	}
}

// PutProgress seeds a progress row as-is.
func (s *Store) PutProgress(row models.LessonProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	s.progress[progressKey{row.StudentID, row.LessonID}] = row
}

// ProgressRows returns the number of stored progress rows.
func (s *Store) ProgressRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.progress)
}

func (s *Store) GetEnrollments(ctx context.Context, sess session.Session) ([]models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Enrollment
	for k, e := range s.enrollments {
		if k.student == sess.StudentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, ctx.Err()
}

func (s *Store) ListActiveEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, ctx.Err()
}

func (s *Store) GetCourses(ctx context.Context, sess session.Session) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, ctx.Err()
}

func (s *Store) GetCourseByID(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperr.NotFound("course not found")
	}
	return &c, ctx.Err()
}

func (s *Store) GetLessons(ctx context.Context, sess session.Session, courseID uuid.UUID) ([]models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Lesson
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, ctx.Err()
}

func (s *Store) GetLessonProgress(ctx context.Context, sess session.Session) ([]models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LessonProgress
	for k, p := range s.progress {
		if k.student == sess.StudentID {
			out = append(out, p)
		}
	}
	return out, ctx.Err()
}

func (s *Store) UpsertLessonProgress(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID, patch store.ProgressPatch) (*models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return nil, s.FailWrites
	}
	lesson, ok := s.lessons[lessonID]
	if !ok || lesson.CourseID != courseID {
		return nil, apperr.NotFound("lesson not found")
	}

	now := s.now()
	key := progressKey{sess.StudentID, lessonID}
	row, exists := s.progress[key]
	if !exists {
		row = models.LessonProgress{
			ID:        uuid.New(),
			StudentID: sess.StudentID,
			CourseID:  courseID,
			LessonID:  lessonID,
			CreatedAt: now,
		}
	}

	var conflict bool
	if patch.WatchedDuration != nil && *patch.WatchedDuration > row.WatchedDuration {
		row.WatchedDuration = *patch.WatchedDuration
	}
	if patch.Completed {
		if row.IsCompleted {
			conflict = true
		} else {
			row.IsCompleted = true
			row.CompletedAt = &now
		}
	}
	row.UpdatedAt = now
	s.progress[key] = row

	if conflict {
		return &row, apperr.Conflict("lesson already completed")
	}
	return &row, nil
}

func (s *Store) Enroll(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return nil, s.FailWrites
	}
	if _, ok := s.courses[courseID]; !ok {
		return nil, apperr.NotFound("course not found")
	}
	key := enrollmentKey{sess.StudentID, courseID}
	e, ok := s.enrollments[key]
	if !ok {
		e = models.Enrollment{
			ID:         uuid.New(),
			StudentID:  sess.StudentID,
			CourseID:   courseID,
			EnrolledAt: s.now(),
		}
	}
	e.IsActive = true
	e.UpdatedAt = s.now()
	s.enrollments[key] = e
	return &e, ctx.Err()
}

func (s *Store) DeactivateEnrollment(ctx context.Context, sess session.Session, courseID uuid.UUID) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollmentKey{sess.StudentID, courseID}
	e, ok := s.enrollments[key]
	if !ok {
		return apperr.NotFound("enrollment not found")
	}
	e.IsActive = false
	e.UpdatedAt = s.now()
	s.enrollments[key] = e
	return ctx.Err()
}

func (s *Store) UpdateEnrollmentProgress(ctx context.Context, sess session.Session, courseID uuid.UUID, percentage int, completedAt *time.Time) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	key := enrollmentKey{sess.StudentID, courseID}
	e, ok := s.enrollments[key]
	if !ok {
		return apperr.NotFound("enrollment not found")
	}
	e.ProgressPercentage = store.ClampPercentage(percentage)
	if e.CompletedAt == nil || completedAt == nil {
		e.CompletedAt = completedAt
	}
	e.UpdatedAt = s.now()
	s.enrollments[key] = e
	return ctx.Err()
}
