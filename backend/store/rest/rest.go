// Package rest implements store.DataAccess against the hosted backend's
// REST interface (PostgREST dialect: /rest/v1/<table>, col=eq.value filters).
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

const (
	tableEnrollments = "enrollments"
	tableCourses     = "courses"
	tableLessons     = "lessons"
	tableProgress    = "lesson_progress"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Store struct {
	client *resty.Client
	apiKey string
	log    *utils.Logger
	now    func() time.Time
}

var (
	_ store.DataAccess       = (*Store)(nil)
	_ store.EnrollmentLister = (*Store)(nil)
)

func New(cfg Config, baseLog *utils.Logger) *Store {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Store{
		client: client,
		apiKey: cfg.APIKey,
		log:    baseLog.With("store", "rest"),
		now:    time.Now,
	}
}

func eq(v interface{}) string { return fmt.Sprintf("eq.%v", v) }

// request authenticates as the student when a token is present and as the
// service key otherwise.
func (s *Store) request(ctx context.Context, sess session.Session) *resty.Request {
	token := sess.AccessToken
	if token == "" {
		token = s.apiKey
	}
	return s.client.R().SetContext(ctx).SetAuthToken(token)
}

func (s *Store) check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperr.Network(op, err)
	}
	if !resp.IsError() {
		return nil
	}
	status := resp.StatusCode()
	s.log.Warn("backend request failed", "op", op, "status", status, "body", resp.String())
	cause := errors.New(resp.Status())
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.New(apperr.KindAuth, op, cause)
	case status == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, op, cause)
	case status >= 500:
		return apperr.Network(op, cause)
	default:
		return apperr.New(apperr.KindInvalid, op, cause)
	}
}

func (s *Store) GetEnrollments(ctx context.Context, sess session.Session) ([]models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var out []models.Enrollment
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{
			"select":     "*",
			"student_id": eq(sess.StudentID),
			"order":      "enrolled_at.asc",
		}).
		SetResult(&out).
		Get("/rest/v1/" + tableEnrollments)
	return out, s.check(ctx, "get enrollments", resp, err)
}

func (s *Store) ListActiveEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	var out []models.Enrollment
	resp, err := s.request(ctx, session.Session{}).
		SetQueryParams(map[string]string{
			"select":    "*",
			"is_active": eq(true),
		}).
		SetResult(&out).
		Get("/rest/v1/" + tableEnrollments)
	return out, s.check(ctx, "list enrollments", resp, err)
}

func (s *Store) GetCourses(ctx context.Context, sess session.Session) ([]models.Course, error) {
	var out []models.Course
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{"select": "*", "order": "title.asc"}).
		SetResult(&out).
		Get("/rest/v1/" + tableCourses)
	return out, s.check(ctx, "get courses", resp, err)
}

func (s *Store) GetCourseByID(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Course, error) {
	var out []models.Course
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{"select": "*", "id": eq(id)}).
		SetResult(&out).
		Get("/rest/v1/" + tableCourses)
	if err := s.check(ctx, "get course", resp, err); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("course not found")
	}
	return &out[0], nil
}

func (s *Store) GetLessons(ctx context.Context, sess session.Session, courseID uuid.UUID) ([]models.Lesson, error) {
	var out []models.Lesson
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{
			"select":    "*",
			"course_id": eq(courseID),
			"order":     "order_index.asc",
		}).
		SetResult(&out).
		Get("/rest/v1/" + tableLessons)
	return out, s.check(ctx, "get lessons", resp, err)
}

func (s *Store) GetLessonProgress(ctx context.Context, sess session.Session) ([]models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	var out []models.LessonProgress
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{"select": "*", "student_id": eq(sess.StudentID)}).
		SetResult(&out).
		Get("/rest/v1/" + tableProgress)
	return out, s.check(ctx, "get lesson progress", resp, err)
}

// UpsertLessonProgress relies on the backend's unique (student_id, lesson_id)
// constraint: the seed insert ignores duplicates and the completion PATCH is
// filtered on is_completed=false, so only one writer sees the transition.
func (s *Store) UpsertLessonProgress(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID, patch store.ProgressPatch) (*models.LessonProgress, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	const op = "upsert lesson progress"

	var lessons []models.Lesson
	resp, err := s.request(ctx, sess).
		SetQueryParams(map[string]string{"select": "id,course_id", "id": eq(lessonID), "course_id": eq(courseID)}).
		SetResult(&lessons).
		Get("/rest/v1/" + tableLessons)
	if err := s.check(ctx, op, resp, err); err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return nil, apperr.NotFound("lesson not found")
	}

	now := s.now().UTC()
	resp, err = s.request(ctx, sess).
		SetHeader("Prefer", "resolution=ignore-duplicates,return=minimal").
		SetQueryParam("on_conflict", "student_id,lesson_id").
		SetBody(map[string]interface{}{
			"id":               uuid.New(),
			"student_id":       sess.StudentID,
			"course_id":        courseID,
			"lesson_id":        lessonID,
			"is_completed":     false,
			"watched_duration": 0,
		}).
		Post("/rest/v1/" + tableProgress)
	if err := s.check(ctx, op, resp, err); err != nil {
		return nil, err
	}

	rowFilter := map[string]string{
		"student_id": eq(sess.StudentID),
		"lesson_id":  eq(lessonID),
	}

	if patch.WatchedDuration != nil {
		resp, err = s.request(ctx, sess).
			SetHeader("Prefer", "return=minimal").
			SetQueryParams(rowFilter).
			SetQueryParam("watched_duration", fmt.Sprintf("lt.%d", *patch.WatchedDuration)).
			SetBody(map[string]interface{}{"watched_duration": *patch.WatchedDuration, "updated_at": now}).
			Patch("/rest/v1/" + tableProgress)
		if err := s.check(ctx, op, resp, err); err != nil {
			return nil, err
		}
	}

	completed := false
	if patch.Completed {
		var changed []models.LessonProgress
		resp, err = s.request(ctx, sess).
			SetHeader("Prefer", "return=representation").
			SetQueryParams(rowFilter).
			SetQueryParam("is_completed", eq(false)).
			SetBody(map[string]interface{}{"is_completed": true, "completed_at": now, "updated_at": now}).
			SetResult(&changed).
			Patch("/rest/v1/" + tableProgress)
		if err := s.check(ctx, op, resp, err); err != nil {
			return nil, err
		}
		completed = len(changed) > 0
	}

	var rows []models.LessonProgress
	resp, err = s.request(ctx, sess).
		SetQueryParam("select", "*").
		SetQueryParams(rowFilter).
		SetResult(&rows).
		Get("/rest/v1/" + tableProgress)
	if err := s.check(ctx, op, resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("lesson progress not found")
	}

	if patch.Completed && !completed {
		return &rows[0], apperr.Conflict("lesson already completed")
	}
	return &rows[0], nil
}

func (s *Store) Enroll(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetCourseByID(ctx, sess, courseID); err != nil {
		return nil, err
	}
	const op = "enroll"
	now := s.now().UTC()
	resp, err := s.request(ctx, sess).
		SetHeader("Prefer", "resolution=ignore-duplicates,return=minimal").
		SetQueryParam("on_conflict", "student_id,course_id").
		SetBody(map[string]interface{}{
			"id":                  uuid.New(),
			"student_id":          sess.StudentID,
			"course_id":           courseID,
			"enrolled_at":         now,
			"progress_percentage": 0,
			"is_active":           true,
		}).
		Post("/rest/v1/" + tableEnrollments)
	if err := s.check(ctx, op, resp, err); err != nil {
		return nil, err
	}

	var rows []models.Enrollment
	resp, err = s.request(ctx, sess).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{"student_id": eq(sess.StudentID), "course_id": eq(courseID)}).
		SetBody(map[string]interface{}{"is_active": true, "updated_at": now}).
		SetResult(&rows).
		Patch("/rest/v1/" + tableEnrollments)
	if err := s.check(ctx, op, resp, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("enrollment not found")
	}
	return &rows[0], nil
}

func (s *Store) DeactivateEnrollment(ctx context.Context, sess session.Session, courseID uuid.UUID) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	var rows []models.Enrollment
	resp, err := s.request(ctx, sess).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{"student_id": eq(sess.StudentID), "course_id": eq(courseID)}).
		SetBody(map[string]interface{}{"is_active": false, "updated_at": s.now().UTC()}).
		SetResult(&rows).
		Patch("/rest/v1/" + tableEnrollments)
	if err := s.check(ctx, "deactivate enrollment", resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}

func (s *Store) UpdateEnrollmentProgress(ctx context.Context, sess session.Session, courseID uuid.UUID, percentage int, completedAt *time.Time) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	body := map[string]interface{}{
		"progress_percentage": store.ClampPercentage(percentage),
		"updated_at":          s.now().UTC(),
		"completed_at":        completedAt,
	}
	var rows []models.Enrollment
	resp, err := s.request(ctx, sess).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{"student_id": eq(sess.StudentID), "course_id": eq(courseID)}).
		SetBody(body).
		SetResult(&rows).
		Patch("/rest/v1/" + tableEnrollments)
	if err := s.check(ctx, "update enrollment progress", resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.NotFound("enrollment not found")
	}
	return nil
}
