package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

// Recorder writes lesson completions and watch time through the data-access
// collaborator and keeps the per-student overlay in step with the outcome.
type Recorder struct {
	store    store.DataAccess
	overlays *Overlays
	log      *utils.Logger
	timeout  time.Duration
	now      func() time.Time
	flight   singleflight.Group
}

func NewRecorder(ds store.DataAccess, overlays *Overlays, timeout time.Duration, baseLog *utils.Logger) *Recorder {
	return &Recorder{
		store:    ds,
		overlays: overlays,
		log:      baseLog.With("service", "CompletionRecorder"),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (r *Recorder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// CompleteLesson is idempotent. A duplicate completion is a no-op success; a
// failed write rolls the optimistic entry back and is returned to the caller
// (apperr.Retryable tells whether trying again makes sense).
func (r *Recorder) CompleteLesson(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if lessonID == uuid.Nil || courseID == uuid.Nil {
		return apperr.Invalid("lesson and course are required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	overlay := r.overlays.For(sess.StudentID)
	overlay.AddPending(lessonID)

	// The shared write is detached from any one caller: a cancelled request
	// stops waiting, but the others joined on the same key still get the
	// real outcome. The recorder timeout bounds it.
	key := sess.StudentID.String() + ":" + lessonID.String()
	wctx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return nil, r.complete(wctx, sess, lessonID, courseID)
	})

	var err error
	select {
	case res := <-ch:
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		overlay.Fail(lessonID)
		return err
	}
	overlay.Confirm(lessonID)
	return nil
}

func (r *Recorder) complete(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID) error {
	wctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.store.UpsertLessonProgress(wctx, sess, lessonID, courseID, store.ProgressPatch{Completed: true})
	switch {
	case errors.Is(err, apperr.ErrConflictIgnored):
		r.log.Debug("lesson already completed", "student_id", sess.StudentID, "lesson_id", lessonID)
		return nil
	case err != nil:
		r.log.Warn("lesson completion failed", "student_id", sess.StudentID, "lesson_id", lessonID, "error", err)
		return fmt.Errorf("complete lesson: %w", err)
	}

	r.log.Info("lesson completed", "student_id", sess.StudentID, "lesson_id", lessonID, "course_id", courseID)
	if err := r.SyncEnrollment(ctx, sess, courseID); err != nil {
		r.log.Warn("enrollment progress not persisted", "course_id", courseID, "error", err)
	}
	return nil
}

// RecordWatch stores the furthest watched position (seconds) for a lesson,
// creating the progress row on first interaction.
func (r *Recorder) RecordWatch(ctx context.Context, sess session.Session, lessonID, courseID uuid.UUID, seconds int) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if seconds < 0 {
		return apperr.Invalid("watched duration must not be negative")
	}
	wctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.store.UpsertLessonProgress(wctx, sess, lessonID, courseID, store.ProgressPatch{WatchedDuration: &seconds})
	if err != nil {
		return fmt.Errorf("record watch: %w", err)
	}
	return nil
}

// SyncEnrollment recomputes the course percentage from a fresh read and
// persists it on the enrollment. The aggregator stays the source of truth for
// display; this only refreshes the cached column.
func (r *Recorder) SyncEnrollment(ctx context.Context, sess session.Session, courseID uuid.UUID) error {
	wctx, cancel := r.withTimeout(ctx)
	defer cancel()

	lessons, err := r.store.GetLessons(wctx, sess, courseID)
	if err != nil {
		return err
	}
	records, err := r.store.GetLessonProgress(wctx, sess)
	if err != nil {
		return err
	}

	enrollment := models.Enrollment{StudentID: sess.StudentID, CourseID: courseID}
	view := DeriveCourseProgress(enrollment, models.Course{ID: courseID}, lessons, records, nil)
	var completedAt *time.Time
	if view.IsCompleted {
		now := r.now()
		completedAt = &now
	}
	return r.store.UpdateEnrollmentProgress(wctx, sess, courseID, view.Progress, completedAt)
}
