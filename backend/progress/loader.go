package progress

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

// DashboardLoader reads the four dashboard sources and feeds them to a
// Tracker; derived state is only produced once every source has resolved.
type DashboardLoader struct {
	store    store.DataAccess
	overlays *Overlays
	log      *utils.Logger
}

func NewDashboardLoader(ds store.DataAccess, overlays *Overlays, baseLog *utils.Logger) *DashboardLoader {
	return &DashboardLoader{
		store:    ds,
		overlays: overlays,
		log:      baseLog.With("service", "DashboardLoader"),
	}
}

// Load performs a full refetch. On a cancelled ctx it returns the ctx error
// and leaves the overlay untouched. Fetch errors are reported in
// DashboardState.Error as well as returned.
func (d *DashboardLoader) Load(ctx context.Context, sess session.Session) (DashboardState, error) {
	if err := sess.Validate(); err != nil {
		return DashboardState{Error: err}, err
	}
	overlay := d.overlays.For(sess.StudentID)
	mark := overlay.BeginRefetch()
	tracker := NewTracker(overlay.CompletedIDs)

	g, gctx := errgroup.WithContext(ctx)
	var (
		enrollments []models.Enrollment
		records     []models.LessonProgress
	)
	g.Go(func() error {
		v, err := d.store.GetEnrollments(gctx, sess)
		if err != nil {
			return err
		}
		enrollments = v
		return d.loadLessons(gctx, sess, v, tracker)
	})
	g.Go(func() error {
		v, err := d.store.GetCourses(gctx, sess)
		if err != nil {
			return err
		}
		tracker.SetCourses(v)
		return nil
	})
	g.Go(func() error {
		v, err := d.store.GetLessonProgress(gctx, sess)
		if err != nil {
			return err
		}
		records = v
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return DashboardState{Error: ctxErr}, ctxErr
		}
		d.log.Warn("dashboard load failed", "student_id", sess.StudentID, "error", err)
		tracker.Fail(err)
		return tracker.State(), err
	}
	if err := ctx.Err(); err != nil {
		return DashboardState{Error: err}, err
	}

	server := make(map[uuid.UUID]bool)
	for _, r := range records {
		if r.IsCompleted {
			server[r.LessonID] = true
		}
	}
	overlay.Reconcile(mark, server)

	tracker.SetEnrollments(enrollments)
	tracker.SetProgress(records)
	return tracker.State(), nil
}

func (d *DashboardLoader) loadLessons(ctx context.Context, sess session.Session, enrollments []models.Enrollment, tracker *Tracker) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	var mu sync.Mutex
	byCourse := make(map[uuid.UUID][]models.Lesson, len(enrollments))
	for _, e := range enrollments {
		if !e.IsActive {
			continue
		}
		courseID := e.CourseID
		g.Go(func() error {
			lessons, err := d.store.GetLessons(gctx, sess, courseID)
			if err != nil {
				return err
			}
			mu.Lock()
			byCourse[courseID] = lessons
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	tracker.SetLessons(byCourse)
	return nil
}

// CourseProgress derives the view for one enrolled course.
func (d *DashboardLoader) CourseProgress(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.DashboardCourseView, error) {
	state, err := d.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	for i := range state.Courses {
		if state.Courses[i].ID == courseID {
			v := state.Courses[i]
			return &v, nil
		}
	}
	return nil, apperr.NotFound("not enrolled in course")
}

// NextLesson is the "continue where you left off" pointer; nil when every
// lesson is complete.
func (d *DashboardLoader) NextLesson(ctx context.Context, sess session.Session, courseID uuid.UUID) (*models.Lesson, error) {
	view, err := d.CourseProgress(ctx, sess, courseID)
	if err != nil {
		return nil, err
	}
	return view.NextLesson, nil
}
