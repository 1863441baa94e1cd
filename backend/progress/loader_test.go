package progress

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

// flakyCourses fails the catalog read.
type flakyCourses struct {
	store.DataAccess
}

func (flakyCourses) GetCourses(context.Context, session.Session) ([]models.Course, error) {
	return nil, apperr.Network("catalog unavailable", nil)
}

func TestDashboardLoad(t *testing.T) {
	s := seed(t, 4)
	overlays := NewOverlays()
	rec := NewRecorder(s.ms, overlays, 0, utils.NopLogger())
	loader := NewDashboardLoader(s.ms, overlays, utils.NopLogger())
	ctx := context.Background()

	require.NoError(t, rec.RecordWatch(ctx, s.sess, s.lessons[0].ID, s.course.ID, 300))
	require.NoError(t, rec.CompleteLesson(ctx, s.sess, s.lessons[0].ID, s.course.ID))
	require.NoError(t, rec.CompleteLesson(ctx, s.sess, s.lessons[1].ID, s.course.ID))

	state, err := loader.Load(ctx, s.sess)
	require.NoError(t, err)
	require.Len(t, state.Courses, 1)
	view := state.Courses[0]
	assert.Equal(t, 50, view.Progress)
	assert.True(t, view.HasStarted)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, s.lessons[2].ID, view.NextLesson.ID)
	assert.Equal(t, 5, view.TimeSpent)
	assert.Equal(t, 1, state.Stats.InProgressCourses)

	// Confirmed before the refetch and now on the server: the overlay is drained.
	assert.Equal(t, 0, overlays.For(s.sess.StudentID).Len())
}

func TestDashboardLoadKeepsPendingOverlay(t *testing.T) {
	s := seed(t, 4)
	overlays := NewOverlays()
	loader := NewDashboardLoader(s.ms, overlays, utils.NopLogger())
	overlays.For(s.sess.StudentID).AddPending(s.lessons[0].ID)

	state, err := loader.Load(context.Background(), s.sess)
	require.NoError(t, err)
	assert.Equal(t, 25, state.Courses[0].Progress)
	assert.Equal(t, 1, overlays.For(s.sess.StudentID).Len())
}

func TestDashboardLoadCancelled(t *testing.T) {
	s := seed(t, 2)
	overlays := NewOverlays()
	loader := NewDashboardLoader(s.ms, overlays, utils.NopLogger())
	o := overlays.For(s.sess.StudentID)
	o.AddPending(s.lessons[0].ID)
	o.Confirm(s.lessons[0].ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := loader.Load(ctx, s.sess)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, state.Error, context.Canceled)
	assert.Equal(t, 1, o.Len())
}

func TestDashboardLoadError(t *testing.T) {
	s := seed(t, 2)
	loader := NewDashboardLoader(flakyCourses{s.ms}, NewOverlays(), utils.NopLogger())

	state, err := loader.Load(context.Background(), s.sess)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.ErrorIs(t, state.Error, apperr.ErrNetwork)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Courses)
}

func TestCourseProgressAndNextLesson(t *testing.T) {
	s := seed(t, 2)
	overlays := NewOverlays()
	rec := NewRecorder(s.ms, overlays, 0, utils.NopLogger())
	loader := NewDashboardLoader(s.ms, overlays, utils.NopLogger())
	ctx := context.Background()

	next, err := loader.NextLesson(ctx, s.sess, s.course.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, s.lessons[0].ID, next.ID)

	for _, l := range s.lessons {
		require.NoError(t, rec.CompleteLesson(ctx, s.sess, l.ID, s.course.ID))
	}
	view, err := loader.CourseProgress(ctx, s.sess, s.course.ID)
	require.NoError(t, err)
	assert.True(t, view.IsCompleted)
	assert.Nil(t, view.NextLesson)

	_, err = loader.CourseProgress(ctx, s.sess, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
