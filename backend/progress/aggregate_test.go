package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/backend/models"
)

type courseFixture struct {
	student    uuid.UUID
	course     models.Course
	enrollment models.Enrollment
	lessons    []models.Lesson
}

func newCourseFixture(n int) courseFixture {
	student := uuid.New()
	course := models.Course{ID: uuid.New(), Title: "C", TotalLessons: n}
	f := courseFixture{
		student: student,
		course:  course,
		enrollment: models.Enrollment{
			ID: uuid.New(), StudentID: student, CourseID: course.ID, EnrolledAt: time.Now(), IsActive: true,
		},
	}
	// Inserted in reverse so ordering never relies on slice position.
	for i := n; i >= 1; i-- {
		f.lessons = append(f.lessons, models.Lesson{ID: uuid.New(), CourseID: course.ID, OrderIndex: i})
	}
	return f
}

func (f courseFixture) lesson(order int) models.Lesson {
	for _, l := range f.lessons {
		if l.OrderIndex == order {
			return l
		}
	}
	panic("no such lesson")
}

func (f courseFixture) done(order, watched int) models.LessonProgress {
	l := f.lesson(order)
	return models.LessonProgress{
		StudentID: f.student, CourseID: f.course.ID, LessonID: l.ID, IsCompleted: true, WatchedDuration: watched,
	}
}

func TestDeriveCourseProgressScenario(t *testing.T) {
	f := newCourseFixture(4)
	records := []models.LessonProgress{f.done(1, 300), f.done(2, 420)}

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
	assert.Equal(t, 2, view.CompletedLessons)
	assert.Equal(t, 4, view.TotalLessons)
	assert.Equal(t, 50, view.Progress)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, f.lesson(3).ID, view.NextLesson.ID)
	assert.True(t, view.HasStarted)
	assert.False(t, view.IsCompleted)
	assert.Equal(t, 12, view.TimeSpent)

	records = append(records, f.done(3, 0), f.done(4, 0))
	view = DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
	assert.Equal(t, 100, view.Progress)
	assert.Nil(t, view.NextLesson)
	assert.True(t, view.IsCompleted)
}

func TestNextLessonFollowsOrderIndex(t *testing.T) {
	f := newCourseFixture(3)

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, []models.LessonProgress{f.done(1, 10)}, nil)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, 2, view.NextLesson.OrderIndex)

	view = DeriveCourseProgress(f.enrollment, f.course, f.lessons, []models.LessonProgress{f.done(2, 10)}, nil)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, 1, view.NextLesson.OrderIndex)
}

func TestProgressBounds(t *testing.T) {
	f := newCourseFixture(3)
	var records []models.LessonProgress
	for i := 1; i <= 3; i++ {
		records = append(records, f.done(i, 60))
	}
	// Completed rows for lessons outside the catalog, duplicated rows and
	// other courses must not push progress past 100.
	records = append(records,
		f.done(1, 60),
		models.LessonProgress{StudentID: f.student, CourseID: f.course.ID, LessonID: uuid.New(), IsCompleted: true},
		models.LessonProgress{StudentID: f.student, CourseID: uuid.New(), LessonID: uuid.New(), IsCompleted: true},
	)

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, 3, view.CompletedLessons)
	assert.LessOrEqual(t, view.Progress, 100)
	assert.GreaterOrEqual(t, view.Progress, 0)
}

func TestEmptyCourse(t *testing.T) {
	f := newCourseFixture(0)

	view := DeriveCourseProgress(f.enrollment, f.course, nil, nil, nil)
	assert.Equal(t, 0, view.Progress)
	assert.Equal(t, 0, view.TotalLessons)
	assert.Nil(t, view.NextLesson)
	assert.False(t, view.IsCompleted)
	assert.False(t, view.HasStarted)
}

func TestCompletionThreshold(t *testing.T) {
	for total := 1; total <= 7; total++ {
		f := newCourseFixture(total)
		var records []models.LessonProgress
		for done := 0; done <= total; done++ {
			if done > 0 {
				records = append(records, f.done(done, 1))
			}
			view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
			assert.Equal(t, done == total, view.IsCompleted, "total=%d done=%d", total, done)
		}
	}
}

func TestMismatchedLessonsAreFiltered(t *testing.T) {
	f := newCourseFixture(2)
	stray := models.Lesson{ID: uuid.New(), CourseID: uuid.New(), OrderIndex: 0}

	view := DeriveCourseProgress(f.enrollment, f.course, append(f.lessons, stray), nil, nil)
	assert.Equal(t, 2, view.TotalLessons)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, 1, view.NextLesson.OrderIndex)
}

func TestHasStartedNeedsWatchTime(t *testing.T) {
	f := newCourseFixture(2)
	completedUnwatched := f.done(1, 0)

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, []models.LessonProgress{completedUnwatched}, nil)
	assert.False(t, view.HasStarted)
	assert.Equal(t, 50, view.Progress)
}

func TestOverlayCountsOnce(t *testing.T) {
	f := newCourseFixture(4)
	records := []models.LessonProgress{f.done(1, 30)}
	overlay := []uuid.UUID{f.lesson(1).ID, f.lesson(2).ID, uuid.New()}

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, overlay)
	assert.Equal(t, 2, view.CompletedLessons)
	assert.Equal(t, 50, view.Progress)
	assert.Equal(t, 3, view.NextLesson.OrderIndex)
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 13, Percentage(1, 8))
	assert.Equal(t, 0, Percentage(5, 0))
	assert.Equal(t, 99, Percentage(199, 200))
	assert.Equal(t, 99, Percentage(999, 1000))
	assert.Equal(t, 100, Percentage(200, 200))
}

func TestAlmostDoneIsNotCompleted(t *testing.T) {
	f := newCourseFixture(200)
	var records []models.LessonProgress
	for order := 1; order <= 199; order++ {
		records = append(records, f.done(order, 1))
	}

	view := DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
	assert.Equal(t, 199, view.CompletedLessons)
	assert.Equal(t, 99, view.Progress)
	assert.False(t, view.IsCompleted)
	require.NotNil(t, view.NextLesson)
	assert.Equal(t, 200, view.NextLesson.OrderIndex)

	records = append(records, f.done(200, 1))
	view = DeriveCourseProgress(f.enrollment, f.course, f.lessons, records, nil)
	assert.Equal(t, 100, view.Progress)
	assert.True(t, view.IsCompleted)
	assert.Nil(t, view.NextLesson)
}
