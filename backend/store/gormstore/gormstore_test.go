package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

type fixture struct {
	store   *Store
	db      *gorm.DB
	sess    session.Session
	course  models.Course
	lessons []models.Lesson
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := New(db, utils.NopLogger())
	require.NoError(t, s.AutoMigrate())

	course := models.Course{ID: uuid.New(), Title: "Go in Practice", Slug: "go-in-practice", TotalLessons: 3}
	require.NoError(t, db.Create(&course).Error)

	var lessons []models.Lesson
	for i := 1; i <= 3; i++ {
		l := models.Lesson{ID: uuid.New(), CourseID: course.ID, Title: "Lesson", OrderIndex: i}
		require.NoError(t, db.Create(&l).Error)
		lessons = append(lessons, l)
	}

	return fixture{
		store:   s,
		db:      db,
		sess:    session.New(uuid.New(), ""),
		course:  course,
		lessons: lessons,
	}
}

func TestUpsertCompletionIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	lesson := f.lessons[0]

	row, err := f.store.UpsertLessonProgress(ctx, f.sess, lesson.ID, f.course.ID, store.ProgressPatch{Completed: true})
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)
	require.NotNil(t, row.CompletedAt)
	firstCompletedAt := *row.CompletedAt

	again, err := f.store.UpsertLessonProgress(ctx, f.sess, lesson.ID, f.course.ID, store.ProgressPatch{Completed: true})
	assert.ErrorIs(t, err, apperr.ErrConflictIgnored)
	require.NotNil(t, again)
	assert.Equal(t, row.ID, again.ID)
	assert.True(t, again.CompletedAt.Equal(firstCompletedAt))

	var count int64
	require.NoError(t, f.db.Model(&models.LessonProgress{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertWatchedDurationNeverDecreases(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	lesson := f.lessons[1]
	watched := func(n int) store.ProgressPatch { return store.ProgressPatch{WatchedDuration: &n} }

	row, err := f.store.UpsertLessonProgress(ctx, f.sess, lesson.ID, f.course.ID, watched(120))
	require.NoError(t, err)
	assert.Equal(t, 120, row.WatchedDuration)
	assert.False(t, row.IsCompleted)

	row, err = f.store.UpsertLessonProgress(ctx, f.sess, lesson.ID, f.course.ID, watched(30))
	require.NoError(t, err)
	assert.Equal(t, 120, row.WatchedDuration)

	row, err = f.store.UpsertLessonProgress(ctx, f.sess, lesson.ID, f.course.ID, store.ProgressPatch{Completed: true})
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)
	assert.Equal(t, 120, row.WatchedDuration)
}

func TestUpsertUnknownLesson(t *testing.T) {
	f := setup(t)

	_, err := f.store.UpsertLessonProgress(context.Background(), f.sess, uuid.New(), f.course.ID, store.ProgressPatch{Completed: true})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.UpsertLessonProgress(context.Background(), session.Session{}, f.lessons[0].ID, f.course.ID, store.ProgressPatch{Completed: true})
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestEnrollmentLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	e, err := f.store.Enroll(ctx, f.sess, f.course.ID)
	require.NoError(t, err)
	assert.True(t, e.IsActive)
	assert.Equal(t, 0, e.ProgressPercentage)

	require.NoError(t, f.store.DeactivateEnrollment(ctx, f.sess, f.course.ID))
	active, err := f.store.ListActiveEnrollments(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	again, err := f.store.Enroll(ctx, f.sess, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID)
	assert.True(t, again.IsActive)

	done := time.Now().UTC()
	require.NoError(t, f.store.UpdateEnrollmentProgress(ctx, f.sess, f.course.ID, 140, &done))
	enrollments, err := f.store.GetEnrollments(ctx, f.sess)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 100, enrollments[0].ProgressPercentage)
	assert.NotNil(t, enrollments[0].CompletedAt)

	err = f.store.UpdateEnrollmentProgress(ctx, session.New(uuid.New(), ""), f.course.ID, 10, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCatalogReads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	lessons, err := f.store.GetLessons(ctx, f.sess, f.course.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 3)
	for i, l := range lessons {
		assert.Equal(t, i+1, l.OrderIndex)
	}

	course, err := f.store.GetCourseByID(ctx, f.sess, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, "go-in-practice", course.Slug)

	_, err = f.store.GetCourseByID(ctx, f.sess, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
