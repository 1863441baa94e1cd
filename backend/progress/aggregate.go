// Package progress derives course progress from enrollments, lesson catalogs
// and per-lesson progress rows, records lesson completions and keeps the
// optimistic overlay that bridges a completion and the next refetch.
package progress

import (
	"math"

	"github.com/google/uuid"

	"coursehub/backend/models"
)

// Percentage returns round(completed/total*100), or 0 for an empty course.
// 100 is reserved for a fully completed course, so an unfinished course tops
// out at 99 however close it rounds.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(total) * 100))
	switch {
	case p < 0:
		return 0
	case completed < total && p > 99:
		return 99
	case p > 100:
		return 100
	}
	return p
}

// NextLesson returns the lowest order_index lesson not in completed, or nil.
func NextLesson(lessons []models.Lesson, completed map[uuid.UUID]bool) *models.Lesson {
	var next *models.Lesson
	for i := range lessons {
		l := &lessons[i]
		if completed[l.ID] {
			continue
		}
		if next == nil || l.OrderIndex < next.OrderIndex {
			next = l
		}
	}
	if next == nil {
		return nil
	}
	out := *next
	return &out
}

// DeriveCourseProgress is pure. Lessons and records belonging to another
// course are dropped, and records for lessons missing from the catalog do not
// count, which keeps progress within [0, 100]. overlay holds lesson ids known
// complete locally but not yet confirmed by the backend.
func DeriveCourseProgress(enrollment models.Enrollment, course models.Course, lessons []models.Lesson, records []models.LessonProgress, overlay []uuid.UUID) models.DashboardCourseView {
	catalog := make([]models.Lesson, 0, len(lessons))
	inCatalog := make(map[uuid.UUID]bool, len(lessons))
	for _, l := range lessons {
		if l.CourseID != enrollment.CourseID || inCatalog[l.ID] {
			continue
		}
		catalog = append(catalog, l)
		inCatalog[l.ID] = true
	}

	completed := make(map[uuid.UUID]bool)
	var watchedSeconds int
	var hasStarted bool
	for _, p := range records {
		if p.CourseID != enrollment.CourseID || (p.StudentID != uuid.Nil && p.StudentID != enrollment.StudentID) {
			continue
		}
		if p.WatchedDuration > 0 {
			watchedSeconds += p.WatchedDuration
			hasStarted = true
		}
		if p.IsCompleted && inCatalog[p.LessonID] {
			completed[p.LessonID] = true
		}
	}
	for _, id := range overlay {
		if inCatalog[id] {
			completed[id] = true
		}
	}

	total := len(catalog)
	progress := Percentage(len(completed), total)

	return models.DashboardCourseView{
		Course:           course,
		EnrolledAt:       enrollment.EnrolledAt,
		Progress:         progress,
		CompletedLessons: len(completed),
		TotalLessons:     total,
		NextLesson:       NextLesson(catalog, completed),
		TimeSpent:        watchedSeconds / 60,
		IsCompleted:      progress == 100,
		HasStarted:       hasStarted,
	}
}
