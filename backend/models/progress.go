package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a student to a course. ProgressPercentage is a cached
// value; the aggregator recomputes it from LessonProgress rows.
type Enrollment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_course" json:"student_id"`
	CourseID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_course" json:"course_id"`
	EnrolledAt         time.Time  `gorm:"not null" json:"enrolled_at"`
	ProgressPercentage int        `gorm:"not null;default:0;check:progress_percentage >= 0 AND progress_percentage <= 100" json:"progress_percentage"`
	IsActive           bool       `gorm:"not null;default:true" json:"is_active"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollments" }

// LessonProgress has one row per (student, lesson). WatchedDuration is in seconds.
type LessonProgress struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_lesson" json:"student_id"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	LessonID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_student_lesson" json:"lesson_id"`
	IsCompleted     bool       `gorm:"not null;default:false" json:"is_completed"`
	WatchedDuration int        `gorm:"not null;default:0" json:"watched_duration"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

// DashboardCourseView is derived on every data change and never persisted.
type DashboardCourseView struct {
	Course
	EnrolledAt       time.Time `json:"enrolled_at"`
	Progress         int       `json:"progress"`
	CompletedLessons int       `json:"completed_lessons"`
	TotalLessons     int       `json:"total_lessons"`
	NextLesson       *Lesson   `json:"next_lesson,omitempty"`
	TimeSpent        int       `json:"time_spent"` // minutes
	IsCompleted      bool      `json:"is_completed"`
	HasStarted       bool      `json:"has_started"`
}

type AccountStats struct {
	TotalCourses      int `json:"total_courses"`
	CompletedCourses  int `json:"completed_courses"`
	InProgressCourses int `json:"in_progress_courses"`
	TotalLessons      int `json:"total_lessons"`
	CompletedLessons  int `json:"completed_lessons"`
	OverallProgress   int `json:"overall_progress"`
	TotalTimeSpent    int `json:"total_time_spent"` // minutes
}
