package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Course is read-only from the progress core's point of view.
type Course struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string     `gorm:"not null" json:"title"`
	Slug          string     `gorm:"uniqueIndex" json:"slug"`
	Description   string     `json:"description,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	InstructorID  uuid.UUID  `gorm:"type:uuid;index" json:"instructor_id"`
	CategoryID    *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	TotalLessons  int        `gorm:"default:0" json:"total_lessons"`
	DurationHours float64    `gorm:"default:0" json:"duration_hours"`
	Price         float64    `gorm:"default:0" json:"price"`
	IsPublished   bool       `gorm:"default:true" json:"is_published"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Lessons       []Lesson   `gorm:"foreignKey:CourseID" json:"-"`
}

func (Course) TableName() string { return "courses" }

type Lesson struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Title           string         `gorm:"not null" json:"title"`
	DurationMinutes int            `gorm:"default:0" json:"duration_minutes"`
	OrderIndex      int            `gorm:"not null;default:0" json:"order_index"`
	VideoURL        string         `json:"video_url"`
	Resources       datatypes.JSON `json:"resources,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Lesson) TableName() string { return "lessons" }
