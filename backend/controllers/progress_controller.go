package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursehub/backend/models"
	"coursehub/backend/progress"
	"coursehub/backend/utils"
)

type ProgressController struct {
	Loader   *progress.DashboardLoader
	Recorder *progress.Recorder
	Overlays *progress.Overlays
}

func NewProgressController(loader *progress.DashboardLoader, recorder *progress.Recorder, overlays *progress.Overlays) *ProgressController {
	return &ProgressController{Loader: loader, Recorder: recorder, Overlays: overlays}
}

type completeLessonRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
}

type watchRequest struct {
	CourseID        uuid.UUID `json:"course_id" validate:"required"`
	WatchedDuration int       `json:"watched_duration" validate:"gte=0"`
}

// GetDashboard godoc
// @Summary Get the student dashboard
// @Description Per-course progress for active enrollments plus account-wide stats.
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (pc *ProgressController) GetDashboard(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	state, err := pc.Loader.Load(c.UserContext(), sess)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if state.Courses == nil {
		state.Courses = []models.DashboardCourseView{}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"courses": state.Courses,
		"stats":   state.Stats,
	})
}

// GetCourseProgress godoc
// @Summary Get progress for one enrolled course
// @Tags progress
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/progress [get]
func (pc *ProgressController) GetCourseProgress(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	view, err := pc.Loader.CourseProgress(c.UserContext(), sess, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

// GetNextLesson godoc
// @Summary Continue where you left off
// @Description Lowest-ordered lesson not yet completed; 204 when the course is done.
// @Tags progress
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/next-lesson [get]
func (pc *ProgressController) GetNextLesson(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	lesson, err := pc.Loader.NextLesson(c.UserContext(), sess, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if lesson == nil {
		return utils.NoContent(c)
	}
	return utils.Success(c, fiber.StatusOK, lesson)
}

// CompleteLesson godoc
// @Summary Mark a lesson as completed
// @Description Idempotent; completing an already completed lesson succeeds.
// @Tags progress
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{lessonId}/complete [post]
func (pc *ProgressController) CompleteLesson(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := uuidParam(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var req completeLessonRequest
	fields, err := utils.ParseBody(c, &req)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if fields != nil {
		return utils.ValidationError(c, fields)
	}

	if err := pc.Recorder.CompleteLesson(c.UserContext(), sess, lessonID, req.CourseID); err != nil {
		return utils.HandleError(c, err, fiber.Map{
			"lesson_id": lessonID,
			"state":     progress.Failed.String(),
		})
	}

	state, ok := pc.Overlays.For(sess.StudentID).State(lessonID)
	if !ok {
		state = progress.Confirmed
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"lesson_id": lessonID,
		"state":     state.String(),
	})
}

// RecordWatch godoc
// @Summary Record watched time for a lesson
// @Description Keeps the furthest watched duration in seconds.
// @Tags progress
// @Accept json
// @Param lessonId path string true "Lesson ID"
// @Success 204
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{lessonId}/watch [post]
func (pc *ProgressController) RecordWatch(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := uuidParam(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var req watchRequest
	fields, err := utils.ParseBody(c, &req)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if fields != nil {
		return utils.ValidationError(c, fields)
	}

	if err := pc.Recorder.RecordWatch(c.UserContext(), sess, lessonID, req.CourseID, req.WatchedDuration); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
