package controllers

import (
	"github.com/gofiber/fiber/v2"

	"coursehub/backend/models"
	"coursehub/backend/progress"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

type CoursesController struct {
	Store    store.DataAccess
	Recorder *progress.Recorder
	Log      *utils.Logger
}

func NewCoursesController(ds store.DataAccess, recorder *progress.Recorder, log *utils.Logger) *CoursesController {
	return &CoursesController{Store: ds, Recorder: recorder, Log: log.With("controller", "courses")}
}

// GetCourses godoc
// @Summary List the course catalog
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	courses, err := cc.Store.GetCourses(c.UserContext(), sess)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

// GetCourseDetails godoc
// @Summary Get a course with its lessons
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	ctx := c.UserContext()
	course, err := cc.Store.GetCourseByID(ctx, sess, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessons, err := cc.Store.GetLessons(ctx, sess, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course":  course,
		"lessons": lessons,
	})
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Creates the enrollment, or reactivates a deactivated one.
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	ctx := c.UserContext()
	enrollment, err := cc.Store.Enroll(ctx, sess, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	// A reactivated enrollment may carry progress from before.
	if err := cc.Recorder.SyncEnrollment(ctx, sess, courseID); err != nil {
		cc.Log.Warn("enrollment progress not synced", "course_id", courseID, "error", err)
	}

	return utils.Success(c, fiber.StatusCreated, enrollment, "Enrolled")
}

// Unenroll godoc
// @Summary Leave a course
// @Description Soft-deactivates the enrollment; progress is kept.
// @Tags courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [delete]
func (cc *CoursesController) Unenroll(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := uuidParam(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := cc.Store.DeactivateEnrollment(c.UserContext(), sess, courseID); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
