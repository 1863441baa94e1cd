package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursehub/backend/player"
	"coursehub/backend/progress"
	"coursehub/backend/utils"
)

type PlayerController struct {
	Players  *player.Registry
	Recorder *progress.Recorder
	Log      *utils.Logger
}

func NewPlayerController(players *player.Registry, recorder *progress.Recorder, log *utils.Logger) *PlayerController {
	return &PlayerController{Players: players, Recorder: recorder, Log: log.With("controller", "player")}
}

type playerEventRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
	Event    string    `json:"event" validate:"required,oneof=play pause timeupdate ended"`
	Position float64   `json:"position" validate:"gte=0"`
}

// HandleEvent godoc
// @Summary Forward a media event from the lesson video player
// @Description Drives the playback state machine. The first "ended" of a playthrough completes the lesson.
// @Tags player
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{lessonId}/player [post]
func (pc *PlayerController) HandleEvent(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := uuidParam(c, "lessonId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var req playerEventRequest
	fields, err := utils.ParseBody(c, &req)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if fields != nil {
		return utils.ValidationError(c, fields)
	}
	ev, err := player.ParseEvent(req.Event)
	if err != nil {
		return utils.HandleError(c, err)
	}

	ctx := c.UserContext()
	p := pc.Players.Get(sess.StudentID, lessonID, req.CourseID)
	snap, completeErr := p.Handle(ctx, ev, req.Position)

	// Watch time is flushed when playback stops rather than on every tick,
	// including when the completion itself failed.
	if snap.Accepted && snap.Watched > 0 && (ev == player.EventPause || ev == player.EventEnded) {
		if err := pc.Recorder.RecordWatch(ctx, sess, lessonID, req.CourseID, snap.Watched); err != nil {
			pc.Log.Warn("watch time not recorded", "lesson_id", lessonID, "error", err)
		}
	}
	if completeErr != nil {
		return utils.HandleError(c, completeErr, snap)
	}
	return utils.Success(c, fiber.StatusOK, snap)
}
