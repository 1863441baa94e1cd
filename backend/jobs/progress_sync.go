// Package jobs holds the periodic background work of the server.
package jobs

import (
	"context"
	"time"

	"coursehub/backend/player"
	"coursehub/backend/progress"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

// ProgressSync recomputes the cached progress_percentage of every active
// enrollment. Completions already persist it; this catches enrollments whose
// catalog changed or whose follow-up write failed.
type ProgressSync struct {
	lister   store.EnrollmentLister
	recorder *progress.Recorder
	log      *utils.Logger
}

func NewProgressSync(lister store.EnrollmentLister, recorder *progress.Recorder, baseLog *utils.Logger) *ProgressSync {
	return &ProgressSync{
		lister:   lister,
		recorder: recorder,
		log:      baseLog.With("job", "progress_sync"),
	}
}

// RunOnce syncs every active enrollment and returns how many succeeded.
// Individual failures are logged and do not stop the run.
func (j *ProgressSync) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	enrollments, err := j.lister.ListActiveEnrollments(ctx)
	if err != nil {
		j.log.Error("list active enrollments", "error", err)
		return 0, err
	}

	synced := 0
	for _, e := range enrollments {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		sess := session.New(e.StudentID, "")
		if err := j.recorder.SyncEnrollment(ctx, sess, e.CourseID); err != nil {
			j.log.Warn("sync enrollment", "student_id", e.StudentID, "course_id", e.CourseID, "error", err)
			continue
		}
		synced++
	}
	j.log.Info("progress sync finished", "enrollments", len(enrollments), "synced", synced, "took", time.Since(start))
	return synced, nil
}

func (j *ProgressSync) Run(ctx context.Context) {
	_, _ = j.RunOnce(ctx)
}

// PlayerSweep evicts player states nobody has touched for ttl.
func PlayerSweep(players *player.Registry, ttl time.Duration, baseLog *utils.Logger) func(ctx context.Context) {
	log := baseLog.With("job", "player_sweep")
	return func(context.Context) {
		if n := players.Sweep(ttl); n > 0 {
			log.Debug("evicted idle players", "count", n)
		}
	}
}

// OverlaySweep forgets optimistic completions the backend confirmed more than
// ttl ago, and the per-student overlays left empty by that.
func OverlaySweep(overlays *progress.Overlays, ttl time.Duration, baseLog *utils.Logger) func(ctx context.Context) {
	log := baseLog.With("job", "overlay_sweep")
	return func(context.Context) {
		if n := overlays.Sweep(ttl); n > 0 {
			log.Debug("evicted idle overlays", "count", n)
		}
	}
}
