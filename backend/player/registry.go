package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CompleteLessonFunc records a lesson completion; the session travels in ctx.
type CompleteLessonFunc func(ctx context.Context, lessonID, courseID uuid.UUID) error

type key struct {
	student uuid.UUID
	lesson  uuid.UUID
	course  uuid.UUID
}

// Registry keeps one player per (student, lesson, course). The course is part
// of the key so a request naming the wrong course never poisons the player
// the right course uses.
type Registry struct {
	mu       sync.Mutex
	players  map[key]*Player
	complete CompleteLessonFunc
}

func NewRegistry(complete CompleteLessonFunc) *Registry {
	return &Registry{players: make(map[key]*Player), complete: complete}
}

// Get returns the player for the triple, creating it on first use.
func (r *Registry) Get(studentID, lessonID, courseID uuid.UUID) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{studentID, lessonID, courseID}
	if p, ok := r.players[k]; ok {
		return p
	}
	var onComplete CompleteFunc
	if r.complete != nil {
		onComplete = func(ctx context.Context) error {
			return r.complete(ctx, lessonID, courseID)
		}
	}
	p := New(onComplete)
	r.players[k] = p
	return p
}

// Sweep drops players with no events for longer than maxIdle and returns how
// many were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, p := range r.players {
		if p.idleSince(cutoff) {
			delete(r.players, k)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
