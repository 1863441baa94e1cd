package player

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/backend/apperr"
)

func counting() (*int32, CompleteFunc) {
	var n int32
	return &n, func(context.Context) error {
		atomic.AddInt32(&n, 1)
		return nil
	}
}

func TestPlaythroughFiresOnce(t *testing.T) {
	calls, fn := counting()
	p := New(fn)
	ctx := context.Background()

	snap, err := p.Handle(ctx, EventPlay, 0)
	require.NoError(t, err)
	assert.Equal(t, Playing, snap.State)

	for pos := 5.0; pos <= 30; pos += 5 {
		_, err = p.Handle(ctx, EventTimeUpdate, pos)
		require.NoError(t, err)
	}
	snap, err = p.Handle(ctx, EventEnded, 32)
	require.NoError(t, err)
	assert.True(t, snap.Accepted)
	assert.True(t, snap.Completed)
	assert.Equal(t, Ended, snap.State)
	assert.Equal(t, 32, snap.Watched)

	snap, err = p.Handle(ctx, EventEnded, 32)
	require.NoError(t, err)
	assert.False(t, snap.Accepted)
	assert.False(t, snap.Completed)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestReplayStartsNewPlaythrough(t *testing.T) {
	calls, fn := counting()
	p := New(fn)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.Handle(ctx, EventPlay, 0)
		require.NoError(t, err)
		_, err = p.Handle(ctx, EventEnded, 4)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestInvalidTransitionsAreIgnored(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	cases := []Event{EventPause, EventTimeUpdate, EventEnded}
	for _, ev := range cases {
		snap, err := p.Handle(ctx, ev, 10)
		require.NoError(t, err)
		assert.False(t, snap.Accepted, "%s from idle", ev)
		assert.Equal(t, Idle, snap.State)
	}

	_, _ = p.Handle(ctx, EventPlay, 0)
	snap, _ := p.Handle(ctx, EventPlay, 0)
	assert.False(t, snap.Accepted)

	snap, _ = p.Handle(ctx, EventPause, 3)
	assert.True(t, snap.Accepted)
	assert.Equal(t, Paused, snap.State)
	snap, _ = p.Handle(ctx, EventPause, 3)
	assert.False(t, snap.Accepted)
}

func TestSeeksAreNotWatched(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	_, _ = p.Handle(ctx, EventPlay, 0)
	_, _ = p.Handle(ctx, EventTimeUpdate, 8)
	_, _ = p.Handle(ctx, EventTimeUpdate, 300)
	snap, _ := p.Handle(ctx, EventTimeUpdate, 305)
	assert.Equal(t, 13, snap.Watched)
	assert.Equal(t, 305.0, snap.Position)

	// Seeking while paused moves the head without counting.
	_, _ = p.Handle(ctx, EventPause, 306)
	_, _ = p.Handle(ctx, EventTimeUpdate, 100)
	snap, _ = p.Handle(ctx, EventPlay, 100)
	assert.Equal(t, 14, snap.Watched)
	assert.Equal(t, 100.0, snap.Position)

	// Backwards updates never add time.
	snap, _ = p.Handle(ctx, EventTimeUpdate, 90)
	assert.Equal(t, 14, snap.Watched)
}

func TestEndedFromPauseCompletes(t *testing.T) {
	calls, fn := counting()
	p := New(fn)
	ctx := context.Background()

	_, _ = p.Handle(ctx, EventPlay, 0)
	_, _ = p.Handle(ctx, EventPause, 2)
	snap, err := p.Handle(ctx, EventEnded, 60)
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestCompletionErrorIsReturned(t *testing.T) {
	boom := apperr.Network("offline", nil)
	p := New(func(context.Context) error { return boom })
	ctx := context.Background()

	_, _ = p.Handle(ctx, EventPlay, 0)
	snap, err := p.Handle(ctx, EventEnded, 1)
	assert.True(t, errors.Is(err, apperr.ErrNetwork))
	assert.True(t, snap.Accepted)
	assert.False(t, snap.Completed)
	assert.Equal(t, Ended, snap.State)
}

func TestFailedCompletionIsRetried(t *testing.T) {
	var calls int32
	p := New(func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return apperr.Network("backend unreachable", nil)
		}
		return nil
	})
	ctx := context.Background()

	_, _ = p.Handle(ctx, EventPlay, 0)
	_, _ = p.Handle(ctx, EventTimeUpdate, 6)
	_, err := p.Handle(ctx, EventEnded, 9)
	require.ErrorIs(t, err, apperr.ErrNetwork)

	snap, err := p.Handle(ctx, EventEnded, 9)
	require.NoError(t, err)
	assert.True(t, snap.Accepted)
	assert.True(t, snap.Completed)
	assert.Equal(t, 9, snap.Watched)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	snap, err = p.Handle(ctx, EventEnded, 9)
	require.NoError(t, err)
	assert.False(t, snap.Accepted)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent(" TimeUpdate ")
	require.NoError(t, err)
	assert.Equal(t, EventTimeUpdate, ev)

	_, err = ParseEvent("seek")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRegistry(t *testing.T) {
	var gotLesson, gotCourse uuid.UUID
	reg := NewRegistry(func(_ context.Context, lessonID, courseID uuid.UUID) error {
		gotLesson, gotCourse = lessonID, courseID
		return nil
	})
	student, lesson, course := uuid.New(), uuid.New(), uuid.New()

	p := reg.Get(student, lesson, course)
	assert.Same(t, p, reg.Get(student, lesson, course))
	assert.NotSame(t, p, reg.Get(uuid.New(), lesson, course))
	assert.Equal(t, 2, reg.Len())

	_, _ = p.Handle(context.Background(), EventPlay, 0)
	_, err := p.Handle(context.Background(), EventEnded, 1)
	require.NoError(t, err)
	assert.Equal(t, lesson, gotLesson)
	assert.Equal(t, course, gotCourse)

	assert.Equal(t, 0, reg.Sweep(time.Hour))
	assert.Equal(t, 2, reg.Sweep(-time.Hour))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryWrongCourseDoesNotStick(t *testing.T) {
	var courses []uuid.UUID
	reg := NewRegistry(func(_ context.Context, _, courseID uuid.UUID) error {
		courses = append(courses, courseID)
		return nil
	})
	student, lesson := uuid.New(), uuid.New()
	wrong, right := uuid.New(), uuid.New()
	ctx := context.Background()

	stray := reg.Get(student, lesson, wrong)
	_, _ = stray.Handle(ctx, EventPlay, 0)

	p := reg.Get(student, lesson, right)
	assert.NotSame(t, stray, p)
	assert.Equal(t, Idle, p.State())
	_, _ = p.Handle(ctx, EventPlay, 0)
	snap, err := p.Handle(ctx, EventEnded, 5)
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.Equal(t, []uuid.UUID{right}, courses)
}
