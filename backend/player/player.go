// Package player tracks lesson video playback driven by media events and
// triggers lesson completion when a playthrough ends.
package player

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"coursehub/backend/apperr"
)

type State int

const (
	Idle State = iota
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Event string

const (
	EventPlay       Event = "play"
	EventPause      Event = "pause"
	EventTimeUpdate Event = "timeupdate"
	EventEnded      Event = "ended"
)

func ParseEvent(s string) (Event, error) {
	switch ev := Event(strings.ToLower(strings.TrimSpace(s))); ev {
	case EventPlay, EventPause, EventTimeUpdate, EventEnded:
		return ev, nil
	}
	return "", apperr.Invalid(fmt.Sprintf("unknown player event %q", s))
}

// MaxStep is the largest forward jump between two position reports that is
// still counted as watched time; anything larger is a seek.
const MaxStep = 10.0

// CompleteFunc is called when a playthrough reaches the end.
type CompleteFunc func(ctx context.Context) error

// Snapshot is the player state after an event. Completed is set only on the
// event whose completion callback succeeded.
type Snapshot struct {
	State     State   `json:"state"`
	Position  float64 `json:"position"`
	Watched   int     `json:"watched_seconds"`
	Accepted  bool    `json:"accepted"`
	Completed bool    `json:"completed"`
}

type Player struct {
	mu         sync.Mutex
	state      State
	position   float64
	watched    float64
	fired      bool
	lastSeen   time.Time
	onComplete CompleteFunc
	now        func() time.Time
}

func New(onComplete CompleteFunc) *Player {
	return &Player{onComplete: onComplete, now: time.Now, lastSeen: time.Now()}
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Handle applies one media event. Events that are not valid in the current
// state leave the player untouched and report Accepted=false. The completion
// callback runs outside the lock and succeeds at most once per playthrough.
// When it fails the error is returned as-is and a repeated "ended" retries it.
func (p *Player) Handle(ctx context.Context, ev Event, pos float64) (Snapshot, error) {
	p.mu.Lock()
	accepted, fire := p.apply(ev, pos)
	p.lastSeen = p.now()
	snap := p.snapshot()
	p.mu.Unlock()

	snap.Accepted = accepted
	if !fire || p.onComplete == nil {
		snap.Completed = fire
		return snap, nil
	}
	if err := p.onComplete(ctx); err != nil {
		p.mu.Lock()
		p.fired = false
		p.mu.Unlock()
		return snap, err
	}
	snap.Completed = true
	return snap, nil
}

func (p *Player) apply(ev Event, pos float64) (accepted, fire bool) {
	if pos < 0 {
		pos = 0
	}
	switch ev {
	case EventPlay:
		switch p.state {
		case Idle, Paused:
			p.position = pos
		case Ended:
			p.fired = false
			p.position = pos
		default:
			return false, false
		}
		p.state = Playing
	case EventPause:
		if p.state != Playing {
			return false, false
		}
		p.advance(pos)
		p.state = Paused
	case EventTimeUpdate:
		switch p.state {
		case Playing:
			p.advance(pos)
		case Paused:
			p.position = pos
		default:
			return false, false
		}
	case EventEnded:
		switch p.state {
		case Playing:
			p.advance(pos)
		case Paused:
			p.position = pos
		case Ended:
			if p.fired {
				return false, false
			}
		default:
			return false, false
		}
		p.state = Ended
		if !p.fired {
			p.fired = true
			return true, true
		}
	default:
		return false, false
	}
	return true, false
}

func (p *Player) advance(pos float64) {
	if d := pos - p.position; d > 0 && d <= MaxStep {
		p.watched += d
	}
	p.position = pos
}

func (p *Player) snapshot() Snapshot {
	return Snapshot{State: p.state, Position: p.position, Watched: int(p.watched)}
}

func (p *Player) idleSince(t time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen.Before(t)
}
