package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EntryState int

const (
	Pending EntryState = iota + 1
	Confirmed
	Failed
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type entry struct {
	state EntryState
	seq   uint64
	at    time.Time
}

// Overlay holds lesson completions applied locally before the backend has
// confirmed them. Failed entries are removed immediately.
type Overlay struct {
	mu      sync.Mutex
	seq     uint64
	entries map[uuid.UUID]entry
	touched time.Time
}

func NewOverlay() *Overlay {
	return &Overlay{entries: make(map[uuid.UUID]entry), touched: time.Now()}
}

func (o *Overlay) set(lessonID uuid.UUID, s EntryState) {
	o.seq++
	o.entries[lessonID] = entry{state: s, seq: o.seq, at: time.Now()}
}

// AddPending marks a lesson complete optimistically.
func (o *Overlay) AddPending(lessonID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.entries[lessonID].state == Confirmed {
		return
	}
	o.set(lessonID, Pending)
}

func (o *Overlay) Confirm(lessonID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set(lessonID, Confirmed)
}

// Fail rolls back an optimistic completion.
func (o *Overlay) Fail(lessonID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.entries[lessonID].state == Pending {
		delete(o.entries, lessonID)
	}
}

func (o *Overlay) State(lessonID uuid.UUID) (EntryState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[lessonID]
	return e.state, ok
}

// CompletedIDs returns pending and confirmed lesson ids.
func (o *Overlay) CompletedIDs() []uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]uuid.UUID, 0, len(o.entries))
	for id, e := range o.entries {
		if e.state == Pending || e.state == Confirmed {
			out = append(out, id)
		}
	}
	return out
}

// BeginRefetch marks the start of a full read; pass the result to Reconcile.
func (o *Overlay) BeginRefetch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	return o.seq
}

// Reconcile applies a full refetch that started at mark. The server's
// completed set wins: entries it reports are dropped, and so are entries
// confirmed before the read started. Pending writes and confirmations that
// raced the read are kept until the next refetch.
func (o *Overlay) Reconcile(mark uint64, serverCompleted map[uuid.UUID]bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, e := range o.entries {
		if serverCompleted[id] || (e.state == Confirmed && e.seq < mark) {
			delete(o.entries, id)
		}
	}
}

func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

func (o *Overlay) touch() {
	o.mu.Lock()
	o.touched = time.Now()
	o.mu.Unlock()
}

// expire drops entries confirmed before cutoff; the backend already holds
// them. It reports whether the overlay is empty and untouched since cutoff.
func (o *Overlay) expire(cutoff time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, e := range o.entries {
		if e.state == Confirmed && e.at.Before(cutoff) {
			delete(o.entries, id)
		}
	}
	return len(o.entries) == 0 && o.touched.Before(cutoff)
}

// Overlays keeps one overlay per student.
type Overlays struct {
	mu sync.Mutex
	m  map[uuid.UUID]*Overlay
}

func NewOverlays() *Overlays {
	return &Overlays{m: make(map[uuid.UUID]*Overlay)}
}

func (r *Overlays) For(studentID uuid.UUID) *Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[studentID]
	if !ok {
		o = NewOverlay()
		r.m[studentID] = o
		return o
	}
	o.touch()
	return o
}

// Sweep expires entries confirmed more than maxIdle ago and drops overlays
// that are then empty and unused for maxIdle. Pending entries are never
// dropped. It returns how many overlays were removed.
func (r *Overlays) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, o := range r.m {
		if o.expire(cutoff) {
			delete(r.m, id)
			n++
		}
	}
	return n
}

func (r *Overlays) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
