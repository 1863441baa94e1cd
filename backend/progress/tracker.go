package progress

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"coursehub/backend/models"
)

// DashboardState is what the presentation layer renders.
type DashboardState struct {
	Courses []models.DashboardCourseView `json:"courses"`
	Stats   models.AccountStats          `json:"stats"`
	Loading bool                         `json:"loading"`
	Error   error                        `json:"-"`
}

// Tracker holds the four independent sources of the dashboard and recomputes
// derived state only once all of them are present. Sources may arrive in any
// order; every later update recomputes.
type Tracker struct {
	mu sync.Mutex

	enrollments []models.Enrollment
	courses     map[uuid.UUID]models.Course
	lessons     map[uuid.UUID][]models.Lesson
	records     []models.LessonProgress
	overlay     func() []uuid.UUID

	haveEnrollments, haveCourses, haveLessons, haveRecords bool

	state DashboardState
}

// NewTracker takes the overlay source consulted at every recomputation; nil
// means no optimistic state.
func NewTracker(overlay func() []uuid.UUID) *Tracker {
	if overlay == nil {
		overlay = func() []uuid.UUID { return nil }
	}
	return &Tracker{overlay: overlay, state: DashboardState{Loading: true}}
}

func (t *Tracker) SetEnrollments(v []models.Enrollment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enrollments, t.haveEnrollments = v, true
	t.recompute()
}

func (t *Tracker) SetCourses(v []models.Course) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.courses = make(map[uuid.UUID]models.Course, len(v))
	for _, c := range v {
		t.courses[c.ID] = c
	}
	t.haveCourses = true
	t.recompute()
}

// SetLessons replaces the catalog for every course at once.
func (t *Tracker) SetLessons(byCourse map[uuid.UUID][]models.Lesson) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lessons, t.haveLessons = byCourse, true
	t.recompute()
}

func (t *Tracker) SetProgress(v []models.LessonProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records, t.haveRecords = v, true
	t.recompute()
}

// Refresh recomputes with the current overlay.
func (t *Tracker) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recompute()
}

// Fail records a load error; derived state is left as it was.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Error = err
	t.state.Loading = false
}

func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready()
}

func (t *Tracker) ready() bool {
	return t.haveEnrollments && t.haveCourses && t.haveLessons && t.haveRecords
}

func (t *Tracker) State() DashboardState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	s.Courses = append([]models.DashboardCourseView(nil), t.state.Courses...)
	return s
}

func (t *Tracker) recompute() {
	if !t.ready() {
		t.state.Loading = t.state.Error == nil
		return
	}

	byCourse := make(map[uuid.UUID][]models.LessonProgress)
	for _, r := range t.records {
		byCourse[r.CourseID] = append(byCourse[r.CourseID], r)
	}
	overlay := t.overlay()

	views := make([]models.DashboardCourseView, 0, len(t.enrollments))
	for _, e := range t.enrollments {
		if !e.IsActive {
			continue
		}
		course, ok := t.courses[e.CourseID]
		if !ok {
			continue
		}
		views = append(views, DeriveCourseProgress(e, course, t.lessons[e.CourseID], byCourse[e.CourseID], overlay))
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].EnrolledAt.After(views[j].EnrolledAt) })

	t.state = DashboardState{
		Courses: views,
		Stats:   ComputeAccountStats(views),
	}
}
