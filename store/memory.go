package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carebridge/checkin/model"
)

// Memory implements Store with plain maps under one mutex. It honors the
// same conflict and compare-and-swap semantics as the sqlite implementation,
// so the dispatcher and response committer can be exercised without a
// database.
type Memory struct {
	mu sync.Mutex

	surveys     map[int64]*model.Survey
	schedules   map[int64]*model.Schedule
	caregivers  map[int64]*model.Caregiver
	pairings    []model.Pairing
	checkins    map[int64]*model.CheckIn
	assignments map[int64]*model.Assignment
	responses   map[int64]*model.Response // by assignment id

	nextID int64
}

func NewMemory() *Memory {
	return &Memory{
		surveys:     map[int64]*model.Survey{},
		schedules:   map[int64]*model.Schedule{},
		caregivers:  map[int64]*model.Caregiver{},
		checkins:    map[int64]*model.CheckIn{},
		assignments: map[int64]*model.Assignment{},
		responses:   map[int64]*model.Response{},
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// --- surveys ---

func (m *Memory) CreateSurvey(ctx context.Context, s *model.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	s.Version = 1
	if s.Status == "" {
		s.Status = model.SurveyDraft
	}
	for i := range s.Questions {
		q := &s.Questions[i]
		q.ID = m.id()
		q.SurveyID = s.ID
		q.Position = i
		for j := range q.Options {
			q.Options[j].ID = m.id()
			q.Options[j].QuestionID = q.ID
			q.Options[j].Position = j
		}
	}
	cp := *s
	m.surveys[s.ID] = &cp
	return nil
}

func (m *Memory) UpdateSurvey(ctx context.Context, s *model.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.surveys[s.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != s.Version {
		return ErrConflict
	}
	s.Version++
	for i := range s.Questions {
		q := &s.Questions[i]
		if q.ID == 0 {
			q.ID = m.id()
		}
		q.SurveyID = s.ID
		q.Position = i
	}
	cp := *s
	m.surveys[s.ID] = &cp
	return nil
}

func (m *Memory) DeleteSurvey(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.surveys[id]; !ok {
		return ErrNotFound
	}
	// cascade like the sqlite schema: the survey owns its schedules,
	// assignments and responses
	delete(m.surveys, id)
	for sid, sc := range m.schedules {
		if sc.SurveyID == id {
			delete(m.schedules, sid)
		}
	}
	for aid, a := range m.assignments {
		if a.SurveyID == id {
			delete(m.assignments, aid)
		}
	}
	for key, r := range m.responses {
		if r.SurveyID == id {
			delete(m.responses, key)
		}
	}
	return nil
}

func (m *Memory) GetSurvey(ctx context.Context, id int64) (*model.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Survey{}
	for _, s := range m.surveys {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SetSurveyStatus(ctx context.Context, id int64, status model.SurveyStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.Version++
	return nil
}

// --- schedules ---

func (m *Memory) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc.ID = m.id()
	cp := *sc
	m.schedules[sc.ID] = &cp
	return nil
}

func (m *Memory) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[sc.ID]; !ok {
		return ErrNotFound
	}
	cp := *sc
	m.schedules[sc.ID] = &cp
	return nil
}

func (m *Memory) DeleteSchedule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *Memory) GetSchedule(ctx context.Context, id int64) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (m *Memory) ListSchedules(ctx context.Context, surveyID int64) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Schedule{}
	for _, sc := range m.schedules {
		if surveyID == 0 || sc.SurveyID == surveyID {
			out = append(out, *sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Schedule{}
	for _, sc := range m.schedules {
		if !sc.Active || sc.NextRun == nil || sc.NextRun.After(now) {
			continue
		}
		if sc.StartDate.After(now) {
			continue
		}
		if sc.EndDate != nil && sc.EndDate.Before(now) {
			continue
		}
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AdvanceSchedule(ctx context.Context, id int64, expectedNext *time.Time, lastRun time.Time, nextRun *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.schedules[id]
	if !ok {
		return false, nil
	}
	switch {
	case sc.NextRun == nil && expectedNext == nil:
	case sc.NextRun != nil && expectedNext != nil && sc.NextRun.Equal(*expectedNext):
	default:
		return false, nil
	}
	lr := lastRun
	sc.LastRun = &lr
	sc.NextRun = nextRun
	return true, nil
}

// --- caregivers ---

// AddCaregiver seeds a caregiver; pairings are added with AddPairing.
func (m *Memory) AddCaregiver(c model.Caregiver) model.Caregiver {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	if c.Role == "" {
		c.Role = "caregiver"
	}
	cp := c
	m.caregivers[c.ID] = &cp
	return c
}

func (m *Memory) AddPairing(caregiverID int64, patientID *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.caregivers[caregiverID]
	m.pairings = append(m.pairings, model.Pairing{Caregiver: *c, PatientID: patientID})
}

func (m *Memory) Pairings(ctx context.Context) ([]model.Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.Pairing{}
	paired := map[int64]bool{}
	for _, p := range m.pairings {
		if p.Caregiver.Active {
			out = append(out, p)
			paired[p.Caregiver.ID] = true
		}
	}
	for _, c := range m.caregivers {
		if c.Active && c.Role == "caregiver" && !paired[c.ID] {
			out = append(out, model.Pairing{Caregiver: *c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Caregiver.ID < out[j].Caregiver.ID })
	return out, nil
}

func (m *Memory) GetCaregiver(ctx context.Context, id int64) (*model.Caregiver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caregivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// --- check-ins ---

func (m *Memory) CreateCheckIn(ctx context.Context, c *model.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	if c.Status == "" {
		c.Status = model.CheckInPending
	}
	cp := *c
	m.checkins[c.ID] = &cp
	return nil
}

func (m *Memory) GetCheckIn(ctx context.Context, id int64) (*model.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checkins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// --- assignments ---

func slotKey(a *model.Assignment) [4]int64 {
	var patient int64
	if a.PatientID != nil {
		patient = *a.PatientID
	}
	return [4]int64{a.SurveyID, a.CaregiverID, patient, a.SlotAt.UnixNano()}
}

func (m *Memory) CreateAssignment(ctx context.Context, a *model.Assignment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey(a)
	for _, cur := range m.assignments {
		if slotKey(cur) == key {
			return false, nil
		}
	}
	a.ID = m.id()
	if a.Status == "" {
		a.Status = model.AssignmentPending
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return true, nil
}

func (m *Memory) GetAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAssignments(ctx context.Context, caregiverID int64, status model.AssignmentStatus) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Assignment{}
	for _, a := range m.assignments {
		if a.CaregiverID != caregiverID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// --- responses ---

func (m *Memory) GetResponse(ctx context.Context, assignmentID int64) (*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[assignmentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListResponses(ctx context.Context, surveyID int64) ([]model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Response{}
	for _, r := range m.responses {
		if r.SurveyID == surveyID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// --- unit of work ---

// memoryUow records writes and applies them on commit, under the store lock,
// so a failing step leaves nothing behind and racing submissions serialize on
// the assignment status check exactly like the sqlite CAS.
type memoryUow struct {
	m       *Memory
	applied []func()
}

func (m *Memory) Submit(ctx context.Context, fn func(uow UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uow := &memoryUow{m: m}
	if err := fn(uow); err != nil {
		return err
	}
	for _, apply := range uow.applied {
		apply()
	}
	return nil
}

func (u *memoryUow) CompleteAssignment(ctx context.Context, id int64, at time.Time) error {
	a, ok := u.m.assignments[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != model.AssignmentPending {
		return ErrNotPending
	}
	u.applied = append(u.applied, func() {
		at := at
		a.Status = model.AssignmentCompleted
		a.CompletedAt = &at
	})
	return nil
}

func (u *memoryUow) InsertResponse(ctx context.Context, r *model.Response) error {
	if _, ok := u.m.responses[r.AssignmentID]; ok {
		return ErrConflict
	}
	r.ID = u.m.id()
	u.applied = append(u.applied, func() {
		cp := *r
		u.m.responses[r.AssignmentID] = &cp
	})
	return nil
}

func (u *memoryUow) InsertResponseItems(ctx context.Context, responseID int64, items []model.ResponseItem) error {
	for i := range items {
		items[i].ID = u.m.id()
		items[i].ResponseID = responseID
	}
	u.applied = append(u.applied, func() {
		for _, r := range u.m.responses {
			if r.ID == responseID {
				r.Items = append(r.Items, items...)
			}
		}
	})
	return nil
}

func (u *memoryUow) CompleteCheckIn(ctx context.Context, id int64, at time.Time) error {
	c, ok := u.m.checkins[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != model.CheckInPending {
		return nil
	}
	u.applied = append(u.applied, func() {
		at := at
		c.Status = model.CheckInCompleted
		c.CompletedAt = &at
	})
	return nil
}

var _ Store = (*Memory)(nil)
var _ Store = (*SQLite)(nil)
