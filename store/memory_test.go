package store

import (
	"context"
	"testing"
	"time"

	"github.com/carebridge/checkin/model"
	"github.com/pkg/errors"
)

func timep(t time.Time) *time.Time { return &t }
func utc(s string) time.Time       { t, _ := time.Parse(time.RFC3339, s); return t }

func TestMemoryUpdateSurveyVersionConflict(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	s := model.Survey{Title: "Check-in"}
	if err := m.CreateSurvey(ctx, &s); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}

	fresh := s
	fresh.Title = "Check-in v2"
	if err := m.UpdateSurvey(ctx, &fresh); err != nil {
		t.Fatalf("UpdateSurvey: %v", err)
	}

	stale := s
	stale.Title = "Check-in stale"
	if err := m.UpdateSurvey(ctx, &stale); !errors.Is(err, ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}
}

func TestMemoryCreateAssignmentDedupesSlot(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	slot := utc("2025-08-20T09:00:00Z")
	a := model.Assignment{SurveyID: 1, CaregiverID: 2, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if ok, err := m.CreateAssignment(ctx, &a); err != nil || !ok {
		t.Fatalf("first create = (%v, %v), want created", ok, err)
	}

	dup := model.Assignment{SurveyID: 1, CaregiverID: 2, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if ok, err := m.CreateAssignment(ctx, &dup); err != nil || ok {
		t.Errorf("duplicate create = (%v, %v), want skipped", ok, err)
	}

	// a different patient for the same slot is a distinct assignment
	patient := int64(7)
	other := model.Assignment{SurveyID: 1, CaregiverID: 2, PatientID: &patient, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if ok, err := m.CreateAssignment(ctx, &other); err != nil || !ok {
		t.Errorf("distinct patient create = (%v, %v), want created", ok, err)
	}
}

func TestMemoryAdvanceScheduleCompareAndSwap(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	next := utc("2025-08-20T09:00:00Z")
	sc := model.Schedule{SurveyID: 1, Recurrence: model.Daily, TimeOfDay: "09:00", Timezone: "UTC",
		StartDate: utc("2025-01-01T00:00:00Z"), Active: true, NextRun: timep(next)}
	if err := m.CreateSchedule(ctx, &sc); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	now := utc("2025-08-20T09:05:00Z")
	newNext := utc("2025-08-21T09:00:00Z")

	won, err := m.AdvanceSchedule(ctx, sc.ID, timep(next), now, timep(newNext))
	if err != nil || !won {
		t.Fatalf("first advance = (%v, %v), want won", won, err)
	}

	// a concurrent tick holding the stale expectation must lose
	won, err = m.AdvanceSchedule(ctx, sc.ID, timep(next), now, timep(newNext))
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if won {
		t.Error("second advance with stale expectation won, want lost")
	}

	got, err := m.GetSchedule(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.NextRun == nil || !got.NextRun.Equal(newNext) {
		t.Errorf("next_run = %v, want %v", got.NextRun, newNext)
	}
}

func TestMemoryAdvanceScheduleNilExpectation(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sc := model.Schedule{SurveyID: 1, Recurrence: model.OneTime, TimeOfDay: "09:00", Timezone: "UTC",
		StartDate: utc("2025-01-01T00:00:00Z"), Active: true}
	if err := m.CreateSchedule(ctx, &sc); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	now := utc("2025-08-20T09:05:00Z")
	won, err := m.AdvanceSchedule(ctx, sc.ID, nil, now, nil)
	if err != nil || !won {
		t.Fatalf("advance with nil expectation = (%v, %v), want won on null column", won, err)
	}

	won, err = m.AdvanceSchedule(ctx, sc.ID, timep(now), now, nil)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if won {
		t.Error("advance expecting a value won against a null column")
	}
}

func TestMemorySubmitRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	slot := utc("2025-08-20T09:00:00Z")
	a := model.Assignment{SurveyID: 1, CaregiverID: 2, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if _, err := m.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	boom := errors.New("downstream failure")
	err := m.Submit(ctx, func(uow UnitOfWork) error {
		if err := uow.CompleteAssignment(ctx, a.ID, utc("2025-08-20T15:00:00Z")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Submit err = %v, want the injected failure", err)
	}

	got, err := m.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.Status != model.AssignmentPending || got.CompletedAt != nil {
		t.Errorf("assignment after failed submit = %+v, want untouched", got)
	}
}

func TestMemorySubmitCompletedAssignmentNotPending(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	slot := utc("2025-08-20T09:00:00Z")
	at := utc("2025-08-20T15:00:00Z")
	a := model.Assignment{SurveyID: 1, CaregiverID: 2, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if _, err := m.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	err := m.Submit(ctx, func(uow UnitOfWork) error {
		return uow.CompleteAssignment(ctx, a.ID, at)
	})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	err = m.Submit(ctx, func(uow UnitOfWork) error {
		return uow.CompleteAssignment(ctx, a.ID, at)
	})
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("second Submit err = %v, want ErrNotPending", err)
	}
}

func TestMemoryDeleteSurveyCascades(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	s := model.Survey{Title: "Check-in", Status: model.SurveyPublished}
	if err := m.CreateSurvey(ctx, &s); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	sc := model.Schedule{SurveyID: s.ID, Recurrence: model.Daily, TimeOfDay: "09:00",
		Timezone: "UTC", StartDate: utc("2025-01-01T00:00:00Z"), Active: true}
	if err := m.CreateSchedule(ctx, &sc); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	slot := utc("2025-08-20T09:00:00Z")
	a := model.Assignment{SurveyID: s.ID, CaregiverID: 2, SlotAt: slot, DueAt: slot.Add(24 * time.Hour)}
	if _, err := m.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	at := utc("2025-08-20T15:00:00Z")
	err := m.Submit(ctx, func(uow UnitOfWork) error {
		if err := uow.CompleteAssignment(ctx, a.ID, at); err != nil {
			return err
		}
		return uow.InsertResponse(ctx, &model.Response{
			AssignmentID: a.ID, SurveyID: s.ID, CaregiverID: 2,
			Reference: "ref-1", SubmittedAt: at,
		})
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := m.DeleteSurvey(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}

	if _, err := m.GetSchedule(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSchedule err = %v, want ErrNotFound after cascade", err)
	}
	if _, err := m.GetAssignment(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAssignment err = %v, want ErrNotFound after cascade", err)
	}
	if _, err := m.GetResponse(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetResponse err = %v, want ErrNotFound after cascade", err)
	}
}

func TestMemoryPairingsIncludeUnpairedCaregivers(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	paired := m.AddCaregiver(model.Caregiver{Username: "alice", Region: "north", Active: true})
	solo := m.AddCaregiver(model.Caregiver{Username: "bob", Region: "south", Active: true})
	m.AddCaregiver(model.Caregiver{Username: "carol", Region: "north", Active: false})
	m.AddCaregiver(model.Caregiver{Username: "dave", Region: "north", Role: "admin", Active: true})

	patient := int64(42)
	m.AddPairing(paired.ID, &patient)

	pairings, err := m.Pairings(ctx)
	if err != nil {
		t.Fatalf("Pairings: %v", err)
	}
	if len(pairings) != 2 {
		t.Fatalf("got %d pairings, want 2 (paired alice, solo bob)", len(pairings))
	}
	if pairings[0].Caregiver.ID != paired.ID || pairings[0].PatientID == nil || *pairings[0].PatientID != patient {
		t.Errorf("pairings[0] = %+v, want alice with patient %d", pairings[0], patient)
	}
	if pairings[1].Caregiver.ID != solo.ID || pairings[1].PatientID != nil {
		t.Errorf("pairings[1] = %+v, want bob without patient", pairings[1])
	}
}
