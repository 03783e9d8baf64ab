package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carebridge/checkin/app"
	"github.com/carebridge/checkin/config"
	"github.com/carebridge/checkin/model"
	"github.com/carebridge/checkin/store"
	"github.com/pkg/errors"
)

func testApp(st *store.Memory) app.App {
	return app.App{
		Store:  st,
		Config: config.Config{ResponseWindow: 24 * time.Hour},
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestCreateAssignmentManual(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	survey := model.Survey{Title: "Spot check", Status: model.SurveyPublished}
	if err := st.CreateSurvey(context.Background(), &survey); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	cg := st.AddCaregiver(model.Caregiver{Username: "alice", Region: "north", Active: true})

	slot := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	body := map[string]any{
		"survey_id":    survey.ID,
		"caregiver_id": cg.ID,
		"slot_at":      slot,
	}

	w := postJSON(t, CreateAssignment(testApp(st)), "/api/admin/assignments", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body)
	}

	a := model.Assignment{}
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if a.Status != model.AssignmentPending {
		t.Errorf("status = %s, want pending", a.Status)
	}
	if !a.SlotAt.Equal(slot) {
		t.Errorf("slot = %v, want %v", a.SlotAt, slot)
	}
	if want := slot.Add(24 * time.Hour); !a.DueAt.Equal(want) {
		t.Errorf("due = %v, want slot + response window %v", a.DueAt, want)
	}

	stored, err := st.GetAssignment(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if stored.CaregiverID != cg.ID || stored.SurveyID != survey.ID {
		t.Errorf("stored assignment = %+v", stored)
	}

	// a second manual assignment for the same slot is refused
	w = postJSON(t, CreateAssignment(testApp(st)), "/api/admin/assignments", body)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
}

func TestCreateAssignmentRejectsBadTargets(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	draft := model.Survey{Title: "Draft", Status: model.SurveyDraft}
	if err := st.CreateSurvey(context.Background(), &draft); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	cg := st.AddCaregiver(model.Caregiver{Username: "alice", Region: "north", Active: true})

	w := postJSON(t, CreateAssignment(testApp(st)), "/api/admin/assignments", map[string]any{
		"survey_id": int64(9999), "caregiver_id": cg.ID,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown survey status = %d, want 404", w.Code)
	}

	w = postJSON(t, CreateAssignment(testApp(st)), "/api/admin/assignments", map[string]any{
		"survey_id": draft.ID, "caregiver_id": cg.ID,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("draft survey status = %d, want 409", w.Code)
	}

	published := model.Survey{Title: "Live", Status: model.SurveyPublished}
	if err := st.CreateSurvey(context.Background(), &published); err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	w = postJSON(t, CreateAssignment(testApp(st)), "/api/admin/assignments", map[string]any{
		"survey_id": published.ID, "caregiver_id": int64(9999),
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown caregiver status = %d, want 404", w.Code)
	}
}

func TestCreateSurveyRejectsOptionlessChoice(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()

	body := map[string]any{
		"title": "Daily check-in",
		"questions": []map[string]any{
			{"text": "Mood", "type": "single_choice", "required": true},
			{"text": "Symptoms", "type": "multi_choice", "options": []map[string]any{
				{"value": "fever"},
			}},
			{"text": "Notes", "type": "text"},
		},
	}

	w := postJSON(t, CreateSurvey(testApp(st)), "/api/admin/surveys", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%s)", w.Code, w.Body)
	}

	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Errors) != 2 {
		t.Errorf("errors = %q, want one per underpopulated choice question", resp.Errors)
	}

	surveys, err := st.ListSurveys(context.Background())
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if len(surveys) != 0 {
		t.Errorf("stored %d surveys, want none", len(surveys))
	}
}

func TestCreateSurveyAcceptsProperChoices(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()

	body := map[string]any{
		"title": "Daily check-in",
		"questions": []map[string]any{
			{"text": "Mood", "type": "single_choice", "required": true, "options": []map[string]any{
				{"value": "good"}, {"value": "bad"},
			}},
		},
	}

	w := postJSON(t, CreateSurvey(testApp(st)), "/api/admin/surveys", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if _, err := st.GetSurvey(context.Background(), created.ID); errors.Is(err, store.ErrNotFound) {
		t.Error("survey was not stored")
	}
}
