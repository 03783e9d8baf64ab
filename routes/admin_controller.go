package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carebridge/checkin/app"
	"github.com/carebridge/checkin/httpx"
	"github.com/carebridge/checkin/log"
	"github.com/carebridge/checkin/model"
	"github.com/carebridge/checkin/schedule"
	"github.com/carebridge/checkin/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("field %s fails the %s constraint", fe.Field(), fe.Tag())
		}
		return msgs
	}
	return []string{err.Error()}
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// --- surveys ---

type surveyRequest struct {
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Regions     []string          `json:"regions"`
	Version     int               `json:"version"`
	Questions   []questionRequest `json:"questions" validate:"dive"`
}

type questionRequest struct {
	Text      string             `json:"text" validate:"required"`
	Type      model.QuestionType `json:"type" validate:"required,oneof=text number boolean date single_choice multi_choice"`
	Required  bool               `json:"required"`
	MinValue  *float64           `json:"min_value"`
	MaxValue  *float64           `json:"max_value"`
	MinLength *int               `json:"min_length" validate:"omitempty,min=0"`
	MaxLength *int               `json:"max_length" validate:"omitempty,min=1"`
	Options   []optionRequest    `json:"options" validate:"dive"`
}

type optionRequest struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label"`
}

func (req surveyRequest) toModel() model.Survey {
	survey := model.Survey{
		Title:       req.Title,
		Description: req.Description,
		Regions:     req.Regions,
		Version:     req.Version,
	}
	for _, q := range req.Questions {
		question := model.Question{
			Text:      q.Text,
			Type:      q.Type,
			Required:  q.Required,
			MinValue:  q.MinValue,
			MaxValue:  q.MaxValue,
			MinLength: q.MinLength,
			MaxLength: q.MaxLength,
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, model.Option{Value: o.Value, Label: o.Label})
		}
		survey.Questions = append(survey.Questions, question)
	}
	return survey
}

// choice questions need real alternatives; a lone option is a statement,
// not a question
func (req surveyRequest) invalidChoices() []string {
	var msgs []string
	for _, q := range req.Questions {
		if q.Type.Choice() && len(q.Options) < 2 {
			msgs = append(msgs, fmt.Sprintf("question %q needs at least 2 options", q.Text))
		}
	}
	return msgs
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "create_survey.validate", validationMessages(err))
			return
		}
		if msgs := req.invalidChoices(); len(msgs) > 0 {
			httpx.LogValidation(w, r, "create_survey.options", msgs)
			return
		}

		survey := req.toModel()
		if err := app.Store.CreateSurvey(r.Context(), &survey); err != nil {
			if errors.Is(err, store.ErrConflict) {
				httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "db.insert_survey", "%s", err)
				return
			}
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": survey.ID,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Store.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.Store.GetSurvey(r.Context(), surveyId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}

		render.JSON(w, r, survey)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := surveyRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "update_survey.validate", validationMessages(err))
			return
		}
		if msgs := req.invalidChoices(); len(msgs) > 0 {
			httpx.LogValidation(w, r, "update_survey.options", msgs)
			return
		}

		survey := req.toModel()
		survey.ID = surveyId

		err := app.Store.UpdateSurvey(r.Context(), &survey)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "update_survey", surveyId)
		case errors.Is(err, store.ErrConflict):
			// optimistic lock: someone else changed the survey in the meantime
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_survey.conflict")
		case err != nil:
			httpx.LogInternalError(w, "db.update_survey", err)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err := app.Store.DeleteSurvey(r.Context(), surveyId)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "delete_survey", surveyId)
		case err != nil:
			httpx.LogInternalError(w, "db.delete_survey", err)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func SetSurveyStatus(app app.App, action string) http.HandlerFunc {
	status := map[string]model.SurveyStatus{
		"publish": model.SurveyPublished,
		"archive": model.SurveyArchived,
	}[action]

	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err := app.Store.SetSurveyStatus(r.Context(), surveyId, status)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, action+"_survey", surveyId)
		case err != nil:
			httpx.LogInternalError(w, "db."+action+"_survey", err)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// --- schedules ---

type scheduleRequest struct {
	Recurrence    model.Recurrence `json:"recurrence" validate:"required,oneof=one_time daily weekly monthly custom"`
	DayOfWeek     *int             `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	DayOfMonth    *int             `json:"day_of_month" validate:"omitempty,min=1,max=31"`
	FrequencyDays *int             `json:"frequency_days" validate:"omitempty,min=1"`
	TimeOfDay     string           `json:"time_of_day" validate:"required"`
	Timezone      string           `json:"timezone" validate:"required"`
	StartDate     time.Time        `json:"start_date" validate:"required"`
	EndDate       *time.Time       `json:"end_date"`
	Active        *bool            `json:"active"`
}

func (req scheduleRequest) toModel(surveyID int64) model.Schedule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return model.Schedule{
		SurveyID:      surveyID,
		Recurrence:    req.Recurrence,
		DayOfWeek:     req.DayOfWeek,
		DayOfMonth:    req.DayOfMonth,
		FrequencyDays: req.FrequencyDays,
		TimeOfDay:     req.TimeOfDay,
		Timezone:      req.Timezone,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Active:        active,
	}
}

func CreateSchedule(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		if _, err := app.Store.GetSurvey(r.Context(), surveyId); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "create_schedule.survey", surveyId)
			} else {
				httpx.LogInternalError(w, "db.get_survey", err)
			}
			return
		}

		req := scheduleRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "create_schedule.validate", validationMessages(err))
			return
		}

		sc := req.toModel(surveyId)
		if err := schedule.Validate(sc); err != nil {
			httpx.LogValidation(w, r, "create_schedule.config", []string{err.Error()})
			return
		}

		next, err := schedule.NextRun(sc, time.Now().UTC())
		if err != nil {
			httpx.LogValidation(w, r, "create_schedule.next_run", []string{err.Error()})
			return
		}
		sc.NextRun = next

		if err := app.Store.CreateSchedule(r.Context(), &sc); err != nil {
			httpx.LogInternalError(w, "db.insert_schedule", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, sc)
	}
}

func ListSchedules(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		schedules, err := app.Store.ListSchedules(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_schedules", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"schedules": schedules,
		})
	}
}

func UpdateSchedule(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		cur, err := app.Store.GetSchedule(r.Context(), scheduleId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "update_schedule", scheduleId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_schedule", err)
			return
		}

		req := scheduleRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "update_schedule.validate", validationMessages(err))
			return
		}

		sc := req.toModel(cur.SurveyID)
		sc.ID = scheduleId
		sc.LastRun = cur.LastRun
		if err := schedule.Validate(sc); err != nil {
			httpx.LogValidation(w, r, "update_schedule.config", []string{err.Error()})
			return
		}

		next, err := schedule.NextRun(sc, time.Now().UTC())
		if err != nil {
			httpx.LogValidation(w, r, "update_schedule.next_run", []string{err.Error()})
			return
		}
		sc.NextRun = next

		if err := app.Store.UpdateSchedule(r.Context(), &sc); err != nil {
			httpx.LogInternalError(w, "db.update_schedule", err)
			return
		}

		render.JSON(w, r, sc)
	}
}

func DeleteSchedule(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err := app.Store.DeleteSchedule(r.Context(), scheduleId)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "delete_schedule", scheduleId)
		case err != nil:
			httpx.LogInternalError(w, "db.delete_schedule", err)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func DueSchedules(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		before := time.Now().UTC()
		if raw := r.URL.Query().Get("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.before")
				return
			}
			before = parsed
		}

		schedules, err := app.Store.DueSchedules(r.Context(), before)
		if err != nil {
			httpx.LogInternalError(w, "db.due_schedules", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"schedules": schedules,
		})
	}
}

// --- responses ---

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		responses, err := app.Store.ListResponses(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// --- assignments ---

type assignmentRequest struct {
	SurveyID    int64      `json:"survey_id" validate:"required"`
	CaregiverID int64      `json:"caregiver_id" validate:"required"`
	PatientID   *int64     `json:"patient_id"`
	CheckInID   *int64     `json:"checkin_id"`
	SlotAt      *time.Time `json:"slot_at"`
	DueAt       *time.Time `json:"due_at"`
}

// CreateAssignment hands a caregiver a survey outside any schedule, for
// ad-hoc spot checks. The slot defaults to now and the due time to
// slot + response window, like a dispatched assignment.
func CreateAssignment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := assignmentRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "create_assignment.validate", validationMessages(err))
			return
		}

		survey, err := app.Store.GetSurvey(r.Context(), req.SurveyID)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "create_assignment.survey", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}
		if survey.Status != model.SurveyPublished {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "create_assignment.unpublished",
				"survey %d is not accepting responses", survey.ID)
			return
		}

		if _, err := app.Store.GetCaregiver(r.Context(), req.CaregiverID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogNotFound(w, "create_assignment.caregiver", req.CaregiverID)
			} else {
				httpx.LogInternalError(w, "db.get_caregiver", err)
			}
			return
		}

		slot := time.Now().UTC()
		if req.SlotAt != nil {
			slot = req.SlotAt.UTC()
		}
		due := slot.Add(app.ResponseWindow)
		if req.DueAt != nil {
			due = req.DueAt.UTC()
		}

		a := model.Assignment{
			SurveyID:    req.SurveyID,
			CaregiverID: req.CaregiverID,
			PatientID:   req.PatientID,
			CheckInID:   req.CheckInID,
			Status:      model.AssignmentPending,
			SlotAt:      slot,
			DueAt:       due,
		}
		created, err := app.Store.CreateAssignment(r.Context(), &a)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_assignment", err)
			return
		}
		if !created {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "create_assignment.duplicate",
				"an assignment for this slot already exists")
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, a)
	}
}

// --- check-ins ---

type checkInRequest struct {
	CaregiverID int64  `json:"caregiver_id" validate:"required"`
	PatientID   *int64 `json:"patient_id"`
}

func CreateCheckIn(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := checkInRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidation(w, r, "create_checkin.validate", validationMessages(err))
			return
		}

		checkin := model.CheckIn{
			CaregiverID: req.CaregiverID,
			PatientID:   req.PatientID,
			Status:      model.CheckInPending,
		}
		if err := app.Store.CreateCheckIn(r.Context(), &checkin); err != nil {
			httpx.LogInternalError(w, "db.insert_checkin", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": checkin.ID,
		})
	}
}
