package routes

import (
	"encoding/json"
	"net/http"

	"github.com/carebridge/checkin/app"
	"github.com/carebridge/checkin/httpx"
	"github.com/carebridge/checkin/log"
	"github.com/carebridge/checkin/model"
	"github.com/carebridge/checkin/routes/middlewares"
	"github.com/carebridge/checkin/store"
	"github.com/carebridge/checkin/submission"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
)

func ListAssignments(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.AssignmentStatus(r.URL.Query().Get("status"))
		switch status {
		case "", model.AssignmentPending, model.AssignmentCompleted:
		default:
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.status")
			return
		}

		assignments, err := app.Store.ListAssignments(r.Context(), middlewares.CaregiverID(r), status)
		if err != nil {
			httpx.LogInternalError(w, "db.get_assignments", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"assignments": assignments,
		})
	}
}

// CaregiverGetSurvey serves the question schema a caregiver fills in.
// Only published surveys are visible here.
func CaregiverGetSurvey(app app.App) http.HandlerFunc {
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
		if survey.Status != model.SurveyPublished {
			httpx.LogNotFound(w, "get_survey.unpublished", surveyId)
			return
		}

		render.JSON(w, r, survey)
	}
}

type submitRequest struct {
	Answers map[int64]json.RawMessage `json:"answers"`
	Meta    map[string]any            `json:"meta"`
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentId, ok := urlID(r)
		if !ok {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := submitRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		response, err := app.Committer.Submit(r.Context(),
			middlewares.CaregiverID(r), assignmentId, req.Answers, req.Meta)

		var verr *submission.ValidationError
		switch {
		case errors.Is(err, submission.ErrForbidden):
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "submit.forbidden")
		case errors.Is(err, submission.ErrAlreadySubmitted):
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "submit.repeat",
				"assignment %d was already submitted", assignmentId)
		case errors.Is(err, submission.ErrExpired):
			httpx.LogStatusMsg(w, http.StatusGone, log.DebugLevel, "submit.expired",
				"assignment %d is past its due time", assignmentId)
		case errors.Is(err, submission.ErrNotAvailable):
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "submit.not_available",
				"the survey is not accepting responses")
		case errors.As(err, &verr):
			httpx.LogValidation(w, r, "submit.validate", verr.Messages())
		case err != nil:
			httpx.LogInternalError(w, "submit", err)
		default:
			w.WriteHeader(http.StatusCreated)
			render.JSON(w, r, response)
		}
	}
}
