package routes

import (
	"net/http"

	"github.com/carebridge/checkin/app"
	"github.com/carebridge/checkin/routes/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))

		// lifecycle
		r.Post(`/surveys/{id:^\d+$}/publish`, SetSurveyStatus(app, "publish"))
		r.Post(`/surveys/{id:^\d+$}/archive`, SetSurveyStatus(app, "archive"))

		// CRUD schedule
		r.Post(`/surveys/{id:^\d+$}/schedules`, CreateSchedule(app))
		r.Get(`/surveys/{id:^\d+$}/schedules`, ListSchedules(app))
		r.Put(`/schedules/{id:^\d+$}`, UpdateSchedule(app))
		r.Delete(`/schedules/{id:^\d+$}`, DeleteSchedule(app))
		r.Get("/schedules/due", DueSchedules(app))

		r.Get(`/surveys/{id:^\d+$}/responses`, ListResponses(app))
		r.Post("/checkins", CreateCheckIn(app))
		r.Post("/assignments", CreateAssignment(app))
	})

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Caregiver(app.TokenSecret))

		r.Get("/assignments", ListAssignments(app))
		r.Get(`/surveys/{id:^\d+$}`, CaregiverGetSurvey(app))
		r.Post(`/assignments/{id:^\d+$}/response`, SubmitResponse(app))
	})

	return api
}
