package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	throttled := middlewares.PublicRateLimit(app.Config)

	// public
	root.Get("/surveys", PublicListSurveys(app))
	root.Get(`/surveys/{id:^\d+$}/questions`, PublicListQuestions(app))
	root.With(throttled).Post(`/surveys/{id:^\d+$}/responses`, PublicSubmitResponse(app))
	root.With(throttled).Get("/answers/{token}", PublicResultByToken(app))

	root.Post("/auth/login", Login(app))
	root.With(middlewares.Admin(app.Auth)).Get("/auth/me", Me(app))

	root.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.Auth))

		// CRUD survey
		r.Get("/surveys", ListSurveys(app))
		r.Post("/surveys", CreateSurvey(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))

		// CRUD question
		r.Get(`/surveys/{id:^\d+$}/questions`, AdminListQuestions(app))
		r.Post(`/surveys/{id:^\d+$}/questions`, CreateQuestion(app))
		r.Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
		r.Delete(`/questions/{id:^\d+$}`, DeleteQuestion(app))
		r.Get("/questions", ListAllQuestions(app))

		r.Get("/responses", ListAllResponses(app))
		r.Get("/dashboard", Dashboard(app))
	})

	return root
}
