// Package server wires the application context into an HTTP router.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/ayush/feedback-app/internal/activity"
	"github.com/ayush/feedback-app/internal/auth"
	"github.com/ayush/feedback-app/internal/feedback"
	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/middleware"
	"github.com/ayush/feedback-app/internal/users"
	"github.com/ayush/feedback-app/internal/web"
)

// Store is everything the handlers need from the relational database.
type Store interface {
	auth.UserStore
	users.UserStore
	feedback.FeedbackStore
}

// App is the application context. It is built once in main and handed to
// the handler constructors; nothing reads it from a global.
type App struct {
	Store          Store
	Exports        users.ExportStore // nil disables the export routes
	Sessions       *auth.Sessions
	Activity       *activity.Log
	Views          *web.Views
	Forms          *form.Validator
	Log            *logrus.Logger
	AllowedOrigins []string
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewRouter builds the chi router with every route of the application.
func NewRouter(app *App) http.Handler {
	authHandler := auth.NewHandler(app.Store, app.Sessions, app.Activity, app.Views, app.Forms, app.Log)
	userHandler := users.NewHandler(app.Store, app.Exports, app.Sessions, app.Activity, app.Views, app.Log)
	feedbackHandler := feedback.NewHandler(app.Store, app.Activity, app.Views, app.Forms, app.Log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(app.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(app.Sessions, app.Log))

		// Auth routes (public)
		r.Get("/", authHandler.Home)
		r.Get("/register", authHandler.ShowRegister)
		r.Post("/register", authHandler.Register)
		r.Get("/login", authHandler.ShowLogin)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)

		// User routes (session must match {username})
		r.Route("/users/{username}", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/", userHandler.Show)
			r.Post("/delete", userHandler.Delete)
			r.Get("/feedback/add", feedbackHandler.ShowAdd)
			r.Post("/feedback/add", feedbackHandler.Add)
			if app.Exports != nil {
				r.Post("/export", userHandler.CreateExport)
				r.Get("/export", userHandler.DownloadExport)
			}
		})

		// Feedback routes (session must match the stored owner)
		r.Route("/feedback/{id}", func(r chi.Router) {
			r.Use(middleware.RequireLogin)
			r.Get("/update", feedbackHandler.ShowEdit)
			r.Post("/update", feedbackHandler.Edit)
			r.Post("/delete", feedbackHandler.Delete)
		})

		// Registered last so the handler reaches every mounted subrouter.
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			app.Views.NotFound(w, auth.CurrentSession(r).Username)
		})
	})

	return r
}
