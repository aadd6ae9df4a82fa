package auth

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/feedback-app/internal/activity"
	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/models"
	"github.com/ayush/feedback-app/internal/store"
	"github.com/ayush/feedback-app/internal/web"
)

const invalidCredentials = "Invalid username/password."

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users    UserStore
	sessions *Sessions
	activity *activity.Log
	views    *web.Views
	forms    *form.Validator
	log      *logrus.Logger
}

func NewHandler(users UserStore, sessions *Sessions, activityLog *activity.Log, views *web.Views, forms *form.Validator, log *logrus.Logger) *Handler {
	return &Handler{users: users, sessions: sessions, activity: activityLog, views: views, forms: forms, log: log}
}

// Home sends visitors to their own page, or to registration.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if s := CurrentSession(r); s.LoggedIn() {
		web.Redirect(w, r, web.UserPath(s.Username))
		return
	}
	web.Redirect(w, r, "/register")
}

// ShowRegister renders the empty registration form.
func (h *Handler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if s := CurrentSession(r); s.LoggedIn() {
		web.Redirect(w, r, web.UserPath(s.Username))
		return
	}
	h.views.Render(w, http.StatusOK, "register", web.Page{Title: "Register", Form: RegisterForm{}})
}

// Register creates a new user and logs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f := RegisterForm{
		Username:  form.Field(r, "username"),
		Password:  r.PostFormValue("password"),
		Email:     form.Field(r, "email"),
		FirstName: form.Field(r, "first_name"),
		LastName:  form.Field(r, "last_name"),
	}
	errs, err := h.forms.Validate(f)
	if err != nil {
		h.fail(w, r, err, "validate register form")
		return
	}
	if errs.Any() {
		h.renderRegister(w, http.StatusUnprocessableEntity, f, errs)
		return
	}

	user, err := Register(f)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		errs.Add("password", "Must be at most 72 bytes.")
		h.renderRegister(w, http.StatusUnprocessableEntity, f, errs)
		return
	}
	if err != nil {
		h.fail(w, r, err, "register user")
		return
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			h.log.WithField("field", dup.Field).Info("registration conflict")
			errs.Add(dup.Field, duplicateMessage(dup.Field))
			h.renderRegister(w, http.StatusConflict, f, errs)
			return
		}
		h.fail(w, r, err, "create user")
		return
	}

	if _, err := h.sessions.Set(w, r, user.Username); err != nil {
		h.fail(w, r, err, "create session")
		return
	}
	h.activity.Record(r.Context(), user.Username, models.ActionRegister, 0)
	h.log.WithField("username", user.Username).Info("user registered")
	web.Redirect(w, r, web.UserPath(user.Username))
}

// ShowLogin renders the empty login form.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if s := CurrentSession(r); s.LoggedIn() {
		web.Redirect(w, r, web.UserPath(s.Username))
		return
	}
	h.views.Render(w, http.StatusOK, "login", web.Page{Title: "Log in", Form: LoginForm{}})
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f := LoginForm{
		Username: form.Field(r, "username"),
		Password: r.PostFormValue("password"),
	}
	errs, err := h.forms.Validate(f)
	if err != nil {
		h.fail(w, r, err, "validate login form")
		return
	}
	if errs.Any() {
		h.renderLogin(w, f, errs)
		return
	}

	user, ok, err := Authenticate(r.Context(), h.users, f.Username, f.Password)
	if err != nil {
		h.fail(w, r, err, "authenticate")
		return
	}
	if !ok {
		h.log.WithField("username", f.Username).Info("login failed")
		errs.Add("username", invalidCredentials)
		h.renderLogin(w, f, errs)
		return
	}

	if _, err := h.sessions.Set(w, r, user.Username); err != nil {
		h.fail(w, r, err, "create session")
		return
	}
	h.activity.Record(r.Context(), user.Username, models.ActionLogin, 0)
	web.Redirect(w, r, web.UserPath(user.Username))
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s := CurrentSession(r)
	if err := h.sessions.Clear(r.Context(), w, s); err != nil {
		h.log.WithError(err).Warn("clear session")
	}
	if s.LoggedIn() {
		h.activity.Record(r.Context(), s.Username, models.ActionLogout, 0)
	}
	web.Redirect(w, r, "/login")
}

func (h *Handler) renderRegister(w http.ResponseWriter, status int, f RegisterForm, errs form.Errors) {
	f.Password = ""
	h.views.Render(w, status, "register", web.Page{Title: "Register", Form: f, Errors: errs})
}

func (h *Handler) renderLogin(w http.ResponseWriter, f LoginForm, errs form.Errors) {
	f.Password = ""
	h.views.Render(w, http.StatusUnprocessableEntity, "login", web.Page{Title: "Log in", Form: f, Errors: errs})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.WithError(err).Error(msg)
	h.views.ServerError(w, CurrentSession(r).Username)
}

func duplicateMessage(field string) string {
	switch field {
	case "username":
		return "Username is already taken."
	case "email":
		return "Email is already registered."
	default:
		return "Already in use."
	}
}
