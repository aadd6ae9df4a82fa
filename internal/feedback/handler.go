package feedback

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/feedback-app/internal/activity"
	"github.com/ayush/feedback-app/internal/auth"
	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/models"
	"github.com/ayush/feedback-app/internal/store"
	"github.com/ayush/feedback-app/internal/web"
)

// FeedbackStore defines the interface for feedback persistence.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	GetFeedback(ctx context.Context, id int64) (*models.Feedback, error)
	UpdateFeedback(ctx context.Context, f *models.Feedback) error
	DeleteFeedback(ctx context.Context, id int64, username string) error
}

// Form is the payload of the add and update forms.
type Form struct {
	Title   string `form:"title"   validate:"required,max=100"`
	Content string `form:"content" validate:"required"`
}

// Handler holds feedback HTTP handlers.
type Handler struct {
	feedback FeedbackStore
	activity *activity.Log
	views    *web.Views
	forms    *form.Validator
	log      *logrus.Logger
}

func NewHandler(feedback FeedbackStore, activityLog *activity.Log, views *web.Views, forms *form.Validator, log *logrus.Logger) *Handler {
	return &Handler{feedback: feedback, activity: activityLog, views: views, forms: forms, log: log}
}

// ShowAdd renders the empty feedback form. The router has already checked
// that the session owns {username}.
func (h *Handler) ShowAdd(w http.ResponseWriter, r *http.Request) {
	username := web.PathUsername(r)
	h.render(w, r, http.StatusOK, "Add feedback", addPath(username), Form{}, nil)
}

// Add creates a feedback item owned by {username}.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	username := web.PathUsername(r)
	f, ok := h.parse(w, r, "Add feedback", addPath(username))
	if !ok {
		return
	}

	item := &models.Feedback{Title: f.Title, Content: f.Content, Username: username}
	if err := h.feedback.CreateFeedback(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.views.NotFound(w, username)
			return
		}
		h.fail(w, r, err, "create feedback")
		return
	}

	h.activity.Record(r.Context(), username, models.ActionFeedbackCreate, item.ID)
	web.Redirect(w, r, web.UserPath(username))
}

// ShowEdit renders the form for an existing item owned by the session user.
func (h *Handler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "Edit feedback", updatePath(item.ID), Form{Title: item.Title, Content: item.Content}, nil)
}

// Edit rewrites the title and content of an item owned by the session user.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	f, ok := h.parse(w, r, "Edit feedback", updatePath(item.ID))
	if !ok {
		return
	}

	item.Title, item.Content = f.Title, f.Content
	if err := h.feedback.UpdateFeedback(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.views.NotFound(w, item.Username)
			return
		}
		h.fail(w, r, err, "update feedback")
		return
	}

	h.activity.Record(r.Context(), item.Username, models.ActionFeedbackUpdate, item.ID)
	web.Redirect(w, r, web.UserPath(item.Username))
}

// Delete removes an item owned by the session user.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.feedback.DeleteFeedback(r.Context(), item.ID, item.Username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.views.NotFound(w, item.Username)
			return
		}
		h.fail(w, r, err, "delete feedback")
		return
	}

	h.activity.Record(r.Context(), item.Username, models.ActionFeedbackDelete, item.ID)
	web.Redirect(w, r, web.UserPath(item.Username))
}

// loadOwned fetches {id} and checks it belongs to the session user. An
// unknown id is a 404; someone else's item sends the client to /login.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Feedback, bool) {
	s := auth.CurrentSession(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.views.NotFound(w, s.Username)
		return nil, false
	}
	item, err := h.feedback.GetFeedback(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.views.NotFound(w, s.Username)
		return nil, false
	}
	if err != nil {
		h.fail(w, r, err, "get feedback")
		return nil, false
	}
	if !s.Is(item.Username) {
		h.log.WithFields(logrus.Fields{"feedback_id": id, "username": s.Username}).Warn("feedback owner mismatch")
		web.Redirect(w, r, "/login")
		return nil, false
	}
	return item, true
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request, title, action string) (Form, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return Form{}, false
	}
	f := Form{
		Title:   form.Field(r, "title"),
		Content: form.Field(r, "content"),
	}
	errs, err := h.forms.Validate(f)
	if err != nil {
		h.fail(w, r, err, "validate feedback form")
		return Form{}, false
	}
	if errs.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, title, action, f, errs)
		return Form{}, false
	}
	return f, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, action string, f Form, errs form.Errors) {
	h.views.Render(w, status, "feedback_form", web.Page{
		Title:       title,
		CurrentUser: auth.CurrentSession(r).Username,
		Action:      action,
		Form:        f,
		Errors:      errs,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.log.WithError(err).Error(msg)
	h.views.ServerError(w, auth.CurrentSession(r).Username)
}

func addPath(username string) string { return web.UserPath(username) + "/feedback/add" }

func updatePath(id int64) string { return web.FeedbackPath(id) + "/update" }
