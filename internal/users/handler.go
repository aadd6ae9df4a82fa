package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/feedback-app/internal/activity"
	"github.com/ayush/feedback-app/internal/auth"
	"github.com/ayush/feedback-app/internal/models"
	"github.com/ayush/feedback-app/internal/store"
	"github.com/ayush/feedback-app/internal/web"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, username string) error
	ListFeedback(ctx context.Context, username string) ([]models.Feedback, error)
}

// ExportStore defines the interface for export object storage.
type ExportStore interface {
	Save(ctx context.Context, username string, data []byte) error
	Load(ctx context.Context, username string) ([]byte, error)
	Remove(ctx context.Context, username string) error
}

// Handler holds user page HTTP handlers. exports may be nil.
type Handler struct {
	users    UserStore
	exports  ExportStore
	sessions *auth.Sessions
	activity *activity.Log
	views    *web.Views
	log      *logrus.Logger
}

func NewHandler(users UserStore, exports ExportStore, sessions *auth.Sessions, activityLog *activity.Log, views *web.Views, log *logrus.Logger) *Handler {
	return &Handler{users: users, exports: exports, sessions: sessions, activity: activityLog, views: views, log: log}
}

// Show renders the user and everything they have written.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	username := web.PathUsername(r)

	user, err := h.users.GetUser(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		h.views.NotFound(w, username)
		return
	}
	if err != nil {
		h.fail(w, err, username, "get user")
		return
	}
	items, err := h.users.ListFeedback(r.Context(), username)
	if err != nil {
		h.fail(w, err, username, "list feedback")
		return
	}

	h.views.Render(w, http.StatusOK, "user", web.Page{
		Title:       user.FullName(),
		CurrentUser: username,
		User:        user,
		Feedback:    items,
		Activity:    h.activity.Recent(r.Context(), username),
		CanExport:   h.exports != nil,
	})
}

// Delete removes the user with their feedback and logs out every client
// holding a session for them.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := auth.CurrentSession(r)
	username := web.PathUsername(r)

	err := h.users.DeleteUser(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, err, username, "delete user")
		return
	}

	if err := h.sessions.RevokeAll(ctx, username); err != nil {
		h.log.WithError(err).WithField("username", username).Warn("revoke sessions")
	}
	if err := h.sessions.Clear(ctx, w, s); err != nil {
		h.log.WithError(err).WithField("username", username).Warn("clear session")
	}
	h.activity.Purge(ctx, username)
	if h.exports != nil {
		if err := h.exports.Remove(ctx, username); err != nil {
			h.log.WithError(err).WithField("username", username).Warn("remove export")
		}
	}

	h.log.WithField("username", username).Info("user deleted")
	web.Redirect(w, r, "/register")
}

// CreateExport snapshots the user's feedback as JSON into object storage.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	username := web.PathUsername(r)

	items, err := h.users.ListFeedback(r.Context(), username)
	if err != nil {
		h.fail(w, err, username, "list feedback")
		return
	}
	data, err := json.MarshalIndent(models.Export{
		Username:   username,
		ExportedAt: time.Now().UTC(),
		Feedback:   items,
	}, "", "  ")
	if err != nil {
		h.fail(w, err, username, "encode export")
		return
	}
	if err := h.exports.Save(r.Context(), username, data); err != nil {
		h.fail(w, err, username, "save export")
		return
	}

	h.activity.Record(r.Context(), username, models.ActionExport, 0)
	web.Redirect(w, r, web.UserPath(username))
}

// DownloadExport streams the last snapshot back as an attachment.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	username := web.PathUsername(r)

	data, err := h.exports.Load(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		h.views.NotFound(w, username)
		return
	}
	if err != nil {
		h.fail(w, err, username, "load export")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", username+"-feedback.json"))
	w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, err error, username, msg string) {
	h.log.WithError(err).WithField("username", username).Error(msg)
	h.views.ServerError(w, username)
}
