package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/models"
)

func newViews(t *testing.T) *Views {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	v, err := NewViews(log)
	require.NoError(t, err)
	return v
}

func TestNewViews_ParsesEveryPage(t *testing.T) {
	v := newViews(t)
	for _, name := range []string{"register", "login", "user", "feedback_form", "not_found", "error"} {
		assert.Contains(t, v.pages, name)
	}
	assert.NotContains(t, v.pages, "layout")
}

func TestRender_FormErrors(t *testing.T) {
	v := newViews(t)
	var errs form.Errors
	errs.Add("username", "Invalid username/password.")

	w := httptest.NewRecorder()
	v.Render(w, http.StatusUnprocessableEntity, "login", Page{
		Title:  "Log in",
		Form:   struct{ Username string }{Username: "alice"},
		Errors: errs,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Invalid username/password.")
	assert.Contains(t, w.Body.String(), `value="alice"`)
}

func TestRender_UserPageMarkdownIsSafe(t *testing.T) {
	v := newViews(t)
	w := httptest.NewRecorder()
	v.Render(w, http.StatusOK, "user", Page{
		Title:       "alice",
		CurrentUser: "alice",
		User:        &models.User{Username: "alice", FirstName: "Alice", LastName: "Liddell", Email: "a@example.com"},
		Feedback: []models.Feedback{
			{ID: 7, Title: "Hello", Content: "**bold** <script>alert(1)</script> [x](javascript:alert(1))", Username: "alice"},
		},
	})

	body := w.Body.String()
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "javascript:alert")
	assert.Contains(t, body, "Alice Liddell")
	assert.Contains(t, body, "/feedback/7/update")
}

func TestRender_UnknownPage(t *testing.T) {
	v := newViews(t)
	w := httptest.NewRecorder()
	v.Render(w, http.StatusOK, "missing", Page{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNotFound(t *testing.T) {
	v := newViews(t)
	w := httptest.NewRecorder()
	v.NotFound(w, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}
