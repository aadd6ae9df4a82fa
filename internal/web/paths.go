package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Redirect answers with 303 See Other so a POST is followed by a GET.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func UserPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

// PathUsername returns the decoded {username} route parameter. chi matches
// against the raw path when the request carries escapes the default
// encoding would not produce, so "a%3Bb" must be read back as "a;b".
func PathUsername(r *http.Request) string {
	raw := chi.URLParam(r, "username")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}

func FeedbackPath(id int64) string {
	return "/feedback/" + strconv.FormatInt(id, 10)
}
